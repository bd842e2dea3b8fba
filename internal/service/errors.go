package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/maheshrc27/postflow/internal/transfer"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrNotClaimable     = errors.New("post is not in a publishable state")
	ErrNoAccount        = errors.New("no account connected")
	ErrMediaRequired    = errors.New("media is required")
	ErrMediaNotPublic   = errors.New("media url is not publicly reachable")
	ErrContainerTimeout = errors.New("media container did not become ready in time")
	ErrContainerExpired = errors.New("media container expired")
	ErrContainerFailed  = errors.New("media container failed")
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")
	ErrDriveNotLinked   = errors.New("drive not connected")
	ErrEmptyPool        = errors.New("no media in folder")
)

const (
	NoAccountMessage      = "No Instagram account connected. Connect an account before publishing."
	NonPublicMediaMessage = "Media URL must be publicly accessible. Instagram cannot fetch media from localhost or a private address. " +
		"Store the media in public storage (R2) or deploy the app with a public base URL."
	interruptedMessage      = "Publishing was interrupted before Instagram confirmed the post. Check the account, then publish it again."
	expiredContainerMessage = "The media container expired before it was published. Publish the post again."
)

// PublishError carries the reason shown to the operator on a failed post.
type PublishError struct {
	Reason string
	Err    error
}

func (e *PublishError) Error() string { return e.Reason }

func (e *PublishError) Unwrap() error { return e.Err }

// FailureReason is the text stored on a failed post.
func FailureReason(err error) string {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	var ge *transfer.GraphError
	if errors.As(err, &ge) {
		return describeGraphError(ge)
	}
	if errors.Is(err, ErrNoAccount) {
		return NoAccountMessage
	}
	if errors.Is(err, ErrMediaNotPublic) {
		return NonPublicMediaMessage
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return interruptedMessage
	}
	return err.Error()
}

// graphSubcodeMessages maps Instagram publishing subcodes to the fix an
// operator should apply.
var graphSubcodeMessages = map[int]string{
	2207001: "Instagram could not process the media right now. Try publishing again in a few minutes.",
	2207003: "Instagram timed out downloading the media. Use a smaller file or a faster public host.",
	2207004: "The image is larger than 8 MB. Compress or resize it and try again.",
	2207005: "The image format is not supported. Convert it to JPEG and try again.",
	2207006: "The media was not found at its URL. Upload it again and retry.",
	2207008: expiredContainerMessage,
	2207009: "The aspect ratio is not supported. Crop images to between 4:5 and 1.91:1.",
	2207010: "The caption is too long. Keep it under 2,200 characters and 30 hashtags.",
	2207020: "The media expired on Instagram's side. Upload it again.",
	2207023: "Instagram did not recognize the media type. Check that the file is a supported image or video.",
	2207026: "The video format is not supported. Re-encode it as MP4 with H.264 video and AAC audio.",
	2207042: "The account reached Instagram's limit of 25 posts per 24 hours. Try again tomorrow.",
	2207052: "Instagram could not fetch the media from its URL. Make sure the URL is public and serves the file directly.",
	2207053: "The video upload failed on Instagram's side. Re-encode it as MP4 with H.264 video and AAC audio and retry.",
}

var graphCodeMessages = map[int]string{
	4:   "Instagram rate limit reached. Wait a few minutes and try again.",
	10:  "The account is missing the content publishing permission. Reconnect it and grant publishing access.",
	17:  "Instagram rate limit reached. Wait a few minutes and try again.",
	32:  "Instagram rate limit reached. Wait a few minutes and try again.",
	190: "The Instagram access token is invalid or expired. Reconnect the account.",
	200: "The account is missing the content publishing permission. Reconnect it and grant publishing access.",
	613: "Instagram rate limit reached. Wait a few minutes and try again.",
}

type graphErrorClass int

const (
	graphErrorOther graphErrorClass = iota
	graphErrorUnknownMediaType
	graphErrorIncompatibleParam
)

const graphCodeInvalidParameter = 100

var graphSubcodeClasses = map[int]graphErrorClass{
	2207023: graphErrorUnknownMediaType,
}

func classifyGraphError(err error) graphErrorClass {
	var ge *transfer.GraphError
	if !errors.As(err, &ge) {
		return graphErrorOther
	}
	if class, ok := graphSubcodeClasses[ge.ErrorSubcode]; ok {
		return class
	}
	if ge.Code == graphCodeInvalidParameter {
		return graphErrorIncompatibleParam
	}
	return graphErrorOther
}

func describeGraphError(ge *transfer.GraphError) string {
	if msg, ok := graphSubcodeMessages[ge.ErrorSubcode]; ok {
		return msg
	}
	if msg, ok := graphCodeMessages[ge.Code]; ok {
		return msg
	}
	if ge.ErrorUserMsg != "" {
		return ge.ErrorUserMsg
	}
	if ge.Message != "" {
		return ge.Message
	}
	return "Instagram rejected the request."
}

var statusCodePattern = regexp.MustCompile(`\d{4,}`)

// describeContainerStatus turns an ERROR container's status detail into a
// message, looking up the embedded subcode when there is one.
func describeContainerStatus(detail string) string {
	if match := statusCodePattern.FindString(detail); match != "" {
		if code, err := strconv.Atoi(match); err == nil {
			if msg, ok := graphSubcodeMessages[code]; ok {
				return msg
			}
		}
	}
	if detail != "" {
		return fmt.Sprintf("Instagram could not process the media (%s).", detail)
	}
	return "Instagram could not process the media."
}

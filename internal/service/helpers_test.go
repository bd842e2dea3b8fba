package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/stretchr/testify/assert"
)

func TestIsPublicMediaURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/a.jpg", true},
		{"http://media.example.org:8080/v.mp4", true},
		{"https://93.184.216.34/a.jpg", true},
		{"http://localhost:3000/a.jpg", false},
		{"http://LOCALHOST/a.jpg", false},
		{"http://app.localhost/a.jpg", false},
		{"http://127.0.0.1/a.jpg", false},
		{"http://[::1]/a.jpg", false},
		{"http://0.0.0.0/a.jpg", false},
		{"http://192.168.1.20/a.jpg", false},
		{"http://10.0.0.5/a.jpg", false},
		{"http://169.254.1.1/a.jpg", false},
		{"ftp://cdn.example.com/a.jpg", false},
		{"/uploads/a.jpg", false},
		{"not a url", false},
		{"", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPublicMediaURL(tt.url))
		})
	}
}

func TestBuildCaption(t *testing.T) {
	tests := []struct {
		name     string
		caption  string
		hashtags []string
		want     string
	}{
		{"caption and tags", "Hello", []string{"#a", "#b"}, "Hello\n\n#a #b"},
		{"caption only", "Hello", nil, "Hello"},
		{"tags only", "", []string{"#a"}, "#a"},
		{"blank tags dropped", "Hello", []string{" ", "#a", ""}, "Hello\n\n#a"},
		{"nothing", "  ", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCaption(tt.caption, tt.hashtags))
		})
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"publish error", &PublishError{Reason: "custom", Err: ErrContainerFailed}, "custom"},
		{"graph subcode", &transfer.GraphError{Code: 100, ErrorSubcode: 2207004}, graphSubcodeMessages[2207004]},
		{"graph code", fmt.Errorf("wrapped: %w", &transfer.GraphError{Code: 4}), graphCodeMessages[4]},
		{"graph user message", &transfer.GraphError{Code: 1, ErrorUserMsg: "try later"}, "try later"},
		{"no account", fmt.Errorf("x: %w", ErrNoAccount), NoAccountMessage},
		{"non public", ErrMediaNotPublic, NonPublicMediaMessage},
		{"deadline", fmt.Errorf("checking container status: %w", context.DeadlineExceeded), interruptedMessage},
		{"canceled", context.Canceled, interruptedMessage},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureReason(tt.err))
		})
	}
}

func TestDescribeContainerStatus(t *testing.T) {
	assert.Equal(t, graphSubcodeMessages[2207026], describeContainerStatus("Error: 2207026"))
	assert.Equal(t, "Instagram could not process the media (Error: unknown).", describeContainerStatus("Error: unknown"))
	assert.Equal(t, "Instagram could not process the media.", describeContainerStatus(""))
}

func TestClassifyGraphError(t *testing.T) {
	assert.Equal(t, graphErrorUnknownMediaType, classifyGraphError(&transfer.GraphError{Code: 100, ErrorSubcode: 2207023}))
	assert.Equal(t, graphErrorIncompatibleParam, classifyGraphError(&transfer.GraphError{Code: 100}))
	assert.Equal(t, graphErrorOther, classifyGraphError(&transfer.GraphError{Code: 190}))
	assert.Equal(t, graphErrorOther, classifyGraphError(errors.New("network")))
}

func TestDetectContentType(t *testing.T) {
	mime, ext := DetectContentType(jpegHeader, "application/octet-stream")
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, ".jpg", ext)

	mime, ext = DetectContentType([]byte("plain"), "video/mp4")
	assert.Equal(t, "video/mp4", mime)
	assert.Equal(t, ".mp4", ext)
}

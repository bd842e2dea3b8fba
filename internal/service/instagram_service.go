package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

// Instagram accepts video under either category depending on the app's
// configuration.
const (
	primaryVideoType   = "REELS"
	alternateVideoType = "VIDEO"
)

type PublishRequest struct {
	AccountID   string
	AccessToken string
	MediaURL    string
	Kind        models.MediaKind
	Caption     string
}

type InstagramService interface {
	// Publish runs create container, wait until ready, publish and returns the
	// destination media id.
	Publish(ctx context.Context, req PublishRequest) (string, error)
}

type instagramService struct {
	graph *GraphClient
	poll  config.Publish
}

func NewInstagramService(cfg config.Config, graph *GraphClient) InstagramService {
	return &instagramService{
		graph: graph,
		poll:  cfg.Publish,
	}
}

func (s *instagramService) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if !IsPublicMediaURL(req.MediaURL) {
		return "", &PublishError{Reason: NonPublicMediaMessage, Err: ErrMediaNotPublic}
	}

	containerID, err := s.createContainer(ctx, req)
	if err != nil {
		slog.Info("creating media container failed", "account_id", req.AccountID, "error", err)
		return "", &PublishError{Reason: FailureReason(err), Err: err}
	}

	if err := s.waitForContainer(ctx, containerID, req); err != nil {
		slog.Info("media container not ready", "container_id", containerID, "error", err)
		return "", err
	}

	mediaID, err := s.graph.PublishContainer(ctx, req.AccountID, req.AccessToken, containerID)
	if err != nil {
		slog.Info("publishing media container failed", "container_id", containerID, "error", err)
		return "", &PublishError{Reason: FailureReason(err), Err: err}
	}

	slog.Info("published to instagram", "account_id", req.AccountID, "media_id", mediaID)
	return mediaID, nil
}

func (s *instagramService) createContainer(ctx context.Context, req PublishRequest) (string, error) {
	if req.Kind != models.MediaKindVideo {
		params := url.Values{}
		params.Set("image_url", req.MediaURL)
		params.Set("caption", req.Caption)
		return s.graph.CreateContainer(ctx, req.AccountID, req.AccessToken, params)
	}

	id, err := s.createVideoContainer(ctx, req, primaryVideoType)
	if err == nil || classifyGraphError(err) != graphErrorUnknownMediaType {
		return id, err
	}

	slog.Warn("video type rejected, retrying with alternate", "media_type", primaryVideoType, "alternate", alternateVideoType)
	id, altErr := s.createVideoContainer(ctx, req, alternateVideoType)
	if altErr == nil {
		return id, nil
	}
	if classifyGraphError(altErr) == graphErrorIncompatibleParam {
		// The alternate does not apply to this account; report the original rejection.
		return "", err
	}
	return "", altErr
}

func (s *instagramService) createVideoContainer(ctx context.Context, req PublishRequest, mediaType string) (string, error) {
	params := url.Values{}
	params.Set("video_url", req.MediaURL)
	params.Set("media_type", mediaType)
	params.Set("caption", req.Caption)
	return s.graph.CreateContainer(ctx, req.AccountID, req.AccessToken, params)
}

// waitForContainer polls on a fixed interval within a bounded attempt budget.
// A video container reporting ERROR within the first grace attempts gets one
// extended backoff before the error is taken as final.
func (s *instagramService) waitForContainer(ctx context.Context, containerID string, req PublishRequest) error {
	attempts := s.poll.ImageAttempts
	if req.Kind == models.MediaKindVideo {
		attempts = s.poll.VideoAttempts
	}
	if attempts < 1 {
		attempts = 1
	}

	graceUsed := false
	for attempt := 0; attempt < attempts; attempt++ {
		status, err := s.graph.ContainerStatus(ctx, containerID, req.AccessToken)
		if err != nil {
			return &PublishError{Reason: FailureReason(err), Err: fmt.Errorf("checking container status: %w", err)}
		}

		switch status.StatusCode {
		case transfer.ContainerFinished, transfer.ContainerPublished:
			return nil
		case transfer.ContainerExpired:
			return &PublishError{Reason: expiredContainerMessage, Err: ErrContainerExpired}
		case transfer.ContainerError:
			if req.Kind == models.MediaKindVideo && !graceUsed && attempt < s.poll.VideoGraceAttempts {
				graceUsed = true
				slog.Warn("video container reported early error, backing off", "container_id", containerID, "status", status.Status)
				if err := sleepCtx(ctx, s.poll.VideoGraceBackoff); err != nil {
					return err
				}
				continue
			}
			return &PublishError{
				Reason: describeContainerStatus(status.Status),
				Err:    fmt.Errorf("%w: %s", ErrContainerFailed, status.Status),
			}
		}

		if attempt < attempts-1 {
			if err := sleepCtx(ctx, s.poll.PollInterval); err != nil {
				return err
			}
		}
	}

	budget := time.Duration(attempts) * s.poll.PollInterval
	return &PublishError{
		Reason: fmt.Sprintf("Instagram was still processing the %s after %s. Try a smaller image or a shorter video.", req.Kind, budget),
		Err:    ErrContainerTimeout,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

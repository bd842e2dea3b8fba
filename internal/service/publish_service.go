package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/pkg/utils"
)

// Outcome is the result of one attempt to publish a post. Skipped means the
// post was no longer claimable and nothing was changed.
type Outcome struct {
	PostID  string
	Status  models.PostStatus
	Skipped bool
	Error   string
}

func (o Outcome) Published() bool { return o.Status == models.PostStatusPublished }

// statusWriteTimeout bounds the final status write, which runs even after the
// publish context has expired so a claimed post never stays in publishing.
const statusWriteTimeout = 5 * time.Second

type PublishService interface {
	// ProcessScheduled claims a scheduled post and publishes it. Used by the
	// queue worker and the cron sweep.
	ProcessScheduled(ctx context.Context, userID int64, postID string) Outcome
	// PublishClaimed publishes a post that is already in publishing state.
	PublishClaimed(ctx context.Context, post *models.Post) Outcome
}

type publishService struct {
	cfg config.Config
	pr  repository.PostRepository
	ac  repository.SocialAccountRepository
	ma  repository.MediaAssetRepository
	ig  InstagramService
	fb  FacebookService
	now func() time.Time
}

func NewPublishService(
	cfg config.Config,
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	ig InstagramService,
	fb FacebookService) PublishService {
	return &publishService{
		cfg: cfg,
		pr:  pr,
		ac:  ac,
		ma:  ma,
		ig:  ig,
		fb:  fb,
		now: time.Now,
	}
}

func (s *publishService) ProcessScheduled(ctx context.Context, userID int64, postID string) Outcome {
	post, err := s.pr.Claim(ctx, userID, postID, models.PostStatusScheduled)
	if err != nil {
		slog.Error("claiming post failed", "post_id", postID, "user_id", userID, "error", err)
		return Outcome{PostID: postID, Error: fmt.Sprintf("claiming post: %v", err)}
	}
	if post == nil {
		slog.Info("post no longer scheduled, skipping", "post_id", postID, "user_id", userID)
		return Outcome{PostID: postID, Skipped: true}
	}
	return s.PublishClaimed(ctx, post)
}

func (s *publishService) PublishClaimed(ctx context.Context, post *models.Post) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publish panicked", "post_id", post.ID, "panic", r)
			out = s.fail(ctx, post, fmt.Errorf("unexpected error: %v", r))
		}
	}()

	mediaID, err := s.publish(ctx, post)
	if err != nil {
		return s.fail(ctx, post, err)
	}

	wctx, cancel := statusContext(ctx)
	defer cancel()
	if err := s.pr.MarkPublished(wctx, post.UserID, post.ID, mediaID, s.now()); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			slog.Warn("post changed while publishing; result not recorded", "post_id", post.ID, "media_id", mediaID)
			return Outcome{PostID: post.ID, Skipped: true}
		}
		slog.Error("recording published post failed", "post_id", post.ID, "media_id", mediaID, "error", err)
		return Outcome{PostID: post.ID, Status: models.PostStatusPublishing, Error: fmt.Sprintf("recording publish result: %v", err)}
	}

	slog.Info("post published", "post_id", post.ID, "user_id", post.UserID, "media_id", mediaID)
	return Outcome{PostID: post.ID, Status: models.PostStatusPublished}
}

func (s *publishService) publish(ctx context.Context, post *models.Post) (string, error) {
	account, err := s.resolveAccount(ctx, post)
	if err != nil {
		return "", err
	}

	mediaURL, kind, err := s.resolveMedia(ctx, post)
	if err != nil {
		return "", err
	}
	if !IsPublicMediaURL(mediaURL) {
		return "", &PublishError{Reason: NonPublicMediaMessage, Err: ErrMediaNotPublic}
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", &PublishError{
			Reason: "The stored access token could not be read. Reconnect the Instagram account.",
			Err:    fmt.Errorf("decrypting access token: %w", err),
		}
	}

	caption := BuildCaption(post.Caption, post.Hashtags)
	mediaID, err := s.ig.Publish(ctx, PublishRequest{
		AccountID:   account.AccountID,
		AccessToken: accessToken,
		MediaURL:    mediaURL,
		Kind:        kind,
		Caption:     caption,
	})
	if err != nil {
		return "", err
	}

	if account.FacebookPageID != "" {
		pageID, err := s.fb.PublishToPage(ctx, PagePublishRequest{
			PageID:      account.FacebookPageID,
			AccessToken: accessToken,
			MediaURL:    mediaURL,
			Kind:        kind,
			Caption:     caption,
		})
		if err != nil {
			slog.Warn("facebook page post failed", "post_id", post.ID, "page_id", account.FacebookPageID, "error", err)
		} else {
			slog.Info("posted to facebook page", "post_id", post.ID, "page_post_id", pageID)
		}
	}

	return mediaID, nil
}

// resolveAccount uses the post's destination account, or the owner's first
// connected account when none was chosen.
func (s *publishService) resolveAccount(ctx context.Context, post *models.Post) (*models.SocialAccount, error) {
	if post.DestinationAccountID != 0 {
		account, err := s.ac.GetByID(ctx, post.UserID, post.DestinationAccountID)
		if err != nil {
			return nil, fmt.Errorf("loading account: %w", err)
		}
		if account == nil {
			return nil, ErrNoAccount
		}
		return account, nil
	}

	accounts, err := s.ac.ListByUserID(ctx, post.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccount
	}
	return accounts[0], nil
}

// resolveMedia prefers the stored media record, which holds the canonical
// URL after any re-upload.
func (s *publishService) resolveMedia(ctx context.Context, post *models.Post) (string, models.MediaKind, error) {
	mediaURL, kind := post.MediaURL, post.MediaKind
	if post.MediaID != 0 {
		asset, err := s.ma.GetByID(ctx, post.UserID, post.MediaID)
		if err != nil {
			return "", "", fmt.Errorf("loading media: %w", err)
		}
		if asset != nil && asset.FileURL != "" {
			mediaURL = asset.FileURL
			if asset.FileType != "" {
				kind = models.MediaKindFromMIME(asset.FileType)
			}
		}
	}
	if kind == "" {
		kind = models.MediaKindImage
	}
	return mediaURL, kind, nil
}

func (s *publishService) fail(ctx context.Context, post *models.Post, cause error) Outcome {
	reason := FailureReason(cause)

	wctx, cancel := statusContext(ctx)
	defer cancel()
	if err := s.pr.MarkFailed(wctx, post.UserID, post.ID, reason); err != nil {
		slog.Error("recording failed post failed", "post_id", post.ID, "error", err)
	}
	slog.Info("post failed", "post_id", post.ID, "user_id", post.UserID, "reason", reason, "error", cause)
	return Outcome{PostID: post.ID, Status: models.PostStatusFailed, Error: reason}
}

func statusContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
}

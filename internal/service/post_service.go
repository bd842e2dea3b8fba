package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Scheduler hands a post to the delayed job broker. An empty job id with a
// nil error means the broker is not available and the post stays in the
// database for the cron sweep.
type Scheduler interface {
	Enqueue(ctx context.Context, post *models.Post, runAt time.Time) (string, error)
	IsAvailable(ctx context.Context) bool
}

type ScheduleResult struct {
	Post   *models.Post
	JobID  string
	Queued bool
}

type PostService interface {
	Schedule(ctx context.Context, userID int64, req *transfer.ScheduleRequest) (*ScheduleResult, error)
	// PublishNow creates a post and publishes it before returning.
	PublishNow(ctx context.Context, userID int64, req *transfer.PublishNowRequest) (*models.Post, error)
	// Publish retries a scheduled or failed post immediately.
	Publish(ctx context.Context, userID int64, postID string) (*models.Post, error)
	Get(ctx context.Context, userID int64, postID string) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	QueueAvailable(ctx context.Context) bool
}

type postService struct {
	pr        repository.PostRepository
	ac        repository.SocialAccountRepository
	ma        repository.MediaAssetRepository
	ps        PublishService
	rs        RecurrenceService
	scheduler Scheduler
	now       func() time.Time
}

func NewPostService(
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	ps PublishService,
	rs RecurrenceService,
	scheduler Scheduler) PostService {
	return &postService{
		pr:        pr,
		ac:        ac,
		ma:        ma,
		ps:        ps,
		rs:        rs,
		scheduler: scheduler,
		now:       time.Now,
	}
}

type postDraft struct {
	MediaID   int64
	MediaURL  string
	MediaKind string
	Caption   string
	Hashtags  []string
	AccountID int64
}

func (s *postService) Schedule(ctx context.Context, userID int64, req *transfer.ScheduleRequest) (*ScheduleResult, error) {
	if req == nil {
		return nil, errors.New("schedule request is nil")
	}

	post, err := s.newPost(ctx, userID, postDraft{
		MediaID:   req.MediaID,
		MediaURL:  req.MediaURL,
		MediaKind: req.MediaKind,
		Caption:   req.Caption,
		Hashtags:  req.Hashtags,
		AccountID: req.AccountID,
	})
	if err != nil {
		return nil, err
	}

	post.Status = models.PostStatusScheduled
	post.ScheduledAt = req.ScheduledAt
	if post.ScheduledAt.IsZero() {
		post.ScheduledAt = s.now()
	}

	if err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("saving post: %w", err)
	}
	s.markPosted(ctx, userID, req.DriveFolderID, req.DriveFileIDs)

	jobID, err := s.scheduler.Enqueue(ctx, post, post.ScheduledAt)
	if err != nil {
		slog.Warn("enqueueing post failed; cron sweep will pick it up", "post_id", post.ID, "error", err)
		jobID = ""
	}

	return &ScheduleResult{Post: post, JobID: jobID, Queued: jobID != ""}, nil
}

func (s *postService) PublishNow(ctx context.Context, userID int64, req *transfer.PublishNowRequest) (*models.Post, error) {
	if req == nil {
		return nil, errors.New("publish request is nil")
	}

	post, err := s.newPost(ctx, userID, postDraft{
		MediaID:   req.MediaID,
		MediaURL:  req.MediaURL,
		MediaKind: req.MediaKind,
		Caption:   req.Caption,
		Hashtags:  req.Hashtags,
		AccountID: req.AccountID,
	})
	if err != nil {
		return nil, err
	}

	post.Status = models.PostStatusPublishing
	post.ScheduledAt = s.now()
	if err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("saving post: %w", err)
	}

	outcome := s.ps.PublishClaimed(ctx, post)
	if outcome.Published() {
		s.markPosted(ctx, userID, req.DriveFolderID, req.DriveFileIDs)
	}

	return s.reload(ctx, userID, post, outcome), nil
}

func (s *postService) Publish(ctx context.Context, userID int64, postID string) (*models.Post, error) {
	post, err := s.pr.Claim(ctx, userID, postID, models.PostStatusScheduled, models.PostStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("claiming post: %w", err)
	}
	if post == nil {
		existing, err := s.pr.GetByID(ctx, userID, postID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrPostNotFound
		}
		return existing, fmt.Errorf("%w: post is %s", ErrNotClaimable, existing.Status)
	}

	outcome := s.ps.PublishClaimed(ctx, post)
	return s.reload(ctx, userID, post, outcome), nil
}

func (s *postService) Get(ctx context.Context, userID int64, postID string) (*models.Post, error) {
	if postID == "" {
		return nil, ErrPostNotFound
	}
	post, err := s.pr.GetByID(ctx, userID, postID)
	if err != nil {
		return nil, fmt.Errorf("loading post: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) QueueAvailable(ctx context.Context) bool {
	return s.scheduler.IsAvailable(ctx)
}

// newPost validates the request and resolves stored media. Reachability of
// the URL is checked at publish time so a bad URL becomes a failed post.
func (s *postService) newPost(ctx context.Context, userID int64, d postDraft) (*models.Post, error) {
	post := &models.Post{
		UserID:    userID,
		Caption:   strings.TrimSpace(d.Caption),
		Hashtags:  d.Hashtags,
		MediaURL:  strings.TrimSpace(d.MediaURL),
		MediaKind: models.MediaKind(strings.ToLower(d.MediaKind)),
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}

	if d.MediaID != 0 {
		asset, err := s.ma.GetByID(ctx, userID, d.MediaID)
		if err != nil {
			return nil, fmt.Errorf("loading media: %w", err)
		}
		if asset == nil {
			return nil, fmt.Errorf("%w: media %d not found", ErrMediaRequired, d.MediaID)
		}
		post.MediaID = asset.ID
		post.MediaURL = asset.FileURL
		post.MediaKind = models.MediaKindFromMIME(asset.FileType)
	}

	if post.MediaURL == "" {
		return nil, ErrMediaRequired
	}
	if !strings.HasPrefix(post.MediaURL, "http://") && !strings.HasPrefix(post.MediaURL, "https://") {
		return nil, fmt.Errorf("%w: media url must be http or https", ErrMediaRequired)
	}
	if post.MediaKind != models.MediaKindImage && post.MediaKind != models.MediaKindVideo {
		post.MediaKind = models.MediaKindImage
	}

	if d.AccountID != 0 {
		account, err := s.ac.GetByID(ctx, userID, d.AccountID)
		if err != nil {
			return nil, fmt.Errorf("loading account: %w", err)
		}
		if account == nil {
			return nil, ErrNoAccount
		}
		post.DestinationAccountID = account.ID
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	post.ID = id
	return post, nil
}

// reload returns the stored post after a publish attempt, falling back to
// the in-memory copy patched with the outcome.
func (s *postService) reload(ctx context.Context, userID int64, post *models.Post, outcome Outcome) *models.Post {
	stored, err := s.pr.GetByID(ctx, userID, post.ID)
	if err == nil && stored != nil {
		return stored
	}
	if outcome.Status != "" {
		post.Status = outcome.Status
	}
	post.Error = outcome.Error
	return post
}

func (s *postService) markPosted(ctx context.Context, userID int64, folderID string, fileIDs []string) {
	if len(fileIDs) == 0 || s.rs == nil {
		return
	}
	if err := s.rs.MarkPosted(ctx, userID, folderID, fileIDs); err != nil {
		slog.Warn("recording posted drive files failed", "user_id", userID, "error", err)
	}
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
)

// CronService is the fallback sweep for scheduled posts the broker never
// delivered.
type CronService interface {
	ProcessDue(ctx context.Context) (*transfer.CronResult, error)
}

type cronService struct {
	ur  repository.UserRepository
	pr  repository.PostRepository
	ps  PublishService
	now func() time.Time
}

func NewCronService(ur repository.UserRepository, pr repository.PostRepository, ps PublishService) CronService {
	return &cronService{
		ur:  ur,
		pr:  pr,
		ps:  ps,
		now: time.Now,
	}
}

// ProcessDue publishes every scheduled post whose time has passed. Posts
// another consumer already claimed are skipped and not reported.
func (s *cronService) ProcessDue(ctx context.Context) (*transfer.CronResult, error) {
	userIDs, err := s.ur.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	now := s.now()
	result := &transfer.CronResult{OK: true, Errors: []string{}}
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err().Error())
			break
		}

		due, err := s.pr.ListDue(ctx, userID, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("user %d: %v", userID, err))
			continue
		}

		for _, post := range due {
			outcome := s.ps.ProcessScheduled(ctx, userID, post.ID)
			switch {
			case outcome.Skipped:
			case outcome.Published():
				result.Processed++
			default:
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", post.ID, outcome.Error))
			}
		}
	}

	slog.Info("cron sweep finished", "processed", result.Processed, "errors", len(result.Errors))
	return result, nil
}

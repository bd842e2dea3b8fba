package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/redis/go-redis/v9"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Scheduler enqueues delayed publish tasks. A Scheduler without a broker
// accepts every call and reports nothing queued.
type Scheduler struct {
	client       taskEnqueuer
	redis        pinger
	probeTimeout time.Duration
	now          func() time.Time
}

func NewScheduler(client taskEnqueuer, rdb pinger, probeTimeout time.Duration) *Scheduler {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Scheduler{
		client:       client,
		redis:        rdb,
		probeTimeout: probeTimeout,
		now:          time.Now,
	}
}

// Enqueue schedules the post to run at runAt, or immediately when that is in
// the past. The post id doubles as the task id so a post is queued once.
func (s *Scheduler) Enqueue(ctx context.Context, post *models.Post, runAt time.Time) (string, error) {
	if s.client == nil {
		slog.Warn("queue not configured; post left for cron sweep", "post_id", post.ID)
		return "", nil
	}

	payload, err := json.Marshal(PublishPostPayload{PostID: post.ID, UserID: post.UserID})
	if err != nil {
		return "", err
	}

	delay := runAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.TaskID(post.ID),
		asynq.Queue(QueueName),
		asynq.MaxRetry(0),
		asynq.ProcessIn(delay),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			slog.Info("post already queued", "post_id", post.ID)
			return post.ID, nil
		}
		slog.Warn("enqueueing post failed; post left for cron sweep", "post_id", post.ID, "error", err)
		return "", nil
	}

	slog.Info("post queued", "post_id", post.ID, "job_id", info.ID, "delay", delay.String())
	return info.ID, nil
}

// IsAvailable probes the broker within the probe timeout.
func (s *Scheduler) IsAvailable(ctx context.Context) bool {
	if s.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		slog.Info("queue unavailable", "error", err)
		return false
	}
	return true
}

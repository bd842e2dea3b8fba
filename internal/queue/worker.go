package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandlePublishPostTask publishes the post named by the task. Publish
// failures are recorded on the post, so the task itself only fails for an
// unreadable payload and is never retried.
func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		slog.Error("invalid publish task payload", "error", err)
		return fmt.Errorf("decoding payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PostID == "" || payload.UserID == 0 {
		slog.Error("publish task missing post or user", "payload", string(task.Payload()))
		return fmt.Errorf("incomplete payload: %w", asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	outcome := q.ps.ProcessScheduled(ctx, payload.UserID, payload.PostID)

	switch {
	case outcome.Skipped:
		slog.Info("publish task skipped", "task_id", taskID, "post_id", payload.PostID)
	case outcome.Published():
		slog.Info("publish task done", "task_id", taskID, "post_id", payload.PostID)
	default:
		slog.Info("publish task failed", "task_id", taskID, "post_id", payload.PostID, "error", outcome.Error)
	}
	return nil
}

// NewServeMux routes publish tasks to the queue.
func (q *Queue) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, q.HandlePublishPostTask)
	return mux
}

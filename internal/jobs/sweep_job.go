package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/service"
)

// SweepJob runs the cron fallback in process for deployments without an
// external scheduler hitting the HTTP endpoint.
type SweepJob struct {
	cs      service.CronService
	timeout time.Duration
	mu      sync.Mutex
}

func NewSweepJob(cs service.CronService, timeout time.Duration) *SweepJob {
	return &SweepJob{cs: cs, timeout: timeout}
}

func (j *SweepJob) Run() {
	if !j.mu.TryLock() {
		slog.Info("sweep still in progress, skipping tick")
		return
	}
	defer j.mu.Unlock()

	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	result, err := j.cs.ProcessDue(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	for _, e := range result.Errors {
		slog.Info("sweep error", "detail", e)
	}
}

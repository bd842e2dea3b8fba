package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/service"
)

type RecurrenceJob struct {
	rs      service.RecurrenceService
	timeout time.Duration
	mu      sync.Mutex
}

func NewRecurrenceJob(rs service.RecurrenceService, timeout time.Duration) *RecurrenceJob {
	return &RecurrenceJob{rs: rs, timeout: timeout}
}

// Run publishes for every owner whose recurrence is due. A tick that arrives
// while the previous run is still going is dropped.
func (j *RecurrenceJob) Run() {
	if !j.mu.TryLock() {
		slog.Info("recurrence run still in progress, skipping tick")
		return
	}
	defer j.mu.Unlock()

	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	reports, err := j.rs.RunDue(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	published := 0
	for _, r := range reports {
		if r.Published {
			published++
		}
	}
	slog.Info("recurrence run finished", "owners", len(reports), "published", published)
}

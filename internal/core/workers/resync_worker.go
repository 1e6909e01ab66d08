package workers

import (
	"context"
	"log"
)

// Scheduler is the slice of the schedule service the worker needs.
type Scheduler interface {
	SyncRuleSchedules(ctx context.Context, userID, ruleID string) error
	CleanupFutureSchedules(ctx context.Context, userID, ruleID string) error
}

type ResyncJob struct {
	UserID string
	RuleID string

	// Cleanup jobs only delete future pending tasks (rule was removed);
	// otherwise the window is regenerated under the rule's new shape.
	Cleanup bool
}

// ResyncWorker rebuilds a rule's schedule window off the request path.
// Rule edits enqueue here so HTTP writes return without waiting on the
// 90-day regeneration.
type ResyncWorker struct {
	scheduler Scheduler
	jobs      chan ResyncJob
}

func NewResyncWorker(scheduler Scheduler) *ResyncWorker {
	return &ResyncWorker{
		scheduler: scheduler,
		jobs:      make(chan ResyncJob, 100),
	}
}

func (w *ResyncWorker) Start(ctx context.Context) {
	go func() {
		log.Println("Resync worker started in background...")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("Resync worker shutting down...")
				return
			}
		}
	}()
}

// Enqueue never blocks the caller. A full queue drops the job: the daily
// batch regenerates the same window, so a dropped resync self-heals
// within a day.
func (w *ResyncWorker) Enqueue(job ResyncJob) {
	select {
	case w.jobs <- job:
	default:
		log.Printf("Resync queue full! Dropping job for rule %s", job.RuleID)
	}
}

func (w *ResyncWorker) processJob(ctx context.Context, job ResyncJob) {
	var err error
	if job.Cleanup {
		err = w.scheduler.CleanupFutureSchedules(ctx, job.UserID, job.RuleID)
	} else {
		err = w.scheduler.SyncRuleSchedules(ctx, job.UserID, job.RuleID)
	}

	if err != nil {
		log.Printf("Resync failed for rule %s: %v", job.RuleID, err)
	}
}

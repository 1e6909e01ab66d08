package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

// GenerationWindowDays is how far ahead schedules are materialized, both
// by the daily batch and by resync after a rule edit.
const GenerationWindowDays = 90

type ScheduleService struct {
	ruleRepo domain.RuleRepository
	taskRepo domain.TaskRepository
	now      func() time.Time
}

func NewScheduleService(ruleRepo domain.RuleRepository, taskRepo domain.TaskRepository) *ScheduleService {
	return &ScheduleService{
		ruleRepo: ruleRepo,
		taskRepo: taskRepo,
		now:      time.Now,
	}
}

// WithClock replaces the service's clock. Test hook.
func (s *ScheduleService) WithClock(now func() time.Time) *ScheduleService {
	s.now = now
	return s
}

// Generate materializes pending tasks for one rule across [from, to]
// inclusive. Missing, disabled, foreign, and manual rules are a no-op.
// Re-running over an overlapping window never duplicates tasks: days
// already present are filtered out up front, and the store's unique index
// absorbs whatever slips through that pre-check under concurrency.
// Returns the number of tasks actually inserted.
func (s *ScheduleService) Generate(ctx context.Context, userID, ruleID string, from, to domain.DayKey) (int, error) {
	rule, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			return 0, nil
		}
		return 0, err
	}

	if rule.UserID != userID || !rule.IsEnabled || rule.RuleType == domain.RuleTypeManual {
		return 0, nil
	}

	var due []domain.DayKey
	for day := from; day <= to; day = day.AddDays(1) {
		if rule.IsScheduledOn(day) {
			due = append(due, day)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	existing, err := s.taskRepo.FindExistingDates(ctx, userID, rule.SessionID, due)
	if err != nil {
		return 0, err
	}

	rid := rule.ID
	var fresh []*domain.ScheduledTask
	for _, day := range due {
		if !existing[day] {
			fresh = append(fresh, domain.NewScheduledTask(userID, rule.SessionID, &rid, day))
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	return s.taskRepo.BulkInsert(ctx, fresh)
}

// SyncRuleSchedules discards the rule's future pending tasks and rebuilds
// them under the rule's current shape. Called after every rule edit:
// pending tasks encode the old cadence and must go, while completed and
// skipped tasks are historical fact and stay untouched.
func (s *ScheduleService) SyncRuleSchedules(ctx context.Context, userID, ruleID string) error {
	today := domain.DayKeyOf(s.now())

	if _, err := s.taskRepo.DeleteFuturePending(ctx, userID, ruleID, today); err != nil {
		return err
	}

	_, err := s.Generate(ctx, userID, ruleID, today, today.AddDays(GenerationWindowDays))
	return err
}

// CleanupFutureSchedules removes a deleted rule's future pending tasks.
// History survives rule deletion.
func (s *ScheduleService) CleanupFutureSchedules(ctx context.Context, userID, ruleID string) error {
	today := domain.DayKeyOf(s.now())
	_, err := s.taskRepo.DeleteFuturePending(ctx, userID, ruleID, today)
	return err
}

// BatchSummary reports a daily batch run. A nonzero Failed count still
// travels in a successful response; callers inspect the body.
type BatchSummary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"success_count"`
	Failed    int `json:"fail_count"`
}

// RunDailyBatch generates the next window for every enabled rule of every
// live user. Rules run concurrently and independently: one rule's failure
// is counted, logged, and never cancels its siblings.
func (s *ScheduleService) RunDailyBatch(ctx context.Context) (BatchSummary, error) {
	rules, err := s.ruleRepo.ListEnabledForBatch(ctx)
	if err != nil {
		return BatchSummary{}, err
	}

	today := domain.DayKeyOf(s.now())
	to := today.AddDays(GenerationWindowDays)

	summary := BatchSummary{Processed: len(rules)}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, rule := range rules {
		wg.Add(1)
		go func(r *domain.RecurrenceRule) {
			defer wg.Done()

			_, genErr := s.Generate(ctx, r.UserID, r.ID, today, to)

			mu.Lock()
			defer mu.Unlock()
			if genErr != nil {
				summary.Failed++
				log.Printf("batch: generation failed for rule %s: %v", r.ID, genErr)
			} else {
				summary.Succeeded++
			}
		}(rule)
	}
	wg.Wait()

	log.Printf("batch: %d rules processed, %d ok, %d failed", summary.Processed, summary.Succeeded, summary.Failed)
	return summary, nil
}

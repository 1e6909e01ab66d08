package services

import (
	"context"
	"errors"
	"time"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

type TaskService struct {
	taskRepo    domain.TaskRepository
	sessionRepo domain.SessionRepository
	now         func() time.Time
}

func NewTaskService(taskRepo domain.TaskRepository, sessionRepo domain.SessionRepository) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		sessionRepo: sessionRepo,
		now:         time.Now,
	}
}

// WithClock replaces the service's clock. Test hook.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

func (s *TaskService) getOwned(ctx context.Context, taskID, userID string) (*domain.ScheduledTask, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) GetByID(ctx context.Context, taskID, userID string) (*domain.ScheduledTask, error) {
	return s.getOwned(ctx, taskID, userID)
}

func (s *TaskService) ListByRange(ctx context.Context, userID string, from, to domain.DayKey) ([]*domain.ScheduledTask, error) {
	return s.taskRepo.ListByUserIDAndRange(ctx, userID, from, to)
}

// CreateAdHoc records a one-off occurrence outside any recurrence rule
// (the "manual" path). The unique slot per (session, date) still applies.
func (s *TaskService) CreateAdHoc(ctx context.Context, userID, sessionID string, date domain.DayKey) (*domain.ScheduledTask, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrSessionNotFound
	}

	task := domain.NewScheduledTask(userID, sessionID, nil, date)
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Complete(ctx context.Context, taskID, userID string) (*domain.ScheduledTask, error) {
	task, err := s.getOwned(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	if err := task.Complete(s.now()); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Skip(ctx context.Context, taskID, userID string) (*domain.ScheduledTask, error) {
	task, err := s.getOwned(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	if err := task.Skip(); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Reschedule moves a pending task to target. The original keeps a
// RescheduledTo link; the task occupying target (created fresh, or
// adopted if the date already holds a pending one) gains the
// RescheduledFrom back-link. Only pending, unmoved tasks may move, and
// a finalized occupant on the target date blocks the move outright.
func (s *TaskService) Reschedule(ctx context.Context, taskID, userID string, target domain.DayKey) (*domain.ScheduledTask, error) {
	task, err := s.getOwned(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	// Inspect the target slot before mutating anything: a completed or
	// skipped occupant is immutable history and cannot absorb the move.
	occupant, err := s.taskRepo.GetByDate(ctx, userID, task.SessionID, target)
	switch {
	case err == nil:
		if occupant.Status != domain.TaskStatusPending {
			return nil, domain.ErrTaskConflict
		}
	case errors.Is(err, domain.ErrTaskNotFound):
		occupant = nil
	default:
		return nil, err
	}

	if err := task.MoveTo(target); err != nil {
		return nil, err
	}

	origin := task.ScheduledDate

	if occupant != nil {
		occupant.RescheduledFrom = &origin
		occupant.UpdatedAt = s.now().UTC()
		if err := s.taskRepo.Update(ctx, occupant); err != nil {
			return nil, err
		}
	} else {
		moved := domain.NewScheduledTask(task.UserID, task.SessionID, task.RuleID, target)
		moved.RescheduledFrom = &origin
		if err := s.taskRepo.Create(ctx, moved); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

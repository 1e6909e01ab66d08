package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshiraki/trainlog/internal/adapters/repository"
	"github.com/mshiraki/trainlog/internal/core/domain"
	"github.com/mshiraki/trainlog/internal/core/services"
)

func newTaskFixture(t *testing.T) (*services.TaskService, *repository.InMemoryTaskRepository, *domain.Session) {
	t.Helper()

	taskRepo := repository.NewInMemoryTaskRepository()
	sessionRepo := repository.NewInMemorySessionRepository()

	session, err := domain.NewSession("user-1", "Leg Day", "")
	require.NoError(t, err)
	require.NoError(t, sessionRepo.Create(context.Background(), session))

	svc := services.NewTaskService(taskRepo, sessionRepo).WithClock(fixedClock)
	return svc, taskRepo, session
}

func TestTaskService_CreateAdHoc(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: creates a pending task without a rule", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, err := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Nil(t, task.RuleID)
		assert.Equal(t, domain.DayKey("2025-02-01"), task.ScheduledDate)
	})

	t.Run("Fail: occupied slot returns conflict", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		_, err := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		require.NoError(t, err)

		_, err = svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		assert.ErrorIs(t, err, domain.ErrTaskConflict)
	})

	t.Run("Fail: Security - foreign session looks like not found (IDOR)", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		_, err := svc.CreateAdHoc(ctx, "user-2", session.ID, "2025-02-01")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestTaskService_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: stamps completion time from the clock", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, err := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		require.NoError(t, err)

		done, err := svc.Complete(ctx, task.ID, "user-1")
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusCompleted, done.Status)
		require.NotNil(t, done.CompletedAt)
		assert.Equal(t, fixedClock().UTC(), *done.CompletedAt)
	})

	t.Run("Fail: completing twice is final", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, _ := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		_, err := svc.Complete(ctx, task.ID, "user-1")
		require.NoError(t, err)

		_, err = svc.Complete(ctx, task.ID, "user-1")
		assert.ErrorIs(t, err, domain.ErrTaskFinalized)
	})

	t.Run("Fail: Security - cannot complete another user's task (IDOR)", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, _ := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")

		_, err := svc.Complete(ctx, task.ID, "user-2")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}

func TestTaskService_Skip(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: skipped task carries no completion time", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, _ := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")

		skipped, err := svc.Skip(ctx, task.ID, "user-1")
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusSkipped, skipped.Status)
		assert.Nil(t, skipped.CompletedAt)
	})

	t.Run("Fail: cannot skip a completed task", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, _ := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		_, err := svc.Complete(ctx, task.ID, "user-1")
		require.NoError(t, err)

		_, err = svc.Skip(ctx, task.ID, "user-1")
		assert.ErrorIs(t, err, domain.ErrTaskFinalized)
	})
}

func TestTaskService_Reschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: move links both tasks bidirectionally", func(t *testing.T) {
		svc, taskRepo, session := newTaskFixture(t)

		task, err := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		require.NoError(t, err)

		original, err := svc.Reschedule(ctx, task.ID, "user-1", "2025-02-03")
		require.NoError(t, err)

		// The original stays pending on its date, pointing forward.
		assert.Equal(t, domain.TaskStatusPending, original.Status)
		assert.Equal(t, domain.DayKey("2025-02-01"), original.ScheduledDate)
		require.NotNil(t, original.RescheduledTo)
		assert.Equal(t, domain.DayKey("2025-02-03"), *original.RescheduledTo)

		// The occurrence on the target points back.
		moved, err := taskRepo.GetByDate(ctx, "user-1", session.ID, "2025-02-03")
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, moved.Status)
		require.NotNil(t, moved.RescheduledFrom)
		assert.Equal(t, domain.DayKey("2025-02-01"), *moved.RescheduledFrom)
	})

	t.Run("Success: occupied target date is adopted, not duplicated", func(t *testing.T) {
		svc, taskRepo, session := newTaskFixture(t)

		task, err := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		require.NoError(t, err)
		occupant, err := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-03")
		require.NoError(t, err)

		_, err = svc.Reschedule(ctx, task.ID, "user-1", "2025-02-03")
		require.NoError(t, err)

		adopted, err := taskRepo.GetByID(ctx, occupant.ID)
		require.NoError(t, err)
		require.NotNil(t, adopted.RescheduledFrom)
		assert.Equal(t, domain.DayKey("2025-02-01"), *adopted.RescheduledFrom)

		tasks, err := taskRepo.ListByUserIDAndRange(ctx, "user-1", "2025-02-01", "2025-02-28")
		require.NoError(t, err)
		assert.Len(t, tasks, 2, "no third task appears on the target date")
	})

	t.Run("Fail: a finalized occupant blocks the move untouched", func(t *testing.T) {
		svc, taskRepo, session := newTaskFixture(t)

		task, err := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		require.NoError(t, err)
		occupant, err := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-03")
		require.NoError(t, err)
		_, err = svc.Complete(ctx, occupant.ID, "user-1")
		require.NoError(t, err)

		_, err = svc.Reschedule(ctx, task.ID, "user-1", "2025-02-03")
		assert.ErrorIs(t, err, domain.ErrTaskConflict)

		// History on the target is untouched and the origin never moved.
		done, err := taskRepo.GetByID(ctx, occupant.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, done.Status)
		assert.Nil(t, done.RescheduledFrom)

		origin, err := taskRepo.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, origin.RescheduledTo)

		// The origin is still free to move elsewhere.
		_, err = svc.Reschedule(ctx, task.ID, "user-1", "2025-02-05")
		assert.NoError(t, err)
	})

	t.Run("Fail: same-day move is rejected", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, _ := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")

		_, err := svc.Reschedule(ctx, task.ID, "user-1", "2025-02-01")
		assert.ErrorIs(t, err, domain.ErrRescheduleSameDay)
	})

	t.Run("Fail: a moved task cannot move again", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, _ := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		_, err := svc.Reschedule(ctx, task.ID, "user-1", "2025-02-03")
		require.NoError(t, err)

		_, err = svc.Reschedule(ctx, task.ID, "user-1", "2025-02-05")
		assert.ErrorIs(t, err, domain.ErrTaskMoved)
	})

	t.Run("Fail: finalized tasks stay put", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		task, _ := svc.CreateAdHoc(ctx, "user-1", session.ID, "2025-02-01")
		_, err := svc.Complete(ctx, task.ID, "user-1")
		require.NoError(t, err)

		_, err = svc.Reschedule(ctx, task.ID, "user-1", "2025-02-03")
		assert.ErrorIs(t, err, domain.ErrTaskFinalized)
	})
}

func TestTaskService_ListByRange(t *testing.T) {
	ctx := context.Background()

	t.Run("Range bounds are inclusive on both ends", func(t *testing.T) {
		svc, _, session := newTaskFixture(t)

		for _, d := range []domain.DayKey{"2025-02-01", "2025-02-02", "2025-02-03", "2025-02-04"} {
			_, err := svc.CreateAdHoc(ctx, "user-1", session.ID, d)
			require.NoError(t, err)
		}

		tasks, err := svc.ListByRange(ctx, "user-1", "2025-02-02", "2025-02-03")
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, domain.DayKey("2025-02-02"), tasks[0].ScheduledDate)
		assert.Equal(t, domain.DayKey("2025-02-03"), tasks[1].ScheduledDate)
	})
}

package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshiraki/trainlog/internal/adapters/repository"
	"github.com/mshiraki/trainlog/internal/core/domain"
	"github.com/mshiraki/trainlog/internal/core/services"
	"github.com/mshiraki/trainlog/internal/core/workers"
)

type sessionFixture struct {
	svc      *services.SessionService
	ruleSvc  *services.RuleService
	ruleRepo *repository.InMemoryRuleRepository
	taskRepo *repository.InMemoryTaskRepository
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	sessionRepo := repository.NewInMemorySessionRepository()
	ruleRepo := repository.NewInMemoryRuleRepository()
	taskRepo := repository.NewInMemoryTaskRepository()

	scheduleSvc := services.NewScheduleService(ruleRepo, taskRepo).WithClock(fixedClock)
	resync := workers.NewResyncWorker(scheduleSvc)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	resync.Start(ctx)

	return &sessionFixture{
		svc:      services.NewSessionService(sessionRepo, ruleRepo, resync),
		ruleSvc:  services.NewRuleService(ruleRepo, sessionRepo, resync),
		ruleRepo: ruleRepo,
		taskRepo: taskRepo,
	}
}

func TestSessionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: session starts live with a fresh ID", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{
			UserID: "user-1",
			Name:   "Push Day",
			Note:   "bench focus",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, session.ID)
		assert.Equal(t, "Push Day", session.Name)
		assert.Nil(t, session.DeletedAt)
	})

	t.Run("Fail: empty name", func(t *testing.T) {
		f := newSessionFixture(t)

		_, err := f.svc.Create(ctx, services.CreateSessionInput{
			UserID: "user-1",
			Name:   "",
		})
		assert.ErrorIs(t, err, domain.ErrSessionNameEmpty)
	})

	t.Run("Fail: name over the limit", func(t *testing.T) {
		f := newSessionFixture(t)

		_, err := f.svc.Create(ctx, services.CreateSessionInput{
			UserID: "user-1",
			Name:   strings.Repeat("x", 101),
		})
		assert.ErrorIs(t, err, domain.ErrSessionNameTooLong)
	})
}

func TestSessionService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: rename persists", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Old Name"})
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, services.UpdateSessionInput{
			ID:     session.ID,
			UserID: "user-1",
			Name:   "New Name",
			Note:   "updated",
		})
		require.NoError(t, err)
		assert.Equal(t, "New Name", updated.Name)
		assert.Equal(t, "updated", updated.Note)
	})

	t.Run("Fail: Security - cannot rename another user's session (IDOR)", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Mine"})
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, services.UpdateSessionInput{
			ID:     session.ID,
			UserID: "user-2",
			Name:   "Hijacked",
		})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestSessionService_ArchiveRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: archived session rejects edits until restored", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Off-Season"})
		require.NoError(t, err)

		archived, err := f.svc.Archive(ctx, session.ID, "user-1")
		require.NoError(t, err)
		assert.NotNil(t, archived.ArchivedAt)

		_, err = f.svc.Update(ctx, services.UpdateSessionInput{
			ID:     session.ID,
			UserID: "user-1",
			Name:   "Renamed",
		})
		assert.ErrorIs(t, err, domain.ErrSessionArchived)

		restored, err := f.svc.Restore(ctx, session.ID, "user-1")
		require.NoError(t, err)
		assert.Nil(t, restored.ArchivedAt)

		updated, err := f.svc.Update(ctx, services.UpdateSessionInput{
			ID:     session.ID,
			UserID: "user-1",
			Name:   "Renamed",
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
	})

	t.Run("Fail: Security - cannot archive another user's session (IDOR)", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Mine"})
		require.NoError(t, err)

		_, err = f.svc.Archive(ctx, session.ID, "user-2")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestSessionService_Reorder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: moves the session in the sort order", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Sort Me"})
		require.NoError(t, err)

		moved, err := f.svc.Reorder(ctx, session.ID, "user-1", 4)
		require.NoError(t, err)
		assert.Equal(t, 4, moved.SortOrder)
	})

	t.Run("Fail: archived session cannot be reordered", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Parked"})
		require.NoError(t, err)

		_, err = f.svc.Archive(ctx, session.ID, "user-1")
		require.NoError(t, err)

		_, err = f.svc.Reorder(ctx, session.ID, "user-1", 2)
		assert.ErrorIs(t, err, domain.ErrSessionArchived)
	})
}

func TestSessionService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: cascade soft-deletes rules and clears their windows", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Leg Day"})
		require.NoError(t, err)

		rule, err := f.ruleSvc.Create(ctx, services.CreateRuleInput{
			UserID:       "user-1",
			SessionID:    session.ID,
			RuleType:     domain.RuleTypeInterval,
			IntervalDays: 1,
			StartDate:    "2025-01-01",
		})
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			tasks, err := f.taskRepo.ListByUserIDAndRange(ctx, "user-1", "2025-01-01", "2025-12-31")
			return err == nil && len(tasks) > 0
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, f.svc.Delete(ctx, session.ID, "user-1"))

		_, err = f.svc.GetByID(ctx, session.ID, "user-1")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		_, err = f.ruleRepo.GetByID(ctx, rule.ID)
		assert.ErrorIs(t, err, domain.ErrRuleNotFound)

		assert.Eventually(t, func() bool {
			tasks, err := f.taskRepo.ListByUserIDAndRange(ctx, "user-1", "2025-01-01", "2025-12-31")
			return err == nil && len(tasks) == 0
		}, 2*time.Second, 10*time.Millisecond, "pending window should be cleaned up")
	})

	t.Run("Success: completed history survives the cascade", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Leg Day"})
		require.NoError(t, err)

		rule, err := f.ruleSvc.Create(ctx, services.CreateRuleInput{
			UserID:       "user-1",
			SessionID:    session.ID,
			RuleType:     domain.RuleTypeInterval,
			IntervalDays: 1,
			StartDate:    "2024-01-01",
		})
		require.NoError(t, err)

		// A workout done last month, before today's window.
		done := domain.NewScheduledTask("user-1", session.ID, &rule.ID, "2024-12-15")
		require.NoError(t, done.Complete(fixedClock()))
		require.NoError(t, f.taskRepo.Create(ctx, done))

		require.NoError(t, f.svc.Delete(ctx, session.ID, "user-1"))

		kept, err := f.taskRepo.GetByID(ctx, done.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, kept.Status)
	})

	t.Run("Fail: Security - cannot delete another user's session (IDOR)", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Create(ctx, services.CreateSessionInput{UserID: "user-1", Name: "Mine"})
		require.NoError(t, err)

		err = f.svc.Delete(ctx, session.ID, "user-2")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

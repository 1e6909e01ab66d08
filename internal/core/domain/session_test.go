package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

func TestNewSession(t *testing.T) {
	t.Run("Success: trims name and note, starts at version 1", func(t *testing.T) {
		session, err := domain.NewSession("user-1", "  Push Day  ", "  bench focus  ")
		require.NoError(t, err)

		assert.NotEmpty(t, session.ID)
		assert.Equal(t, "Push Day", session.Name)
		assert.Equal(t, "bench focus", session.Note)
		assert.Equal(t, 1, session.Version)
		assert.Nil(t, session.ArchivedAt)
		assert.Nil(t, session.DeletedAt)
	})

	t.Run("Fail: missing owner", func(t *testing.T) {
		_, err := domain.NewSession("", "Push Day", "")
		assert.ErrorIs(t, err, domain.ErrSessionInvalidUser)
	})

	t.Run("Fail: blank or oversized fields", func(t *testing.T) {
		_, err := domain.NewSession("user-1", "   ", "")
		assert.ErrorIs(t, err, domain.ErrSessionNameEmpty)

		_, err = domain.NewSession("user-1", strings.Repeat("x", domain.MaxSessionNameLen+1), "")
		assert.ErrorIs(t, err, domain.ErrSessionNameTooLong)

		_, err = domain.NewSession("user-1", "Push Day", strings.Repeat("x", domain.MaxSessionNoteLen+1))
		assert.ErrorIs(t, err, domain.ErrSessionNoteTooLong)
	})
}

func TestSession_Update(t *testing.T) {
	t.Run("Success: replaces fields and bumps UpdatedAt", func(t *testing.T) {
		session, err := domain.NewSession("user-1", "Old Name", "")
		require.NoError(t, err)

		before := session.UpdatedAt
		time.Sleep(1 * time.Millisecond)

		require.NoError(t, session.Update("New Name", "deload week"))
		assert.Equal(t, "New Name", session.Name)
		assert.Equal(t, "deload week", session.Note)
		assert.True(t, session.UpdatedAt.After(before))
	})

	t.Run("Fail: invalid update leaves the session untouched", func(t *testing.T) {
		session, err := domain.NewSession("user-1", "Keep Me", "original")
		require.NoError(t, err)

		assert.ErrorIs(t, session.Update("", "changed"), domain.ErrSessionNameEmpty)
		assert.Equal(t, "Keep Me", session.Name)
		assert.Equal(t, "original", session.Note)
	})
}

func TestSession_ArchiveRestore(t *testing.T) {
	t.Run("Archive blocks edits until Restore", func(t *testing.T) {
		session, err := domain.NewSession("user-1", "Off-Season", "")
		require.NoError(t, err)

		session.Archive()
		require.NotNil(t, session.ArchivedAt)

		assert.ErrorIs(t, session.Update("Renamed", ""), domain.ErrSessionArchived)

		session.Restore()
		assert.Nil(t, session.ArchivedAt)
		assert.NoError(t, session.Update("Renamed", ""))
	})

	t.Run("Archiving twice keeps the original timestamp", func(t *testing.T) {
		session, err := domain.NewSession("user-1", "Off-Season", "")
		require.NoError(t, err)

		session.Archive()
		first := *session.ArchivedAt

		time.Sleep(1 * time.Millisecond)
		session.Archive()
		assert.Equal(t, first, *session.ArchivedAt)
	})

	t.Run("Restoring a live session is a no-op", func(t *testing.T) {
		session, err := domain.NewSession("user-1", "Active", "")
		require.NoError(t, err)

		before := session.UpdatedAt
		session.Restore()
		assert.Equal(t, before, session.UpdatedAt)
	})
}

func TestSession_ChangePosition(t *testing.T) {
	t.Run("Success: moves the session in the sort order", func(t *testing.T) {
		session, err := domain.NewSession("user-1", "Sort Me", "")
		require.NoError(t, err)

		before := session.UpdatedAt
		time.Sleep(1 * time.Millisecond)

		require.NoError(t, session.ChangePosition(5))
		assert.Equal(t, 5, session.SortOrder)
		assert.True(t, session.UpdatedAt.After(before))
	})

	t.Run("Fail: archived sessions cannot be reordered", func(t *testing.T) {
		session, err := domain.NewSession("user-1", "Sort Me", "")
		require.NoError(t, err)

		session.Archive()
		assert.ErrorIs(t, session.ChangePosition(3), domain.ErrSessionArchived)
		assert.Equal(t, 0, session.SortOrder)
	})
}

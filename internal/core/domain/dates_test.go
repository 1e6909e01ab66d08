package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

func TestParseDayKey(t *testing.T) {
	t.Run("Success: Valid keys", func(t *testing.T) {
		for _, s := range []string{"2025-01-01", "2024-02-29", "1999-12-31"} {
			k, err := domain.ParseDayKey(s)
			require.NoError(t, err)
			assert.Equal(t, s, k.String())
		}
	})

	t.Run("Error: Malformed input", func(t *testing.T) {
		for _, s := range []string{"", "2025/01/01", "2025-1-1", "20250101", "2025-01-01T00:00:00Z", "hello"} {
			_, err := domain.ParseDayKey(s)
			assert.ErrorIs(t, err, domain.ErrInvalidDayKey, "input %q", s)
		}
	})

	t.Run("Error: Well-formed but impossible dates", func(t *testing.T) {
		for _, s := range []string{"2025-02-30", "2025-13-01", "2025-04-31", "2025-00-10"} {
			_, err := domain.ParseDayKey(s)
			assert.ErrorIs(t, err, domain.ErrInvalidDate, "input %q", s)
		}
	})

	t.Run("Boundary: Non-leap February 29", func(t *testing.T) {
		_, err := domain.ParseDayKey("2025-02-29")
		assert.ErrorIs(t, err, domain.ErrInvalidDate)
	})
}

func TestDayKey_RoundTrip(t *testing.T) {
	keys := []string{
		"2025-01-01", "2025-06-15", "2025-12-31",
		"2024-02-29", "2000-01-01", "2099-11-30",
	}

	for _, s := range keys {
		k, err := domain.ParseDayKey(s)
		require.NoError(t, err)

		start, err := k.DayStart()
		require.NoError(t, err)

		assert.Equal(t, k, domain.DayKeyOf(start.Time()), "display round-trip for %s", s)

		storage, err := k.Storage()
		require.NoError(t, err)

		assert.Equal(t, k, domain.DayKeyFromStorage(storage), "storage round-trip for %s", s)
	}
}

func TestDayKey_TwoEncodingsDiffer(t *testing.T) {
	k, _ := domain.ParseDayKey("2025-03-10")

	start, _ := k.DayStart()
	storage, _ := k.Storage()

	// Tokyo midnight is 9 hours before UTC midnight of the same Y/M/D.
	assert.Equal(t, 9*time.Hour, storage.Time().Sub(start.Time()))
}

func TestDayKeyOf_ProjectsIntoDisplayZone(t *testing.T) {
	t.Run("UTC evening is already tomorrow in Tokyo", func(t *testing.T) {
		instant := time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)
		assert.Equal(t, domain.DayKey("2025-01-06"), domain.DayKeyOf(instant))
	})

	t.Run("UTC morning stays on the same day", func(t *testing.T) {
		instant := time.Date(2025, 1, 5, 3, 0, 0, 0, time.UTC)
		assert.Equal(t, domain.DayKey("2025-01-05"), domain.DayKeyOf(instant))
	})
}

func TestDayKey_Ordering(t *testing.T) {
	a, _ := domain.ParseDayKey("2025-01-31")
	b, _ := domain.ParseDayKey("2025-02-01")

	assert.True(t, a < b, "lexicographic order must match chronological order")

	sa, _ := a.DayStart()
	sb, _ := b.DayStart()
	assert.True(t, sa.Time().Before(sb.Time()))
}

func TestDayKey_Arithmetic(t *testing.T) {
	k, _ := domain.ParseDayKey("2025-01-01")

	assert.Equal(t, domain.DayKey("2025-01-31"), k.AddDays(30))
	assert.Equal(t, domain.DayKey("2024-12-31"), k.AddDays(-1))

	assert.Equal(t, 3, domain.DaysBetween("2025-01-01", "2025-01-04"))
	assert.Equal(t, -3, domain.DaysBetween("2025-01-04", "2025-01-01"))
	assert.Equal(t, 0, domain.DaysBetween("2025-01-01", "2025-01-01"))

	// Across a month boundary and a leap day.
	assert.Equal(t, 31, domain.DaysBetween("2024-02-01", "2024-03-03"))
}

func TestDayKey_Weekday(t *testing.T) {
	// 2025-01-05 is a Sunday.
	assert.Equal(t, 0, domain.DayKey("2025-01-05").Weekday())
	// 2025-01-06 is a Monday.
	assert.Equal(t, 1, domain.DayKey("2025-01-06").Weekday())
	// 2025-01-11 is a Saturday.
	assert.Equal(t, 6, domain.DayKey("2025-01-11").Weekday())
}

func TestDayKeyFromYMD(t *testing.T) {
	assert.Equal(t, domain.DayKey("2025-03-07"), domain.DayKeyFromYMD(2025, time.March, 7))
	assert.Equal(t, domain.DayKey("0987-01-01"), domain.DayKeyFromYMD(987, time.January, 1))
}

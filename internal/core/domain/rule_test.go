package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

func endDate(s string) *domain.DayKey {
	k := domain.DayKey(s)
	return &k
}

func TestNewRecurrenceRule(t *testing.T) {
	t.Run("Success: Weekly rule with defaults", func(t *testing.T) {
		r, err := domain.NewRecurrenceRule("u1", "s1", domain.RuleTypeWeekly, []int{5, 1, 3}, 0, "2025-01-01", nil)

		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, "u1", r.UserID)
		assert.Equal(t, "s1", r.SessionID)
		assert.True(t, r.IsEnabled)
		assert.Equal(t, 1, r.Version)
		assert.Nil(t, r.DeletedAt)
		assert.Equal(t, []int{1, 3, 5}, r.Weekdays, "weekdays must be sorted and deduped")
	})

	t.Run("Error: Missing owner or session", func(t *testing.T) {
		_, err := domain.NewRecurrenceRule("", "s1", domain.RuleTypeWeekly, []int{1}, 0, "2025-01-01", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRuleUserID)

		_, err = domain.NewRecurrenceRule("u1", "", domain.RuleTypeWeekly, []int{1}, 0, "2025-01-01", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRuleSession)
	})
}

func TestRecurrenceRule_Validation(t *testing.T) {
	tests := []struct {
		name     string
		ruleType string
		weekdays []int
		interval int
		start    domain.DayKey
		end      *domain.DayKey
		wantErr  error
	}{
		{
			name:     "Success: Interval every 3 days",
			ruleType: domain.RuleTypeInterval,
			interval: 3,
			start:    "2025-01-01",
		},
		{
			name:     "Success: Manual rule needs neither weekdays nor interval",
			ruleType: domain.RuleTypeManual,
			start:    "2025-01-01",
		},
		{
			name:     "Success: Boundary weekdays Sun 0 and Sat 6",
			ruleType: domain.RuleTypeWeekly,
			weekdays: []int{0, 6},
			start:    "2025-01-01",
		},
		{
			name:     "Error: Unknown rule type",
			ruleType: "lunar",
			start:    "2025-01-01",
			wantErr:  domain.ErrInvalidRuleType,
		},
		{
			name:     "Error: Weekly with empty weekday set",
			ruleType: domain.RuleTypeWeekly,
			weekdays: nil,
			start:    "2025-01-01",
			wantErr:  domain.ErrEmptyWeekdays,
		},
		{
			name:     "Error: Weekday out of range",
			ruleType: domain.RuleTypeWeekly,
			weekdays: []int{7},
			start:    "2025-01-01",
			wantErr:  domain.ErrInvalidWeekdays,
		},
		{
			name:     "Error: Negative weekday",
			ruleType: domain.RuleTypeWeekly,
			weekdays: []int{-1},
			start:    "2025-01-01",
			wantErr:  domain.ErrInvalidWeekdays,
		},
		{
			name:     "Error: Interval of zero days",
			ruleType: domain.RuleTypeInterval,
			interval: 0,
			start:    "2025-01-01",
			wantErr:  domain.ErrInvalidInterval,
		},
		{
			name:     "Error: Negative interval",
			ruleType: domain.RuleTypeInterval,
			interval: -2,
			start:    "2025-01-01",
			wantErr:  domain.ErrInvalidInterval,
		},
		{
			name:     "Error: Malformed start date",
			ruleType: domain.RuleTypeInterval,
			interval: 1,
			start:    "01/01/2025",
			wantErr:  domain.ErrInvalidDayKey,
		},
		{
			name:     "Error: End before start",
			ruleType: domain.RuleTypeInterval,
			interval: 1,
			start:    "2025-02-01",
			end:      endDate("2025-01-01"),
			wantErr:  domain.ErrEndBeforeStart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewRecurrenceRule("u1", "s1", tt.ruleType, tt.weekdays, tt.interval, tt.start, tt.end)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecurrenceRule_IsScheduledOn_Weekly(t *testing.T) {
	// 2025-01-01 is a Wednesday.
	rule, err := domain.NewRecurrenceRule("u1", "s1", domain.RuleTypeWeekly, []int{1, 3, 5}, 0, "2025-01-01", nil)
	require.NoError(t, err)

	t.Run("Matches only Mon/Wed/Fri on or after the start", func(t *testing.T) {
		assert.True(t, rule.IsScheduledOn("2025-01-01"), "Wed (start date itself)")
		assert.True(t, rule.IsScheduledOn("2025-01-03"), "Fri")
		assert.True(t, rule.IsScheduledOn("2025-01-06"), "Mon")
		assert.False(t, rule.IsScheduledOn("2025-01-02"), "Thu")
		assert.False(t, rule.IsScheduledOn("2025-01-04"), "Sat")
		assert.False(t, rule.IsScheduledOn("2025-01-05"), "Sun")
	})

	t.Run("Never matches before the start date", func(t *testing.T) {
		assert.False(t, rule.IsScheduledOn("2024-12-30"), "a Monday, but before start")
	})

	t.Run("Respects the end date", func(t *testing.T) {
		bounded, err := domain.NewRecurrenceRule("u1", "s1", domain.RuleTypeWeekly, []int{1}, 0, "2025-01-01", endDate("2025-01-13"))
		require.NoError(t, err)

		assert.True(t, bounded.IsScheduledOn("2025-01-13"), "end date is inclusive")
		assert.False(t, bounded.IsScheduledOn("2025-01-20"))
	})
}

func TestRecurrenceRule_IsScheduledOn_Interval(t *testing.T) {
	rule, err := domain.NewRecurrenceRule("u1", "s1", domain.RuleTypeInterval, nil, 3, "2025-01-01", nil)
	require.NoError(t, err)

	assert.True(t, rule.IsScheduledOn("2025-01-01"))
	assert.True(t, rule.IsScheduledOn("2025-01-04"))
	assert.True(t, rule.IsScheduledOn("2025-01-07"))
	assert.False(t, rule.IsScheduledOn("2025-01-02"))
	assert.False(t, rule.IsScheduledOn("2025-01-03"))
	assert.False(t, rule.IsScheduledOn("2024-12-29"), "before start, even though the modulus lines up")

	t.Run("Counts calendar days across month boundaries", func(t *testing.T) {
		assert.True(t, rule.IsScheduledOn("2025-02-03"), "day 33 from anchor")
		assert.False(t, rule.IsScheduledOn("2025-02-02"))
	})
}

func TestRecurrenceRule_IsScheduledOn_Manual(t *testing.T) {
	rule, err := domain.NewRecurrenceRule("u1", "s1", domain.RuleTypeManual, nil, 0, "2025-01-01", nil)
	require.NoError(t, err)

	for day := domain.DayKey("2025-01-01"); day <= "2025-01-14"; day = day.AddDays(1) {
		assert.False(t, rule.IsScheduledOn(day), "manual rules never auto-generate (%s)", day)
	}
}

func TestRecurrenceRule_Update(t *testing.T) {
	base := func() *domain.RecurrenceRule {
		r, _ := domain.NewRecurrenceRule("u1", "s1", domain.RuleTypeWeekly, []int{2}, 0, "2025-01-01", nil)
		return r
	}

	t.Run("Success: Changes cadence and bumps UpdatedAt", func(t *testing.T) {
		r := base()
		before := r.UpdatedAt

		err := r.Update(domain.RuleTypeInterval, nil, 4, "2025-02-01", nil, false)

		require.NoError(t, err)
		assert.Equal(t, domain.RuleTypeInterval, r.RuleType)
		assert.Equal(t, 4, r.IntervalDays)
		assert.False(t, r.IsEnabled)
		assert.False(t, r.UpdatedAt.Before(before))
	})

	t.Run("Error: Invalid update leaves the rule untouched", func(t *testing.T) {
		r := base()

		err := r.Update(domain.RuleTypeWeekly, nil, 0, "2025-01-01", nil, true)

		assert.ErrorIs(t, err, domain.ErrEmptyWeekdays)
		assert.Equal(t, []int{2}, r.Weekdays)
	})

	t.Run("Safety: Update isolates the weekdays slice", func(t *testing.T) {
		r := base()
		input := []int{1, 4}

		require.NoError(t, r.Update(domain.RuleTypeWeekly, input, 0, "2025-01-01", nil, true))
		input[0] = 6

		assert.Equal(t, []int{1, 4}, r.Weekdays, "internal state leaked")
	})
}

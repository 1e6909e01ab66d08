package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

const reminderColumns = `id, user_id, session_id, frequency, time_of_day,
	start_date, end_date, day_of_week, day_of_month,
	next_fire_at, last_fired_at, is_enabled,
	version, deleted_at, created_at, updated_at`

type PostgresReminderRepository struct {
	db *sqlx.DB
}

func NewPostgresReminderRepository(db *sqlx.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

func (r *PostgresReminderRepository) scanRow(row scannable) (*domain.ReminderRule, error) {
	var (
		rem         domain.ReminderRule
		startDate   time.Time
		endDate     sql.NullTime
		dayOfWeek   sql.NullInt64
		dayOfMonth  sql.NullInt64
		nextFireAt  sql.NullTime
		lastFiredAt sql.NullTime
		deletedAt   sql.NullTime
	)

	err := row.Scan(
		&rem.ID, &rem.UserID, &rem.SessionID, &rem.Frequency, &rem.TimeOfDay,
		&startDate, &endDate, &dayOfWeek, &dayOfMonth,
		&nextFireAt, &lastFiredAt, &rem.IsEnabled,
		&rem.Version, &deletedAt, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rem.StartDate = domain.DayKeyFromStorage(domain.StoredDate(startDate))
	if endDate.Valid {
		k := domain.DayKeyFromStorage(domain.StoredDate(endDate.Time))
		rem.EndDate = &k
	}
	if dayOfWeek.Valid {
		v := int(dayOfWeek.Int64)
		rem.DayOfWeek = &v
	}
	if dayOfMonth.Valid {
		v := int(dayOfMonth.Int64)
		rem.DayOfMonth = &v
	}
	if nextFireAt.Valid {
		t := nextFireAt.Time.UTC()
		rem.NextFireAt = &t
	}
	if lastFiredAt.Valid {
		t := lastFiredAt.Time.UTC()
		rem.LastFiredAt = &t
	}

	return &rem, nil
}

func reminderDates(rem *domain.ReminderRule) (time.Time, *time.Time, error) {
	start, err := rem.StartDate.Storage()
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid start_date: %w", err)
	}

	var end *time.Time
	if rem.EndDate != nil {
		d, err := rem.EndDate.Storage()
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("invalid end_date: %w", err)
		}
		v := d.Time()
		end = &v
	}

	return start.Time(), end, nil
}

func (r *PostgresReminderRepository) Create(ctx context.Context, rem *domain.ReminderRule) error {
	start, end, err := reminderDates(rem)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reminder_rules (
			id, user_id, session_id, frequency, time_of_day,
			start_date, end_date, day_of_week, day_of_month,
			next_fire_at, last_fired_at, is_enabled,
			version, deleted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, NULL, $13, $14)`

	_, err = r.db.ExecContext(ctx, query,
		rem.ID, rem.UserID, rem.SessionID, rem.Frequency, rem.TimeOfDay,
		start, end, rem.DayOfWeek, rem.DayOfMonth,
		rem.NextFireAt, rem.LastFiredAt, rem.IsEnabled,
		rem.CreatedAt, rem.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}

	rem.Version = 1
	return nil
}

func (r *PostgresReminderRepository) GetByID(ctx context.Context, id string) (*domain.ReminderRule, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminder_rules WHERE id = $1 AND deleted_at IS NULL`

	rem, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReminderNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return rem, nil
}

func (r *PostgresReminderRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.ReminderRule, error) {
	query := `
		SELECT ` + reminderColumns + ` FROM reminder_rules
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.ReminderRule
	for rows.Next() {
		rem, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *PostgresReminderRepository) Update(ctx context.Context, rem *domain.ReminderRule) error {
	start, end, err := reminderDates(rem)
	if err != nil {
		return err
	}

	query := `
		UPDATE reminder_rules SET
			frequency = $1, time_of_day = $2,
			start_date = $3, end_date = $4, day_of_week = $5, day_of_month = $6,
			next_fire_at = $7, last_fired_at = $8, is_enabled = $9,
			updated_at = NOW(), version = version + 1
		WHERE id = $10 AND deleted_at IS NULL
		RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		rem.Frequency, rem.TimeOfDay,
		start, end, rem.DayOfWeek, rem.DayOfMonth,
		rem.NextFireAt, rem.LastFiredAt, rem.IsEnabled,
		rem.ID,
	)

	var (
		newVersion   int
		newUpdatedAt time.Time
	)
	if err := row.Scan(&newVersion, &newUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrReminderNotFound
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	rem.Version = newVersion
	rem.UpdatedAt = newUpdatedAt
	return nil
}

func (r *PostgresReminderRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE reminder_rules
		SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *PostgresReminderRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.ReminderRule, error) {
	query := `
		SELECT ` + reminderColumns + ` FROM reminder_rules
		WHERE is_enabled = TRUE
		  AND deleted_at IS NULL
		  AND next_fire_at IS NOT NULL
		  AND next_fire_at <= $1
		ORDER BY next_fire_at ASC`

	rows, err := r.db.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("due query error: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.ReminderRule
	for rows.Next() {
		rem, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

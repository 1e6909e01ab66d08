package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

const taskColumns = `id, user_id, session_id, rule_id, scheduled_date, status,
	rescheduled_from, rescheduled_to, completed_at, created_at, updated_at`

type PostgresTaskRepository struct {
	db *sqlx.DB
}

func NewPostgresTaskRepository(db *sqlx.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) scanRow(row scannable) (*domain.ScheduledTask, error) {
	var (
		task            domain.ScheduledTask
		ruleID          sql.NullString
		scheduledDate   time.Time
		rescheduledFrom sql.NullTime
		rescheduledTo   sql.NullTime
		completedAt     sql.NullTime
	)

	err := row.Scan(
		&task.ID, &task.UserID, &task.SessionID, &ruleID,
		&scheduledDate, &task.Status,
		&rescheduledFrom, &rescheduledTo, &completedAt,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ruleID.Valid {
		task.RuleID = &ruleID.String
	}
	task.ScheduledDate = domain.DayKeyFromStorage(domain.StoredDate(scheduledDate))
	if rescheduledFrom.Valid {
		k := domain.DayKeyFromStorage(domain.StoredDate(rescheduledFrom.Time))
		task.RescheduledFrom = &k
	}
	if rescheduledTo.Valid {
		k := domain.DayKeyFromStorage(domain.StoredDate(rescheduledTo.Time))
		task.RescheduledTo = &k
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		task.CompletedAt = &t
	}

	return &task, nil
}

// taskDates converts the DayKey fields into the driver-level values a DATE
// column expects. Nil pointers stay nil so they land as SQL NULL.
func taskDates(task *domain.ScheduledTask) (time.Time, *time.Time, *time.Time, error) {
	scheduled, err := task.ScheduledDate.Storage()
	if err != nil {
		return time.Time{}, nil, nil, fmt.Errorf("invalid scheduled_date: %w", err)
	}

	var from, to *time.Time
	if task.RescheduledFrom != nil {
		d, err := task.RescheduledFrom.Storage()
		if err != nil {
			return time.Time{}, nil, nil, fmt.Errorf("invalid rescheduled_from: %w", err)
		}
		v := d.Time()
		from = &v
	}
	if task.RescheduledTo != nil {
		d, err := task.RescheduledTo.Storage()
		if err != nil {
			return time.Time{}, nil, nil, fmt.Errorf("invalid rescheduled_to: %w", err)
		}
		v := d.Time()
		to = &v
	}

	return scheduled.Time(), from, to, nil
}

func (r *PostgresTaskRepository) Create(ctx context.Context, task *domain.ScheduledTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	scheduled, from, to, err := taskDates(task)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduled_tasks (
			id, user_id, session_id, rule_id, scheduled_date, status,
			rescheduled_from, rescheduled_to, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		task.ID, task.UserID, task.SessionID, task.RuleID,
		scheduled, task.Status, from, to, task.CompletedAt,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return domain.ErrTaskConflict
			}
			if pqErr.Code == "23503" {
				return errors.New("referenced session or user does not exist")
			}
		}
		return err
	}
	return nil
}

func (r *PostgresTaskRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	query := `SELECT ` + taskColumns + ` FROM scheduled_tasks WHERE id = $1`

	task, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (r *PostgresTaskRepository) GetByDate(ctx context.Context, userID, sessionID string, date domain.DayKey) (*domain.ScheduledTask, error) {
	stored, err := date.Storage()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + taskColumns + ` FROM scheduled_tasks
		WHERE user_id = $1 AND session_id = $2 AND scheduled_date = $3`

	task, err := r.scanRow(r.db.QueryRowContext(ctx, query, userID, sessionID, stored.Time()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (r *PostgresTaskRepository) ListByUserIDAndRange(ctx context.Context, userID string, from, to domain.DayKey) ([]*domain.ScheduledTask, error) {
	start, err := from.Storage()
	if err != nil {
		return nil, err
	}
	end, err := to.Storage()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + taskColumns + ` FROM scheduled_tasks
		WHERE user_id = $1
		  AND scheduled_date >= $2
		  AND scheduled_date <= $3
		ORDER BY scheduled_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, start.Time(), end.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*domain.ScheduledTask{}
	for rows.Next() {
		task, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *PostgresTaskRepository) FindExistingDates(ctx context.Context, userID, sessionID string, dates []domain.DayKey) (map[domain.DayKey]bool, error) {
	existing := make(map[domain.DayKey]bool, len(dates))
	if len(dates) == 0 {
		return existing, nil
	}

	stored := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		s, err := d.Storage()
		if err != nil {
			return nil, err
		}
		stored = append(stored, s.Time())
	}

	query, args, err := sqlx.In(`
		SELECT scheduled_date FROM scheduled_tasks
		WHERE user_id = ? AND session_id = ? AND scheduled_date IN (?)`,
		userID, sessionID, stored)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		existing[domain.DayKeyFromStorage(domain.StoredDate(d))] = true
	}
	return existing, rows.Err()
}

func (r *PostgresTaskRepository) BulkInsert(ctx context.Context, tasks []*domain.ScheduledTask) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(tasks))
	args := make([]interface{}, 0, len(tasks)*9)
	for i, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		scheduled, err := task.ScheduledDate.Storage()
		if err != nil {
			return 0, err
		}

		base := i * 9
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			task.ID, task.UserID, task.SessionID, task.RuleID,
			scheduled.Time(), task.Status, task.CreatedAt, task.UpdatedAt, task.CompletedAt,
		)
	}

	// Rows that lose the race on the (user, session, date) unique index are
	// skipped rather than failing the whole batch.
	query := `
		INSERT INTO scheduled_tasks (
			id, user_id, session_id, rule_id, scheduled_date, status,
			created_at, updated_at, completed_at
		) VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (user_id, session_id, scheduled_date) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

func (r *PostgresTaskRepository) Update(ctx context.Context, task *domain.ScheduledTask) error {
	scheduled, from, to, err := taskDates(task)
	if err != nil {
		return err
	}

	query := `
		UPDATE scheduled_tasks
		SET status = $1,
		    scheduled_date = $2,
		    rescheduled_from = $3,
		    rescheduled_to = $4,
		    completed_at = $5,
		    updated_at = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		task.Status, scheduled, from, to, task.CompletedAt, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *PostgresTaskRepository) DeleteFuturePending(ctx context.Context, userID, ruleID string, from domain.DayKey) (int64, error) {
	start, err := from.Storage()
	if err != nil {
		return 0, err
	}

	// Moved tasks keep status pending as bookkeeping; they must survive a
	// rule resync, so rescheduled_to rows are excluded here.
	query := `
		DELETE FROM scheduled_tasks
		WHERE user_id = $1
		  AND rule_id = $2
		  AND status = 'pending'
		  AND rescheduled_to IS NULL
		  AND scheduled_date >= $3`

	result, err := r.db.ExecContext(ctx, query, userID, ruleID, start.Time())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

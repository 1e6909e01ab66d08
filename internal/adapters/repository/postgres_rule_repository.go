package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mshiraki/trainlog/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresRuleRepository struct {
	db *sqlx.DB
}

func NewPostgresRuleRepository(db *sqlx.DB) *PostgresRuleRepository {
	return &PostgresRuleRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

// Rule rows keep weekdays as a JSON column and dates as DATE columns.
// DATE values come back as UTC-midnight instants and are reinterpreted
// through the storage decoding, never through a timezone projection.
func (r *PostgresRuleRepository) scanRow(row scannable) (*domain.RecurrenceRule, error) {
	var rule domain.RecurrenceRule
	var weekdaysJSON []byte
	var startDate time.Time
	var endDate sql.NullTime

	err := row.Scan(
		&rule.ID, &rule.UserID, &rule.SessionID,
		&rule.RuleType, &weekdaysJSON, &rule.IntervalDays,
		&startDate, &endDate, &rule.IsEnabled,
		&rule.Version, &rule.DeletedAt, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(weekdaysJSON) > 0 {
		if err := json.Unmarshal(weekdaysJSON, &rule.Weekdays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weekdays: %w", err)
		}
	}

	rule.StartDate = domain.DayKeyFromStorage(domain.StoredDate(startDate))
	if endDate.Valid {
		k := domain.DayKeyFromStorage(domain.StoredDate(endDate.Time))
		rule.EndDate = &k
	}

	return &rule, nil
}

const ruleColumns = `
        id, user_id, session_id,
        rule_type, weekdays, interval_days,
        start_date, end_date, is_enabled,
        version, deleted_at, created_at, updated_at`

func (r *PostgresRuleRepository) Create(ctx context.Context, rule *domain.RecurrenceRule) error {
	weekdaysJSON, err := json.Marshal(rule.Weekdays)
	if err != nil {
		return fmt.Errorf("failed to marshal weekdays: %w", err)
	}

	startDate, endDate, err := ruleDates(rule)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO recurrence_rules (
            id, user_id, session_id,
            rule_type, weekdays, interval_days,
            start_date, end_date, is_enabled,
            version, deleted_at, created_at, updated_at
        ) VALUES (
            $1, $2, $3,
            $4, $5, $6,
            $7, $8, $9,
            1, NULL, $10, $11
        )`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.UserID, rule.SessionID,
		rule.RuleType, weekdaysJSON, rule.IntervalDays,
		startDate, endDate, rule.IsEnabled,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	rule.Version = 1
	return nil
}

func (r *PostgresRuleRepository) GetByID(ctx context.Context, id string) (*domain.RecurrenceRule, error) {
	query := `SELECT` + ruleColumns + ` FROM recurrence_rules WHERE id = $1 AND deleted_at IS NULL`

	rule, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return rule, nil
}

func (r *PostgresRuleRepository) listQuery(ctx context.Context, query string, args ...interface{}) ([]*domain.RecurrenceRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var rules []*domain.RecurrenceRule
	for rows.Next() {
		rule, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func (r *PostgresRuleRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.RecurrenceRule, error) {
	query := `
        SELECT` + ruleColumns + ` FROM recurrence_rules
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY created_at DESC`

	return r.listQuery(ctx, query, userID)
}

func (r *PostgresRuleRepository) ListBySessionID(ctx context.Context, sessionID string) ([]*domain.RecurrenceRule, error) {
	query := `
        SELECT` + ruleColumns + ` FROM recurrence_rules
        WHERE session_id = $1 AND deleted_at IS NULL
        ORDER BY created_at DESC`

	return r.listQuery(ctx, query, sessionID)
}

func (r *PostgresRuleRepository) ListEnabledForBatch(ctx context.Context) ([]*domain.RecurrenceRule, error) {
	query := `
        SELECT r.id, r.user_id, r.session_id,
               r.rule_type, r.weekdays, r.interval_days,
               r.start_date, r.end_date, r.is_enabled,
               r.version, r.deleted_at, r.created_at, r.updated_at
        FROM recurrence_rules r
        JOIN users u ON u.id = r.user_id AND u.deleted_at IS NULL
        WHERE r.is_enabled
          AND r.deleted_at IS NULL
          AND r.rule_type <> 'manual'
        ORDER BY r.created_at ASC`

	return r.listQuery(ctx, query)
}

func (r *PostgresRuleRepository) Update(ctx context.Context, rule *domain.RecurrenceRule) error {
	weekdaysJSON, err := json.Marshal(rule.Weekdays)
	if err != nil {
		return err
	}

	startDate, endDate, err := ruleDates(rule)
	if err != nil {
		return err
	}

	query := `
        UPDATE recurrence_rules SET
            rule_type=$1, weekdays=$2, interval_days=$3,
            start_date=$4, end_date=$5, is_enabled=$6,
            updated_at=NOW(), version = version + 1
        WHERE id=$7 AND version=$8 AND deleted_at IS NULL
        RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		rule.RuleType, weekdaysJSON, rule.IntervalDays,
		startDate, endDate, rule.IsEnabled,
		rule.ID, rule.Version,
	)

	var newVersion int
	var newUpdatedAt time.Time

	if err := row.Scan(&newVersion, &newUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var count int
			existsQuery := `SELECT count(*) FROM recurrence_rules WHERE id = $1 AND deleted_at IS NULL`
			if checkErr := r.db.QueryRowContext(ctx, existsQuery, rule.ID).Scan(&count); checkErr != nil {
				return fmt.Errorf("existence check failed: %w", checkErr)
			}
			if count == 0 {
				return domain.ErrRuleNotFound
			}
			return domain.ErrRuleConflict
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	rule.Version = newVersion
	rule.UpdatedAt = newUpdatedAt

	return nil
}

func (r *PostgresRuleRepository) Delete(ctx context.Context, id string) error {
	query := `
        UPDATE recurrence_rules
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
		return domain.ErrRuleNotFound
	}

	return nil
}

// ruleDates produces the DATE-column encodings of a rule's boundaries.
func ruleDates(rule *domain.RecurrenceRule) (time.Time, *time.Time, error) {
	start, err := rule.StartDate.Storage()
	if err != nil {
		return time.Time{}, nil, err
	}

	var end *time.Time
	if rule.EndDate != nil {
		e, err := rule.EndDate.Storage()
		if err != nil {
			return time.Time{}, nil, err
		}
		t := e.Time()
		end = &t
	}

	return start.Time(), end, nil
}

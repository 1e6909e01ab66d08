package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mshiraki/trainlog/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const sessionColumns = `id, user_id, name, note, sort_order, archived_at,
	version, deleted_at, created_at, updated_at`

type PostgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) scanRow(row scannable) (*domain.Session, error) {
	var (
		s          domain.Session
		archivedAt sql.NullTime
		deletedAt  sql.NullTime
	)

	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Note, &s.SortOrder, &archivedAt,
		&s.Version, &deletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if archivedAt.Valid {
		t := archivedAt.Time.UTC()
		s.ArchivedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		s.DeletedAt = &t
	}

	return &s, nil
}

func (r *PostgresSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (
			id, user_id, name, note, sort_order, archived_at,
			version, deleted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 1, NULL, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.Name, s.Note, s.SortOrder, s.ArchivedAt,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	s.Version = 1
	return nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND deleted_at IS NULL`

	s, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY sort_order ASC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *PostgresSessionRepository) Update(ctx context.Context, s *domain.Session) error {
	query := `
		UPDATE sessions SET
			name = $1, note = $2, sort_order = $3, archived_at = $4,
			updated_at = NOW(), version = version + 1
		WHERE id = $5 AND version = $6 AND deleted_at IS NULL
		RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		s.Name, s.Note, s.SortOrder, s.ArchivedAt,
		s.ID, s.Version,
	)

	var (
		newVersion   int
		newUpdatedAt time.Time
	)
	if err := row.Scan(&newVersion, &newUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var count int
			if checkErr := r.db.QueryRowContext(ctx,
				`SELECT count(*) FROM sessions WHERE id = $1 AND deleted_at IS NULL`,
				s.ID).Scan(&count); checkErr != nil {
				return fmt.Errorf("existence check failed: %w", checkErr)
			}
			if count == 0 {
				return domain.ErrSessionNotFound
			}
			return domain.ErrSessionConflict
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	s.Version = newVersion
	s.UpdatedAt = newUpdatedAt
	return nil
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE sessions
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
		return domain.ErrSessionNotFound
	}
	return nil
}

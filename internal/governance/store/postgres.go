package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taxgate/internal/governance/models"
	"taxgate/pkg/sentinel"
)

// PostgresStore persists rate parameters in the `rate_parameters` table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const rateParameterColumns = `id, name, rate, status, pending_rate,
	submitted_by, submitted_at, approved_by, approved_at,
	rejected_by, rejected_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.RateParameter) error {
	query := `
		INSERT INTO rate_parameters (` + rateParameterColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Rate, string(p.Status), p.PendingRate,
		p.SubmittedBy, p.SubmittedAt, p.ApprovedBy, p.ApprovedAt,
		p.RejectedBy, p.RejectedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create rate parameter: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.RateParameter, error) {
	query := `SELECT ` + rateParameterColumns + ` FROM rate_parameters WHERE id = $1`
	p, err := scanRateParameter(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rate parameter %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get rate parameter: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.RateParameter, error) {
	query := `SELECT ` + rateParameterColumns + ` FROM rate_parameters ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rate parameters: %w", err)
	}
	defer rows.Close()

	var out []*models.RateParameter
	for rows.Next() {
		p, err := scanRateParameter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate parameter: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate parameters: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetPending(ctx context.Context, id int64, rate float64, by string, at time.Time) error {
	query := `
		UPDATE rate_parameters
		SET pending_rate = $2, status = 'pending', submitted_by = $3, submitted_at = $4, updated_at = $4
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, rate, by, at)
	if err != nil {
		return fmt.Errorf("set pending rate: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set pending rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("rate parameter %d: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// ApplyApproval executes the pending→active transition as a single
// conditional statement. Of two racing decisions exactly one sees
// status = 'pending' and wins; the loser observes zero rows affected.
func (s *PostgresStore) ApplyApproval(ctx context.Context, id int64, by string, at time.Time) (bool, error) {
	query := `
		UPDATE rate_parameters
		SET rate = pending_rate, pending_rate = NULL, status = 'active',
		    approved_by = $2, approved_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending' AND pending_rate IS NOT NULL
	`
	result, err := s.db.ExecContext(ctx, query, id, by, at)
	if err != nil {
		return false, fmt.Errorf("apply approval: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply approval rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) ApplyRejection(ctx context.Context, id int64, by string, at time.Time) (bool, error) {
	query := `
		UPDATE rate_parameters
		SET pending_rate = NULL, status = 'active',
		    rejected_by = $2, rejected_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending' AND pending_rate IS NOT NULL
	`
	result, err := s.db.ExecContext(ctx, query, id, by, at)
	if err != nil {
		return false, fmt.Errorf("apply rejection: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply rejection rows affected: %w", err)
	}
	return rows > 0, nil
}

type rateParameterRow interface {
	Scan(dest ...any) error
}

func scanRateParameter(row rateParameterRow) (*models.RateParameter, error) {
	var p models.RateParameter
	var status string
	var pendingRate sql.NullFloat64
	var submittedBy, approvedBy, rejectedBy sql.NullString
	var submittedAt, approvedAt, rejectedAt sql.NullTime

	if err := row.Scan(
		&p.ID, &p.Name, &p.Rate, &status, &pendingRate,
		&submittedBy, &submittedAt, &approvedBy, &approvedAt,
		&rejectedBy, &rejectedAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Status = models.Status(status)
	if pendingRate.Valid {
		p.PendingRate = &pendingRate.Float64
	}
	if submittedBy.Valid {
		p.SubmittedBy = &submittedBy.String
	}
	if submittedAt.Valid {
		p.SubmittedAt = &submittedAt.Time
	}
	if approvedBy.Valid {
		p.ApprovedBy = &approvedBy.String
	}
	if approvedAt.Valid {
		p.ApprovedAt = &approvedAt.Time
	}
	if rejectedBy.Valid {
		p.RejectedBy = &rejectedBy.String
	}
	if rejectedAt.Valid {
		p.RejectedAt = &rejectedAt.Time
	}
	return &p, nil
}

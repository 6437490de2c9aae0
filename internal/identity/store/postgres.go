package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taxgate/internal/identity/models"
	"taxgate/pkg/sentinel"
)

// PostgresStore persists principals in the `principals` table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const principalColumns = `id, name, username, role, email, phone, national_id,
	password_hash, active, otp_code, otp_expires_at, session_id,
	token_id, token_expires_at, last_login_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Principal) error {
	query := `
		INSERT INTO principals (` + principalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Username, string(p.Role), p.Email, p.Phone, p.NationalID,
		p.PasswordHash, p.Active, p.OTPCode, p.OTPExpiresAt, p.SessionID,
		p.TokenID, p.TokenExpiresAt, p.LastLoginAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create principal: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`
	p, err := scanPrincipal(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("principal %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find principal by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindBySelector(ctx context.Context, sel models.Selector, value string) (*models.Principal, error) {
	if value == "" {
		return nil, fmt.Errorf("empty selector value: %w", sentinel.ErrNotFound)
	}

	var where string
	switch sel {
	case models.SelectorContact:
		where = `email = $1 OR phone = $1`
	case models.SelectorUsername:
		where = `username = $1`
	case models.SelectorNationalID:
		where = `national_id = $1`
	default:
		return nil, fmt.Errorf("unknown selector %q", sel)
	}

	// LIMIT 2 so an ambiguous match is detectable without scanning the table.
	query := `SELECT ` + principalColumns + ` FROM principals WHERE ` + where + ` LIMIT 2`
	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("find principal by %s: %w", sel, err)
	}
	defer rows.Close()

	var found *models.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan principal: %w", err)
		}
		if found != nil {
			return nil, fmt.Errorf("ambiguous %s lookup: %w", sel, sentinel.ErrNotFound)
		}
		found = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find principal by %s: %w", sel, err)
	}
	if found == nil {
		return nil, fmt.Errorf("%s lookup: %w", sel, sentinel.ErrNotFound)
	}
	return found, nil
}

func (s *PostgresStore) FindBySessionID(ctx context.Context, handle string) (*models.Principal, error) {
	if handle == "" {
		return nil, fmt.Errorf("empty session handle: %w", sentinel.ErrNotFound)
	}
	query := `SELECT ` + principalColumns + ` FROM principals WHERE session_id = $1`
	p, err := scanPrincipal(s.db.QueryRowContext(ctx, query, handle))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session lookup: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find principal by session: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) SetOTP(ctx context.Context, id, code string, expiresAt time.Time, sessionID string, now time.Time) error {
	query := `
		UPDATE principals
		SET otp_code = $2, otp_expires_at = $3, session_id = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, code, expiresAt, sessionID, now)
	if err != nil {
		return fmt.Errorf("set otp: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set otp rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set otp for %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// CompleteVerification promotes a verified principal in a single conditional
// statement. The WHERE clause re-checks the stored code and session handle so
// two racing verifications can never both succeed.
func (s *PostgresStore) CompleteVerification(ctx context.Context, params CompleteParams) (bool, error) {
	query := `
		UPDATE principals
		SET otp_code = NULL, otp_expires_at = NULL, session_id = NULL,
		    last_login_at = $4, token_id = $5, token_expires_at = $6, updated_at = $4
		WHERE id = $1 AND otp_code = $2 AND session_id = $3
	`
	result, err := s.db.ExecContext(ctx, query,
		params.PrincipalID, params.OTPCode, params.SessionID,
		params.Now, params.TokenID, params.TokenExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("complete verification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete verification rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) SetPassword(ctx context.Context, id, hash string, now time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE principals SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, now,
	)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set password rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set password for %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ClearToken(ctx context.Context, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE principals
		SET token_id = NULL, token_expires_at = NULL, session_id = NULL, updated_at = $2
		WHERE id = $1
	`, id, now)
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (s *PostgresStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE principals
		SET otp_code = CASE WHEN otp_expires_at < $1 THEN NULL ELSE otp_code END,
		    otp_expires_at = CASE WHEN otp_expires_at < $1 THEN NULL ELSE otp_expires_at END,
		    session_id = CASE WHEN otp_expires_at < $1 THEN NULL ELSE session_id END,
		    token_id = CASE WHEN token_expires_at < $1 THEN NULL ELSE token_id END,
		    token_expires_at = CASE WHEN token_expires_at < $1 THEN NULL ELSE token_expires_at END,
		    updated_at = $1
		WHERE otp_expires_at < $1 OR token_expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired credentials: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep rows affected: %w", err)
	}
	return rows, nil
}

type principalRow interface {
	Scan(dest ...any) error
}

func scanPrincipal(row principalRow) (*models.Principal, error) {
	var p models.Principal
	var role string
	var passwordHash, otpCode, sessionID, tokenID sql.NullString
	var otpExpires, tokenExpires, lastLogin sql.NullTime

	if err := row.Scan(
		&p.ID, &p.Name, &p.Username, &role, &p.Email, &p.Phone, &p.NationalID,
		&passwordHash, &p.Active, &otpCode, &otpExpires, &sessionID,
		&tokenID, &tokenExpires, &lastLogin, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Role = models.Role(role)
	if passwordHash.Valid {
		p.PasswordHash = &passwordHash.String
	}
	if otpCode.Valid {
		p.OTPCode = &otpCode.String
	}
	if otpExpires.Valid {
		p.OTPExpiresAt = &otpExpires.Time
	}
	if sessionID.Valid {
		p.SessionID = &sessionID.String
	}
	if tokenID.Valid {
		p.TokenID = &tokenID.String
	}
	if tokenExpires.Valid {
		p.TokenExpiresAt = &tokenExpires.Time
	}
	if lastLogin.Valid {
		p.LastLoginAt = &lastLogin.Time
	}
	return &p, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	identity "taxgate/internal/identity/models"
	"taxgate/internal/notification/models"
	"taxgate/pkg/sentinel"
)

// PostgresStore persists notifications in the `notifications` table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `id, type, title, message, target_role,
	reference_id, reference_type, read, read_at, created_by, created_at`

func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		n.ID, string(n.Type), n.Title, n.Message, string(n.TargetRole),
		n.ReferenceID, n.ReferenceType, n.Read, n.ReadAt, n.CreatedBy, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRole(ctx context.Context, role identity.Role, limit int) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE target_role = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, string(role), limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UnreadCount(ctx context.Context, role identity.Role) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE target_role = $1 AND read = FALSE`,
		string(role),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, id string, at time.Time) error {
	// Conditional on read = FALSE so the read timestamp is set once; a
	// repeat call matches zero rows and falls through to the existence
	// check.
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE, read_at = $2 WHERE id = $1 AND read = FALSE`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark read rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("mark read existence check: %w", err)
	}
	if !exists {
		return fmt.Errorf("notification %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, role identity.Role, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE, read_at = $2 WHERE target_role = $1 AND read = FALSE`,
		string(role), at,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all read rows affected: %w", err)
	}
	return rows, nil
}

type notificationRow interface {
	Scan(dest ...any) error
}

func scanNotification(row notificationRow) (*models.Notification, error) {
	var n models.Notification
	var typ, targetRole string
	var readAt sql.NullTime

	if err := row.Scan(
		&n.ID, &typ, &n.Title, &n.Message, &targetRole,
		&n.ReferenceID, &n.ReferenceType, &n.Read, &readAt, &n.CreatedBy, &n.CreatedAt,
	); err != nil {
		return nil, err
	}

	n.Type = models.Type(typ)
	n.TargetRole = identity.Role(targetRole)
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return &n, nil
}

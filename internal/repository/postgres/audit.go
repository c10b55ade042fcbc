package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/servebeer/pinning/internal/model"
)

var _ model.AuditStore = (*AuditRepository)(nil)

type AuditRepository struct {
	db *Connection
}

func NewAuditRepository(db *Connection) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

func (r *AuditRepository) Append(ctx context.Context, event model.AuditEvent) error {
	query := `INSERT INTO audit_log (kind, user_id, cid, size, detail)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, string(event.Kind), event.UserID, nullString(event.CID), event.Size, event.Detail)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	query := `SELECT id, kind, user_id, COALESCE(cid, ''), size, detail, created_at
			  FROM audit_log
			  ORDER BY created_at DESC, id DESC
			  LIMIT $1`

	return r.list(ctx, query, limit)
}

func (r *AuditRepository) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.AuditEvent, error) {
	query := `SELECT id, kind, user_id, COALESCE(cid, ''), size, detail, created_at
			  FROM audit_log
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2`

	return r.list(ctx, query, userID, limit)
}

func (r *AuditRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	return count, nil
}

func (r *AuditRepository) list(ctx context.Context, query string, args ...any) ([]model.AuditEvent, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var event model.AuditEvent
		err := rows.Scan(
			&event.ID, &event.Kind, &event.UserID, &event.CID,
			&event.Size, &event.Detail, &event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

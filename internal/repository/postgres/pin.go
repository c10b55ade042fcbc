package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/servebeer/pinning/internal/model"
)

var _ model.PinStore = (*PinRepository)(nil)

type PinRepository struct {
	db *Connection
}

func NewPinRepository(db *Connection) *PinRepository {
	return &PinRepository{
		db: db,
	}
}

func (r *PinRepository) Create(ctx context.Context, pin model.PinRecord) (model.PinRecord, error) {
	query := `INSERT INTO pins (id, user_id, cid, filename, size, origin, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, user_id, cid, filename, size, origin, status, created_at`

	var saved model.PinRecord
	err := r.db.QueryRow(ctx, query,
		pin.ID, pin.UserID, pin.CID, pin.Filename, pin.Size, string(pin.Origin), string(pin.Status),
	).Scan(
		&saved.ID, &saved.UserID, &saved.CID, &saved.Filename, &saved.Size,
		&saved.Origin, &saved.Status, &saved.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.PinRecord{}, model.ErrConflict
		}
		return model.PinRecord{}, fmt.Errorf("failed to create pin record: %w", err)
	}

	return saved, nil
}

func (r *PinRepository) GetActive(ctx context.Context, userID uuid.UUID, cid string) (model.PinRecord, error) {
	query := `SELECT id, user_id, cid, filename, size, origin, status, created_at
			  FROM pins
			  WHERE user_id = $1 AND cid = $2 AND status = 'active'`

	var pin model.PinRecord
	err := r.db.QueryRow(ctx, query, userID, cid).Scan(
		&pin.ID, &pin.UserID, &pin.CID, &pin.Filename, &pin.Size,
		&pin.Origin, &pin.Status, &pin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PinRecord{}, model.ErrNotFound
		}
		return model.PinRecord{}, fmt.Errorf("failed to get active pin: %w", err)
	}

	return pin, nil
}

func (r *PinRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, search string, limit int) ([]model.PinRecord, error) {
	query := `SELECT id, user_id, cid, filename, size, origin, status, created_at
			  FROM pins
			  WHERE user_id = $1 AND status = 'active'`

	args := []any{userID}
	if search != "" {
		query += ` AND (filename ILIKE '%' || $2 || '%' OR cid ILIKE '%' || $2 || '%')`
		args = append(args, search)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active pins: %w", err)
	}
	defer rows.Close()

	var pins []model.PinRecord
	for rows.Next() {
		var pin model.PinRecord
		err := rows.Scan(
			&pin.ID, &pin.UserID, &pin.CID, &pin.Filename, &pin.Size,
			&pin.Origin, &pin.Status, &pin.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		pins = append(pins, pin)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pins, nil
}

func (r *PinRepository) StatsByUser(ctx context.Context, userID uuid.UUID) (model.PinStats, error) {
	query := `SELECT COUNT(*),
			         COUNT(*) FILTER (WHERE origin = 'pin'),
			         COUNT(*) FILTER (WHERE origin = 'upload'),
			         COALESCE(SUM(size), 0)
			  FROM pins
			  WHERE user_id = $1 AND status = 'active'`

	var stats model.PinStats
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&stats.ActiveCount, &stats.PinCount, &stats.UploadCount, &stats.TotalBytes,
	)
	if err != nil {
		return model.PinStats{}, fmt.Errorf("failed to get pin stats: %w", err)
	}

	return stats, nil
}

func (r *PinRepository) Totals(ctx context.Context, since time.Time) (model.PinTotals, error) {
	query := `SELECT COUNT(*),
			         COALESCE(SUM(size), 0),
			         COUNT(*) FILTER (WHERE created_at > $1)
			  FROM pins
			  WHERE status = 'active'`

	var totals model.PinTotals
	err := r.db.QueryRow(ctx, query, since).Scan(
		&totals.ActiveCount, &totals.TotalBytes, &totals.CreatedIn,
	)
	if err != nil {
		return model.PinTotals{}, fmt.Errorf("failed to get pin totals: %w", err)
	}

	return totals, nil
}

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

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (id, email, tier, storage_used, storage_limit)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, email, tier, storage_used, storage_limit, created_at, updated_at, last_active_at`

	var savedUser model.User
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, string(user.Tier), user.StorageUsed, user.StorageLimit,
	).Scan(
		&savedUser.ID, &savedUser.Email, &savedUser.Tier, &savedUser.StorageUsed,
		&savedUser.StorageLimit, &savedUser.CreatedAt, &savedUser.UpdatedAt, &savedUser.LastActiveAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, model.ErrConflict
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return savedUser, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var user model.User
	query := `SELECT id, email, tier, storage_used, storage_limit, created_at, updated_at, last_active_at
			  FROM users WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Tier, &user.StorageUsed, &user.StorageLimit,
		&user.CreatedAt, &user.UpdatedAt, &user.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	query := `SELECT id, email, tier, storage_used, storage_limit, created_at, updated_at, last_active_at
			  FROM users WHERE email = $1`

	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Tier, &user.StorageUsed, &user.StorageLimit,
		&user.CreatedAt, &user.UpdatedAt, &user.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// ReserveStorage performs the quota check and increment in a single
// statement so concurrent reservations cannot overshoot the limit. The
// limit is inclusive: used + n == limit still grants.
func (r *UserRepository) ReserveStorage(ctx context.Context, id uuid.UUID, n int64) (bool, error) {
	query := `UPDATE users
			  SET storage_used = storage_used + $2, updated_at = NOW(), last_active_at = NOW()
			  WHERE id = $1 AND storage_used + $2 <= storage_limit`

	cmd, err := r.db.Exec(ctx, query, id, n)
	if err != nil {
		return false, fmt.Errorf("failed to reserve storage: %w", err)
	}

	return cmd.RowsAffected() == 1, nil
}

func (r *UserRepository) AddStorageUsed(ctx context.Context, id uuid.UUID, n int64) error {
	query := `UPDATE users
			  SET storage_used = storage_used + $2, updated_at = NOW(), last_active_at = NOW()
			  WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id, n)
	if err != nil {
		return fmt.Errorf("failed to add storage used: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) ReleaseStorage(ctx context.Context, id uuid.UUID, n int64) error {
	query := `UPDATE users
			  SET storage_used = GREATEST(storage_used - $2, 0), updated_at = NOW()
			  WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id, n)
	if err != nil {
		return fmt.Errorf("failed to release storage: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) CountUsers(ctx context.Context, activeSince time.Time) (int64, int64, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE last_active_at > $1) FROM users`

	var total, active int64
	if err := r.db.QueryRow(ctx, query, activeSince).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("failed to count users: %w", err)
	}

	return total, active, nil
}

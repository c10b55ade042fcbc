package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users and their storage
// ledger. ReserveStorage must perform its limit check and increment as a
// single atomic step.
type UserStore interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// ReserveStorage increments storage_used by n only when the result
	// stays within storage_limit. Returns false without mutating state
	// when the limit would be exceeded or the user does not exist.
	ReserveStorage(ctx context.Context, id uuid.UUID, n int64) (bool, error)
	// AddStorageUsed increments storage_used unconditionally.
	AddStorageUsed(ctx context.Context, id uuid.UUID, n int64) error
	// ReleaseStorage decrements storage_used by n, floored at zero.
	ReleaseStorage(ctx context.Context, id uuid.UUID, n int64) error
	CountUsers(ctx context.Context, activeSince time.Time) (total int64, active int64, err error)
}

// User represents a registered account with its storage ledger entry.
type User struct {
	ID           uuid.UUID
	Email        string
	Tier         Tier
	StorageUsed  int64
	StorageLimit int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastActiveAt time.Time
}

// StorageAvailable reports how many bytes the user may still admit.
func (u User) StorageAvailable() int64 {
	if u.StorageUsed >= u.StorageLimit {
		return 0
	}
	return u.StorageLimit - u.StorageUsed
}

// Tier enumerates account tiers.
type Tier string

const (
	// TierFree is the default community tier.
	TierFree Tier = "free"
	// TierPaid is the sponsored tier with a larger storage limit.
	TierPaid Tier = "paid"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPaid
}

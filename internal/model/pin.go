package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PinStore defines persistence operations for pin records.
type PinStore interface {
	// Create inserts a pin record. Returns ErrConflict when an active
	// record for the same (user, cid) pair already exists.
	Create(ctx context.Context, pin PinRecord) (PinRecord, error)
	// GetActive returns the active record for (userID, cid), or
	// ErrNotFound.
	GetActive(ctx context.Context, userID uuid.UUID, cid string) (PinRecord, error)
	// ListActiveByUser returns the user's active records newest first.
	// A non-empty search filters by filename or cid substring.
	ListActiveByUser(ctx context.Context, userID uuid.UUID, search string, limit int) ([]PinRecord, error)
	StatsByUser(ctx context.Context, userID uuid.UUID) (PinStats, error)
	Totals(ctx context.Context, since time.Time) (PinTotals, error)
}

// PinRecord ties a content identifier to the user who admitted it.
// Records are immutable after creation apart from the status transition
// to removed.
type PinRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CID       string
	Filename  string
	Size      int64
	Origin    PinOrigin
	Status    PinStatus
	CreatedAt time.Time
}

// PinOrigin enumerates how content entered the service.
type PinOrigin string

const (
	// OriginPinnedExisting marks content that was already reachable on
	// the network and pinned by CID.
	OriginPinnedExisting PinOrigin = "pin"
	// OriginUploadedNew marks content uploaded through the service.
	OriginUploadedNew PinOrigin = "upload"
)

// PinStatus enumerates pin record states.
type PinStatus string

const (
	// PinStatusActive counts toward the user's ledger.
	PinStatusActive PinStatus = "active"
	// PinStatusRemoved marks a record released by a reconciliation or
	// deletion path.
	PinStatusRemoved PinStatus = "removed"
)

// PinStats summarizes one user's active records.
type PinStats struct {
	ActiveCount int64
	PinCount    int64
	UploadCount int64
	TotalBytes  int64
}

// PinTotals summarizes active records across all users.
type PinTotals struct {
	ActiveCount int64
	TotalBytes  int64
	CreatedIn   int64
}

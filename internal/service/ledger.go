package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/servebeer/pinning/internal/logger"
	"github.com/servebeer/pinning/internal/model"
)

// Ledger owns the per-user storage accounting. It is the only path that
// mutates storage_used.
type Ledger struct {
	users  model.UserStore
	mode   model.AdmissionMode
	logger *logger.Logger
}

func NewLedger(users model.UserStore, mode model.AdmissionMode, logger *logger.Logger) *Ledger {
	return &Ledger{
		users:  users,
		mode:   mode,
		logger: logger,
	}
}

// Mode returns the admission mode the ledger was started with.
func (l *Ledger) Mode() model.AdmissionMode {
	return l.mode
}

// CheckAndReserve charges n bytes to the user's ledger. In enforced mode
// the limit check and increment happen as one atomic step and the grant
// is refused without mutation when the limit would be exceeded. In
// unrestricted mode usage is metered but never refused.
func (l *Ledger) CheckAndReserve(ctx context.Context, userID uuid.UUID, n int64) (bool, error) {
	if n < 0 {
		return false, fmt.Errorf("cannot reserve negative size %d", n)
	}

	if l.mode == model.ModeUnrestricted {
		if err := l.users.AddStorageUsed(ctx, userID, n); err != nil {
			return false, fmt.Errorf("failed to meter storage: %w", err)
		}
		return true, nil
	}

	granted, err := l.users.ReserveStorage(ctx, userID, n)
	if err != nil {
		return false, fmt.Errorf("failed to reserve storage: %w", err)
	}

	return granted, nil
}

// Release reverses a reservation after a later pipeline step failed.
func (l *Ledger) Release(ctx context.Context, userID uuid.UUID, n int64) error {
	if n <= 0 {
		return nil
	}

	if err := l.users.ReleaseStorage(ctx, userID, n); err != nil {
		return fmt.Errorf("failed to release storage: %w", err)
	}

	return nil
}

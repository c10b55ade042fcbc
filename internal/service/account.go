package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/servebeer/pinning/internal/logger"
	"github.com/servebeer/pinning/internal/model"
)

// TierLimits maps account tiers to their storage limits in bytes.
type TierLimits struct {
	Free int64
	Paid int64
}

// Account handles registration and lookup of users.
type Account struct {
	users    model.UserStore
	limits   TierLimits
	recorder *Recorder
	logger   *logger.Logger
}

func NewAccount(users model.UserStore, limits TierLimits, recorder *Recorder, logger *logger.Logger) *Account {
	return &Account{
		users:    users,
		limits:   limits,
		recorder: recorder,
		logger:   logger,
	}
}

// Register creates a new account on the given tier with an empty ledger.
func (a *Account) Register(ctx context.Context, email string, tier model.Tier) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, model.NewErrInvalidInput("invalid email address")
	}
	if !tier.Valid() {
		return model.User{}, model.NewErrInvalidInput(fmt.Sprintf("unknown tier %q", tier))
	}

	now := time.Now()
	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		Tier:         tier,
		StorageUsed:  0,
		StorageLimit: a.limitFor(tier),
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}

	created, err := a.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			a.recorder.Emit(ctx, model.EventRegisterFailed, nil, "", nil,
				"email already registered")
			return model.User{}, fmt.Errorf("email already registered: %w", model.ErrConflict)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	a.recorder.Emit(ctx, model.EventRegisterSucceeded, &created.ID, "", nil, string(tier))
	a.logger.Info("registered user",
		"user_id", created.ID,
		"tier", tier,
		"storage_limit", created.StorageLimit)

	return created, nil
}

// GetUser returns the user by id, or a model.ErrNotFound-wrapped error.
func (a *Account) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := a.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail returns the user registered under email.
func (a *Account) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	user, err := a.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return model.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (a *Account) limitFor(tier model.Tier) int64 {
	if tier == model.TierPaid {
		return a.limits.Paid
	}
	return a.limits.Free
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/servebeer/pinning/internal/logger"
	"github.com/servebeer/pinning/internal/model"
)

// ComponentState classifies a component's health.
type ComponentState string

const (
	StateOperational ComponentState = "operational"
	StateDegraded    ComponentState = "degraded"
	StateDown        ComponentState = "down"
)

// ComponentHealth describes one checked component.
type ComponentHealth struct {
	Name        string         `json:"name"`
	State       ComponentState `json:"status"`
	Description string         `json:"description"`
}

// Statistics aggregates service-wide counters for the status page.
type Statistics struct {
	TotalUsers    int64 `json:"total_users"`
	ActiveUsers   int64 `json:"active_users_week"`
	ActivePins    int64 `json:"active_pins"`
	TotalBytes    int64 `json:"total_bytes"`
	AdmittedToday int64 `json:"admitted_today"`
	AuditEvents   int64 `json:"audit_events"`
}

// SystemStatus is the full status rollup.
type SystemStatus struct {
	Overall       ComponentState  `json:"overall_status"`
	Backend       ComponentHealth `json:"backend"`
	Database      ComponentHealth `json:"database"`
	AdmissionMode string          `json:"admission_mode"`
	Statistics    Statistics      `json:"statistics"`
	Timestamp     time.Time       `json:"timestamp"`
}

// ActivityEntry is one item of the public activity feed, built from the
// audit trail with identifying details stripped.
type ActivityEntry struct {
	Kind      model.EventKind `json:"kind"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"timestamp"`
}

// UserStats combines a user's ledger position with their pin counters.
type UserStats struct {
	User  model.User
	Pins  model.PinStats
	Usage float64
}

// pinger is satisfied by the postgres connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// Status builds health rollups, public activity feeds and per-user
// statistics.
type Status struct {
	users   model.UserStore
	pins    model.PinStore
	audit   model.AuditStore
	backend model.BackendInfo
	db      pinger
	mode    model.AdmissionMode
	logger  *logger.Logger
}

func NewStatus(
	users model.UserStore,
	pins model.PinStore,
	audit model.AuditStore,
	backend model.BackendInfo,
	db pinger,
	mode model.AdmissionMode,
	logger *logger.Logger,
) *Status {
	return &Status{
		users:   users,
		pins:    pins,
		audit:   audit,
		backend: backend,
		db:      db,
		mode:    mode,
		logger:  logger,
	}
}

// SystemStatus checks each component and rolls their states up: all
// operational means operational, any down means down, anything else is
// degraded. It never returns an error; failed checks surface as down
// components.
func (s *Status) SystemStatus(ctx context.Context) SystemStatus {
	backend := s.checkBackend(ctx)
	database, stats := s.checkDatabase(ctx)

	return SystemStatus{
		Overall:       rollup(backend.State, database.State),
		Backend:       backend,
		Database:      database,
		AdmissionMode: string(s.mode),
		Statistics:    stats,
		Timestamp:     time.Now(),
	}
}

func (s *Status) checkBackend(ctx context.Context) ComponentHealth {
	version, err := s.backend.Version(ctx)
	if err != nil {
		s.logger.Error("backend version check failed", "error", err)
		return ComponentHealth{
			Name:        "IPFS Node",
			State:       StateDown,
			Description: "IPFS node unreachable",
		}
	}
	return ComponentHealth{
		Name:        "IPFS Node",
		State:       StateOperational,
		Description: fmt.Sprintf("IPFS v%s", version),
	}
}

func (s *Status) checkDatabase(ctx context.Context) (ComponentHealth, Statistics) {
	down := ComponentHealth{
		Name:        "Database",
		State:       StateDown,
		Description: "database unreachable",
	}

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("database ping failed", "error", err)
		return down, Statistics{}
	}

	now := time.Now()
	total, active, err := s.users.CountUsers(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		s.logger.Error("user count failed", "error", err)
		return down, Statistics{}
	}

	totals, err := s.pins.Totals(ctx, now.AddDate(0, 0, -1))
	if err != nil {
		s.logger.Error("pin totals failed", "error", err)
		return down, Statistics{}
	}

	auditCount, err := s.audit.Count(ctx)
	if err != nil {
		s.logger.Error("audit count failed", "error", err)
		return down, Statistics{}
	}

	stats := Statistics{
		TotalUsers:    total,
		ActiveUsers:   active,
		ActivePins:    totals.ActiveCount,
		TotalBytes:    totals.TotalBytes,
		AdmittedToday: totals.CreatedIn,
		AuditEvents:   auditCount,
	}

	health := ComponentHealth{
		Name:        "Database",
		State:       StateOperational,
		Description: fmt.Sprintf("%d users, %d active pins", total, totals.ActiveCount),
	}
	return health, stats
}

func rollup(states ...ComponentState) ComponentState {
	overall := StateOperational
	for _, state := range states {
		switch state {
		case StateDown:
			return StateDown
		case StateDegraded:
			overall = StateDegraded
		}
	}
	return overall
}

// RecentActivity returns the newest audit events as a sanitized feed:
// messages carry no user identifiers or CIDs.
func (s *Status) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	events, err := s.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	entries := make([]ActivityEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, ActivityEntry{
			Kind:      event.Kind,
			Level:     activityLevel(event.Kind),
			Message:   activityMessage(event.Kind),
			CreatedAt: event.CreatedAt,
		})
	}
	return entries, nil
}

func activityLevel(kind model.EventKind) string {
	switch kind {
	case model.EventPinSucceeded, model.EventUploadSucceeded, model.EventRegisterSucceeded:
		return "success"
	case model.EventPinFailedBackend, model.EventPinFailedInternal,
		model.EventUploadFailedBackend, model.EventUploadFailedInternal:
		return "error"
	default:
		return "warning"
	}
}

func activityMessage(kind model.EventKind) string {
	switch kind {
	case model.EventPinSucceeded:
		return "CID pinned successfully"
	case model.EventUploadSucceeded:
		return "File uploaded to IPFS"
	case model.EventRegisterSucceeded:
		return "New user registered"
	case model.EventRegisterFailed:
		return "Registration attempt failed"
	case model.EventPinRejectedInvalid:
		return "Pin request rejected (invalid input)"
	case model.EventUploadRejectedInvalid:
		return "Upload rejected (invalid input)"
	case model.EventPinRejectedDuplicate:
		return "Pin request rejected (already pinned)"
	case model.EventPinRejectedNotFound:
		return "Pin request rejected (content not found)"
	case model.EventPinRejectedQuota, model.EventUploadRejectedQuota:
		return "Request rejected (storage quota)"
	case model.EventUploadRejectedEmpty:
		return "Upload rejected (empty file)"
	case model.EventPinFailedBackend, model.EventUploadFailedBackend:
		return "IPFS operation failed"
	case model.EventPinFailedInternal, model.EventUploadFailedInternal:
		return "Internal operation failed"
	default:
		return fmt.Sprintf("System event: %s", kind)
	}
}

// UserStats returns one user's ledger position and pin counters.
func (s *Status) UserStats(ctx context.Context, userID uuid.UUID) (UserStats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("get user: %w", err)
	}

	pins, err := s.pins.StatsByUser(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("pin stats: %w", err)
	}

	usage := 0.0
	if user.StorageLimit > 0 {
		usage = float64(user.StorageUsed) / float64(user.StorageLimit) * 100
	}

	return UserStats{User: user, Pins: pins, Usage: usage}, nil
}

// ListPins returns the user's active pins, optionally filtered by a
// filename or CID substring.
func (s *Status) ListPins(ctx context.Context, userID uuid.UUID, search string, limit int) ([]model.PinRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	records, err := s.pins.ListActiveByUser(ctx, userID, search, limit)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	return records, nil
}

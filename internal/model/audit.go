package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditSink appends audit events. Implementations may fail; the audit
// recorder absorbs those failures so admissions never do.
type AuditSink interface {
	Append(ctx context.Context, event AuditEvent) error
}

// AuditStore extends AuditSink with the read side used by status feeds.
type AuditStore interface {
	AuditSink
	ListRecent(ctx context.Context, limit int) ([]AuditEvent, error)
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]AuditEvent, error)
	Count(ctx context.Context) (int64, error)
}

// AuditEvent is an append-only record of an admission outcome or account
// action. UserID and Size are nil when the event has no subject user or
// no byte size.
type AuditEvent struct {
	ID        int64
	Kind      EventKind
	UserID    *uuid.UUID
	CID       string
	Size      *int64
	Detail    string
	CreatedAt time.Time
}

// EventKind enumerates audit event kinds.
type EventKind string

const (
	EventPinRejectedInvalid   EventKind = "PIN_REJECTED_INVALID"
	EventPinRejectedDuplicate EventKind = "PIN_REJECTED_DUPLICATE"
	EventPinRejectedNotFound  EventKind = "PIN_REJECTED_NOT_FOUND"
	EventPinRejectedQuota     EventKind = "PIN_REJECTED_QUOTA"
	EventPinFailedBackend     EventKind = "PIN_FAILED_BACKEND"
	EventPinFailedInternal    EventKind = "PIN_FAILED_INTERNAL"
	EventPinSucceeded         EventKind = "PIN_SUCCEEDED"

	EventUploadRejectedInvalid EventKind = "UPLOAD_REJECTED_INVALID"
	EventUploadRejectedEmpty   EventKind = "UPLOAD_REJECTED_EMPTY"
	EventUploadRejectedQuota   EventKind = "UPLOAD_REJECTED_QUOTA"
	EventUploadFailedBackend   EventKind = "UPLOAD_FAILED_BACKEND"
	EventUploadFailedInternal  EventKind = "UPLOAD_FAILED_INTERNAL"
	EventUploadSucceeded       EventKind = "UPLOAD_SUCCEEDED"

	EventRegisterSucceeded EventKind = "REGISTER_SUCCESS"
	EventRegisterFailed    EventKind = "REGISTER_FAILED"
)

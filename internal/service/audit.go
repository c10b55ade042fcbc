package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servebeer/pinning/internal/logger"
	"github.com/servebeer/pinning/internal/model"
)

// fallbackCapacity bounds the in-process buffer used when the sink is
// unavailable; the oldest events are dropped first.
const fallbackCapacity = 256

// Recorder appends audit events for every admission outcome. Emission
// never fails the caller: a sink outage degrades to local logging plus a
// bounded in-process buffer instead of blocking or failing admissions.
type Recorder struct {
	sink   model.AuditSink
	logger *logger.Logger

	mu       sync.Mutex
	fallback []model.AuditEvent
}

func NewRecorder(sink model.AuditSink, logger *logger.Logger) *Recorder {
	return &Recorder{
		sink:   sink,
		logger: logger,
	}
}

// Emit appends one audit event. userID and size may be nil.
func (r *Recorder) Emit(ctx context.Context, kind model.EventKind, userID *uuid.UUID, cid string, size *int64, detail string) {
	event := model.AuditEvent{
		Kind:      kind,
		UserID:    userID,
		CID:       cid,
		Size:      size,
		Detail:    detail,
		CreatedAt: time.Now(),
	}

	if err := r.sink.Append(ctx, event); err != nil {
		r.logger.Error("audit sink unavailable, buffering event",
			"kind", kind,
			"cid", cid,
			"error", err)
		r.buffer(event)
	}
}

func (r *Recorder) buffer(event model.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.fallback) >= fallbackCapacity {
		r.fallback = r.fallback[1:]
	}
	r.fallback = append(r.fallback, event)
}

// Pending returns a copy of events buffered while the sink was down.
func (r *Recorder) Pending() []model.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.AuditEvent, len(r.fallback))
	copy(out, r.fallback)
	return out
}

// Flush retries buffered events against the sink, keeping the ones that
// still fail.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	pending := r.fallback
	r.fallback = nil
	r.mu.Unlock()

	for i, event := range pending {
		if err := r.sink.Append(ctx, event); err != nil {
			r.mu.Lock()
			r.fallback = append(pending[i:], r.fallback...)
			r.mu.Unlock()
			return
		}
	}
}

package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"

	"github.com/servebeer/pinning/internal/logger"
	"github.com/servebeer/pinning/internal/metrics"
	"github.com/servebeer/pinning/internal/model"
)

const (
	operationPin    = "pin"
	operationUpload = "upload"
)

// Admission runs the pin and upload admission pipelines: content
// validation, duplicate detection, storage reservation against the
// ledger, the backend call, and the pin record insert. Every terminal
// outcome emits exactly one audit event.
type Admission struct {
	users    model.UserStore
	pins     model.PinStore
	backend  model.ContentBackend
	ledger   *Ledger
	recorder *Recorder
	locks    userLocks
	logger   *logger.Logger
}

func NewAdmission(
	users model.UserStore,
	pins model.PinStore,
	backend model.ContentBackend,
	ledger *Ledger,
	recorder *Recorder,
	logger *logger.Logger,
) *Admission {
	return &Admission{
		users:    users,
		pins:     pins,
		backend:  backend,
		ledger:   ledger,
		recorder: recorder,
		logger:   logger,
	}
}

// PinExisting admits content already present on the network: the CID is
// validated, sized via the backend, charged against the user's quota and
// pinned. Duplicate requests for an active pin are rejected without
// touching the backend or the ledger.
func (a *Admission) PinExisting(ctx context.Context, userID uuid.UUID, rawCID string, filenameHint string) (model.PinRecord, error) {
	cidStr := strings.TrimSpace(rawCID)

	parsed, err := cid.Decode(cidStr)
	if err != nil {
		return a.rejectPin(ctx, userID, cidStr, nil,
			model.EventPinRejectedInvalid, "malformed content identifier",
			model.NewErrInvalidInput("malformed content identifier"))
	}
	cidStr = parsed.String()

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return a.rejectPin(ctx, userID, cidStr, nil,
				model.EventPinRejectedInvalid, "unknown user",
				model.NewErrInvalidInput("unknown user"))
		}
		return a.failPinInternal(ctx, userID, cidStr, nil, "get user", err)
	}

	// Cheap duplicate pre-check before any backend traffic.
	if _, err := a.pins.GetActive(ctx, user.ID, cidStr); err == nil {
		return a.rejectPin(ctx, user.ID, cidStr, nil,
			model.EventPinRejectedDuplicate, "already pinned",
			model.NewErrAlreadyPinned(cidStr))
	} else if !errors.Is(err, model.ErrNotFound) {
		return a.failPinInternal(ctx, user.ID, cidStr, nil, "check duplicate", err)
	}

	size, found, err := a.backend.Stat(ctx, cidStr)
	if err != nil {
		return a.failPin(ctx, user.ID, cidStr, nil,
			fmt.Sprintf("stat failed: %v", err),
			backendError("content stat failed", err))
	}
	if !found {
		return a.rejectPin(ctx, user.ID, cidStr, nil,
			model.EventPinRejectedNotFound, "content not found on network",
			model.NewErrContentNotFound(cidStr))
	}

	unlock := a.locks.lock(user.ID)
	defer unlock()

	// Re-check under the lock: a concurrent request may have won.
	if _, err := a.pins.GetActive(ctx, user.ID, cidStr); err == nil {
		return a.rejectPin(ctx, user.ID, cidStr, &size,
			model.EventPinRejectedDuplicate, "already pinned",
			model.NewErrAlreadyPinned(cidStr))
	} else if !errors.Is(err, model.ErrNotFound) {
		return a.failPinInternal(ctx, user.ID, cidStr, &size, "check duplicate", err)
	}

	granted, err := a.ledger.CheckAndReserve(ctx, user.ID, size)
	if err != nil {
		return a.failPinInternal(ctx, user.ID, cidStr, &size, "reserve storage", err)
	}
	if !granted {
		return a.rejectPin(ctx, user.ID, cidStr, &size,
			model.EventPinRejectedQuota, "storage quota exceeded",
			model.NewErrQuotaExceeded(size))
	}

	if err := a.backend.Pin(ctx, cidStr); err != nil {
		a.release(ctx, user.ID, size)
		return a.failPin(ctx, user.ID, cidStr, &size,
			fmt.Sprintf("pin failed: %v", err),
			backendError("pin failed", err))
	}

	filename := strings.TrimSpace(filenameHint)
	if filename == "" {
		filename = "pinned-" + cidStr[:8]
	}

	record := model.PinRecord{
		ID:        uuid.New(),
		UserID:    user.ID,
		CID:       cidStr,
		Filename:  filename,
		Size:      size,
		Origin:    model.OriginPinnedExisting,
		Status:    model.PinStatusActive,
		CreatedAt: time.Now(),
	}

	record, err = a.pins.Create(ctx, record)
	if err != nil {
		a.release(ctx, user.ID, size)
		if errors.Is(err, model.ErrConflict) {
			return a.rejectPin(ctx, user.ID, cidStr, &size,
				model.EventPinRejectedDuplicate, "already pinned",
				model.NewErrAlreadyPinned(cidStr))
		}
		return a.failPinInternal(ctx, user.ID, cidStr, &size, "record pin", err)
	}

	a.recorder.Emit(ctx, model.EventPinSucceeded, &user.ID, cidStr, &size, "")
	metrics.ObserveAdmission(operationPin, "success")
	metrics.AddAdmittedBytes(operationPin, size)

	a.logger.Info("pinned existing content",
		"user_id", user.ID,
		"cid", cidStr,
		"size", size)

	return record, nil
}

// UploadNew ingests new content from r, adds it to the backend and
// charges the resulting size against the user's quota. An upload whose
// content is already actively pinned for the user is treated as a
// duplicate pin of the computed CID.
func (a *Admission) UploadNew(ctx context.Context, userID uuid.UUID, r io.Reader, filename string, mimeHint string) (model.PinRecord, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return a.rejectUpload(ctx, userID, "", nil,
				model.EventUploadRejectedInvalid, "unknown user",
				model.NewErrInvalidInput("unknown user"))
		}
		return a.failUploadInternal(ctx, userID, "", nil, "get user", err)
	}

	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return a.rejectUpload(ctx, user.ID, "", nil,
				model.EventUploadRejectedEmpty, "empty upload",
				model.NewErrInvalidInput("empty upload"))
		}
		return a.failUploadInternal(ctx, user.ID, "", nil, "read upload", err)
	}

	cidStr, size, err := a.backend.Add(ctx, br, filename, mimeHint)
	if err != nil {
		return a.failUpload(ctx, user.ID, "", nil,
			fmt.Sprintf("add failed: %v", err),
			backendError("content add failed", err))
	}

	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = "file-" + cidStr[:8]
	}

	unlock := a.locks.lock(user.ID)
	defer unlock()

	if _, err := a.pins.GetActive(ctx, user.ID, cidStr); err == nil {
		// The content is already charged and pinned under this CID, so
		// the duplicate costs the user nothing.
		return a.rejectPin(ctx, user.ID, cidStr, &size,
			model.EventPinRejectedDuplicate, "already pinned (upload)",
			model.NewErrAlreadyPinned(cidStr))
	} else if !errors.Is(err, model.ErrNotFound) {
		return a.failUploadInternal(ctx, user.ID, cidStr, &size, "check duplicate", err)
	}

	granted, err := a.ledger.CheckAndReserve(ctx, user.ID, size)
	if err != nil {
		return a.failUploadInternal(ctx, user.ID, cidStr, &size, "reserve storage", err)
	}
	if !granted {
		// The backend keeps the content; only the account admission is
		// refused.
		return a.rejectUpload(ctx, user.ID, cidStr, &size,
			model.EventUploadRejectedQuota, "storage quota exceeded",
			model.NewErrQuotaExceeded(size))
	}

	record := model.PinRecord{
		ID:        uuid.New(),
		UserID:    user.ID,
		CID:       cidStr,
		Filename:  filename,
		Size:      size,
		Origin:    model.OriginUploadedNew,
		Status:    model.PinStatusActive,
		CreatedAt: time.Now(),
	}

	record, err = a.pins.Create(ctx, record)
	if err != nil {
		a.release(ctx, user.ID, size)
		if errors.Is(err, model.ErrConflict) {
			return a.rejectPin(ctx, user.ID, cidStr, &size,
				model.EventPinRejectedDuplicate, "already pinned",
				model.NewErrAlreadyPinned(cidStr))
		}
		return a.failUploadInternal(ctx, user.ID, cidStr, &size, "record upload", err)
	}

	a.recorder.Emit(ctx, model.EventUploadSucceeded, &user.ID, cidStr, &size, "")
	metrics.ObserveAdmission(operationUpload, "success")
	metrics.AddAdmittedBytes(operationUpload, size)

	a.logger.Info("uploaded new content",
		"user_id", user.ID,
		"cid", cidStr,
		"size", size)

	return record, nil
}

// backendError preserves the kind of errors the backend client already
// classified, wrapping everything else as a backend failure.
func backendError(message string, err error) error {
	var ae *model.AdmissionError
	if errors.As(err, &ae) {
		return err
	}
	return model.NewErrBackendFailure(message, err)
}

func (a *Admission) release(ctx context.Context, userID uuid.UUID, size int64) {
	if err := a.ledger.Release(ctx, userID, size); err != nil {
		a.logger.Error("failed to release reservation",
			"user_id", userID,
			"size", size,
			"error", err)
	}
}

func (a *Admission) rejectPin(ctx context.Context, userID uuid.UUID, cidStr string, size *int64, kind model.EventKind, detail string, rejection error) (model.PinRecord, error) {
	a.recorder.Emit(ctx, kind, &userID, cidStr, size, detail)
	metrics.ObserveAdmission(operationPin, string(model.AdmissionKind(rejection)))
	return model.PinRecord{}, rejection
}

func (a *Admission) failPin(ctx context.Context, userID uuid.UUID, cidStr string, size *int64, detail string, failure error) (model.PinRecord, error) {
	a.recorder.Emit(ctx, model.EventPinFailedBackend, &userID, cidStr, size, detail)
	metrics.ObserveAdmission(operationPin, string(model.AdmissionKind(failure)))
	return model.PinRecord{}, failure
}

func (a *Admission) rejectUpload(ctx context.Context, userID uuid.UUID, cidStr string, size *int64, kind model.EventKind, detail string, rejection error) (model.PinRecord, error) {
	a.recorder.Emit(ctx, kind, &userID, cidStr, size, detail)
	metrics.ObserveAdmission(operationUpload, string(model.AdmissionKind(rejection)))
	return model.PinRecord{}, rejection
}

func (a *Admission) failUpload(ctx context.Context, userID uuid.UUID, cidStr string, size *int64, detail string, failure error) (model.PinRecord, error) {
	a.recorder.Emit(ctx, model.EventUploadFailedBackend, &userID, cidStr, size, detail)
	metrics.ObserveAdmission(operationUpload, string(model.AdmissionKind(failure)))
	return model.PinRecord{}, failure
}

// failPinInternal terminates the pin pipeline on a store or ledger
// fault, keeping the one-audit-per-outcome contract for paths the
// backend never saw.
func (a *Admission) failPinInternal(ctx context.Context, userID uuid.UUID, cidStr string, size *int64, message string, err error) (model.PinRecord, error) {
	a.recorder.Emit(ctx, model.EventPinFailedInternal, &userID, cidStr, size,
		fmt.Sprintf("%s: %v", message, err))
	metrics.ObserveAdmission(operationPin, string(model.KindOperationFailed))
	return model.PinRecord{}, model.NewErrOperationFailed(message, err)
}

func (a *Admission) failUploadInternal(ctx context.Context, userID uuid.UUID, cidStr string, size *int64, message string, err error) (model.PinRecord, error) {
	a.recorder.Emit(ctx, model.EventUploadFailedInternal, &userID, cidStr, size,
		fmt.Sprintf("%s: %v", message, err))
	metrics.ObserveAdmission(operationUpload, string(model.KindOperationFailed))
	return model.PinRecord{}, model.NewErrOperationFailed(message, err)
}

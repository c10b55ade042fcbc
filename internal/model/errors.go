package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by stores on uniqueness violations.
	ErrConflict = errors.New("already exists")
)

// ErrorKind classifies admission failures. Every kind is recoverable by
// the caller; none is fatal to the process.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "invalid_input"
	KindAlreadyPinned      ErrorKind = "already_pinned"
	KindContentNotFound    ErrorKind = "content_not_found"
	KindQuotaExceeded      ErrorKind = "quota_exceeded"
	KindBackendUnavailable ErrorKind = "backend_unavailable"
	KindBackendFailure     ErrorKind = "backend_failure"
	KindOperationFailed    ErrorKind = "operation_failed"
)

// AdmissionError is the failure arm of an admission result: a kind the
// caller can switch on plus a user-presentable message.
type AdmissionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AdmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// AdmissionKind extracts the error kind from err, or KindOperationFailed
// when err is not an AdmissionError.
func AdmissionKind(err error) ErrorKind {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindOperationFailed
}

// NewErrInvalidInput builds an InvalidInput admission error.
func NewErrInvalidInput(message string) *AdmissionError {
	return &AdmissionError{Kind: KindInvalidInput, Message: message}
}

// NewErrAlreadyPinned reports a duplicate (user, cid) admission.
func NewErrAlreadyPinned(cid string) *AdmissionError {
	return &AdmissionError{Kind: KindAlreadyPinned, Message: fmt.Sprintf("content %s is already pinned", cid)}
}

// NewErrContentNotFound reports a CID unknown to the network.
func NewErrContentNotFound(cid string) *AdmissionError {
	return &AdmissionError{Kind: KindContentNotFound, Message: fmt.Sprintf("content %s not found on the network", cid)}
}

// NewErrQuotaExceeded reports an admission that would exceed the user's
// storage limit.
func NewErrQuotaExceeded(need int64) *AdmissionError {
	return &AdmissionError{Kind: KindQuotaExceeded, Message: fmt.Sprintf("admitting %d bytes would exceed the storage limit", need)}
}

// NewErrBackendUnavailable reports a backend that could not be reached.
func NewErrBackendUnavailable(err error) *AdmissionError {
	return &AdmissionError{Kind: KindBackendUnavailable, Message: "storage backend unavailable", Err: err}
}

// NewErrBackendFailure reports a backend operation that was attempted
// and failed.
func NewErrBackendFailure(message string, err error) *AdmissionError {
	return &AdmissionError{Kind: KindBackendFailure, Message: message, Err: err}
}

// NewErrOperationFailed reports an internal failure outside the backend.
func NewErrOperationFailed(message string, err error) *AdmissionError {
	return &AdmissionError{Kind: KindOperationFailed, Message: message, Err: err}
}

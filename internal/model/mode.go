package model

import "fmt"

// AdmissionMode is the process-wide quota enforcement switch. It is set
// once at startup and read-only during request processing.
type AdmissionMode string

const (
	// ModeEnforced applies quota checks on every admission.
	ModeEnforced AdmissionMode = "enforced"
	// ModeUnrestricted bypasses quota checks for trial operation.
	// Usage is still metered so the ledger is warm when enforcement
	// turns on.
	ModeUnrestricted AdmissionMode = "unrestricted"
)

// ParseAdmissionMode validates a configured mode string.
func ParseAdmissionMode(s string) (AdmissionMode, error) {
	switch AdmissionMode(s) {
	case ModeEnforced:
		return ModeEnforced, nil
	case ModeUnrestricted:
		return ModeUnrestricted, nil
	default:
		return "", fmt.Errorf("unknown admission mode %q", s)
	}
}

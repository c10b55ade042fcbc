package model

import (
	"context"
	"io"
)

// ContentBackend wraps the three content-addressable storage operations
// the admission pipeline depends on. Implementations translate backend
// faults into the admission error taxonomy and never leak raw response
// shapes past this boundary.
type ContentBackend interface {
	// Stat resolves a content identifier to its cumulative size.
	// found is false when the network does not know the identifier;
	// that is a normal outcome, not an error.
	Stat(ctx context.Context, cid string) (size int64, found bool, err error)
	// Pin asks the backend to durably retain content already reachable
	// on the network.
	Pin(ctx context.Context, cid string) error
	// Add streams bytes into the backend and returns the computed
	// content identifier and size. The backend is the size authority;
	// implementations fall back to the byte count actually streamed
	// when it reports zero.
	Add(ctx context.Context, r io.Reader, filename, mimeHint string) (cid string, size int64, err error)
}

// BackendInfo reports backend liveness for health and status surfaces.
type BackendInfo interface {
	Version(ctx context.Context) (string, error)
}

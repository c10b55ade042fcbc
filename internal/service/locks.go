package service

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const lockStripes = 256

// userLocks serializes admissions per user without a global lock.
// Admissions for different users land on different stripes (modulo hash
// collisions, which only cost serialization, never correctness).
type userLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (ul *userLocks) lock(userID uuid.UUID) func() {
	h := fnv.New32a()
	h.Write(userID[:])
	m := &ul.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// Package testutil holds helpers for deterministic tests.
package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// IDSequence hands out UUIDs whose low 64 bits count up from 1:
//
//	00000000-0000-0000-0000-000000000001
//	00000000-0000-0000-0000-000000000002
//
// Stores built with one produce the same run IDs on every test run.
// It is safe for concurrent use.
type IDSequence struct {
	mu sync.Mutex
	n  uint64
}

// NewIDSequence creates a sequence whose first ID ends in 1.
func NewIDSequence() *IDSequence {
	return &IDSequence{}
}

// Next returns the next ID.
func (s *IDSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return ID(s.n)
}

// Reset starts the sequence over.
func (s *IDSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}

// ID returns the n-th ID of a sequence.
func ID(n uint64) string {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[8:], n)
	return u.String()
}

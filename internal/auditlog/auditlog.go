// Package auditlog implements the analytics/audit log store: an append-only
// record of every accepted submission, duplicate or not, used for traffic
// analysis. Dedup correctness never depends on this store.
//
// The Store interface keeps the backend a black box to the rest of the
// pipeline. Production uses MongoDB (see mongo.go); tests use MemoryStore.
package auditlog

import (
	"context"
	"sync"
	"time"
)

// Entry is one audit document. One entry is written per accepted submission;
// a redelivered audit job may append a second copy, which downstream
// consumers tolerate because the log is analytical, not authoritative.
type Entry struct {
	Phone      string    `bson:"phone"       json:"phone"`
	Path       string    `bson:"path"        json:"path"`
	ClientIP   string    `bson:"ip"          json:"ip"`
	UserAgent  string    `bson:"ua"          json:"ua"`
	Duplicate  bool      `bson:"duplicate"   json:"duplicate"`
	EnqueuedAt time.Time `bson:"enqueued_at" json:"enqueued_at"`
	// LoggedAt is assigned by the worker at write time, not by the client.
	LoggedAt time.Time `bson:"ts" json:"ts"`
}

// Store is the narrow append-only contract the audit worker writes through.
// Implementations must be safe for concurrent use and honor ctx.
type Store interface {
	Insert(ctx context.Context, e Entry) error
}

// MemoryStore is an in-process Store that retains entries in order of
// insertion. Intended for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry

	// FailWith, when non-nil, is returned by Insert instead of appending.
	// Tests use it to simulate transient store failures.
	FailWith error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert appends e, or returns FailWith when set.
func (s *MemoryStore) Insert(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.entries = append(s.entries, e)
	return nil
}

// Entries returns a copy of everything inserted so far.
func (s *MemoryStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

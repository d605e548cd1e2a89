// Package dedup implements the time-windowed duplicate suppression cache.
//
// The cache exposes a single atomic primitive, Claim: mark a key as "seen"
// for a TTL window, reporting whether this caller was the first to do so.
// Correctness of the whole pipeline hangs on that atomicity — concurrent
// claims on the same key must yield exactly one winner, with no interleaving
// in which two callers both observe a successful claim. Backends therefore
// implement Claim as a single insert-if-absent operation, never as a
// read-then-write pair.
//
// A losing claim never refreshes the window: repeated submissions of the
// same phone do not extend its suppression.
//
// Two backends exist:
//   - Redis (production): one SET key value NX EX ttl round trip.
//   - Memory (dev/tests): a mutex-guarded map with absolute expiries.
//
// Cache unavailability is surfaced as an error. The service layer fails
// closed on it: a request whose claim cannot be decided is rejected rather
// than admitted, because admitting blind would silently defeat deduplication.
package dedup

import (
	"context"
	"time"
)

// KeyPrefix namespaces dedup entries in the shared cache store.
const KeyPrefix = "dedup:phone:"

// Key returns the cache key for a canonical phone string.
func Key(phone string) string { return KeyPrefix + phone }

// Cache is the dedup-claim contract consumed by the submission service.
//
// Claim atomically records key as seen for ttl and reports whether the entry
// was newly created (true) or already present (false). Implementations must
// be safe for concurrent use and must honor ctx for cancellation.
type Cache interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (claimed bool, err error)
}

// Package confcache resolves a remote JSON configuration document through a
// persistent cache. A cached payload younger than the freshness window is
// served without touching the network; an older one is revalidated against
// the canonical URL, and when that fails the cached copy is served stale.
// The resolver always returns its best available answer and never an error:
// total unavailability (no cache, no network) is reported as an absent
// result.
package confcache

import (
	"context"
	"encoding/json"
	"time"
)

// Store keys owned by the resolver. PayloadKey holds the raw JSON document,
// StoredAtKey the decimal milliseconds-since-epoch write time. A successful
// refresh overwrites both in a single Set.
const (
	PayloadKey  = "config"
	StoredAtKey = "config_ts"
)

// DefaultFreshness is how long a cached payload is authoritative without
// revalidation.
const DefaultFreshness = 2 * time.Minute

// Store is the persistent key-value collaborator. Get returns the values for
// the requested keys; absent keys are simply missing from the map. Set
// applies all entries so that a concurrent reader observes either none or
// all of them. Delete removes keys and is only used by host tooling; the
// resolver itself never deletes.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, entries map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Source retrieves the canonical configuration resource. A non-2xx status or
// transport failure must surface as an error; the body is returned verbatim.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Origin reports where a Result's payload came from.
type Origin string

const (
	// OriginFresh: served from cache inside the freshness window.
	OriginFresh Origin = "fresh"
	// OriginRefreshed: just fetched from the source and written back.
	OriginRefreshed Origin = "refreshed"
	// OriginStale: refresh failed, served from cache past the window.
	OriginStale Origin = "stale"
	// OriginNone: neither the source nor the cache could supply a payload.
	OriginNone Origin = "none"
)

// Result is the outcome of Get or Refresh. Payload is nil exactly when
// Origin is OriginNone. StoredAt is the cache write time of the payload and
// is zero when unknown (for example a payload whose timestamp entry was
// lost).
type Result struct {
	Payload  json.RawMessage
	Origin   Origin
	StoredAt time.Time
}

// Status describes the cache without touching the network.
type Status struct {
	Exists   bool
	StoredAt time.Time
	Age      time.Duration
	Fresh    bool
	Size     int
}

package confcache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Fetcher composes a Store, a Source and a clock into the cache-or-fetch
// resolution. Collaborators are injected so hosts and tests can supply their
// own; the zero-dependency default is a real clock and the package defaults.
//
// Every call runs its store and source operations strictly in sequence.
// Fetcher assumes it is the only writer of its two keys; concurrent writers
// are last-write-wins.
type Fetcher struct {
	store     Store
	source    Source
	freshness time.Duration
	now       func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFreshness overrides the freshness window. Values <= 0 keep the
// default.
func WithFreshness(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.freshness = d
		}
	}
}

// WithClock injects the time source used for freshness checks and stored-at
// stamps.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// New returns a Fetcher over the given collaborators. source may be nil, in
// which case every refresh fails and Get degrades to cache-only serving.
func New(store Store, source Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:     store,
		source:    source,
		freshness: DefaultFreshness,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns the best available configuration payload.
//
// A cached payload younger than the freshness window is returned without a
// network call. Otherwise the source is fetched once: on success the payload
// and the current timestamp are written back together and the fresh payload
// is returned. On any fetch or parse failure the cache is re-read and its
// payload returned as-is, however stale; with no cache either, the result is
// absent. Get never returns an error.
func (f *Fetcher) Get(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, storedAt, ok := f.read(ctx)
	if ok && !storedAt.IsZero() && f.now().Sub(storedAt) < f.freshness {
		log.Debugf("config cache hit, age %s", f.now().Sub(storedAt))
		return Result{Payload: payload, Origin: OriginFresh, StoredAt: storedAt}
	}

	res, err := f.refresh(ctx)
	if err != nil {
		log.WithError(err).Warn("config refresh failed, falling back to cache")
		return f.fallback(ctx)
	}
	return res
}

// Refresh revalidates unconditionally, skipping the freshness check. The
// stale fallback still applies when the fetch fails.
func (f *Fetcher) Refresh(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := f.refresh(ctx)
	if err != nil {
		log.WithError(err).Warn("forced config refresh failed, falling back to cache")
		return f.fallback(ctx)
	}
	return res
}

// Status reports cache metadata. It performs no network call and no writes.
func (f *Fetcher) Status(ctx context.Context) Status {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, storedAt, ok := f.read(ctx)
	if !ok {
		return Status{}
	}
	st := Status{Exists: true, StoredAt: storedAt, Size: len(payload)}
	if !storedAt.IsZero() {
		st.Age = f.now().Sub(storedAt)
		st.Fresh = st.Age < f.freshness
	}
	return st
}

// refresh fetches the source, validates the body as JSON and writes payload
// and timestamp back in one Set. A failed write is logged but does not fail
// the refresh: the freshly fetched payload is still the best answer.
func (f *Fetcher) refresh(ctx context.Context) (Result, error) {
	if f.source == nil {
		return Result{}, errors.New("no source configured")
	}

	body, err := f.source.Fetch(ctx)
	if err != nil {
		return Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return Result{}, errors.New("config response is not valid JSON")
	}

	now := f.now()
	entries := map[string][]byte{
		PayloadKey:  body,
		StoredAtKey: []byte(strconv.FormatInt(now.UnixMilli(), 10)),
	}
	if err := f.store.Set(ctx, entries); err != nil {
		log.WithError(err).Warn("config cache write failed")
	}
	log.Debugf("config refreshed, %d bytes", len(body))
	return Result{Payload: body, Origin: OriginRefreshed, StoredAt: now}, nil
}

// fallback re-reads the cache and returns whatever payload it holds,
// regardless of age. It never writes.
func (f *Fetcher) fallback(ctx context.Context) Result {
	payload, storedAt, ok := f.read(ctx)
	if !ok {
		return Result{Origin: OriginNone}
	}
	return Result{Payload: payload, Origin: OriginStale, StoredAt: storedAt}
}

// read loads both keys in one store call. ok reports whether a payload
// exists; a missing or unparseable timestamp entry yields a zero storedAt,
// which callers treat as "age unknown" (never fresh, still usable as a
// fallback). Store read errors degrade to a miss and are logged.
func (f *Fetcher) read(ctx context.Context) (payload json.RawMessage, storedAt time.Time, ok bool) {
	values, err := f.store.Get(ctx, PayloadKey, StoredAtKey)
	if err != nil {
		log.WithError(err).Warn("config cache read failed")
		return nil, time.Time{}, false
	}

	payload, ok = values[PayloadKey]
	if !ok || len(payload) == 0 {
		return nil, time.Time{}, false
	}

	if raw, found := values[StoredAtKey]; found {
		if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			storedAt = time.UnixMilli(ms)
		} else {
			log.Debugf("unparseable config timestamp %q", raw)
		}
	}
	return payload, storedAt, true
}

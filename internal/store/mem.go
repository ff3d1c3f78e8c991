package store

import (
	"context"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// Mem is an in-process store with no persistence, for ephemeral daemons and
// tests. Entries never expire on their own; freshness policy belongs to the
// resolver, not the store. The mutex makes a multi-key Set atomic with
// respect to concurrent Gets.
type Mem struct {
	mu sync.RWMutex
	c  *gocache.Cache
}

// NewMem returns an empty in-memory store.
func NewMem() *Mem {
	return &Mem{c: gocache.New(gocache.NoExpiration, gocache.NoExpiration)}
}

// Get returns copies of the values for the requested keys.
func (s *Mem) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, found := s.c.Get(k); found {
			if b, isBytes := v.([]byte); isBytes {
				out[k] = append([]byte(nil), b...)
			}
		}
	}
	return out, nil
}

// Set stores copies of all entries.
func (s *Mem) Set(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		s.c.Set(k, append([]byte(nil), v...), gocache.NoExpiration)
	}
	return nil
}

// Delete removes the given keys.
func (s *Mem) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.c.Delete(k)
	}
	return nil
}

package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry. Expired entries linger until Reap
// is called, but lookups check expiry themselves so a late reap never matters.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// MemoryOption customizes a MemoryRegistry.
type MemoryOption func(*MemoryRegistry)

// WithMemoryClock overrides the time source.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRegistry) { r.now = now }
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry(opts ...MemoryOption) *MemoryRegistry {
	r := &MemoryRegistry{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Block implements Registry.
func (r *MemoryRegistry) Block(_ context.Context, rawToken string) error {
	now := r.now()
	ttl, err := blockTTL(rawToken, now)
	if err != nil {
		return err
	}
	key := Fingerprint(rawToken)
	expiresAt := now.Add(ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[key]; ok && current.After(expiresAt) {
		return nil
	}
	r.entries[key] = expiresAt
	return nil
}

// IsBlocked implements Registry.
func (r *MemoryRegistry) IsBlocked(_ context.Context, rawToken string) (bool, error) {
	key := Fingerprint(rawToken)

	r.mu.RLock()
	expiresAt, ok := r.entries[key]
	r.mu.RUnlock()

	return ok && r.now().Before(expiresAt), nil
}

// Reap removes entries whose expiry has passed and returns how many were removed.
func (r *MemoryRegistry) Reap() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, expiresAt := range r.entries {
		if !now.Before(expiresAt) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, live or not yet reaped.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Ping always succeeds; it lets the registry sit behind readiness checks.
func (r *MemoryRegistry) Ping(context.Context) error {
	return nil
}

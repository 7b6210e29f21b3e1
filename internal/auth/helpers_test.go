package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  "unit-test-access-secret",
		RefreshSecret: "unit-test-refresh-secret",
		AccessTTL:     300 * time.Second,
		RefreshTTL:    24 * time.Hour,
	}
}

func newTestManager(t *testing.T, clock *fakeClock) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(testTokenConfig(), WithClock(clock.Now))
	require.NoError(t, err)
	return tm
}

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// minBlockTTL keeps a token presented at its own expiry instant registered.
const minBlockTTL = time.Second

// Registry is the revocation denylist consulted by the authentication guard.
type Registry interface {
	// Block records rawToken until its natural expiry. Blocking twice is a no-op.
	Block(ctx context.Context, rawToken string) error
	// IsBlocked reports whether a live entry exists for rawToken.
	IsBlocked(ctx context.Context, rawToken string) (bool, error)
}

// Fingerprint derives the revocation key of a raw token string.
func Fingerprint(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// blockTTL is the remaining validity of rawToken at now, clamped to minBlockTTL.
func blockTTL(rawToken string, now time.Time) (time.Duration, error) {
	exp, err := ExpiryOf(rawToken)
	if err != nil {
		return 0, err
	}
	ttl := exp.Sub(now)
	if ttl < minBlockTTL {
		ttl = minBlockTTL
	}
	return ttl, nil
}

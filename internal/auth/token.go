package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/model-gateway/internal/domain"
)

// TokenConfig holds the per-kind signing parameters.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenManager issues and verifies access and refresh tokens.
type TokenManager struct {
	keys map[domain.TokenKind]signingKey
	now  func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) { tm.now = now }
}

// NewTokenManager builds a new manager. Access and refresh tokens never share a secret.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	tm := &TokenManager{
		keys: map[domain.TokenKind]signingKey{
			domain.TokenKindAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			domain.TokenKindRefresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Claims describes JWT payload.
type Claims struct {
	Role domain.Role      `json:"role"`
	Kind domain.TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token of the given kind for the identity.
func (tm *TokenManager) Issue(identity domain.Identity, kind domain.TokenKind) (string, time.Time, error) {
	key, ok := tm.keys[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}

	now := tm.now()
	expiresAt := now.Add(key.ttl)
	claims := &Claims{
		Role: identity.Role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(identity.SubjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Verify checks signature, kind and expiry of rawToken.
//
// The signature is always checked against both secrets so that a wrong
// signature and a wrong kind cost the same.
func (tm *TokenManager) Verify(rawToken string, expected domain.TokenKind) (*domain.TokenPayload, error) {
	key, ok := tm.keys[expected]
	if !ok {
		return nil, fmt.Errorf("unknown token kind %q", expected)
	}
	other := tm.keys[otherKind(expected)]

	claims, expectedErr := parseSigned(rawToken, key.secret)
	_, otherErr := parseSigned(rawToken, other.secret)

	if expectedErr != nil {
		if otherErr == nil {
			return nil, ErrTokenKindMismatch
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, expectedErr)
	}
	if claims.Kind != expected {
		return nil, ErrTokenKindMismatch
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing exp/iat", ErrTokenInvalid)
	}
	if !tm.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	subjectID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: bad role", ErrTokenInvalid)
	}

	return &domain.TokenPayload{
		ID:        claims.ID,
		SubjectID: subjectID,
		Role:      claims.Role,
		Kind:      claims.Kind,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// parseSigned checks structure and HS256 signature only; claim validation is
// done by Verify against the manager's clock.
func parseSigned(rawToken string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(rawToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ExpiryOf reads the exp claim without verifying the signature.
func ExpiryOf(rawToken string) (time.Time, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: token has no exp", ErrMalformedCredential)
	}
	return claims.ExpiresAt.Time, nil
}

// SignedExpiry returns the exp of a token signed with either of the manager's
// secrets. Expired tokens are accepted; tokens signed elsewhere fail with
// ErrTokenInvalid, so a forged exp can never reach the revocation registry.
func (tm *TokenManager) SignedExpiry(rawToken string) (time.Time, error) {
	exp, err := ExpiryOf(rawToken)
	if err != nil {
		return time.Time{}, err
	}

	access := tm.keys[domain.TokenKindAccess]
	refresh := tm.keys[domain.TokenKindRefresh]
	_, accessErr := parseSigned(rawToken, access.secret)
	_, refreshErr := parseSigned(rawToken, refresh.secret)
	if accessErr != nil && refreshErr != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenInvalid, accessErr)
	}
	return exp, nil
}

func otherKind(kind domain.TokenKind) domain.TokenKind {
	if kind == domain.TokenKindAccess {
		return domain.TokenKindRefresh
	}
	return domain.TokenKindAccess
}

package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/model-gateway/internal/auth"
	"github.com/spec-kit/model-gateway/internal/domain"
	"github.com/spec-kit/model-gateway/internal/events"
	"github.com/spec-kit/model-gateway/internal/observability"
	"github.com/spec-kit/model-gateway/internal/repository"
	apperrors "github.com/spec-kit/model-gateway/pkg/util/errorutil"
)

const minPasswordLength = 8

// TokenAuthority mints session tokens and recognises its own signatures.
type TokenAuthority interface {
	Issue(identity domain.Identity, kind domain.TokenKind) (string, time.Time, error)
	SignedExpiry(rawToken string) (time.Time, error)
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	RefreshToken     string
	RefreshExpiresAt time.Time
	AccessToken      string
	AccessExpiresAt  time.Time
}

// AuthService coordinates registration, login, rotation and revocation.
type AuthService struct {
	users      repository.UserRepository
	tokens     TokenAuthority
	registry   auth.Registry
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     TokenAuthority
	Registry   auth.Registry
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates a paidUser account from a Basic authorization header.
func (s *AuthService) Register(ctx context.Context, authorization string) (*domain.User, error) {
	creds, err := auth.ParseBasic(authorization)
	if err != nil {
		return nil, auth.HTTPError(err)
	}
	email := strings.TrimSpace(creds.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}
	if len(creds.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password too short", map[string]any{"min_length": minPasswordLength})
	}

	hash, err := auth.HashPassword(creds.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RolePaidUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("email already registered", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, nil))
	return user, nil
}

// Login authenticates Basic credentials and issues a refresh/access pair.
// Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, authorization string) (*TokenPair, error) {
	creds, err := auth.ParseBasic(authorization)
	if err != nil {
		return nil, auth.HTTPError(err)
	}
	return s.login(ctx, creds)
}

// LoginWithPassword is Login for credentials posted in a request body.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*TokenPair, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	return s.login(ctx, auth.BasicCredentials{Email: email, Password: password})
}

func (s *AuthService) login(ctx context.Context, creds auth.BasicCredentials) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(creds.Email))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, s.loginFailed(ctx, creds.Email, "unknown_email")
	case err != nil:
		return nil, apperrors.NewInternalError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, creds.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, s.loginFailed(ctx, creds.Email, "password_mismatch")
		}
		return nil, apperrors.NewInternalError(err)
	}

	identity := user.Identity()
	refresh, refreshExp, err := s.issue(identity, domain.TokenKindRefresh)
	if err != nil {
		return nil, err
	}
	access, accessExp, err := s.issue(identity, domain.TokenKindAccess)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, user.ID, nil))
	return &TokenPair{
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
	}, nil
}

// RotateAccess issues a fresh access token for an identity resolved from a
// refresh token.
func (s *AuthService) RotateAccess(ctx context.Context, identity domain.Identity) (string, time.Time, error) {
	token, exp, err := s.issue(identity, domain.TokenKindAccess)
	if err != nil {
		return "", time.Time{}, err
	}
	s.publish(ctx, events.NewEvent(events.EventAccessTokenRotated, identity.SubjectID, nil))
	return token, exp, nil
}

// Block revokes a token until its own expiry. Only tokens signed by this
// service are accepted, so every entry expires within a refresh TTL.
func (s *AuthService) Block(ctx context.Context, caller domain.Identity, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return apperrors.NewValidationError("token required", nil)
	}
	if _, err := s.tokens.SignedExpiry(rawToken); err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			return apperrors.NewValidationError("token was not issued by this service", nil)
		}
		return auth.HTTPError(err)
	}
	if err := s.registry.Block(ctx, rawToken); err != nil {
		return auth.HTTPError(err)
	}

	s.metrics.RecordTokenRevoked()
	s.publish(ctx, events.NewEvent(events.EventTokenRevoked, caller.SubjectID,
		events.TokenRevokedPayload{Fingerprint: auth.Fingerprint(rawToken)}))
	return nil
}

func (s *AuthService) issue(identity domain.Identity, kind domain.TokenKind) (string, time.Time, error) {
	token, exp, err := s.tokens.Issue(identity, kind)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	s.metrics.RecordTokenIssued(string(kind))
	return token, exp, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, reason string) error {
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, 0,
		events.LoginFailedPayload{Email: email, Reason: reason}))
	return apperrors.NewUnauthorized("invalid credentials")
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

package auth

import (
	"errors"
	"net/http"

	apperrors "github.com/spec-kit/model-gateway/pkg/util/errorutil"
)

var (
	ErrMalformedCredential = errors.New("malformed credential")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenKindMismatch   = errors.New("token kind mismatch")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrInsufficientRole    = errors.New("insufficient role")
)

// RejectionReason names the sentinel behind err for metrics and logs.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedCredential):
		return "malformed_credential"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenKindMismatch):
		return "token_kind_mismatch"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrInsufficientRole):
		return "insufficient_role"
	default:
		return "internal"
	}
}

// HTTPError maps auth failures onto the API error taxonomy. All token
// failures surface as the same 401 so callers cannot tell them apart.
func HTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMalformedCredential):
		return apperrors.NewMalformedCredential(err)
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenKindMismatch),
		errors.Is(err, ErrTokenRevoked):
		return apperrors.NewUnauthorizedCause(err)
	case errors.Is(err, ErrInsufficientRole):
		return apperrors.NewDomainError("FORBIDDEN", "insufficient role", http.StatusForbidden, nil).WithCause(err)
	default:
		return apperrors.NewInternalError(err)
	}
}

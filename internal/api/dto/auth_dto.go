package dto

import (
	"time"

	"github.com/spec-kit/model-gateway/internal/domain"
)

// UserResponse describes a registered account.
type UserResponse struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// PasswordLoginRequest payload for body-credential login.
type PasswordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token pair.
type LoginResponse struct {
	RefreshToken string `json:"refreshToken"`
	AccessToken  string `json:"accessToken"`
}

// AccessTokenResponse carries a rotated access token.
type AccessTokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// BlockTokenRequest payload for revoking a token.
type BlockTokenRequest struct {
	Token string `json:"token"`
}

// BlockTokenResponse acknowledges a revocation.
type BlockTokenResponse struct {
	Blocked bool `json:"blocked"`
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/model-gateway/internal/api/dto"
	"github.com/spec-kit/model-gateway/internal/auth"
	"github.com/spec-kit/model-gateway/internal/service"
	apperrors "github.com/spec-kit/model-gateway/pkg/util/errorutil"
)

// AuthHandler exposes credential and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	user, err := h.auth.Register(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	pair, err := h.auth.Login(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		RefreshToken: pair.RefreshToken,
		AccessToken:  pair.AccessToken,
	}})
}

// LoginWithPassword handles POST /auth/login/password.
func (h *AuthHandler) LoginWithPassword(c *fiber.Ctx) error {
	var req dto.PasswordLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pair, err := h.auth.LoginWithPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		RefreshToken: pair.RefreshToken,
		AccessToken:  pair.AccessToken,
	}})
}

// BlockToken handles POST /auth/token/block.
func (h *AuthHandler) BlockToken(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	var req dto.BlockTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.auth.Block(c.UserContext(), identity, req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BlockTokenResponse{Blocked: true}})
}

// RotateAccessToken handles POST /auth/token/access. The route only accepts
// refresh tokens, so the attached identity came from one.
func (h *AuthHandler) RotateAccessToken(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	token, exp, err := h.auth.RotateAccess(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AccessTokenResponse{AccessToken: token, ExpiresAt: exp}})
}

// Private handles GET /auth/private.
func (h *AuthHandler) Private(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	return c.JSON(fiber.Map{"data": identity})
}

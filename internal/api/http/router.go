package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/model-gateway/internal/api/http/handlers"
	"github.com/spec-kit/model-gateway/internal/auth"
	"github.com/spec-kit/model-gateway/internal/domain"
	"github.com/spec-kit/model-gateway/internal/observability"
)

var (
	public          = domain.RouteSecurityDescriptor{IsPublic: true}
	authenticated   = domain.RouteSecurityDescriptor{}
	refreshOnly     = domain.RouteSecurityDescriptor{Kind: domain.TokenKindRefresh}
	paidUserOrAbove = domain.RouteSecurityDescriptor{MinRole: domain.RolePaidUser}
	adminOnly       = domain.RouteSecurityDescriptor{MinRole: domain.RoleAdmin}
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Models      *handlers.ModelsHandler
	Metrics     *observability.Metrics
	Routes      *auth.RouteTable
	Pipeline    *auth.Pipeline
	RateLimiter *auth.RateLimiter
}

// NewGuardPipeline builds the authentication then authorization chain over
// routes. Rejections are counted by reason and logged at debug level.
func NewGuardPipeline(routes *auth.RouteTable, tokens auth.TokenVerifier, revoked auth.RevocationChecker, metrics *observability.Metrics, logger *zap.Logger) *auth.Pipeline {
	pipeline := auth.NewPipeline(routes, auth.Authenticate(tokens, revoked), auth.Authorize())
	pipeline.OnReject(func(c *fiber.Ctx, err error) {
		reason := auth.RejectionReason(err)
		metrics.RecordRejection(reason)
		logger.Debug("request rejected by guard",
			zap.String("method", c.Method()),
			zap.String("route", c.Route().Path),
			zap.String("reason", reason),
			zap.String("request_id", observability.RequestIDFromContext(c)),
		)
	})
	return pipeline
}

// RegisterRoutes wires HTTP routes. Every route is recorded in the route
// table and served behind the guard pipeline.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	add := func(method, path string, desc domain.RouteSecurityDescriptor, chain ...fiber.Handler) {
		cfg.Routes.Register(method, path, desc)
		app.Add(method, path, append([]fiber.Handler{cfg.Pipeline.Handle}, chain...)...)
	}

	add(fiber.MethodGet, "/health/live", public, cfg.Health.Live)
	add(fiber.MethodGet, "/health/ready", public, cfg.Health.Ready)
	add(fiber.MethodGet, "/metrics", public, cfg.Metrics.Handler())

	add(fiber.MethodPost, "/auth/register", public, cfg.RateLimiter.Handle, cfg.Auth.Register)
	add(fiber.MethodPost, "/auth/login", public, cfg.RateLimiter.Handle, cfg.Auth.Login)
	add(fiber.MethodPost, "/auth/login/password", public, cfg.RateLimiter.Handle, cfg.Auth.LoginWithPassword)
	add(fiber.MethodPost, "/auth/token/block", authenticated, cfg.Auth.BlockToken)
	add(fiber.MethodPost, "/auth/token/access", refreshOnly, cfg.Auth.RotateAccessToken)
	add(fiber.MethodGet, "/auth/private", authenticated, cfg.Auth.Private)

	add(fiber.MethodPost, "/models", paidUserOrAbove, cfg.Models.Create)
	add(fiber.MethodGet, "/models", paidUserOrAbove, cfg.Models.List)
	add(fiber.MethodGet, "/models/recent", adminOnly, cfg.Models.Recent)
	add(fiber.MethodGet, "/models/:id", paidUserOrAbove, cfg.Models.Get)
	add(fiber.MethodPatch, "/models/:id", paidUserOrAbove, cfg.Models.Update)
	add(fiber.MethodDelete, "/models/:id", paidUserOrAbove, cfg.Models.Delete)
}

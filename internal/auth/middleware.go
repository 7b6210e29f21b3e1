package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/model-gateway/internal/domain"
)

const (
	identityKey = "auth_identity"
	rawTokenKey = "auth_raw_token"
)

// Guard is one pass/fail check of the request pipeline. A nil error allows
// the request to continue.
type Guard func(c *fiber.Ctx, route domain.RouteSecurityDescriptor) error

// TokenVerifier verifies presented tokens.
type TokenVerifier interface {
	Verify(rawToken string, expected domain.TokenKind) (*domain.TokenPayload, error)
}

// RevocationChecker is the read side of a Registry.
type RevocationChecker interface {
	IsBlocked(ctx context.Context, rawToken string) (bool, error)
}

// RouteTable maps method+path templates to their security descriptor.
// It is filled at startup and only read while serving.
type RouteTable struct {
	routes map[string]domain.RouteSecurityDescriptor
}

// NewRouteTable returns an empty table.
func NewRouteTable() *RouteTable {
	return &RouteTable{routes: make(map[string]domain.RouteSecurityDescriptor)}
}

// Register records the descriptor for an exact method and path template.
func (t *RouteTable) Register(method, path string, desc domain.RouteSecurityDescriptor) {
	t.routes[routeKey(method, path)] = desc
}

// Lookup returns the descriptor for method+path. Unknown routes are protected.
func (t *RouteTable) Lookup(method, path string) domain.RouteSecurityDescriptor {
	if desc, ok := t.routes[routeKey(method, path)]; ok {
		return desc
	}
	return domain.RouteSecurityDescriptor{}
}

func routeKey(method, path string) string {
	return method + " " + path
}

// Pipeline runs guards in order in front of a route handler.
type Pipeline struct {
	routes   *RouteTable
	guards   []Guard
	onReject func(c *fiber.Ctx, err error)
}

// NewPipeline builds a pipeline over the given route table.
func NewPipeline(routes *RouteTable, guards ...Guard) *Pipeline {
	return &Pipeline{routes: routes, guards: guards}
}

// OnReject registers a callback invoked with the raw guard error before it is
// mapped to an HTTP error.
func (p *Pipeline) OnReject(fn func(c *fiber.Ctx, err error)) {
	p.onReject = fn
}

// Handle is the fiber handler attached in front of every registered route.
// c.Route() is the matched route, so lookups use the path template.
func (p *Pipeline) Handle(c *fiber.Ctx) error {
	desc := p.routes.Lookup(c.Method(), c.Route().Path)
	for _, guard := range p.guards {
		if err := guard(c, desc); err != nil {
			if p.onReject != nil {
				p.onReject(c, err)
			}
			return HTTPError(err)
		}
	}
	return c.Next()
}

// Authenticate resolves the caller from its bearer token. Public routes skip it.
func Authenticate(tokens TokenVerifier, revoked RevocationChecker) Guard {
	return func(c *fiber.Ctx, route domain.RouteSecurityDescriptor) error {
		if route.IsPublic {
			return nil
		}

		rawToken, err := ParseBearer(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		payload, err := tokens.Verify(rawToken, route.ExpectedKind())
		if err != nil {
			return err
		}

		blocked, err := revoked.IsBlocked(c.UserContext(), rawToken)
		if err != nil {
			return err
		}
		if blocked {
			return ErrTokenRevoked
		}

		c.Locals(identityKey, payload.Identity())
		c.Locals(rawTokenKey, rawToken)
		return nil
	}
}

// Authorize enforces the route's minimum role against the resolved identity.
func Authorize() Guard {
	return func(c *fiber.Ctx, route domain.RouteSecurityDescriptor) error {
		if route.IsPublic || route.MinRole == "" {
			return nil
		}
		identity, ok := IdentityFromContext(c)
		if !ok || !identity.Role.Satisfies(route.MinRole) {
			return ErrInsufficientRole
		}
		return nil
	}
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

// RawTokenFromContext returns the bearer token the request authenticated with.
func RawTokenFromContext(c *fiber.Ctx) (string, bool) {
	raw, ok := c.Locals(rawTokenKey).(string)
	return raw, ok
}

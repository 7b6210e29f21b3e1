package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/model-gateway/internal/api/http/handlers"
	"github.com/spec-kit/model-gateway/internal/auth"
	"github.com/spec-kit/model-gateway/internal/domain"
	"github.com/spec-kit/model-gateway/internal/events"
	"github.com/spec-kit/model-gateway/internal/observability"
	"github.com/spec-kit/model-gateway/internal/repository"
	"github.com/spec-kit/model-gateway/internal/service"
)

type memUsers struct {
	mu    sync.Mutex
	users []domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = int64(len(m.users) + 1)
	u.CreatedAt = time.Now().UTC()
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memModels struct {
	mu     sync.Mutex
	models []domain.Model
}

func (m *memModels) Create(_ context.Context, model *domain.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	model.ID = int64(len(m.models) + 1)
	m.models = append(m.models, *model)
	return nil
}

func (m *memModels) GetForOwner(_ context.Context, id, ownerID int64) (*domain.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, model := range m.models {
		if model.ID == id && model.UserID == ownerID {
			return &model, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memModels) ListByOwner(_ context.Context, ownerID int64, _, _ int) ([]domain.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Model
	for _, model := range m.models {
		if model.UserID == ownerID {
			out = append(out, model)
		}
	}
	return out, nil
}

func (m *memModels) ListRecent(_ context.Context, _ int) ([]domain.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Model(nil), m.models...), nil
}

func (m *memModels) UpdateForOwner(_ context.Context, model *domain.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.models {
		if m.models[i].ID == model.ID && m.models[i].UserID == model.UserID {
			m.models[i].Detail = model.Detail
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memModels) DeleteForOwner(_ context.Context, id, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.models {
		if m.models[i].ID == id && m.models[i].UserID == ownerID {
			m.models = append(m.models[:i], m.models[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type gateway struct {
	app      *fiber.App
	tokens   *auth.TokenManager
	registry *auth.MemoryRegistry
}

func newGateway(t *testing.T, ratePerMinute int) *gateway {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "router-access-secret",
		RefreshSecret: "router-refresh-secret",
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	registry := auth.NewMemoryRegistry()

	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger, metrics).RegisterHandlers()
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   &memUsers{},
		Tokens:     tokens,
		Registry:   registry,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		BcryptCost: bcrypt.MinCost,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Minute, 5*time.Second)

	routes := auth.NewRouteTable()
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("model-gateway", "test", map[string]handlers.Pinger{
			"revocation": registry,
		}),
		Auth:        handlers.NewAuthHandler(authService),
		Models:      handlers.NewModelsHandler(service.NewModelService(&memModels{})),
		Metrics:     metrics,
		Routes:      routes,
		Pipeline:    NewGuardPipeline(routes, tokens, registry, metrics, logger),
		RateLimiter: auth.NewRateLimiter(ratePerMinute),
	})
	return &gateway{app: app, tokens: tokens, registry: registry}
}

type response struct {
	status int
	body   map[string]any
	raw    string
}

func (g *gateway) do(t *testing.T, method, path, authorization, body string) response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := g.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{status: resp.StatusCode, raw: string(raw)}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	return out
}

func (r response) data() map[string]any {
	data, _ := r.body["data"].(map[string]any)
	return data
}

func (r response) errorCode() string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func basic(email, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))
}

func bearer(token string) string {
	return "Bearer " + token
}

func (g *gateway) login(t *testing.T, email, password string) (refresh, access string) {
	t.Helper()
	resp := g.do(t, http.MethodPost, "/auth/register", basic(email, password), "")
	require.Equal(t, http.StatusCreated, resp.status, resp.raw)

	resp = g.do(t, http.MethodPost, "/auth/login", basic(email, password), "")
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	refresh, _ = resp.data()["refreshToken"].(string)
	access, _ = resp.data()["accessToken"].(string)
	require.NotEmpty(t, refresh)
	require.NotEmpty(t, access)
	return refresh, access
}

func TestRouter_PublicRoutesNeedNoCredentials(t *testing.T) {
	g := newGateway(t, 0)

	resp := g.do(t, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, resp.status)

	resp = g.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, resp.status, resp.raw)

	resp = g.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.raw, "gateway_http_requests_total")
}

func TestRouter_ProtectedRoutesRejectMissingOrBadTokens(t *testing.T) {
	g := newGateway(t, 0)

	resp := g.do(t, http.MethodGet, "/auth/private", "", "")
	require.Equal(t, http.StatusBadRequest, resp.status)
	require.Equal(t, "MALFORMED_CREDENTIAL", resp.errorCode())

	resp = g.do(t, http.MethodGet, "/auth/private", "Bearer", "")
	require.Equal(t, http.StatusBadRequest, resp.status)

	resp = g.do(t, http.MethodGet, "/auth/private", bearer("garbage.token.value"), "")
	require.Equal(t, http.StatusUnauthorized, resp.status)
	require.Equal(t, "UNAUTHORIZED", resp.errorCode())

	resp = g.do(t, http.MethodGet, "/does/not/exist", "", "")
	require.Equal(t, http.StatusNotFound, resp.status)
}

func TestRouter_SessionLifecycle(t *testing.T) {
	g := newGateway(t, 0)
	refresh, access := g.login(t, "ada@example.com", "correct horse")

	resp := g.do(t, http.MethodGet, "/auth/private", bearer(access), "")
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	require.Equal(t, float64(1), resp.data()["subjectId"])
	require.Equal(t, string(domain.RolePaidUser), resp.data()["role"])

	resp = g.do(t, http.MethodGet, "/auth/private", bearer(refresh), "")
	require.Equal(t, http.StatusUnauthorized, resp.status)

	resp = g.do(t, http.MethodPost, "/auth/token/access", bearer(access), "")
	require.Equal(t, http.StatusUnauthorized, resp.status)

	resp = g.do(t, http.MethodPost, "/auth/token/access", bearer(refresh), "")
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	rotated, _ := resp.data()["accessToken"].(string)
	require.NotEmpty(t, rotated)

	resp = g.do(t, http.MethodPost, "/auth/token/block", bearer(rotated), `{"token":"`+access+`"}`)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	require.Equal(t, true, resp.data()["blocked"])

	resp = g.do(t, http.MethodGet, "/auth/private", bearer(access), "")
	require.Equal(t, http.StatusUnauthorized, resp.status)
	require.Equal(t, "unauthorized", resp.body["error"].(map[string]any)["message"])

	resp = g.do(t, http.MethodGet, "/auth/private", bearer(rotated), "")
	require.Equal(t, http.StatusOK, resp.status)

	resp = g.do(t, http.MethodGet, "/metrics", "", "")
	require.Contains(t, resp.raw, `gateway_auth_rejections_total{reason="token_revoked"} 1`)
}

func TestRouter_LoginFailure(t *testing.T) {
	g := newGateway(t, 0)
	g.login(t, "ada@example.com", "correct horse")

	resp := g.do(t, http.MethodPost, "/auth/login", basic("ada@example.com", "wrong horse"), "")
	require.Equal(t, http.StatusUnauthorized, resp.status)

	resp = g.do(t, http.MethodPost, "/auth/login", "Basic !!!", "")
	require.Equal(t, http.StatusBadRequest, resp.status)
	require.Equal(t, "MALFORMED_CREDENTIAL", resp.errorCode())
}

func TestRouter_ModelsAreOwnerScopedAndRoleGated(t *testing.T) {
	g := newGateway(t, 0)
	_, ada := g.login(t, "ada@example.com", "correct horse")
	_, bob := g.login(t, "bob@example.com", "battery staple")

	resp := g.do(t, http.MethodPost, "/models", bearer(ada), `{"detail":"gpt-mini"}`)
	require.Equal(t, http.StatusCreated, resp.status, resp.raw)
	id := resp.data()["id"].(float64)
	path := fmt.Sprintf("/models/%d", int64(id))

	resp = g.do(t, http.MethodGet, path, bearer(ada), "")
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, "gpt-mini", resp.data()["detail"])

	resp = g.do(t, http.MethodGet, path, bearer(bob), "")
	require.Equal(t, http.StatusNotFound, resp.status)

	resp = g.do(t, http.MethodPatch, path, bearer(ada), `{"detail":"gpt-large"}`)
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, "gpt-large", resp.data()["detail"])

	resp = g.do(t, http.MethodGet, "/models/recent", bearer(ada), "")
	require.Equal(t, http.StatusForbidden, resp.status)
	require.Equal(t, "FORBIDDEN", resp.errorCode())

	admin, _, err := g.tokens.Issue(domain.Identity{SubjectID: 99, Role: domain.RoleAdmin}, domain.TokenKindAccess)
	require.NoError(t, err)
	resp = g.do(t, http.MethodGet, "/models/recent", bearer(admin), "")
	require.Equal(t, http.StatusOK, resp.status)

	resp = g.do(t, http.MethodGet, "/models", bearer(admin), "")
	require.Equal(t, http.StatusOK, resp.status)

	resp = g.do(t, http.MethodDelete, path, bearer(bob), "")
	require.Equal(t, http.StatusNotFound, resp.status)
	resp = g.do(t, http.MethodDelete, path, bearer(ada), "")
	require.Equal(t, http.StatusNoContent, resp.status)

	resp = g.do(t, http.MethodGet, "/models/abc", bearer(ada), "")
	require.Equal(t, http.StatusBadRequest, resp.status)
}

func TestRouter_CredentialRoutesAreThrottled(t *testing.T) {
	g := newGateway(t, 1)

	resp := g.do(t, http.MethodPost, "/auth/login", basic("ada@example.com", "whatever1"), "")
	require.Equal(t, http.StatusUnauthorized, resp.status)

	resp = g.do(t, http.MethodPost, "/auth/login", basic("ada@example.com", "whatever1"), "")
	require.Equal(t, http.StatusTooManyRequests, resp.status)

	resp = g.do(t, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, resp.status)
}

func TestRouter_PasswordLogin(t *testing.T) {
	g := newGateway(t, 0)
	g.login(t, "ada@example.com", "correct horse")

	resp := g.do(t, http.MethodPost, "/auth/login/password", "", `{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	access, _ := resp.data()["accessToken"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, resp.data()["refreshToken"])

	resp = g.do(t, http.MethodGet, "/auth/private", bearer(access), "")
	require.Equal(t, http.StatusOK, resp.status)

	resp = g.do(t, http.MethodPost, "/auth/login/password", "", `{"email":"ada@example.com","password":"wrong horse"}`)
	require.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestRouter_BlockRejectsForeignToken(t *testing.T) {
	g := newGateway(t, 0)
	_, access := g.login(t, "ada@example.com", "correct horse")

	forged, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "attacker-access",
		RefreshSecret: "attacker-refresh",
		AccessTTL:     time.Hour,
		RefreshTTL:    100 * 365 * 24 * time.Hour,
	})
	require.NoError(t, err)
	raw, _, err := forged.Issue(domain.Identity{SubjectID: 1, Role: domain.RoleAdmin}, domain.TokenKindRefresh)
	require.NoError(t, err)

	resp := g.do(t, http.MethodPost, "/auth/token/block", bearer(access), `{"token":"`+raw+`"}`)
	require.Equal(t, http.StatusBadRequest, resp.status, resp.raw)
	require.Zero(t, g.registry.Len())
}

func TestRegisterMiddlewares_SlowSuccessBecomesServerError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New()
	RegisterMiddlewares(app, zap.New(core), observability.NewMetrics(), time.Millisecond, 0)
	app.Get("/slow", func(c *fiber.Ctx) error {
		time.Sleep(20 * time.Millisecond)
		return c.JSON(fiber.Map{"data": "too late"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/slow", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "INTERNAL_ERROR", body["error"]["code"])
	require.Equal(t, "internal server error", body["error"]["message"])

	slow := logs.FilterMessage("latency budget exceeded")
	require.Equal(t, 1, slow.Len())
	require.Equal(t, "/slow", slow.All()[0].ContextMap()["route"])
	require.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

package app_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withalice/portal/internal/admin"
	"github.com/withalice/portal/internal/app"
	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/content"
	"github.com/withalice/portal/internal/identity"
	"github.com/withalice/portal/internal/nav"
	"github.com/withalice/portal/internal/shared"
	_ "github.com/withalice/portal/testing"
)

type portalFixture struct {
	handler http.Handler
	ledger  *authz.Ledger
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &app.Config{
		AppEnv:            "test",
		AppAddr:           ":0",
		AppReadTimeout:    5 * time.Second,
		AppWriteTimeout:   5 * time.Second,
		AppRequestTimeout: 5 * time.Second,
		RedisAddr:         mr.Addr(),
		SessionTTL:        time.Hour,
		CSRFSecret:        "test-csrf-secret",
		DevLogin:          true,
		DevPassword:       "portal-dev-pass",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(redisClient, "portal_session", cfg.SessionTTL, false)
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)

	ledger := authz.NewLedger()
	directory, err := identity.NewDirectory(cfg.DevPassword)
	require.NoError(t, err)
	resolver := identity.NewResolver(identity.SessionStoreSource{}, logger)
	guard := authz.Middleware{Principals: resolver, Ledger: ledger, Logger: logger}

	handler := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessions,
		CSRFManager:     csrf,
		IdentityHandler: identity.NewHandler(logger, directory, resolver, sessions, csrf, true, false),
		AuthzHandler:    authz.NewHandler(logger, ledger, resolver, nil),
		ContentHandler:  content.NewHandler(logger, content.NewService(content.NewSeededRegistry()), resolver, nil),
		NavHandler:      nav.NewHandler(resolver),
		AdminHandler:    admin.NewHandler(logger, ledger, directory, guard, nil),
	})
	return &portalFixture{handler: handler, ledger: ledger}
}

type signedInClient struct {
	cookie    *http.Cookie
	csrfToken string
}

func (f *portalFixture) login(t *testing.T, email string) *signedInClient {
	t.Helper()
	body := `{"email":"` + email + `","password":"portal-dev-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return &signedInClient{cookie: cookies[0], csrfToken: resp.CSRFToken}
}

func (f *portalFixture) do(t *testing.T, c *signedInClient, method, path, body string, withCSRF bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if c != nil {
		req.AddCookie(c.cookie)
		if withCSRF {
			req.Header.Set(shared.CSRFHeader, c.csrfToken)
		}
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, nil, http.MethodGet, "/healthz", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLoginThenMe(t *testing.T) {
	f := newPortalFixture(t)
	c := f.login(t, "user2@test.com")

	rec := f.do(t, c, http.MethodGet, "/api/me", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var view identity.PrincipalView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "ProSeller", view.Nickname)
	assert.Equal(t, "USER_2", view.Role)
}

func TestMutationRequiresCSRF(t *testing.T) {
	f := newPortalFixture(t)
	c := f.login(t, "user2@test.com")

	body := `{"title":"t","body":"b","category":"free"}`
	rec := f.do(t, c, http.MethodPost, "/api/posts", body, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, c, http.MethodPost, "/api/posts", body, true)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGrantThenVerifyThroughStack(t *testing.T) {
	f := newPortalFixture(t)

	adminClient := f.login(t, "admin@withalice.team")
	userClient := f.login(t, "user2@test.com")

	// Before the grant the user is denied.
	rec := f.do(t, userClient, http.MethodGet, "/api/features/verify?feature=PREMIUM_REPORT", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":false}`, rec.Body.String())

	grant := `{"identity":"user2@test.com","feature":"PREMIUM_REPORT"}`
	rec = f.do(t, adminClient, http.MethodPost, "/api/admin/grants", grant, true)
	require.Equal(t, http.StatusOK, rec.Code)

	// The next verification reflects the grant without a re-login.
	rec = f.do(t, userClient, http.MethodGet, "/api/features/verify?feature=PREMIUM_REPORT", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":true}`, rec.Body.String())
}

func TestAdminRoutesForbiddenForManagers(t *testing.T) {
	f := newPortalFixture(t)
	manager := f.login(t, "manager@withalice.team")

	rec := f.do(t, manager, http.MethodGet, "/api/admin/principals", "", false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNavReflectsRole(t *testing.T) {
	f := newPortalFixture(t)
	c := f.login(t, "user1@test.com")

	rec := f.do(t, c, http.MethodGet, "/api/nav", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []nav.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	for _, it := range items {
		assert.NotEqual(t, "Member management", it.Title)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	f := newPortalFixture(t)
	c := f.login(t, "user2@test.com")

	rec := f.do(t, c, http.MethodPost, "/auth/logout", "", true)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, c, http.MethodGet, "/api/me", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

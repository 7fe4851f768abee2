package content_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/content"
	_ "github.com/withalice/portal/testing"
)

type stubSource struct {
	principal *authz.Principal
	err       error
}

func (s *stubSource) FromRequest(*http.Request) (*authz.Principal, error) {
	return s.principal, s.err
}

type boardFixture struct {
	router  chi.Router
	source  *stubSource
	service *content.Service
}

func newBoardFixture(t *testing.T) *boardFixture {
	t.Helper()
	service := content.NewService(content.NewRegistry())
	source := &stubSource{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	content.NewHandler(logger, service, source, nil).MountRoutes(r)
	return &boardFixture{router: r, source: source, service: service}
}

func (f *boardFixture) as(p *authz.Principal) *boardFixture {
	f.source.principal = p
	return f
}

func (f *boardFixture) seedSecretPost(t *testing.T) content.Post {
	t.Helper()
	owner := authz.NewPrincipal("user2@test.com", "ProSeller", authz.RoleUser2)
	post, err := f.service.Create(context.Background(), content.CreateInput{
		Title:    "Supplier contact list",
		Body:     "The list.",
		Category: "info",
		Secret:   true,
		Password: "1234",
	}, owner)
	require.NoError(t, err)
	return post
}

type detailResponse struct {
	Unlocked bool           `json:"unlocked"`
	Post     content.Detail `json:"post"`
}

func TestCreatePostEndpoint(t *testing.T) {
	f := newBoardFixture(t).as(authz.NewPrincipal("user1@test.com", "Newbie", authz.RoleUser1))

	body := `{"title":"My first post","body":"hello","category":"free"}`
	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var summary content.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "Newbie", summary.Author)
	assert.NotZero(t, summary.ID)
}

func TestCreatePostAnonymous(t *testing.T) {
	f := newBoardFixture(t)

	body := `{"title":"t","body":"b","category":"free"}`
	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePostValidation(t *testing.T) {
	f := newBoardFixture(t).as(authz.NewPrincipal("user1@test.com", "Newbie", authz.RoleUser1))

	body := `{"title":"t","body":"b","category":"free","secret":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLockedPost(t *testing.T) {
	f := newBoardFixture(t)
	post := f.seedSecretPost(t)
	f.as(authz.NewPrincipal("client@test.com", "BigBrand", authz.RoleUser3))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	// Locked is a successful response with unlocked=false, not an error.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp detailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Unlocked)
	assert.Empty(t, resp.Post.Body)
	assert.Equal(t, "ProSe****", resp.Post.Author)
}

func TestGetPostWithQueryPassword(t *testing.T) {
	f := newBoardFixture(t)
	post := f.seedSecretPost(t)
	f.as(authz.NewPrincipal("client@test.com", "BigBrand", authz.RoleUser3))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d?password=1234", post.ID), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp detailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Unlocked)
	assert.Equal(t, "The list.", resp.Post.Body)
}

func TestUnlockEndpoint(t *testing.T) {
	f := newBoardFixture(t)
	post := f.seedSecretPost(t)
	f.as(authz.NewPrincipal("client@test.com", "BigBrand", authz.RoleUser3))

	body := `{"password":"1234"}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/posts/%d/unlock", post.ID), strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp detailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Unlocked)

	// Wrong password stays locked but still 200.
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/posts/%d/unlock", post.ID), strings.NewReader(`{"password":"9999"}`))
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Unlocked)
}

func TestGetUnknownPost(t *testing.T) {
	f := newBoardFixture(t).as(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/posts/404", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/posts/not-a-number", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpoint(t *testing.T) {
	f := newBoardFixture(t)
	f.seedSecretPost(t)
	f.as(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []content.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "ProSe****", rows[0].Author)

	req = httptest.NewRequest(http.MethodGet, "/api/posts?category=bogus", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

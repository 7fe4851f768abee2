package authz_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withalice/portal/internal/authz"
	_ "github.com/withalice/portal/testing"
)

type stubSource struct {
	principal *authz.Principal
	err       error
}

func (s stubSource) FromRequest(*http.Request) (*authz.Principal, error) {
	return s.principal, s.err
}

type recordedDecision struct {
	check   string
	allowed bool
}

type stubRecorder struct {
	decisions []recordedDecision
}

func (s *stubRecorder) ObserveDecision(check string, allowed bool) {
	s.decisions = append(s.decisions, recordedDecision{check, allowed})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func runGuard(t *testing.T, guard func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name       string
		source     stubSource
		wantStatus int
	}{
		{
			"sufficient role passes",
			stubSource{principal: authz.NewPrincipal("user2@test.com", "ProSeller", authz.RoleUser2)},
			http.StatusOK,
		},
		{
			"insufficient role forbidden",
			stubSource{principal: authz.NewPrincipal("user1@test.com", "Newbie", authz.RoleUser1)},
			http.StatusForbidden,
		},
		{
			"unauthenticated gets 401",
			stubSource{},
			http.StatusUnauthorized,
		},
		{
			"provider fault gets 503",
			stubSource{err: errors.New("provider down")},
			http.StatusServiceUnavailable,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := authz.Middleware{Principals: tc.source, Ledger: authz.NewLedger()}
			rec := runGuard(t, m.RequireRole(authz.RoleUser2))
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestRequireExactRole(t *testing.T) {
	trial := authz.NewPrincipal("user1@test.com", "Newbie", authz.RoleUser1)
	upgraded := authz.NewPrincipal("user2@test.com", "ProSeller", authz.RoleUser2)

	m := authz.Middleware{Principals: stubSource{principal: trial}, Ledger: authz.NewLedger()}
	rec := runGuard(t, m.RequireExactRole(authz.RoleUser1))
	assert.Equal(t, http.StatusOK, rec.Code)

	// A superior role is still denied where exact tier is required.
	m.Principals = stubSource{principal: upgraded}
	rec = runGuard(t, m.RequireExactRole(authz.RoleUser1))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireFeature(t *testing.T) {
	ledger := authz.NewLedger()
	require.NoError(t, ledger.Grant("user2@test.com", authz.FeaturePremiumReport))

	holder := authz.NewPrincipal("user2@test.com", "ProSeller", authz.RoleUser2)
	outsider := authz.NewPrincipal("client@test.com", "BigBrand", authz.RoleUser3)
	admin := authz.NewPrincipal("admin@withalice.team", "Master", authz.RoleAdmin1)

	m := authz.Middleware{Principals: stubSource{principal: holder}, Ledger: ledger}
	rec := runGuard(t, m.RequireFeature(authz.FeaturePremiumReport))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.Principals = stubSource{principal: outsider}
	rec = runGuard(t, m.RequireFeature(authz.FeaturePremiumReport))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	m.Principals = stubSource{principal: admin}
	rec = runGuard(t, m.RequireFeature(authz.FeaturePremiumReport))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRecordsDecisions(t *testing.T) {
	recorder := &stubRecorder{}
	m := authz.Middleware{
		Principals: stubSource{principal: authz.NewPrincipal("user1@test.com", "Newbie", authz.RoleUser1)},
		Ledger:     authz.NewLedger(),
		Metrics:    recorder,
	}

	runGuard(t, m.RequireRole(authz.RoleUser2))

	require.Len(t, recorder.decisions, 1)
	assert.Equal(t, recordedDecision{check: "permission", allowed: false}, recorder.decisions[0])
}

func TestMiddlewareRevokeTakesEffectImmediately(t *testing.T) {
	ledger := authz.NewLedger()
	require.NoError(t, ledger.Grant("user2@test.com", authz.FeaturePremiumReport))

	m := authz.Middleware{
		Principals: stubSource{principal: authz.NewPrincipal("user2@test.com", "ProSeller", authz.RoleUser2)},
		Ledger:     ledger,
	}
	guard := m.RequireFeature(authz.FeaturePremiumReport)

	rec := runGuard(t, guard)
	assert.Equal(t, http.StatusOK, rec.Code)

	ledger.Revoke("user2@test.com", authz.FeaturePremiumReport)

	rec = runGuard(t, guard)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

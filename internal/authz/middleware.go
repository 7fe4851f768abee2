package authz

import (
	"log/slog"
	"net/http"
)

// PrincipalSource resolves the principal behind an HTTP request. A nil
// principal with a nil error means the request is unauthenticated; an
// error means the identity provider could not be consulted.
type PrincipalSource interface {
	FromRequest(r *http.Request) (*Principal, error)
}

// DecisionRecorder receives the outcome of every middleware-level access
// decision, typically a Prometheus counter. Optional.
type DecisionRecorder interface {
	ObserveDecision(check string, allowed bool)
}

// Middleware wires authorization checks into HTTP handlers. Checks are
// re-evaluated per request; nothing is cached across principal changes.
type Middleware struct {
	Principals PrincipalSource
	Ledger     *Ledger
	Logger     *slog.Logger
	Metrics    DecisionRecorder
}

// RequireRole admits principals whose role ranks at or above the given
// role. Unauthenticated requests get 401, insufficient roles 403, and a
// provider fault 503 so clients can retry instead of re-authenticating.
func (m Middleware) RequireRole(required Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.admit(w, r)
			if !ok {
				return
			}
			allowed := CheckPermission(principal, required)
			m.observe("permission", allowed)
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireExactRole admits only principals holding exactly the given
// role. Backs single-tier features like the trial tutorial.
func (m Middleware) RequireExactRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.admit(w, r)
			if !ok {
				return
			}
			allowed := CheckExactRole(principal, role)
			m.observe("exact_role", allowed)
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFeature admits principals holding an explicit grant for the
// feature, or clearing the top-admin bypass.
func (m Middleware) RequireFeature(feature Feature) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.admit(w, r)
			if !ok {
				return
			}
			allowed := m.Ledger.VerifyAccess(principal, feature)
			m.observe("feature", allowed)
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// admit resolves the principal and writes the 401/503 responses shared
// by every guard. The bool reports whether the request may proceed to
// the actual check.
func (m Middleware) admit(w http.ResponseWriter, r *http.Request) (*Principal, bool) {
	principal, err := m.Principals.FromRequest(r)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("principal resolution failed", slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return nil, false
	}
	if principal == nil {
		m.observe("permission", false)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	return principal, true
}

func (m Middleware) observe(check string, allowed bool) {
	if m.Metrics != nil {
		m.Metrics.ObserveDecision(check, allowed)
	}
}

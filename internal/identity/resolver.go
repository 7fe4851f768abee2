package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/shared"
)

// MapSession converts a provider session into a local Principal. Missing
// role attributes default to the lowest role; an unparseable role is
// treated the same way rather than granting anything broader. Missing
// nicknames fall back to the local part of the subject email. The admin
// flag is always derived here, never read from the provider.
func MapSession(s *Session) *authz.Principal {
	if s == nil {
		return nil
	}
	role := authz.LowestRole()
	if raw, ok := s.Attributes[AttrRole]; ok {
		if parsed, err := authz.ParseRole(raw); err == nil {
			role = parsed
		}
	}
	nickname := s.Attributes[AttrNickname]
	if nickname == "" {
		nickname = localPart(s.SubjectEmail)
	}
	return authz.NewPrincipal(s.SubjectEmail, nickname, role)
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	if email != "" {
		return email
	}
	return "User"
}

// Resolver turns the session source into the active Principal. Every
// resolution replaces the Principal wholesale; a provider failure clears
// it instead of leaving a stale one visible.
type Resolver struct {
	source Source
	logger *slog.Logger

	mu        sync.RWMutex
	state     State
	principal *authz.Principal
}

// NewResolver constructs a Resolver over the given session source.
func NewResolver(source Source, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// Resolve consults the session source and returns the current Principal,
// nil when signed out. Provider faults surface as ErrProviderUnavailable.
func (r *Resolver) Resolve(ctx context.Context) (*authz.Principal, error) {
	r.setState(StateResolving, nil)

	sess, err := r.source.Current(ctx)
	if err != nil {
		r.setState(StateFailed, nil)
		if r.logger != nil {
			r.logger.Warn("identity resolution failed", slog.Any("error", err))
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if sess == nil {
		r.setState(StateAnonymous, nil)
		return nil, nil
	}

	p := MapSession(sess)
	r.setState(StateAuthenticated, p)
	return p, nil
}

// FromRequest resolves the principal for an HTTP request. Satisfies the
// authz.PrincipalSource contract used by the route middleware.
func (r *Resolver) FromRequest(req *http.Request) (*authz.Principal, error) {
	return r.Resolve(req.Context())
}

// State reports the outcome of the most recent resolution.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Resolver) setState(s State, p *authz.Principal) {
	r.mu.Lock()
	r.state = s
	r.principal = p
	r.mu.Unlock()
}

// SessionStoreSource adapts the cookie/Redis session already loaded into
// the request context into a provider session. It cannot fail: the
// session middleware rejected the request earlier if Redis was down.
type SessionStoreSource struct{}

// Current implements Source.
func (SessionStoreSource) Current(ctx context.Context) (*Session, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return nil, nil
	}
	id := sess.Identity()
	if id == nil {
		return nil, nil
	}
	attrs := make(map[string]string, 2)
	if id.Role != "" {
		attrs[AttrRole] = id.Role
	}
	if id.Nickname != "" {
		attrs[AttrNickname] = id.Nickname
	}
	return &Session{SubjectEmail: id.Email, Attributes: attrs}, nil
}

package authz

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrMalformedGrant rejects grants with an empty identity or feature at
// the call boundary instead of silently storing them.
var ErrMalformedGrant = errors.New("authz: grant requires identity and feature")

// Ledger records which principals were explicitly unlocked for which
// features. Grants are additive set membership: granting twice is a
// no-op, and nothing in the portal depends on revocation, though Revoke
// is provided for operator tooling.
//
// A single RWMutex keeps Grant and VerifyAccess linearizable: a Grant
// that returned is visible to every VerifyAccess that starts afterward.
type Ledger struct {
	mu     sync.RWMutex
	grants map[string]map[Feature]struct{}
}

// NewLedger constructs an empty ledger. One instance per process,
// injected into call sites; never a package-level singleton.
func NewLedger() *Ledger {
	return &Ledger{grants: make(map[string]map[Feature]struct{})}
}

// Grant unlocks a feature for the identity. Idempotent.
func (l *Ledger) Grant(identity string, feature Feature) error {
	identity = strings.TrimSpace(identity)
	if identity == "" || feature == "" {
		return ErrMalformedGrant
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	set, ok := l.grants[identity]
	if !ok {
		set = make(map[Feature]struct{})
		l.grants[identity] = set
	}
	set[feature] = struct{}{}
	return nil
}

// Revoke removes a grant. Reports whether the grant existed. VerifyAccess
// reflects the removal immediately; nothing is cached across this call.
func (l *Ledger) Revoke(identity string, feature Feature) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	set, ok := l.grants[identity]
	if !ok {
		return false
	}
	if _, held := set[feature]; !held {
		return false
	}
	delete(set, feature)
	if len(set) == 0 {
		delete(l.grants, identity)
	}
	return true
}

// VerifyAccess reports whether the principal may use the feature: either
// it holds an explicit grant, or it clears the top-admin bar and sees
// every gated feature without one.
func (l *Ledger) VerifyAccess(p *Principal, feature Feature) bool {
	if p == nil {
		return false
	}
	if CheckPermission(p, RoleAdmin1) {
		return true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, held := l.grants[p.Email][feature]
	return held
}

// ListGrants returns the identity's grant set sorted for display.
func (l *Ledger) ListGrants(identity string) []Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	set := l.grants[identity]
	out := make([]Feature, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot copies the whole ledger, sorted per identity. Used by the
// admin review screen and the durability pipeline.
func (l *Ledger) Snapshot() map[string][]Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string][]Feature, len(l.grants))
	for identity, set := range l.grants {
		features := make([]Feature, 0, len(set))
		for f := range set {
			features = append(features, f)
		}
		sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })
		out[identity] = features
	}
	return out
}

// Restore merges persisted grants into the ledger at startup. Invalid
// rows are skipped rather than aborting the whole restore.
func (l *Ledger) Restore(grants map[string][]Feature) {
	for identity, features := range grants {
		for _, f := range features {
			_ = l.Grant(identity, f)
		}
	}
}

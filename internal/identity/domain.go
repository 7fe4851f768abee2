package identity

import (
	"context"
	"errors"
)

// Session is the boundary view of an external identity-provider session:
// the subject email plus whatever custom attributes the provider carries.
// The portal only reads "role" and "nickname".
type Session struct {
	SubjectEmail string
	Attributes   map[string]string
}

// Attribute keys consumed from the provider attribute bag.
const (
	AttrRole     = "role"
	AttrNickname = "nickname"
)

// Source yields the active provider session for a context. A nil session
// with a nil error means "legitimately signed out"; an error means the
// provider could not be reached, which callers must treat differently.
type Source interface {
	Current(ctx context.Context) (*Session, error)
}

// ErrProviderUnavailable distinguishes a resolver fault from a signed-out
// state so the presentation layer can offer a retry instead of bouncing
// the user to the login page.
var ErrProviderUnavailable = errors.New("identity: provider unavailable")

// State describes where the resolver currently stands. Callers must not
// make protected-route decisions while StateResolving, and must treat
// StateFailed as neither authenticated nor anonymous.
type State int

const (
	StateAnonymous State = iota
	StateResolving
	StateAuthenticated
	StateFailed
)

// String implements fmt.Stringer for logging.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

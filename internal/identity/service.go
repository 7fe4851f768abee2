package identity

import (
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/shared"
)

// DevUser is a development/demo account selectable through the debug
// login and impersonation endpoints. Real deployments authenticate
// through the external identity provider instead.
type DevUser struct {
	Email        string
	Nickname     string
	Role         authz.Role
	passwordHash []byte
}

// Directory holds the fixed demo accounts, one per role, and doubles as
// the principal listing for the admin review screen.
type Directory struct {
	users   []DevUser
	byEmail map[string]*DevUser
	byRole  map[authz.Role]*DevUser
}

// NewDirectory seeds the canonical demo accounts, all sharing the given
// dev password. The bcrypt work happens once at startup.
func NewDirectory(password string) (*Directory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	users := []DevUser{
		{Email: "user1@test.com", Nickname: "Newbie", Role: authz.RoleUser1},
		{Email: "user2@test.com", Nickname: "ProSeller", Role: authz.RoleUser2},
		{Email: "client@test.com", Nickname: "BigBrand", Role: authz.RoleUser3},
		{Email: "manager@withalice.team", Nickname: "Manager", Role: authz.RoleAdmin2},
		{Email: "admin@withalice.team", Nickname: "Master", Role: authz.RoleAdmin1},
	}
	d := &Directory{
		users:   users,
		byEmail: make(map[string]*DevUser, len(users)),
		byRole:  make(map[authz.Role]*DevUser, len(users)),
	}
	for i := range d.users {
		d.users[i].passwordHash = hash
		d.byEmail[d.users[i].Email] = &d.users[i]
		d.byRole[d.users[i].Role] = &d.users[i]
	}
	return d, nil
}

// Authenticate validates email/password credentials against the demo
// accounts. Failures are indistinguishable by cause.
func (d *Directory) Authenticate(email, password string) (*DevUser, error) {
	user, ok := d.byEmail[email]
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// ByRole returns the demo account holding exactly the given role.
func (d *Directory) ByRole(role authz.Role) (*DevUser, bool) {
	user, ok := d.byRole[role]
	return user, ok
}

// Principals lists the directory as resolved principals, ordered by
// ascending role so the admin table reads bottom-up.
func (d *Directory) Principals() []*authz.Principal {
	out := make([]*authz.Principal, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, authz.NewPrincipal(u.Email, u.Nickname, u.Role))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role.Ordinal() < out[j].Role.Ordinal() })
	return out
}

// SessionIdentity projects the user into the session payload stored at
// login.
func (u *DevUser) SessionIdentity() shared.Identity {
	return shared.Identity{Email: u.Email, Role: string(u.Role), Nickname: u.Nickname}
}

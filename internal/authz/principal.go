package authz

// Principal is the authenticated actor behind an access decision. A nil
// *Principal means "not signed in"; every check treats it as deny.
type Principal struct {
	Email    string
	Nickname string
	Role     Role
	IsAdmin  bool
}

// NewPrincipal builds a Principal with IsAdmin derived from the role.
// IsAdmin is never read from an external source; it exists only so call
// sites can branch without re-consulting the role table.
func NewPrincipal(email, nickname string, role Role) *Principal {
	return &Principal{
		Email:    email,
		Nickname: nickname,
		Role:     role,
		IsAdmin:  role.IsAdmin(),
	}
}

package authz

import (
	"fmt"
	"sort"
)

// Role identifies one tier in the fixed portal role hierarchy.
type Role string

// The closed set of roles, ordered by seniority. The ordinal gap between
// USER_3 and ADMIN_2 is intentional: it leaves room for paid tiers without
// renumbering the admin band.
const (
	RoleUser1  Role = "USER_1"
	RoleUser2  Role = "USER_2"
	RoleUser3  Role = "USER_3"
	RoleAdmin2 Role = "ADMIN_2"
	RoleAdmin1 Role = "ADMIN_1"
)

var roleOrdinals = map[Role]int{
	RoleUser1:  1,
	RoleUser2:  2,
	RoleUser3:  3,
	RoleAdmin2: 8,
	RoleAdmin1: 9,
}

// Ordinal returns the seniority value used for >= comparisons.
// Unknown roles rank below every defined role.
func (r Role) Ordinal() int {
	return roleOrdinals[r]
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleOrdinals[r]
	return ok
}

// IsAdmin reports whether r belongs to the designated admin band.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin1 || r == RoleAdmin2
}

// ParseRole validates a raw role string, typically a provider attribute.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("authz: unknown role %q", s)
	}
	return r, nil
}

// Roles returns every defined role ordered by ascending seniority.
func Roles() []Role {
	all := make([]Role, 0, len(roleOrdinals))
	for r := range roleOrdinals {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Ordinal() < all[j].Ordinal() })
	return all
}

// LowestRole returns the entry-level role assigned when a provider
// session carries no role attribute.
func LowestRole() Role {
	return RoleUser1
}

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPermission(t *testing.T) {
	cases := []struct {
		name     string
		role     Role
		required Role
		want     bool
	}{
		{"same tier passes", RoleUser2, RoleUser2, true},
		{"higher tier passes", RoleUser3, RoleUser1, true},
		{"lower tier denied", RoleUser1, RoleUser2, false},
		{"admin2 clears every user tier", RoleAdmin2, RoleUser3, true},
		{"admin2 does not clear admin1", RoleAdmin2, RoleAdmin1, false},
		{"admin1 clears admin2", RoleAdmin1, RoleAdmin2, true},
		{"unknown role ranks below everything", Role("GUEST"), RoleUser1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPrincipal("user@test.com", "nick", tc.role)
			assert.Equal(t, tc.want, CheckPermission(p, tc.required))
		})
	}
}

func TestCheckPermissionNilPrincipal(t *testing.T) {
	for _, r := range Roles() {
		assert.False(t, CheckPermission(nil, r))
	}
}

func TestCheckExactRole(t *testing.T) {
	p := NewPrincipal("user@test.com", "nick", RoleUser2)

	assert.True(t, CheckExactRole(p, RoleUser2))
	assert.False(t, CheckExactRole(p, RoleUser1))
	assert.False(t, CheckExactRole(p, RoleUser3))
	assert.False(t, CheckExactRole(nil, RoleUser2))

	// A superior role is not "exactly" the required role.
	admin := NewPrincipal("admin@test.com", "boss", RoleAdmin1)
	assert.False(t, CheckExactRole(admin, RoleUser2))
}

func TestNewPrincipalDerivesIsAdmin(t *testing.T) {
	assert.True(t, NewPrincipal("a@b.c", "a", RoleAdmin1).IsAdmin)
	assert.True(t, NewPrincipal("a@b.c", "a", RoleAdmin2).IsAdmin)
	assert.False(t, NewPrincipal("a@b.c", "a", RoleUser3).IsAdmin)
}

package authz

// CheckPermission reports whether the principal's role ranks at or above
// the required role. It backs per-menu and per-route visibility checks,
// so it must stay a pair of map lookups and nothing more.
func CheckPermission(p *Principal, required Role) bool {
	if p == nil {
		return false
	}
	return p.Role.Ordinal() >= required.Ordinal()
}

// CheckExactRole reports whether the principal holds exactly the given
// role. Used for features scoped to a single tier, such as the trial
// tutorial that disappears once the user is upgraded. Not interchangeable
// with CheckPermission; callers choose per feature.
func CheckExactRole(p *Principal, role Role) bool {
	if p == nil {
		return false
	}
	return p.Role == role
}

// Package nav computes which navigation entries a principal may see.
// The menu itself is static configuration; visibility is re-evaluated on
// every request so a role switch takes effect immediately.
package nav

import "github.com/withalice/portal/internal/authz"

// Item is one navigation entry. MinRole gates by ordinal comparison.
// ExactRole, when set, restricts the entry to that single tier; the
// trial tutorial is deliberately invisible to upgraded users.
type Item struct {
	Title     string     `json:"title"`
	Path      string     `json:"path"`
	MinRole   authz.Role `json:"-"`
	ExactRole authz.Role `json:"-"`
	Children  []Item     `json:"children,omitempty"`
}

// Menu returns the portal navigation tree.
func Menu() []Item {
	return []Item{
		{
			Title:   "Education",
			Path:    "/education",
			MinRole: authz.RoleUser1,
			Children: []Item{
				{Title: "Full curriculum", Path: "/education/premium", MinRole: authz.RoleUser1},
				{Title: "Amazon glossary", Path: "/education/premium/dictionary", MinRole: authz.RoleUser1},
				{Title: "Amazon tutorial (trial)", Path: "/education/premium", MinRole: authz.RoleUser1, ExactRole: authz.RoleUser1},
				{Title: "Amazon tutorial (video)", Path: "/education/premium/tutorial", MinRole: authz.RoleUser2},
				{Title: "Offline study info", Path: "/education/premium/info", MinRole: authz.RoleUser2},
			},
		},
		{Title: "Community", Path: "/community", MinRole: authz.RoleUser1},
		{Title: "Analysis report", Path: "/analysis", MinRole: authz.RoleUser1},
		{Title: "US market report", Path: "/analysis/us", MinRole: authz.RoleUser2},
		{Title: "Brand consulting", Path: "/brand", MinRole: authz.RoleUser3},
		{Title: "Member management", Path: "/admin", MinRole: authz.RoleAdmin1},
		{Title: "Board management", Path: "/admin/board", MinRole: authz.RoleAdmin1},
	}
}

// Visible filters the tree down to what the principal may see. An
// absent principal sees nothing.
func Visible(items []Item, p *authz.Principal) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if !authz.CheckPermission(p, item.MinRole) {
			continue
		}
		if item.ExactRole != "" && !authz.CheckExactRole(p, item.ExactRole) {
			continue
		}
		item.Children = Visible(item.Children, p)
		out = append(out, item)
	}
	return out
}

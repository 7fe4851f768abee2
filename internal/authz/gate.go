package authz

import "strings"

// SecretItem carries the fields of a content item the gate needs. Content
// keeps its own richer Post type and projects into this before checking.
type SecretItem struct {
	OwnerIdentity string
	Secret        bool
	Password      string
}

// CheckSecretAccess decides whether a content item may be revealed to the
// principal. Pure function of its inputs; every render re-evaluates it
// instead of persisting an unlocked flag on the item.
//
// Non-secret items always pass. Secret items pass for the owner and for
// any admin regardless of the supplied password; everyone else must
// supply the exact stored password. Comparison is byte-for-byte: no
// trimming, no case folding. An empty stored password never matches, so
// a secret item that somehow lost its password stays locked for
// outsiders rather than falling open.
func CheckSecretAccess(item SecretItem, supplied string, p *Principal) bool {
	if !item.Secret {
		return true
	}
	if p != nil && (p.Email == item.OwnerIdentity || p.IsAdmin) {
		return true
	}
	return item.Password != "" && supplied == item.Password
}

const maskRune = "*"

// MaskNickname partially hides an author name on secret content shown to
// non-owner, non-admin viewers: the leading half (rounded up) stays
// visible and the rest becomes mask characters. Names of one or two
// runes are shown whole with a single mask appended so the output never
// reveals the exact length class. Display-only; the gate keeps using the
// real identity for the owner bypass.
func MaskNickname(name string) string {
	runes := []rune(name)
	if len(runes) <= 2 {
		return name + maskRune
	}
	visible := (len(runes) + 1) / 2
	return string(runes[:visible]) + strings.Repeat(maskRune, len(runes)-visible)
}

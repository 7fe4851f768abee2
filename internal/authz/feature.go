package authz

import (
	"fmt"
	"regexp"
)

// Feature names an explicitly grantable capability, independent of role.
// Operators type these codes by hand in the admin screen, so the format
// is validated up front: a silent typo would otherwise create a feature
// nobody can ever satisfy.
type Feature string

// Feature codes currently issued by the portal.
const (
	FeaturePremiumReport    Feature = "PREMIUM_REPORT"
	FeatureUSMarketReport   Feature = "US_MARKET_REPORT"
	FeaturePremiumEducation Feature = "PREMIUM_EDUCATION"
)

// KnownFeatures lists the codes surfaced in admin tooling. Grants are not
// restricted to this list; operator-defined codes only need to parse.
func KnownFeatures() []Feature {
	return []Feature{
		FeaturePremiumReport,
		FeatureUSMarketReport,
		FeaturePremiumEducation,
	}
}

var featureCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,63}$`)

// ParseFeature validates an operator-supplied feature code.
func ParseFeature(s string) (Feature, error) {
	if !featureCodePattern.MatchString(s) {
		return "", fmt.Errorf("authz: invalid feature code %q", s)
	}
	return Feature(s), nil
}

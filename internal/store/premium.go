package store

import (
	"strconv"

	"bizcard/internal/model"
)

// PremiumCheck reports whether one source grants the premium entitlement.
type PremiumCheck struct {
	Name  string
	Check func(user *model.User, profile *model.Profile) bool
}

// PremiumPolicy is evaluated in order and stops at the first source that grants premium.
type PremiumPolicy []PremiumCheck

// DefaultPremiumPolicy: user metadata, then the admin-controlled app metadata, then the profile row.
// App metadata can force premium while the profile row lags behind billing.
var DefaultPremiumPolicy = PremiumPolicy{
	{Name: "user_metadata", Check: func(u *model.User, _ *model.Profile) bool { return truthy(u.UserMetadata["is_premium"]) }},
	{Name: "app_metadata", Check: func(u *model.User, _ *model.Profile) bool { return truthy(u.AppMetadata["is_premium"]) }},
	{Name: "profile", Check: func(_ *model.User, p *model.Profile) bool { return p != nil && p.IsPremium }},
}

// IsPremium returns false without a user.
func (p PremiumPolicy) IsPremium(user *model.User, profile *model.Profile) bool {
	_, granted := p.Source(user, profile)
	return granted
}

// Source returns the name of the check that granted premium.
func (p PremiumPolicy) Source(user *model.User, profile *model.Profile) (string, bool) {
	if user == nil {
		return "", false
	}
	for _, c := range p {
		if c.Check(user, profile) {
			return c.Name, true
		}
	}
	return "", false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	case float64:
		return t != 0
	}
	return false
}

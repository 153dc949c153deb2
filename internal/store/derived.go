package store

import (
	"sort"
	"strings"

	"bizcard/internal/model"
)

const (
	FreeCardLimit    = 1
	PremiumCardLimit = 5
)

// TotalScans sums the scan counters of cards.
func TotalScans(cards []model.Card) int {
	total := 0
	for _, c := range cards {
		total += c.ScanCount
	}
	return total
}

func CardLimit(isPremium bool) int {
	if isPremium {
		return PremiumCardLimit
	}
	return FreeCardLimit
}

func CanCreateCard(isPremium bool, count int) bool {
	return count < CardLimit(isPremium)
}

// FilterContacts keeps contacts that match query (case-insensitive substring of
// name, email, company or position) and carry at least one of tags.
// An empty query or empty tag set matches everything.
func FilterContacts(contacts []model.Contact, query string, tags []string) []model.Contact {
	out := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if MatchesQuery(c, query) && HasAnyTag(c, tags) {
			out = append(out, c)
		}
	}
	return out
}

func MatchesQuery(c model.Contact, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{c.Name, c.Email, c.Company, c.Position} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func HasAnyTag(c model.Contact, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range c.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// AllTags returns the distinct tags across contacts, sorted.
func AllTags(contacts []model.Contact) []string {
	seen := make(map[string]struct{})
	for _, c := range contacts {
		for _, t := range c.Tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

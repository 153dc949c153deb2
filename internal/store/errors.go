package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAuthenticated is returned before any network call when no user is signed in.
var ErrNotAuthenticated = errors.New("User not authenticated")

// ValidationError reports required fields that are missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// PlanLimitError is returned when creating a card would exceed the plan quota.
type PlanLimitError struct {
	Premium bool
	Limit   int
}

func (e *PlanLimitError) Error() string {
	if e.Premium {
		return fmt.Sprintf("Premium plan allows up to %d cards", e.Limit)
	}
	return fmt.Sprintf("Free plan allows only %d card. Upgrade to premium for up to %d cards", e.Limit, PremiumCardLimit)
}

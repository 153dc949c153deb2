package gotrue

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Admin performs service-role calls that are not tied to a user session.
type Admin struct {
	c *client
}

// NewAdmin returns an Admin authorized with the project's service role key.
func NewAdmin(baseURL, serviceRoleKey string, logger zerolog.Logger) *Admin {
	return &Admin{c: &client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    serviceRoleKey,
		http:      &http.Client{Timeout: 15 * time.Second},
		logger:    logger.With().Str("service", "GoTrueAdmin").Logger(),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}}
}

// UpdateUserMetadata merges data into the user's user_metadata.
func (a *Admin) UpdateUserMetadata(ctx context.Context, userID string, data map[string]any) error {
	body := map[string]any{"user_metadata": data}
	return a.c.do(ctx, http.MethodPut, "/admin/users/"+userID, "", body, nil)
}

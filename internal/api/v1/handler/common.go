package handler

import (
	"context"
	"errors"
	"net/http"

	"bizcard/internal/gotrue"
	"bizcard/internal/middleware"
	"bizcard/internal/repository"
	"bizcard/internal/store"

	"github.com/danielgtaylor/huma/v2"
)

// Helper to extract user ID from context (injected by auth middleware)
func getUserIDFromContext(ctx context.Context) (string, error) {
	userID := middleware.UserID(ctx)
	if userID == "" {
		return "", huma.Error401Unauthorized("User ID not found in context")
	}
	return userID, nil
}

// getState returns the live state of the authenticated caller, creating it on first use.
func getState(ctx context.Context, registry *store.Registry) (*store.State, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	st, err := registry.Attach(ctx, userID, middleware.AccessToken(ctx))
	if err != nil {
		return nil, huma.Error401Unauthorized("Session could not be established", err)
	}
	return st, nil
}

// resultError turns a failed store Result into the matching HTTP error. The message is kept verbatim.
func resultError(res store.Result) error {
	if res.Success {
		return nil
	}
	return errorFor(res.Err, res.Error)
}

func errorFor(err error, msg string) error {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	var validationErr *store.ValidationError
	var planErr *store.PlanLimitError
	var apiErr *gotrue.APIError
	switch {
	case errors.Is(err, store.ErrNotAuthenticated):
		return huma.Error401Unauthorized(msg)
	case errors.As(err, &validationErr):
		return huma.Error400BadRequest(msg)
	case errors.As(err, &planErr):
		return huma.Error403Forbidden(msg)
	case errors.Is(err, repository.ErrCardNotFound), errors.Is(err, repository.ErrContactNotFound):
		return huma.Error404NotFound(msg)
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return huma.NewError(apiErr.Status, msg)
	}
	return huma.NewError(http.StatusBadGateway, msg)
}

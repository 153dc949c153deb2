package handler

import (
	"context"

	"bizcard/internal/api/v1/dto"
	"bizcard/internal/api/v1/operation"
	"bizcard/internal/store"

	"github.com/rs/zerolog"
)

// AuthHandler runs the identity flows. A successful sign-in registers the new state for its user.
type AuthHandler struct {
	registry *store.Registry
	logger   zerolog.Logger
}

func NewAuthHandler(registry *store.Registry, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{registry: registry, logger: logger.With().Str("handler", "AuthHandler").Logger()}
}

// anonymous runs fn on a fresh, unregistered state. The state is registered when fn leaves it signed in.
func (h *AuthHandler) anonymous(ctx context.Context, fn func(st *store.State) store.Result) (*store.State, error) {
	st := h.registry.New()
	if err := st.Auth.Initialize(ctx); err != nil {
		st.Close()
		return nil, errorFor(err, "")
	}
	if res := fn(st); !res.Success {
		st.Close()
		return nil, resultError(res)
	}
	if !h.registry.Adopt(st) {
		st.Close()
		return nil, nil
	}
	return st, nil
}

func sessionOutput(st *store.State) *operation.SessionOutput {
	out := &operation.SessionOutput{}
	if st == nil {
		out.Body.ConfirmationRequired = true
		return out
	}
	snap := st.Auth.Snapshot()
	if snap.Session != nil {
		out.Body.AccessToken = snap.Session.AccessToken
		out.Body.RefreshToken = snap.Session.RefreshToken
		out.Body.ExpiresAt = snap.Session.ExpiresAt
	}
	me := userResponse(snap)
	out.Body.User = &me
	return out
}

func (h *AuthHandler) SignUp(ctx context.Context, input *operation.SignUpInput) (*operation.SessionOutput, error) {
	st, err := h.anonymous(ctx, func(st *store.State) store.Result {
		return st.Auth.SignUp(ctx, input.Body.Email, input.Body.Password, input.Body.FullName)
	})
	if err != nil {
		return nil, err
	}
	return sessionOutput(st), nil
}

func (h *AuthHandler) SignIn(ctx context.Context, input *operation.SignInInput) (*operation.SessionOutput, error) {
	st, err := h.anonymous(ctx, func(st *store.State) store.Result {
		return st.Auth.SignIn(ctx, input.Body.Email, input.Body.Password)
	})
	if err != nil {
		return nil, err
	}
	h.logger.Info().Str("user_id", st.Auth.UserID()).Msg("User signed in")
	return sessionOutput(st), nil
}

// VerifyOTP completes magic link, signup confirmation and recovery links.
func (h *AuthHandler) VerifyOTP(ctx context.Context, input *operation.VerifyOTPInput) (*operation.SessionOutput, error) {
	st, err := h.anonymous(ctx, func(st *store.State) store.Result {
		return st.Auth.VerifyOTP(ctx, input.Body.TokenHash, input.Body.Type)
	})
	if err != nil {
		return nil, err
	}
	return sessionOutput(st), nil
}

func (h *AuthHandler) SignInWithOTP(ctx context.Context, input *operation.SignInWithOTPInput) (*operation.SuccessOutput, error) {
	st := h.registry.New()
	defer st.Close()
	if res := st.Auth.SignInWithOTP(ctx, input.Body.Email); !res.Success {
		return nil, resultError(res)
	}
	return &operation.SuccessOutput{Body: dto.SuccessResponseDTO{Success: true}}, nil
}

func (h *AuthHandler) SignInWithOAuth(ctx context.Context, input *operation.SignInWithOAuthInput) (*operation.URLOutput, error) {
	st := h.registry.New()
	defer st.Close()
	url, res := st.Auth.SignInWithOAuth(ctx, input.Body.Provider)
	if !res.Success {
		return nil, resultError(res)
	}
	return &operation.URLOutput{Body: dto.URLResponseDTO{URL: url}}, nil
}

func (h *AuthHandler) ResetPassword(ctx context.Context, input *operation.ResetPasswordInput) (*operation.SuccessOutput, error) {
	st := h.registry.New()
	defer st.Close()
	if res := st.Auth.ResetPassword(ctx, input.Body.Email); !res.Success {
		return nil, resultError(res)
	}
	return &operation.SuccessOutput{Body: dto.SuccessResponseDTO{Success: true}}, nil
}

func (h *AuthHandler) SignOut(ctx context.Context, input *operation.SignOutInput) (*operation.SignOutOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	userID := st.Auth.UserID()
	res := st.Auth.SignOut(ctx)
	// the local state is dropped even when the provider call failed
	h.registry.Remove(userID)
	if !res.Success {
		return nil, resultError(res)
	}
	return &operation.SignOutOutput{}, nil
}

func (h *AuthHandler) UpdatePassword(ctx context.Context, input *operation.UpdatePasswordInput) (*operation.SuccessOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	if res := st.Auth.UpdatePassword(ctx, input.Body.Password); !res.Success {
		return nil, resultError(res)
	}
	return &operation.SuccessOutput{Body: dto.SuccessResponseDTO{Success: true}}, nil
}

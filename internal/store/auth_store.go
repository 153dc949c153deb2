package store

import (
	"context"
	"sync"

	"bizcard/internal/gotrue"
	"bizcard/internal/model"
	"bizcard/internal/repository"

	"github.com/rs/zerolog"
)

// AuthOptions carries redirect targets handed to the identity provider.
type AuthOptions struct {
	EmailRedirectURL string
	OAuthRedirectURL string
	ResetRedirectURL string
}

// AuthSnapshot is a copy of the auth state safe to read without locks.
type AuthSnapshot struct {
	User      *model.User    `json:"user"`
	Session   *model.Session `json:"-"`
	Profile   *model.Profile `json:"profile"`
	IsPremium bool           `json:"is_premium"`
	Loading   bool           `json:"loading"`
	Error     string         `json:"error,omitempty"`
}

// AuthStore mirrors the identity provider's session and derives the premium entitlement.
type AuthStore struct {
	provider gotrue.Client
	profiles repository.ProfileRepository
	policy   PremiumPolicy
	opts     AuthOptions
	logger   zerolog.Logger

	mu          sync.RWMutex
	user        *model.User
	session     *model.Session
	profile     *model.Profile
	loading     bool
	err         string
	initialized bool
	unsubscribe func()
}

func NewAuthStore(provider gotrue.Client, profiles repository.ProfileRepository, opts AuthOptions, logger zerolog.Logger) *AuthStore {
	return &AuthStore{
		provider: provider,
		profiles: profiles,
		policy:   DefaultPremiumPolicy,
		opts:     opts,
		logger:   logger.With().Str("service", "AuthStore").Logger(),
	}
}

// Initialize loads the current session once and follows session changes until Close.
// Calling it again is a no-op.
func (a *AuthStore) Initialize(ctx context.Context) error {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return nil
	}
	a.initialized = true
	a.mu.Unlock()

	unsubscribe := a.provider.OnAuthStateChange(a.onAuthStateChange)
	a.mu.Lock()
	a.unsubscribe = unsubscribe
	a.mu.Unlock()

	session, err := a.provider.GetSession(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to load session")
		a.setError(err)
		return err
	}
	a.applySession(session)
	a.resolveProfile(ctx)
	return nil
}

// Close stops following session changes.
func (a *AuthStore) Close() {
	a.mu.Lock()
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (a *AuthStore) onAuthStateChange(ctx context.Context, event gotrue.Event, session *model.Session) {
	a.logger.Debug().Str("event", string(event)).Msg("Session changed")
	a.applySession(session)
	a.resolveProfile(ctx)
}

func (a *AuthStore) applySession(s *model.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
	if s == nil {
		a.user = nil
		a.profile = nil
		return
	}
	a.user = s.User
}

// resolveProfile re-reads the profile of the current user. Failures leave the profile unset.
func (a *AuthStore) resolveProfile(ctx context.Context) {
	userID := a.UserID()
	if userID == "" {
		a.mu.Lock()
		a.profile = nil
		a.mu.Unlock()
		return
	}
	p, err := a.profiles.GetByID(ctx, userID)
	if err != nil {
		a.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch profile")
		return
	}
	a.mu.Lock()
	if a.user != nil && a.user.ID == userID {
		a.profile = p
	}
	a.mu.Unlock()
}

// RefreshProfile re-reads the profile row, e.g. after a billing change.
func (a *AuthStore) RefreshProfile(ctx context.Context) {
	a.resolveProfile(ctx)
}

// run wraps a provider call: loading is set for its duration and any error is kept verbatim.
func (a *AuthStore) run(action string, fn func() error) Result {
	a.mu.Lock()
	a.loading = true
	a.err = ""
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.loading = false
		a.mu.Unlock()
	}()

	if err := fn(); err != nil {
		a.logger.Warn().Err(err).Str("action", action).Msg("Auth action failed")
		a.setError(err)
		return failure(err)
	}
	return success()
}

func (a *AuthStore) SignUp(ctx context.Context, email, password, fullName string) Result {
	return a.run("signUp", func() error {
		var data map[string]any
		if fullName != "" {
			data = map[string]any{"full_name": fullName}
		}
		_, _, err := a.provider.SignUp(ctx, email, password, data)
		return err
	})
}

func (a *AuthStore) SignIn(ctx context.Context, email, password string) Result {
	return a.run("signIn", func() error {
		_, err := a.provider.SignInWithPassword(ctx, email, password)
		return err
	})
}

func (a *AuthStore) SignInWithOTP(ctx context.Context, email string) Result {
	return a.run("signInWithOTP", func() error {
		return a.provider.SignInWithOTP(ctx, email, a.opts.EmailRedirectURL)
	})
}

// SignInWithOAuth returns the authorize URL the browser should follow.
func (a *AuthStore) SignInWithOAuth(ctx context.Context, provider string) (string, Result) {
	var authorizeURL string
	res := a.run("signInWithOAuth", func() error {
		var err error
		authorizeURL, err = a.provider.SignInWithOAuth(provider, a.opts.OAuthRedirectURL)
		return err
	})
	return authorizeURL, res
}

// VerifyOTP completes a magic link or recovery link.
func (a *AuthStore) VerifyOTP(ctx context.Context, tokenHash, otpType string) Result {
	return a.run("verifyOTP", func() error {
		_, err := a.provider.VerifyOTP(ctx, tokenHash, otpType)
		return err
	})
}

func (a *AuthStore) SignOut(ctx context.Context) Result {
	return a.run("signOut", func() error {
		if err := a.provider.SignOut(ctx); err != nil {
			return err
		}
		a.applySession(nil)
		return nil
	})
}

func (a *AuthStore) ResetPassword(ctx context.Context, email string) Result {
	return a.run("resetPassword", func() error {
		return a.provider.ResetPasswordForEmail(ctx, email, a.opts.ResetRedirectURL)
	})
}

func (a *AuthStore) UpdatePassword(ctx context.Context, password string) Result {
	return a.run("updatePassword", func() error {
		_, err := a.provider.UpdateUser(ctx, gotrue.UserAttributes{Password: password})
		return err
	})
}

// UpdatePremiumStatus writes the flag to the profile row and the user metadata.
// The profile write decides the outcome; a metadata failure is only logged.
func (a *AuthStore) UpdatePremiumStatus(ctx context.Context, isPremium bool) Result {
	userID := a.UserID()
	if userID == "" {
		a.setError(ErrNotAuthenticated)
		return failure(ErrNotAuthenticated)
	}
	return a.run("updatePremiumStatus", func() error {
		if err := a.profiles.UpdatePremium(ctx, userID, isPremium); err != nil {
			return err
		}
		if _, err := a.provider.UpdateUser(ctx, gotrue.UserAttributes{Data: map[string]any{"is_premium": isPremium}}); err != nil {
			a.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update premium flag in user metadata")
		}
		a.resolveProfile(ctx)
		return nil
	})
}

// AdoptSession hands tokens issued elsewhere to the provider, which notifies the store.
func (a *AuthStore) AdoptSession(ctx context.Context, accessToken, refreshToken string) error {
	_, err := a.provider.SetSession(ctx, accessToken, refreshToken)
	return err
}

func (a *AuthStore) setError(err error) {
	a.mu.Lock()
	a.err = err.Error()
	a.mu.Unlock()
}

// ClearError drops the current error text.
func (a *AuthStore) ClearError() {
	a.mu.Lock()
	a.err = ""
	a.mu.Unlock()
}

func (a *AuthStore) UserID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return ""
	}
	return a.user.ID
}

func (a *AuthStore) User() *model.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

func (a *AuthStore) Session() *model.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

func (a *AuthStore) Profile() *model.Profile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profile
}

func (a *AuthStore) IsPremium() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.policy.IsPremium(a.user, a.profile)
}

func (a *AuthStore) Snapshot() AuthSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AuthSnapshot{
		User:      a.user,
		Session:   a.session,
		Profile:   a.profile,
		IsPremium: a.policy.IsPremium(a.user, a.profile),
		Loading:   a.loading,
		Error:     a.err,
	}
}

// Package gotrue is a small client for the hosted auth REST API (Supabase GoTrue).
// A Client holds the session of a single user and notifies listeners when it changes.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"bizcard/internal/model"

	"github.com/rs/zerolog"
)

// Event names match the ones emitted by the Supabase client libraries.
type Event string

const (
	SignedIn         Event = "SIGNED_IN"
	SignedOut        Event = "SIGNED_OUT"
	UserUpdated      Event = "USER_UPDATED"
	TokenRefreshed   Event = "TOKEN_REFRESHED"
	PasswordRecovery Event = "PASSWORD_RECOVERY"
)

// Listener is called synchronously after the session changed. session is nil on SignedOut.
type Listener func(ctx context.Context, event Event, session *model.Session)

// UserAttributes are the fields accepted by UpdateUser. Empty values are not sent.
type UserAttributes struct {
	Email    string         `json:"email,omitempty"`
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Client defines the identity provider operations used by the auth store.
type Client interface {
	// GetSession returns the current session, refreshing it first when it is about to expire.
	GetSession(ctx context.Context) (*model.Session, error)
	// SetSession adopts tokens issued elsewhere (e.g. a bearer token on an API call).
	SetSession(ctx context.Context, accessToken, refreshToken string) (*model.Session, error)
	OnAuthStateChange(l Listener) (unsubscribe func())

	SignUp(ctx context.Context, email, password string, data map[string]any) (*model.Session, *model.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignInWithOTP(ctx context.Context, email, redirectTo string) error
	// SignInWithOAuth returns the provider authorize URL the browser must be sent to.
	SignInWithOAuth(provider, redirectTo string) (string, error)
	VerifyOTP(ctx context.Context, tokenHash, otpType string) (*model.Session, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUser(ctx context.Context, attrs UserAttributes) (*model.User, error)
	GetUser(ctx context.Context) (*model.User, error)
}

// refreshMargin is how long before expiry GetSession refreshes the tokens.
const refreshMargin = 30 * time.Second

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	session   *model.Session
	listeners map[int]Listener
	nextID    int
}

// New returns a Client for the project at baseURL (e.g. https://xyz.supabase.co).
func New(baseURL, apiKey string, logger zerolog.Logger) Client {
	return &client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 15 * time.Second},
		logger:    logger.With().Str("service", "GoTrueClient").Logger(),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

func (c *client) GetSession(ctx context.Context) (*model.Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil, nil
	}
	if s.RefreshToken == "" || s.ExpiresAt == 0 || c.now().Add(refreshMargin).Unix() < s.ExpiresAt {
		return s, nil
	}

	var refreshed model.Session
	body := map[string]string{"refresh_token": s.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &refreshed); err != nil {
		return nil, err
	}
	c.setSession(ctx, &refreshed, TokenRefreshed)
	return &refreshed, nil
}

func (c *client) SetSession(ctx context.Context, accessToken, refreshToken string) (*model.Session, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	s := &model.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		User:         &user,
	}

	event := SignedIn
	c.mu.Lock()
	if c.session != nil && c.session.User != nil && c.session.User.ID == user.ID {
		event = TokenRefreshed
	}
	c.mu.Unlock()

	c.setSession(ctx, s, event)
	return s, nil
}

func (c *client) OnAuthStateChange(l Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *client) SignUp(ctx context.Context, email, password string, data map[string]any) (*model.Session, *model.User, error) {
	body := map[string]any{"email": email, "password": password}
	if len(data) > 0 {
		body["data"] = data
	}
	// The response is a session when autoconfirm is on, otherwise the bare user.
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &raw); err != nil {
		return nil, nil, err
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, nil, fmt.Errorf("decode signup response: %w", err)
	}
	if s.AccessToken != "" {
		c.setSession(ctx, &s, SignedIn)
		return &s, s.User, nil
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, nil, fmt.Errorf("decode signup response: %w", err)
	}
	return nil, &u, nil
}

func (c *client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	var s model.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &s); err != nil {
		return nil, err
	}
	c.setSession(ctx, &s, SignedIn)
	return &s, nil
}

func (c *client) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	body := map[string]any{"email": email, "create_user": true}
	return c.do(ctx, http.MethodPost, withRedirect("/otp", redirectTo), "", body, nil)
}

func (c *client) SignInWithOAuth(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", &APIError{Status: http.StatusBadRequest, Message: "provider is required"}
	}
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode(), nil
}

func (c *client) VerifyOTP(ctx context.Context, tokenHash, otpType string) (*model.Session, error) {
	var s model.Session
	body := map[string]string{"token_hash": tokenHash, "type": otpType}
	if err := c.do(ctx, http.MethodPost, "/verify", "", body, &s); err != nil {
		return nil, err
	}
	event := SignedIn
	if otpType == "recovery" {
		event = PasswordRecovery
	}
	c.setSession(ctx, &s, event)
	return &s, nil
}

func (c *client) SignOut(ctx context.Context) error {
	token := c.accessToken()
	if token != "" {
		if err := c.do(ctx, http.MethodPost, "/logout", token, nil, nil); err != nil {
			return err
		}
	}
	c.setSession(ctx, nil, SignedOut)
	return nil
}

func (c *client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, withRedirect("/recover", redirectTo), "", body, nil)
}

func (c *client) UpdateUser(ctx context.Context, attrs UserAttributes) (*model.User, error) {
	token := c.accessToken()
	if token == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "Auth session missing!"}
	}
	var u model.User
	if err := c.do(ctx, http.MethodPut, "/user", token, attrs, &u); err != nil {
		return nil, err
	}

	c.mu.Lock()
	var s *model.Session
	if c.session != nil {
		cp := *c.session
		cp.User = &u
		s = &cp
	}
	c.mu.Unlock()
	if s != nil {
		c.setSession(ctx, s, UserUpdated)
	}
	return &u, nil
}

func (c *client) GetUser(ctx context.Context) (*model.User, error) {
	token := c.accessToken()
	if token == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "Auth session missing!"}
	}
	var u model.User
	if err := c.do(ctx, http.MethodGet, "/user", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// setSession stores s and notifies listeners outside the lock.
func (c *client) setSession(ctx context.Context, s *model.Session, event Event) {
	if s != nil && s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Unix() + int64(s.ExpiresIn)
	}

	c.mu.Lock()
	c.session = s
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	c.logger.Debug().Str("event", string(event)).Int("listeners", len(listeners)).Msg("Auth state changed")
	for _, l := range listeners {
		l(ctx, event, s)
	}
}

func (c *client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/auth/v1"+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := parseError(resp.StatusCode, raw)
		c.logger.Warn().Int("status_code", resp.StatusCode).Str("path", path).Msg(apiErr.Message)
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

func withRedirect(path, redirectTo string) string {
	if redirectTo == "" {
		return path
	}
	return path + "?redirect_to=" + url.QueryEscape(redirectTo)
}

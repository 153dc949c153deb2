package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bizcard/internal/api/v1/handler"
	"bizcard/internal/config"
	"bizcard/internal/gotrue"
	"bizcard/internal/model"
	"bizcard/internal/repository"
	"bizcard/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

// tokenProvider adopts any bearer token and reads the user from its subject.
type tokenProvider struct {
	mu        sync.Mutex
	session   *model.Session
	listeners []gotrue.Listener
}

func (p *tokenProvider) GetSession(context.Context) (*model.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, nil
}

func (p *tokenProvider) SetSession(ctx context.Context, accessToken, _ string) (*model.Session, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, &gotrue.APIError{Status: 401, Message: "invalid JWT"}
	}
	s := &model.Session{AccessToken: accessToken, User: &model.User{ID: claims.Subject, Email: claims.Subject + "@example.com"}}
	p.mu.Lock()
	p.session = s
	ls := append([]gotrue.Listener(nil), p.listeners...)
	p.mu.Unlock()
	for _, l := range ls {
		l(ctx, gotrue.SignedIn, s)
	}
	return s, nil
}

func (p *tokenProvider) OnAuthStateChange(l gotrue.Listener) func() {
	p.mu.Lock()
	p.listeners = append(p.listeners, l)
	p.mu.Unlock()
	return func() {}
}

func (p *tokenProvider) SignUp(context.Context, string, string, map[string]any) (*model.Session, *model.User, error) {
	return nil, nil, nil
}
func (p *tokenProvider) SignInWithPassword(context.Context, string, string) (*model.Session, error) {
	return nil, &gotrue.APIError{Status: 400, Message: "Invalid login credentials"}
}
func (p *tokenProvider) SignInWithOTP(context.Context, string, string) error { return nil }
func (p *tokenProvider) SignInWithOAuth(provider, _ string) (string, error) {
	return "https://auth.example.com/authorize?provider=" + provider, nil
}
func (p *tokenProvider) VerifyOTP(context.Context, string, string) (*model.Session, error) {
	return nil, &gotrue.APIError{Status: 403, Message: "Email link is invalid or has expired"}
}
func (p *tokenProvider) SignOut(context.Context) error                              { return nil }
func (p *tokenProvider) ResetPasswordForEmail(context.Context, string, string) error { return nil }
func (p *tokenProvider) UpdateUser(context.Context, gotrue.UserAttributes) (*model.User, error) {
	return &model.User{}, nil
}
func (p *tokenProvider) GetUser(context.Context) (*model.User, error) { return nil, nil }

type memProfiles struct {
	mu   sync.Mutex
	rows map[string]*model.Profile
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memProfiles) Create(_ context.Context, p *model.Profile) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rows[p.ID]; ok {
		cp := *cur
		return &cp, nil
	}
	cp := *p
	m.rows[p.ID] = &cp
	return &cp, nil
}

func (m *memProfiles) UpdatePremium(context.Context, string, bool) error { return nil }

func (m *memProfiles) UpdateAvatarURL(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[id]; ok {
		p.AvatarURL = url
	}
	return nil
}

func (m *memProfiles) UpdateStripeCustomerID(context.Context, string, string) error { return nil }
func (m *memProfiles) GetByStripeCustomerID(context.Context, string) (*model.Profile, error) {
	return nil, nil
}

type memCards struct {
	mu   sync.Mutex
	rows map[int64]model.Card
}

func (m *memCards) ListByUser(_ context.Context, userID string) ([]model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Card{}
	for _, c := range m.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCards) Create(_ context.Context, c *model.Card) (*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.ID = int64(len(m.rows) + 1)
	m.rows[cp.ID] = cp
	return &cp, nil
}

func (m *memCards) Update(context.Context, *model.Card) (*model.Card, error) {
	return nil, repository.ErrCardNotFound
}
func (m *memCards) Delete(context.Context, int64, string) error { return repository.ErrCardNotFound }

func (m *memCards) GetActiveByID(_ context.Context, id int64) (*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || !c.IsActive {
		return nil, repository.ErrCardNotFound
	}
	return &c, nil
}

func (m *memCards) ToggleActive(context.Context, int64, string) (*model.Card, error) {
	return nil, repository.ErrCardNotFound
}
func (m *memCards) RecomputeScanCount(context.Context, int64) (int, error) { return 0, nil }

type memScans struct{ n int }

func (m *memScans) Create(_ context.Context, s *model.Scan) error {
	m.n++
	s.ID = int64(m.n)
	return nil
}

type memContacts struct{}

func (memContacts) ListByUser(context.Context, string) ([]model.Contact, error) {
	return []model.Contact{}, nil
}
func (memContacts) Create(_ context.Context, c *model.Contact) (*model.Contact, error) { return c, nil }
func (memContacts) Update(context.Context, *model.Contact) (*model.Contact, error) {
	return nil, repository.ErrContactNotFound
}
func (memContacts) Delete(context.Context, string, string) error { return repository.ErrContactNotFound }

type nopPublisher struct{ topics []string }

func (p *nopPublisher) Publish(_ context.Context, topic string, _ []byte) (string, error) {
	p.topics = append(p.topics, topic)
	return "1", nil
}

type memAvatars struct{ uploaded int }

func (m *memAvatars) Upload(_ context.Context, userID string, data []byte) (string, error) {
	m.uploaded++
	return "https://storage.example.com/avatars/" + userID + "/avatar.png", nil
}
func (m *memAvatars) Delete(context.Context, string) error { return nil }

type memPrefs struct{}

func (memPrefs) LoadNotifications(context.Context, string) model.NotificationPreferences {
	return model.DefaultNotificationPreferences()
}
func (memPrefs) SaveNotifications(context.Context, string, model.NotificationPreferences) error {
	return nil
}
func (memPrefs) LoadAppearance(context.Context, string) model.AppearancePreferences {
	return model.DefaultAppearancePreferences()
}
func (memPrefs) SaveAppearance(context.Context, string, model.AppearancePreferences) error {
	return nil
}

type memBilling struct{ webhooks int }

func (b *memBilling) CreateCheckoutSession(context.Context, string) (string, error) {
	return "https://checkout.stripe.com/c/pay/cs_test", nil
}
func (b *memBilling) CreatePortalSession(context.Context, string) (string, error) {
	return "https://billing.stripe.com/p/session/test", nil
}
func (b *memBilling) HandleWebhook(context.Context, []byte, string) error {
	b.webhooks++
	return nil
}

type testApp struct {
	handler   http.Handler
	cards     *memCards
	publisher *nopPublisher
	avatars   *memAvatars
	billing   *memBilling
}

func newTestApp() *testApp {
	logger := zerolog.Nop()
	profiles := &memProfiles{rows: map[string]*model.Profile{}}
	app := &testApp{
		cards:     &memCards{rows: map[int64]model.Card{}},
		publisher: &nopPublisher{},
		avatars:   &memAvatars{},
		billing:   &memBilling{},
	}
	deps := store.CardsDeps{Cards: app.cards, Profiles: profiles, Scans: &memScans{}, Publisher: app.publisher}
	registry := store.NewRegistry(func() *store.State {
		auth := store.NewAuthStore(&tokenProvider{}, profiles, store.AuthOptions{}, logger)
		return &store.State{
			Auth:     auth,
			Cards:    store.NewCardsStore(auth, deps, logger),
			Contacts: store.NewContactsStore(auth, memContacts{}, nil, logger),
		}
	})
	visitorCards := func() *store.CardsStore { return store.NewCardsStore(store.Anonymous, deps, logger) }

	cfg := &config.Config{JWTSecret: testSecret, CORSOrigins: []string{"*"}, APIBaseURL: "http://localhost:8080"}
	app.handler = Setup(cfg, Handlers{
		Auth:    handler.NewAuthHandler(registry, logger),
		User:    handler.NewUserHandler(registry, profiles, app.avatars, memPrefs{}, logger),
		Card:    handler.NewCardHandler(registry, logger),
		Contact: handler.NewContactHandler(registry, logger),
		Public:  handler.NewPublicHandler(registry, visitorCards, app.publisher, "", logger),
		Billing: handler.NewBillingHandler(app.billing, logger),
	}, logger)
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func TestPublicPaths(t *testing.T) {
	tests := []struct {
		path   string
		public bool
	}{
		{"/healthz", true},
		{"/openapi.json", true},
		{"/auth/signin", true},
		{"/billing/webhook", true},
		{"/public/cards/12", true},
		{"/schemas/CardRequestDTO.json", true},
		{"/auth/signout", false},
		{"/auth/password", false},
		{"/cards", false},
		{"/billing/checkout", false},
		{"/users/me", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.public, isPublicPath(tt.path))
		})
	}
}

func TestHealthWithoutToken(t *testing.T) {
	app := newTestApp()
	rr := app.do(t, http.MethodGet, "/healthz", "", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"OK"}`, jsonBody(t, rr, "$schema"))
}

func TestOpenAPIIsServed(t *testing.T) {
	app := newTestApp()
	rr := app.do(t, http.MethodGet, "/openapi.json", "", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/cards/{cardId}")
	assert.Contains(t, rr.Body.String(), "bizcard API v1")
}

func TestCardsRequireToken(t *testing.T) {
	app := newTestApp()

	rr := app.do(t, http.MethodGet, "/cards", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = app.do(t, http.MethodGet, "/cards", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = app.do(t, http.MethodGet, "/cards", tokenFor(t, "u-1"), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"cards":[]`)
}

func TestCreateCardThenQuota(t *testing.T) {
	app := newTestApp()
	tok := tokenFor(t, "u-1")
	body := []byte(`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`)

	rr := app.do(t, http.MethodPost, "/cards", tok, body, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = app.do(t, http.MethodPost, "/cards", tok, body, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "Free plan allows only 1 card")

	rr = app.do(t, http.MethodGet, "/cards/summary", tok, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total_cards":1`)
	assert.Contains(t, rr.Body.String(), `"can_create_card":false`)
}

func TestPublicCardWithoutToken(t *testing.T) {
	app := newTestApp()
	app.cards.rows[7] = model.Card{ID: 7, UserID: "owner", FirstName: "Ada", IsActive: true, ScanCount: 1}
	app.cards.rows[8] = model.Card{ID: 8, UserID: "owner", IsActive: false}

	rr := app.do(t, http.MethodGet, "/public/cards/7", "", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"scan_count":2`)

	rr = app.do(t, http.MethodGet, "/public/cards/8", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.do(t, http.MethodPost, "/public/cards/7/connect", "", []byte(`{"name":"Grace"}`), nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, app.publisher.topics, "contact_import")
}

func TestWebhookSkipsAuth(t *testing.T) {
	app := newTestApp()
	rr := app.do(t, http.MethodPost, "/billing/webhook", "", []byte(`{"id":"evt_1","type":"checkout.session.completed"}`),
		http.Header{"Stripe-Signature": {"t=1,v1=abc"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, app.billing.webhooks)

	rr = app.do(t, http.MethodPost, "/billing/checkout", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = app.do(t, http.MethodPost, "/billing/checkout", tokenFor(t, "u-1"), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "checkout.stripe.com")
}

func TestSignInErrorIsPassedThrough(t *testing.T) {
	app := newTestApp()
	rr := app.do(t, http.MethodPost, "/auth/signin", "", []byte(`{"email":"a@example.com","password":"wrong"}`), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid login credentials")
}

func TestAvatarUpload(t *testing.T) {
	app := newTestApp()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rr := app.do(t, http.MethodPost, "/users/me/avatar", tokenFor(t, "u-1"), buf.Bytes(),
		http.Header{"Content-Type": {w.FormDataContentType()}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "avatars/u-1/avatar.png")
	assert.Equal(t, 1, app.avatars.uploaded)

	rr = app.do(t, http.MethodGet, "/users/me", tokenFor(t, "u-1"), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"avatar_url":"https://storage.example.com/avatars/u-1/avatar.png"`)
}

func TestAvatarUploadRejectsOversizedBody(t *testing.T) {
	app := newTestApp()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "huge.png")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, maxAvatarBody)...))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rr := app.do(t, http.MethodPost, "/users/me/avatar", tokenFor(t, "u-1"), buf.Bytes(),
		http.Header{"Content-Type": {w.FormDataContentType()}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Zero(t, app.avatars.uploaded)
}

// jsonBody re-encodes the response without the given keys.
func jsonBody(t *testing.T, rr *httptest.ResponseRecorder, drop ...string) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	for _, k := range drop {
		delete(m, k)
	}
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}

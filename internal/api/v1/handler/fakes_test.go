package handler

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"bizcard/internal/gotrue"
	"bizcard/internal/middleware"
	"bizcard/internal/model"
	"bizcard/internal/preferences"
	"bizcard/internal/repository"
	"bizcard/internal/store"

	"github.com/rs/zerolog"
)

const goodPassword = "correct-horse"

// fakeProvider treats an adopted access token as the user id it belongs to.
type fakeProvider struct {
	mu        sync.Mutex
	session   *model.Session
	listeners map[int]gotrue.Listener
	nextID    int
	signedOut bool
}

func (f *fakeProvider) emit(ctx context.Context, e gotrue.Event, s *model.Session) {
	f.mu.Lock()
	f.session = s
	ls := make([]gotrue.Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(ctx, e, s)
	}
}

func sessionFor(userID, email string) *model.Session {
	return &model.Session{
		AccessToken:  "at-" + userID,
		RefreshToken: "rt-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         &model.User{ID: userID, Email: email},
	}
}

func (f *fakeProvider) GetSession(context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeProvider) SetSession(ctx context.Context, accessToken, _ string) (*model.Session, error) {
	if accessToken == "" {
		return nil, &gotrue.APIError{Status: 401, Message: "invalid JWT"}
	}
	s := &model.Session{AccessToken: accessToken, User: &model.User{ID: accessToken, Email: accessToken + "@example.com"}}
	f.emit(ctx, gotrue.SignedIn, s)
	return s, nil
}

func (f *fakeProvider) OnAuthStateChange(l gotrue.Listener) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = l
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// SignUp never returns a session, as with email confirmation enabled.
func (f *fakeProvider) SignUp(_ context.Context, email, _ string, data map[string]any) (*model.Session, *model.User, error) {
	if strings.HasPrefix(email, "taken") {
		return nil, nil, &gotrue.APIError{Status: 422, Code: "user_already_exists", Message: "User already registered"}
	}
	return nil, &model.User{ID: "u-new", Email: email, UserMetadata: data}, nil
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	if password != goodPassword {
		return nil, &gotrue.APIError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	s := sessionFor("u-"+strings.Split(email, "@")[0], email)
	f.emit(ctx, gotrue.SignedIn, s)
	return s, nil
}

func (f *fakeProvider) SignInWithOTP(context.Context, string, string) error { return nil }

func (f *fakeProvider) SignInWithOAuth(provider, redirectTo string) (string, error) {
	return "https://auth.example.com/authorize?provider=" + provider + "&redirect_to=" + redirectTo, nil
}

func (f *fakeProvider) VerifyOTP(ctx context.Context, tokenHash, _ string) (*model.Session, error) {
	if tokenHash == "expired" {
		return nil, &gotrue.APIError{Status: 403, Code: "otp_expired", Message: "Email link is invalid or has expired"}
	}
	s := sessionFor("u-verified", "verified@example.com")
	f.emit(ctx, gotrue.SignedIn, s)
	return s, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signedOut = true
	f.mu.Unlock()
	f.emit(ctx, gotrue.SignedOut, nil)
	return nil
}

func (f *fakeProvider) ResetPasswordForEmail(context.Context, string, string) error { return nil }

func (f *fakeProvider) UpdateUser(_ context.Context, attrs gotrue.UserAttributes) (*model.User, error) {
	if attrs.Password != "" && len(attrs.Password) < 6 {
		return nil, &gotrue.APIError{Status: 422, Message: "Password should be at least 6 characters."}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, &gotrue.APIError{Status: 401, Message: "Auth session missing!"}
	}
	return f.session.User, nil
}

func (f *fakeProvider) GetUser(context.Context) (*model.User, error) { return nil, nil }

type fakeProfiles struct {
	mu      sync.Mutex
	rows    map[string]*model.Profile
	avatars []string
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Create(_ context.Context, p *model.Profile) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.rows[p.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *p
	f.rows[p.ID] = &cp
	return &cp, nil
}

func (f *fakeProfiles) UpdateAvatarURL(_ context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.avatars = append(f.avatars, url)
	if p, ok := f.rows[id]; ok {
		p.AvatarURL = url
	}
	return nil
}

func (f *fakeProfiles) UpdatePremium(_ context.Context, id string, v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.IsPremium = v
	}
	return nil
}

func (f *fakeProfiles) UpdateStripeCustomerID(context.Context, string, string) error { return nil }
func (f *fakeProfiles) GetByStripeCustomerID(context.Context, string) (*model.Profile, error) {
	return nil, nil
}

type fakeCards struct {
	mu     sync.Mutex
	rows   map[int64]model.Card
	nextID int64
}

func (f *fakeCards) ListByUser(_ context.Context, userID string) ([]model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Card{}
	for _, c := range f.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeCards) Create(_ context.Context, c *model.Card) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *c
	cp.ID = f.nextID
	f.rows[cp.ID] = cp
	return &cp, nil
}

func (f *fakeCards) Update(_ context.Context, c *model.Card) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[c.ID]
	if !ok || cur.UserID != c.UserID {
		return nil, repository.ErrCardNotFound
	}
	cp := *c
	cp.IsActive = cur.IsActive
	cp.ScanCount = cur.ScanCount
	f.rows[c.ID] = cp
	return &cp, nil
}

func (f *fakeCards) Delete(_ context.Context, id int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[id]
	if !ok || cur.UserID != userID {
		return repository.ErrCardNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeCards) GetActiveByID(_ context.Context, id int64) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || !c.IsActive {
		return nil, repository.ErrCardNotFound
	}
	return &c, nil
}

func (f *fakeCards) ToggleActive(_ context.Context, id int64, userID string) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrCardNotFound
	}
	c.IsActive = !c.IsActive
	f.rows[id] = c
	return &c, nil
}

func (f *fakeCards) RecomputeScanCount(context.Context, int64) (int, error) {
	return 0, errors.New("not used")
}

type fakeScans struct {
	mu    sync.Mutex
	scans []model.Scan
	err   error
}

func (f *fakeScans) Create(_ context.Context, s *model.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	s.ID = int64(len(f.scans) + 1)
	f.scans = append(f.scans, *s)
	return nil
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, published{topic, payload})
	return "msg-1", nil
}

func (f *fakePublisher) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.topic)
	}
	return out
}

type fakeContacts struct {
	mu   sync.Mutex
	rows []model.Contact
}

func (f *fakeContacts) ListByUser(_ context.Context, userID string) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Contact{}
	for _, c := range f.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContacts) Create(_ context.Context, c *model.Contact) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *c)
	cp := *c
	return &cp, nil
}

func (f *fakeContacts) Update(_ context.Context, c *model.Contact) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == c.ID && f.rows[i].UserID == c.UserID {
			f.rows[i] = *c
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrContactNotFound
}

func (f *fakeContacts) Delete(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrContactNotFound
}

type fakeAvatars struct {
	uploads []string
	deleted []string
	err     error
}

func (f *fakeAvatars) Upload(_ context.Context, userID string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	url := "https://storage.example.com/avatars/" + userID + "/" + string(rune('a'+len(f.uploads))) + ".png"
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeAvatars) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakePrefs struct {
	notifications map[string]model.NotificationPreferences
	appearance    map[string]model.AppearancePreferences
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{notifications: map[string]model.NotificationPreferences{}, appearance: map[string]model.AppearancePreferences{}}
}

func (f *fakePrefs) LoadNotifications(_ context.Context, userID string) model.NotificationPreferences {
	if p, ok := f.notifications[userID]; ok {
		return p
	}
	return model.DefaultNotificationPreferences()
}

func (f *fakePrefs) SaveNotifications(_ context.Context, userID string, p model.NotificationPreferences) error {
	f.notifications[userID] = p
	return nil
}

func (f *fakePrefs) LoadAppearance(_ context.Context, userID string) model.AppearancePreferences {
	if p, ok := f.appearance[userID]; ok {
		return p
	}
	return model.DefaultAppearancePreferences()
}

func (f *fakePrefs) SaveAppearance(_ context.Context, userID string, p model.AppearancePreferences) error {
	switch p.Theme {
	case model.ThemeLight, model.ThemeDark, model.ThemeSystem:
	default:
		return preferences.ErrInvalidTheme
	}
	f.appearance[userID] = p
	return nil
}

// env wires real stores to in-memory repositories. Every state gets its own provider.
type env struct {
	profiles  *fakeProfiles
	cards     *fakeCards
	contacts  *fakeContacts
	scans     *fakeScans
	publisher *fakePublisher
	registry  *store.Registry

	mu        sync.Mutex
	providers []*fakeProvider
}

func newEnv() *env {
	e := &env{
		profiles:  &fakeProfiles{rows: map[string]*model.Profile{}},
		cards:     &fakeCards{rows: map[int64]model.Card{}},
		contacts:  &fakeContacts{},
		scans:     &fakeScans{},
		publisher: &fakePublisher{},
	}
	e.registry = store.NewRegistry(func() *store.State {
		p := &fakeProvider{listeners: map[int]gotrue.Listener{}}
		e.mu.Lock()
		e.providers = append(e.providers, p)
		e.mu.Unlock()
		auth := store.NewAuthStore(p, e.profiles, store.AuthOptions{OAuthRedirectURL: "http://localhost:5173/auth/callback"}, zerolog.Nop())
		return &store.State{
			Auth:     auth,
			Cards:    store.NewCardsStore(auth, e.cardsDeps(), zerolog.Nop()),
			Contacts: store.NewContactsStore(auth, e.contacts, nil, zerolog.Nop()),
		}
	})
	return e
}

func (e *env) cardsDeps() store.CardsDeps {
	return store.CardsDeps{Cards: e.cards, Profiles: e.profiles, Scans: e.scans, Publisher: e.publisher}
}

func (e *env) visitorCards() *store.CardsStore {
	return store.NewCardsStore(store.Anonymous, e.cardsDeps(), zerolog.Nop())
}

func (e *env) seedCard(c model.Card) model.Card {
	e.cards.mu.Lock()
	defer e.cards.mu.Unlock()
	if c.ID == 0 {
		e.cards.nextID++
		c.ID = e.cards.nextID
	}
	e.cards.rows[c.ID] = c
	return c
}

// as returns a context authenticated as userID; the bearer token is the user id itself.
func as(userID string) context.Context {
	ctx := context.WithValue(context.Background(), middleware.UserContextKey, userID)
	return context.WithValue(ctx, middleware.AccessTokenContextKey, userID)
}

type fakeBilling struct {
	url        string
	err        error
	webhookErr error
	userIDs    []string
	payloads   [][]byte
}

func (f *fakeBilling) CreateCheckoutSession(_ context.Context, userID string) (string, error) {
	f.userIDs = append(f.userIDs, userID)
	return f.url, f.err
}

func (f *fakeBilling) CreatePortalSession(_ context.Context, userID string) (string, error) {
	f.userIDs = append(f.userIDs, userID)
	return f.url, f.err
}

func (f *fakeBilling) HandleWebhook(_ context.Context, payload []byte, _ string) error {
	f.payloads = append(f.payloads, payload)
	return f.webhookErr
}

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bizcard/internal/gotrue"
	"bizcard/internal/model"
	"bizcard/internal/repository"
)

type fakeProvider struct {
	mu        sync.Mutex
	session   *model.Session
	listeners map[int]gotrue.Listener
	nextID    int

	signInErr     error
	updateUserErr error
	updates       []gotrue.UserAttributes
	signInCalls   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{listeners: map[int]gotrue.Listener{}}
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

func (f *fakeProvider) GetSession(context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeProvider) SetSession(ctx context.Context, accessToken, _ string) (*model.Session, error) {
	s := &model.Session{AccessToken: accessToken, User: &model.User{ID: "user-of-" + accessToken}}
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

func (f *fakeProvider) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeProvider) SignUp(ctx context.Context, email, _ string, data map[string]any) (*model.Session, *model.User, error) {
	u := &model.User{ID: "u-new", Email: email, UserMetadata: data}
	return nil, u, nil
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, _ string) (*model.Session, error) {
	f.mu.Lock()
	f.signInCalls++
	err := f.signInErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s := &model.Session{AccessToken: "at", User: &model.User{ID: "u-1", Email: email}}
	f.emit(ctx, gotrue.SignedIn, s)
	return s, nil
}

func (f *fakeProvider) SignInWithOTP(context.Context, string, string) error { return nil }

func (f *fakeProvider) SignInWithOAuth(provider, redirectTo string) (string, error) {
	return "https://auth/authorize?provider=" + provider + "&redirect_to=" + redirectTo, nil
}

func (f *fakeProvider) VerifyOTP(ctx context.Context, _, otpType string) (*model.Session, error) {
	s := &model.Session{AccessToken: "at", User: &model.User{ID: "u-1"}}
	f.emit(ctx, gotrue.PasswordRecovery, s)
	return s, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.emit(ctx, gotrue.SignedOut, nil)
	return nil
}

func (f *fakeProvider) ResetPasswordForEmail(context.Context, string, string) error { return nil }

func (f *fakeProvider) UpdateUser(ctx context.Context, attrs gotrue.UserAttributes) (*model.User, error) {
	f.mu.Lock()
	f.updates = append(f.updates, attrs)
	err := f.updateUserErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &model.User{}, nil
}

func (f *fakeProvider) GetUser(context.Context) (*model.User, error) { return nil, nil }

type fakeProfiles struct {
	mu        sync.Mutex
	rows      map[string]*model.Profile
	getErr    error
	premErr   error
	created   int
	premCalls int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: map[string]*model.Profile{}}
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
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
		return existing, nil
	}
	f.created++
	cp := *p
	f.rows[p.ID] = &cp
	return &cp, nil
}

func (f *fakeProfiles) UpdatePremium(_ context.Context, id string, isPremium bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.premCalls++
	if f.premErr != nil {
		return f.premErr
	}
	p, ok := f.rows[id]
	if !ok {
		p = &model.Profile{ID: id}
		f.rows[id] = p
	}
	p.IsPremium = isPremium
	return nil
}

func (f *fakeProfiles) UpdateAvatarURL(context.Context, string, string) error        { return nil }
func (f *fakeProfiles) UpdateStripeCustomerID(context.Context, string, string) error { return nil }
func (f *fakeProfiles) GetByStripeCustomerID(context.Context, string) (*model.Profile, error) {
	return nil, nil
}

// ownerCall records the (id, user) pair every owner-scoped call received.
type ownerCall struct {
	op     string
	id     int64
	userID string
}

type fakeCards struct {
	mu      sync.Mutex
	rows    map[int64]model.Card
	nextID  int64
	calls   []ownerCall
	listErr error
	// listHook runs inside ListByUser before rows are returned.
	listHook func()
}

func newFakeCards(cards ...model.Card) *fakeCards {
	f := &fakeCards{rows: map[int64]model.Card{}, nextID: 100}
	for _, c := range cards {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCards) ListByUser(_ context.Context, userID string) ([]model.Card, error) {
	if f.listHook != nil {
		f.listHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Card{}
	for _, c := range f.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeCards) Create(_ context.Context, c *model.Card) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *c
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.rows[cp.ID] = cp
	return &cp, nil
}

func (f *fakeCards) Update(_ context.Context, c *model.Card) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ownerCall{"update", c.ID, c.UserID})
	cur, ok := f.rows[c.ID]
	if !ok || cur.UserID != c.UserID {
		return nil, repository.ErrCardNotFound
	}
	cp := *c
	cp.IsActive = cur.IsActive
	cp.ScanCount = cur.ScanCount
	cp.CreatedAt = cur.CreatedAt
	f.rows[c.ID] = cp
	return &cp, nil
}

func (f *fakeCards) Delete(_ context.Context, id int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ownerCall{"delete", id, userID})
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
	f.calls = append(f.calls, ownerCall{"toggle", id, userID})
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

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return "id", f.err
}

type fakeContacts struct {
	mu    sync.Mutex
	rows  []model.Contact
	calls []string
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
	cp := *c
	f.rows = append(f.rows, cp)
	return &cp, nil
}

func (f *fakeContacts) Update(_ context.Context, c *model.Contact) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update:"+c.ID+":"+c.UserID)
	for i := range f.rows {
		if f.rows[i].ID == c.ID && f.rows[i].UserID == c.UserID {
			f.rows[i] = *c
			return c, nil
		}
	}
	return nil, repository.ErrContactNotFound
}

func (f *fakeContacts) Delete(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+id+":"+userID)
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrContactNotFound
}

type stubIdentity struct {
	id      string
	premium bool
}

func (s stubIdentity) UserID() string { return s.id }
func (s stubIdentity) User() *model.User {
	if s.id == "" {
		return nil
	}
	return &model.User{ID: s.id, Email: s.id + "@example.com", UserMetadata: map[string]any{"full_name": "Test User"}}
}
func (s stubIdentity) IsPremium() bool { return s.premium }

package store

import (
	"context"
	"sync"
	"time"

	"bizcard/internal/model"
	"bizcard/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContactsSnapshot is a copy of the contacts state with the active filter applied.
type ContactsSnapshot struct {
	Contacts     []model.Contact `json:"contacts"`
	Filtered     []model.Contact `json:"filtered"`
	SearchQuery  string          `json:"search_query"`
	SelectedTags []string        `json:"selected_tags"`
	AllTags      []string        `json:"all_tags"`
	Loading      bool            `json:"loading"`
	Error        string          `json:"error,omitempty"`
}

// ContactsStore holds the signed-in user's contacts and the search/tag filter.
type ContactsStore struct {
	auth     Identity
	repo     repository.ContactRepository
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time

	mu           sync.RWMutex
	contacts     []model.Contact
	searchQuery  string
	selectedTags []string
	loading      bool
	err          string
	seq          uint64
}

func NewContactsStore(auth Identity, repo repository.ContactRepository, v *validator.Validate, logger zerolog.Logger) *ContactsStore {
	if v == nil {
		v = NewValidator()
	}
	return &ContactsStore{
		auth:         auth,
		repo:         repo,
		validate:     v,
		logger:       logger.With().Str("service", "ContactsStore").Logger(),
		now:          time.Now,
		contacts:     []model.Contact{},
		selectedTags: []string{},
	}
}

func (s *ContactsStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *ContactsStore) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *ContactsStore) failWith(err error) Result {
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
	return failure(err)
}

// FetchContacts replaces the local collection, most recently scanned first.
func (s *ContactsStore) FetchContacts(ctx context.Context) Result {
	userID := s.auth.UserID()
	if userID == "" {
		return s.failWith(ErrNotAuthenticated)
	}
	s.begin()
	defer s.end()

	s.mu.Lock()
	s.seq++
	token := s.seq
	s.mu.Unlock()

	contacts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch contacts")
		return s.failWith(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		s.logger.Debug().Str("user_id", userID).Msg("Dropping superseded contact fetch")
		return success()
	}
	s.contacts = contacts
	return success()
}

func (s *ContactsStore) CreateContact(ctx context.Context, in model.ContactInput) (*model.Contact, Result) {
	userID := s.auth.UserID()
	if userID == "" {
		return nil, s.failWith(ErrNotAuthenticated)
	}
	if err := validateInput(s.validate, in); err != nil {
		return nil, s.failWith(err)
	}
	s.begin()
	defer s.end()

	c := model.Contact{ID: uuid.NewString(), UserID: userID, ScannedAt: s.now().UTC()}
	in.Apply(&c)
	created, err := s.repo.Create(ctx, &c)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create contact")
		return nil, s.failWith(err)
	}

	s.mu.Lock()
	s.seq++
	s.contacts = append([]model.Contact{*created}, s.contacts...)
	s.mu.Unlock()
	return created, success()
}

func (s *ContactsStore) UpdateContact(ctx context.Context, id string, in model.ContactInput) (*model.Contact, Result) {
	userID := s.auth.UserID()
	if userID == "" {
		return nil, s.failWith(ErrNotAuthenticated)
	}
	if err := validateInput(s.validate, in); err != nil {
		return nil, s.failWith(err)
	}
	s.begin()
	defer s.end()

	c := model.Contact{ID: id, UserID: userID}
	in.Apply(&c)
	updated, err := s.repo.Update(ctx, &c)
	if err != nil {
		s.logger.Error().Err(err).Str("contact_id", id).Msg("Failed to update contact")
		return nil, s.failWith(err)
	}

	s.mu.Lock()
	s.seq++
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts[i] = *updated
		}
	}
	s.mu.Unlock()
	return updated, success()
}

func (s *ContactsStore) DeleteContact(ctx context.Context, id string) Result {
	userID := s.auth.UserID()
	if userID == "" {
		return s.failWith(ErrNotAuthenticated)
	}
	s.begin()
	defer s.end()

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		s.logger.Error().Err(err).Str("contact_id", id).Msg("Failed to delete contact")
		return s.failWith(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	kept := make([]model.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.contacts = kept
	return success()
}

func (s *ContactsStore) SetSearchQuery(q string) {
	s.mu.Lock()
	s.searchQuery = q
	s.mu.Unlock()
}

// AddSelectedTag is a no-op when tag is already selected.
func (s *ContactsStore) AddSelectedTag(tag string) {
	if tag == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.selectedTags {
		if t == tag {
			return
		}
	}
	s.selectedTags = append(s.selectedTags, tag)
}

func (s *ContactsStore) RemoveSelectedTag(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]string, 0, len(s.selectedTags))
	for _, t := range s.selectedTags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	s.selectedTags = kept
}

func (s *ContactsStore) ClearFilters() {
	s.mu.Lock()
	s.searchQuery = ""
	s.selectedTags = []string{}
	s.mu.Unlock()
}

// FilteredContacts applies the current query and tag selection.
func (s *ContactsStore) FilteredContacts() []model.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterContacts(s.contacts, s.searchQuery, s.selectedTags)
}

func (s *ContactsStore) AllTags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AllTags(s.contacts)
}

func (s *ContactsStore) Snapshot() ContactsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ContactsSnapshot{
		Contacts:     append([]model.Contact{}, s.contacts...),
		Filtered:     FilterContacts(s.contacts, s.searchQuery, s.selectedTags),
		SearchQuery:  s.searchQuery,
		SelectedTags: append([]string{}, s.selectedTags...),
		AllTags:      AllTags(s.contacts),
		Loading:      s.loading,
		Error:        s.err,
	}
}

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"bizcard/internal/events"
	"bizcard/internal/model"
	"bizcard/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Identity is the part of the auth state the data stores depend on.
type Identity interface {
	UserID() string
	User() *model.User
	IsPremium() bool
}

type anonymous struct{}

func (anonymous) UserID() string    { return "" }
func (anonymous) User() *model.User { return nil }
func (anonymous) IsPremium() bool   { return false }

// Anonymous is the identity of an unauthenticated visitor.
var Anonymous Identity = anonymous{}

// CardsDeps groups the collaborators of a CardsStore.
type CardsDeps struct {
	Cards     repository.CardRepository
	Profiles  repository.ProfileRepository
	Scans     repository.ScanRepository
	Publisher events.Publisher
	ScanTopic string
	Validate  *validator.Validate
}

// CardsSnapshot is a copy of the cards state.
type CardsSnapshot struct {
	Cards    []model.Card `json:"cards"`
	Selected *model.Card  `json:"selected,omitempty"`
	Loading  bool         `json:"loading"`
	Error    string       `json:"error,omitempty"`
}

// CardsStore holds the signed-in user's cards and enforces the per-plan quota.
type CardsStore struct {
	auth   Identity
	deps   CardsDeps
	logger zerolog.Logger

	// createMu serializes CreateCard so the quota check and the insert cannot interleave.
	createMu sync.Mutex

	mu       sync.RWMutex
	cards    []model.Card
	selected *model.Card
	loading  bool
	err      string
	// seq is bumped by every fetch and local mutation; a fetch applies its result only if seq is unchanged.
	seq uint64
}

func NewCardsStore(auth Identity, deps CardsDeps, logger zerolog.Logger) *CardsStore {
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.ScanTopic == "" {
		deps.ScanTopic = events.TopicCardScanned
	}
	if deps.Validate == nil {
		deps.Validate = NewValidator()
	}
	return &CardsStore{
		auth:   auth,
		deps:   deps,
		cards:  []model.Card{},
		logger: logger.With().Str("service", "CardsStore").Logger(),
	}
}

func (s *CardsStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *CardsStore) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *CardsStore) failWith(err error) Result {
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
	return failure(err)
}

// FetchCards replaces the local collection with the user's cards, newest first.
func (s *CardsStore) FetchCards(ctx context.Context) Result {
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

	cards, err := s.deps.Cards.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch cards")
		return s.failWith(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		s.logger.Debug().Str("user_id", userID).Msg("Dropping superseded card fetch")
		return success()
	}
	s.cards = cards
	return success()
}

// CreateCard validates, checks the quota, makes sure a profile row exists and inserts the card.
func (s *CardsStore) CreateCard(ctx context.Context, in model.CardInput) (*model.Card, Result) {
	userID := s.auth.UserID()
	if userID == "" {
		return nil, s.failWith(ErrNotAuthenticated)
	}
	if err := validateInput(s.deps.Validate, in); err != nil {
		return nil, s.failWith(err)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	isPremium := s.auth.IsPremium()
	s.mu.RLock()
	count := len(s.cards)
	s.mu.RUnlock()
	if !CanCreateCard(isPremium, count) {
		return nil, s.failWith(&PlanLimitError{Premium: isPremium, Limit: CardLimit(isPremium)})
	}

	s.begin()
	defer s.end()

	if err := s.ensureProfile(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to ensure profile before card insert")
		return nil, s.failWith(err)
	}

	card := model.Card{UserID: userID, IsActive: true}
	in.Apply(&card)
	created, err := s.deps.Cards.Create(ctx, &card)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create card")
		return nil, s.failWith(err)
	}

	s.mu.Lock()
	s.seq++
	s.cards = append([]model.Card{*created}, s.cards...)
	s.mu.Unlock()
	return created, success()
}

// ensureProfile creates the profile row the card foreign key points at, if it is missing.
func (s *CardsStore) ensureProfile(ctx context.Context, userID string) error {
	p, err := s.deps.Profiles.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if p != nil {
		return nil
	}
	profile := &model.Profile{ID: userID}
	if u := s.auth.User(); u != nil {
		profile.Email = u.Email
		if name, ok := u.UserMetadata["full_name"].(string); ok {
			profile.FullName = name
		}
	}
	_, err = s.deps.Profiles.Create(ctx, profile)
	return err
}

// UpdateCard writes the editable fields of one of the user's cards.
func (s *CardsStore) UpdateCard(ctx context.Context, id int64, in model.CardInput) (*model.Card, Result) {
	userID := s.auth.UserID()
	if userID == "" {
		return nil, s.failWith(ErrNotAuthenticated)
	}
	if err := validateInput(s.deps.Validate, in); err != nil {
		return nil, s.failWith(err)
	}
	s.begin()
	defer s.end()

	card := model.Card{ID: id, UserID: userID}
	in.Apply(&card)
	updated, err := s.deps.Cards.Update(ctx, &card)
	if err != nil {
		s.logger.Error().Err(err).Int64("card_id", id).Msg("Failed to update card")
		return nil, s.failWith(err)
	}
	s.replace(*updated)
	return updated, success()
}

// DeleteCard removes one of the user's cards and clears the selection if it pointed at it.
func (s *CardsStore) DeleteCard(ctx context.Context, id int64) Result {
	userID := s.auth.UserID()
	if userID == "" {
		return s.failWith(ErrNotAuthenticated)
	}
	s.begin()
	defer s.end()

	if err := s.deps.Cards.Delete(ctx, id, userID); err != nil {
		s.logger.Error().Err(err).Int64("card_id", id).Msg("Failed to delete card")
		return s.failWith(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	kept := make([]model.Card, 0, len(s.cards))
	for _, c := range s.cards {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.cards = kept
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
	}
	return success()
}

// GetCard is the public read path: only active cards are returned. The card becomes the selection.
func (s *CardsStore) GetCard(ctx context.Context, id int64) (*model.Card, Result) {
	s.begin()
	defer s.end()

	card, err := s.deps.Cards.GetActiveByID(ctx, id)
	if err != nil {
		return nil, s.failWith(err)
	}
	s.mu.Lock()
	cp := *card
	s.selected = &cp
	s.mu.Unlock()
	return card, success()
}

// ToggleCardStatus flips the active flag of one of the user's cards.
func (s *CardsStore) ToggleCardStatus(ctx context.Context, id int64) (*model.Card, Result) {
	userID := s.auth.UserID()
	if userID == "" {
		return nil, s.failWith(ErrNotAuthenticated)
	}
	s.begin()
	defer s.end()

	card, err := s.deps.Cards.ToggleActive(ctx, id, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("card_id", id).Msg("Failed to toggle card status")
		return nil, s.failWith(err)
	}
	s.replace(*card)
	return card, success()
}

// RecordScan appends a scan event and bumps the local counter without re-reading the card.
// The authoritative count is rebuilt asynchronously from the scans table.
func (s *CardsStore) RecordScan(ctx context.Context, id int64, meta model.ScanMeta) Result {
	scan := &model.Scan{
		CardID:     id,
		ScannedAt:  time.Now().UTC(),
		Location:   meta.Location,
		DeviceInfo: meta.DeviceInfo,
		Referrer:   meta.Referrer,
	}
	if err := s.deps.Scans.Create(ctx, scan); err != nil {
		s.logger.Error().Err(err).Int64("card_id", id).Msg("Failed to record scan")
		return s.failWith(err)
	}

	ev := events.ScanEvent{
		CardID:     id,
		ScanID:     scan.ID,
		ScannedAt:  scan.ScannedAt,
		Location:   scan.Location,
		DeviceInfo: scan.DeviceInfo,
		Referrer:   scan.Referrer,
	}
	if _, err := events.PublishJSON(ctx, s.deps.Publisher, s.deps.ScanTopic, ev); err != nil && !errors.Is(err, events.ErrNoBackend) {
		s.logger.Warn().Err(err).Int64("card_id", id).Msg("Failed to publish scan event")
	}

	s.IncrementScanCount(id)
	return success()
}

// IncrementScanCount bumps the local counter of id in the list and the selection.
func (s *CardsStore) IncrementScanCount(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cards {
		if s.cards[i].ID == id {
			s.cards[i].ScanCount++
		}
	}
	if s.selected != nil && s.selected.ID == id {
		s.selected.ScanCount++
	}
}

// replace swaps the matching card in place and refreshes the selection.
func (s *CardsStore) replace(card model.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	for i := range s.cards {
		if s.cards[i].ID == card.ID {
			s.cards[i] = card
		}
	}
	if s.selected != nil && s.selected.ID == card.ID {
		cp := card
		s.selected = &cp
	}
}

// SelectCard selects a card from the local collection.
func (s *CardsStore) SelectCard(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.ID == id {
			cp := c
			s.selected = &cp
			return true
		}
	}
	return false
}

func (s *CardsStore) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// Card returns the local copy of id.
func (s *CardsStore) Card(id int64) (model.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cards {
		if c.ID == id {
			return c, true
		}
	}
	return model.Card{}, false
}

func (s *CardsStore) Snapshot() CardsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := CardsSnapshot{
		Cards:   append([]model.Card{}, s.cards...),
		Loading: s.loading,
		Error:   s.err,
	}
	if s.selected != nil {
		cp := *s.selected
		snap.Selected = &cp
	}
	return snap
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"bizcard/internal/api/v1/dto"
	"bizcard/internal/api/v1/operation"
	"bizcard/internal/events"
	"bizcard/internal/model"
	"bizcard/internal/store"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// PublicHandler serves the unauthenticated card view and the visitor "connect" form.
type PublicHandler struct {
	registry     *store.Registry
	visitorCards func() *store.CardsStore
	publisher    events.Publisher
	importTopic  string
	logger       zerolog.Logger
}

// NewPublicHandler takes a factory for cards stores bound to store.Anonymous.
func NewPublicHandler(registry *store.Registry, visitorCards func() *store.CardsStore, publisher events.Publisher, importTopic string, logger zerolog.Logger) *PublicHandler {
	if importTopic == "" {
		importTopic = events.TopicContactImport
	}
	return &PublicHandler{
		registry:     registry,
		visitorCards: visitorCards,
		publisher:    publisher,
		importTopic:  importTopic,
		logger:       logger.With().Str("handler", "PublicHandler").Logger(),
	}
}

// ViewPublicCard returns an active card and records the view as a scan.
func (h *PublicHandler) ViewPublicCard(ctx context.Context, input *operation.ViewPublicCardInput) (*operation.ViewPublicCardOutput, error) {
	cards := h.visitorCards()
	card, res := cards.GetCard(ctx, input.CardID)
	if !res.Success {
		return nil, resultError(res)
	}

	meta := model.ScanMeta{Location: input.Location, DeviceInfo: input.UserAgent, Referrer: input.Referer}
	if res := cards.RecordScan(ctx, card.ID, meta); !res.Success {
		h.logger.Warn().Str("error", res.Error).Int64("card_id", card.ID).Msg("Card served without a recorded scan")
		return &operation.ViewPublicCardOutput{Body: *card}, nil
	}
	if owner, ok := h.registry.Get(card.UserID); ok {
		owner.Cards.IncrementScanCount(card.ID)
	}

	// the selection carries the incremented count
	if view := cards.Snapshot().Selected; view != nil {
		return &operation.ViewPublicCardOutput{Body: *view}, nil
	}
	return &operation.ViewPublicCardOutput{Body: *card}, nil
}

// Connect queues a visitor's details for import into the card owner's contacts.
func (h *PublicHandler) Connect(ctx context.Context, input *operation.ConnectInput) (*operation.ConnectOutput, error) {
	name := strings.TrimSpace(input.Body.Name)
	if name == "" {
		return nil, huma.Error400BadRequest((&store.ValidationError{Fields: []string{"name"}}).Error())
	}
	if _, res := h.visitorCards().GetCard(ctx, input.CardID); !res.Success {
		return nil, resultError(res)
	}

	msg := events.ContactImport{
		CardID:      input.CardID,
		Name:        name,
		Email:       strings.TrimSpace(input.Body.Email),
		Phone:       input.Body.Phone,
		Company:     input.Body.Company,
		Position:    input.Body.Position,
		Notes:       input.Body.Notes,
		Location:    input.Body.Location,
		SubmittedAt: time.Now().UTC(),
	}
	id, err := events.PublishJSON(ctx, h.publisher, h.importTopic, msg)
	if errors.Is(err, events.ErrNoBackend) {
		return nil, huma.Error503ServiceUnavailable("Contact import is not available")
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("card_id", input.CardID).Msg("Failed to queue contact import")
		return nil, huma.Error502BadGateway("Failed to queue contact", err)
	}
	h.logger.Info().Int64("card_id", input.CardID).Str("message_id", id).Msg("Contact import queued")
	return &operation.ConnectOutput{Body: dto.ConnectResponseDTO{Queued: true}}, nil
}

func (h *PublicHandler) Health(ctx context.Context, input *operation.HealthInput) (*operation.HealthOutput, error) {
	return &operation.HealthOutput{Body: dto.HealthResponseDTO{Status: http.StatusText(http.StatusOK)}}, nil
}

package handler

import (
	"context"

	"bizcard/internal/api/v1/dto"
	"bizcard/internal/api/v1/operation"
	"bizcard/internal/repository"
	"bizcard/internal/store"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

type CardHandler struct {
	registry *store.Registry
	logger   zerolog.Logger
}

func NewCardHandler(registry *store.Registry, logger zerolog.Logger) *CardHandler {
	return &CardHandler{registry: registry, logger: logger.With().Str("handler", "CardHandler").Logger()}
}

func (h *CardHandler) ListCards(ctx context.Context, input *operation.ListCardsInput) (*operation.ListCardsOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	if res := st.Cards.FetchCards(ctx); !res.Success {
		return nil, resultError(res)
	}
	return &operation.ListCardsOutput{Body: dto.CardListResponseDTO{Cards: st.Cards.Snapshot().Cards}}, nil
}

func (h *CardHandler) GetCardSummary(ctx context.Context, input *operation.GetCardSummaryInput) (*operation.GetCardSummaryOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	if res := st.Cards.FetchCards(ctx); !res.Success {
		return nil, resultError(res)
	}
	cards := st.Cards.Snapshot().Cards
	premium := st.Auth.IsPremium()
	active := 0
	for _, c := range cards {
		if c.IsActive {
			active++
		}
	}
	return &operation.GetCardSummaryOutput{Body: dto.CardSummaryResponseDTO{
		TotalCards:    len(cards),
		ActiveCards:   active,
		TotalScans:    store.TotalScans(cards),
		CardLimit:     store.CardLimit(premium),
		CanCreateCard: store.CanCreateCard(premium, len(cards)),
		IsPremium:     premium,
	}}, nil
}

// GetCard returns one of the caller's cards, inactive ones included, and selects it.
func (h *CardHandler) GetCard(ctx context.Context, input *operation.GetCardInput) (*operation.CardOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	if !st.Cards.SelectCard(input.CardID) {
		if res := st.Cards.FetchCards(ctx); !res.Success {
			return nil, resultError(res)
		}
		if !st.Cards.SelectCard(input.CardID) {
			return nil, huma.Error404NotFound(repository.ErrCardNotFound.Error())
		}
	}
	card, _ := st.Cards.Card(input.CardID)
	return &operation.CardOutput{Body: card}, nil
}

func (h *CardHandler) CreateCard(ctx context.Context, input *operation.CreateCardInput) (*operation.CardOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	// the quota is checked against the local collection, which may never have been loaded
	if res := st.Cards.FetchCards(ctx); !res.Success {
		return nil, resultError(res)
	}
	card, res := st.Cards.CreateCard(ctx, input.Body.Input())
	if !res.Success {
		return nil, resultError(res)
	}
	h.logger.Info().Str("user_id", card.UserID).Int64("card_id", card.ID).Msg("Card created")
	return &operation.CardOutput{Body: *card}, nil
}

func (h *CardHandler) UpdateCard(ctx context.Context, input *operation.UpdateCardInput) (*operation.CardOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	card, res := st.Cards.UpdateCard(ctx, input.CardID, input.Body.Input())
	if !res.Success {
		return nil, resultError(res)
	}
	return &operation.CardOutput{Body: *card}, nil
}

func (h *CardHandler) DeleteCard(ctx context.Context, input *operation.DeleteCardInput) (*operation.DeleteCardOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	if res := st.Cards.DeleteCard(ctx, input.CardID); !res.Success {
		return nil, resultError(res)
	}
	return &operation.DeleteCardOutput{}, nil
}

func (h *CardHandler) ToggleCardStatus(ctx context.Context, input *operation.ToggleCardInput) (*operation.CardOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	card, res := st.Cards.ToggleCardStatus(ctx, input.CardID)
	if !res.Success {
		return nil, resultError(res)
	}
	return &operation.CardOutput{Body: *card}, nil
}

package operation

import (
	"bizcard/internal/api/v1/dto"
	"bizcard/internal/model"
)

type ListCardsInput struct {
	// No input needed - user ID comes from auth context
}

type ListCardsOutput struct {
	Body dto.CardListResponseDTO `json:"body"`
}

type GetCardSummaryInput struct{}

type GetCardSummaryOutput struct {
	Body dto.CardSummaryResponseDTO `json:"body"`
}

type CreateCardInput struct {
	Body dto.CardRequestDTO `json:"body"`
}

type CardOutput struct {
	Body model.Card `json:"body"`
}

type GetCardInput struct {
	CardID int64 `path:"cardId" doc:"Card ID"`
}

type UpdateCardInput struct {
	CardID int64              `path:"cardId" doc:"Card ID"`
	Body   dto.CardRequestDTO `json:"body"`
}

type DeleteCardInput struct {
	CardID int64 `path:"cardId" doc:"Card ID"`
}

type DeleteCardOutput struct {
	// 204 No Content - no body
}

type ToggleCardInput struct {
	CardID int64 `path:"cardId" doc:"Card ID"`
}

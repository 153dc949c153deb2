package operation

import (
	"bizcard/internal/api/v1/dto"
	"bizcard/internal/model"
)

type ViewPublicCardInput struct {
	CardID    int64  `path:"cardId" doc:"Card ID"`
	UserAgent string `header:"User-Agent"`
	Referer   string `header:"Referer"`
	Location  string `header:"X-Visitor-Location" doc:"Coarse visitor location set by the edge"`
}

type ViewPublicCardOutput struct {
	Body model.Card `json:"body"`
}

type ConnectInput struct {
	CardID int64                 `path:"cardId" doc:"Card ID"`
	Body   dto.ConnectRequestDTO `json:"body"`
}

type ConnectOutput struct {
	Body dto.ConnectResponseDTO `json:"body"`
}

type HealthInput struct{}

type HealthOutput struct {
	Body dto.HealthResponseDTO `json:"body"`
}

package dto

// ConnectRequestDTO is a visitor's request to be added to the card owner's contacts
type ConnectRequestDTO struct {
	Name     string  `json:"name,omitempty"`
	Email    string  `json:"email,omitempty"`
	Phone    string  `json:"phone,omitempty"`
	Company  string  `json:"company,omitempty"`
	Position string  `json:"position,omitempty"`
	Notes    string  `json:"notes,omitempty"`
	Location *string `json:"location,omitempty"`
}

type ConnectResponseDTO struct {
	Queued bool `json:"queued"`
}

type WebhookResponseDTO struct {
	Received bool `json:"received"`
}

type HealthResponseDTO struct {
	Status string `json:"status"`
}

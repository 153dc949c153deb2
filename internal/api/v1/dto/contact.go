package dto

import "bizcard/internal/model"

type ContactRequestDTO struct {
	CardID   *int64   `json:"card_id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Company  string   `json:"company,omitempty"`
	Position string   `json:"position,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Location *string  `json:"location,omitempty"`
}

func (d ContactRequestDTO) Input() model.ContactInput {
	return model.ContactInput{
		CardID:   d.CardID,
		Name:     d.Name,
		Email:    d.Email,
		Phone:    d.Phone,
		Company:  d.Company,
		Position: d.Position,
		Notes:    d.Notes,
		Tags:     d.Tags,
		Location: d.Location,
	}
}

// ContactListResponseDTO returns every contact and the subset matching the current filter
type ContactListResponseDTO struct {
	Contacts     []model.Contact `json:"contacts"`
	Filtered     []model.Contact `json:"filtered"`
	SearchQuery  string          `json:"search_query"`
	SelectedTags []string        `json:"selected_tags"`
	AllTags      []string        `json:"all_tags"`
}

type TagsResponseDTO struct {
	Tags []string `json:"tags"`
}

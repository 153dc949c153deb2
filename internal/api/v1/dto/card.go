package dto

import "bizcard/internal/model"

// CardRequestDTO is used for create and update. Required fields are checked by the cards store
// so the error names every missing field at once.
type CardRequestDTO struct {
	FirstName   string             `json:"first_name,omitempty"`
	LastName    string             `json:"last_name,omitempty"`
	Email       string             `json:"email,omitempty"`
	Title       string             `json:"title,omitempty"`
	Industry    string             `json:"industry,omitempty"`
	Bio         string             `json:"bio,omitempty"`
	PhotoURL    string             `json:"photo_url,omitempty"`
	Phone       string             `json:"phone,omitempty"`
	Address     string             `json:"address,omitempty"`
	Template    string             `json:"template,omitempty"`
	SocialLinks map[string]string  `json:"social_links,omitempty"`
	CustomLinks []model.CustomLink `json:"custom_links,omitempty"`
}

func (d CardRequestDTO) Input() model.CardInput {
	return model.CardInput{
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Email:       d.Email,
		Title:       d.Title,
		Industry:    d.Industry,
		Bio:         d.Bio,
		PhotoURL:    d.PhotoURL,
		Phone:       d.Phone,
		Address:     d.Address,
		Template:    d.Template,
		SocialLinks: d.SocialLinks,
		CustomLinks: d.CustomLinks,
	}
}

type CardListResponseDTO struct {
	Cards []model.Card `json:"cards"`
}

type CardSummaryResponseDTO struct {
	TotalCards    int  `json:"total_cards"`
	ActiveCards   int  `json:"active_cards"`
	TotalScans    int  `json:"total_scans"`
	CardLimit     int  `json:"card_limit"`
	CanCreateCard bool `json:"can_create_card"`
	IsPremium     bool `json:"is_premium"`
}

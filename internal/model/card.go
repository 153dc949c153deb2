package model

import "time"

// DefaultTemplate is applied to cards created without a template.
const DefaultTemplate = "modern"

// CustomLink is a user-defined link shown on a card, kept in insertion order.
type CustomLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Card represents one digital business card owned by a single user
type Card struct {
	ID          int64             `json:"id"`
	UserID      string            `json:"user_id"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Title       string            `json:"title"`
	Industry    string            `json:"industry"`
	Bio         string            `json:"bio"`
	PhotoURL    string            `json:"photo_url"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email"`
	Address     string            `json:"address"`
	Template    string            `json:"template"`
	SocialLinks map[string]string `json:"social_links"`
	CustomLinks []CustomLink      `json:"custom_links"`
	IsActive    bool              `json:"is_active"`
	ScanCount   int               `json:"scan_count"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CardInput carries the editable fields of a card.
type CardInput struct {
	FirstName   string            `json:"first_name" validate:"required"`
	LastName    string            `json:"last_name" validate:"required"`
	Email       string            `json:"email" validate:"required"`
	Title       string            `json:"title"`
	Industry    string            `json:"industry"`
	Bio         string            `json:"bio"`
	PhotoURL    string            `json:"photo_url"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	Template    string            `json:"template"`
	SocialLinks map[string]string `json:"social_links"`
	CustomLinks []CustomLink      `json:"custom_links"`
}

// Apply copies the input onto c, filling defaults for empty collections and template.
func (in CardInput) Apply(c *Card) {
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Email = in.Email
	c.Title = in.Title
	c.Industry = in.Industry
	c.Bio = in.Bio
	c.PhotoURL = in.PhotoURL
	c.Phone = in.Phone
	c.Address = in.Address
	c.Template = in.Template
	if c.Template == "" {
		c.Template = DefaultTemplate
	}
	c.SocialLinks = make(map[string]string, len(in.SocialLinks))
	for k, v := range in.SocialLinks {
		c.SocialLinks[k] = v
	}
	c.CustomLinks = append([]CustomLink{}, in.CustomLinks...)
}

// FullName joins first and last name.
func (c Card) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

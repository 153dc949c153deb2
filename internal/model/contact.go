package model

import "time"

// Contact is a networking connection, optionally linked to the card that produced it.
type Contact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CardID    *int64    `json:"card_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Position  string    `json:"position"`
	Notes     string    `json:"notes"`
	Tags      []string  `json:"tags"`
	ScannedAt time.Time `json:"scanned_at"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactInput carries the editable fields of a contact.
// Name is the only required field, matching imports from public cards. Email is checked only when set.
type ContactInput struct {
	CardID   *int64   `json:"card_id,omitempty"`
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Phone    string   `json:"phone"`
	Company  string   `json:"company"`
	Position string   `json:"position"`
	Notes    string   `json:"notes"`
	Tags     []string `json:"tags"`
	Location *string  `json:"location,omitempty"`
}

// Apply copies the input onto c. Tags are de-duplicated preserving first occurrence.
func (in ContactInput) Apply(c *Contact) {
	c.CardID = in.CardID
	c.Name = in.Name
	c.Email = in.Email
	c.Phone = in.Phone
	c.Company = in.Company
	c.Position = in.Position
	c.Notes = in.Notes
	c.Tags = UniqueTags(in.Tags)
	c.Location = in.Location
}

// UniqueTags drops empty and repeated tags, keeping the first occurrence of each.
func UniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

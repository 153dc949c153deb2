package mapper

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bizcard/internal/model"
)

// CardColumns is the column list matching the field order of CardRow.Scan targets.
const CardColumns = `id, user_id, first_name, last_name, title, industry, bio, photo_url, phone, email,
address, template, social_links, custom_links, is_active, scan_count, created_at, updated_at`

// CardRow is the wire representation of a row in the cards table.
type CardRow struct {
	ID          int64
	UserID      string
	FirstName   string
	LastName    string
	Title       sql.NullString
	Industry    sql.NullString
	Bio         sql.NullString
	PhotoURL    sql.NullString
	Phone       sql.NullString
	Email       string
	Address     sql.NullString
	Template    sql.NullString
	SocialLinks []byte
	CustomLinks []byte
	IsActive    sql.NullBool
	ScanCount   sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScanTargets returns pointers in CardColumns order.
func (r *CardRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.UserID, &r.FirstName, &r.LastName, &r.Title, &r.Industry, &r.Bio, &r.PhotoURL,
		&r.Phone, &r.Email, &r.Address, &r.Template, &r.SocialLinks, &r.CustomLinks, &r.IsActive,
		&r.ScanCount, &r.CreatedAt, &r.UpdatedAt,
	}
}

// CardFromRow maps a cards row to the local model, defaulting null columns.
func CardFromRow(r CardRow) (model.Card, error) {
	c := model.Card{
		ID:          r.ID,
		UserID:      r.UserID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Title:       r.Title.String,
		Industry:    r.Industry.String,
		Bio:         r.Bio.String,
		PhotoURL:    r.PhotoURL.String,
		Phone:       r.Phone.String,
		Email:       r.Email,
		Address:     r.Address.String,
		Template:    r.Template.String,
		SocialLinks: map[string]string{},
		CustomLinks: []model.CustomLink{},
		IsActive:    !r.IsActive.Valid || r.IsActive.Bool,
		ScanCount:   int(r.ScanCount.Int64),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if c.Template == "" {
		c.Template = model.DefaultTemplate
	}
	if err := decodeJSON(r.SocialLinks, &c.SocialLinks); err != nil {
		return model.Card{}, fmt.Errorf("card %d social_links: %w", r.ID, err)
	}
	if err := decodeJSON(r.CustomLinks, &c.CustomLinks); err != nil {
		return model.Card{}, fmt.Errorf("card %d custom_links: %w", r.ID, err)
	}
	if c.SocialLinks == nil {
		c.SocialLinks = map[string]string{}
	}
	if c.CustomLinks == nil {
		c.CustomLinks = []model.CustomLink{}
	}
	return c, nil
}

// CardToRow maps the local model back to its row representation.
func CardToRow(c model.Card) (CardRow, error) {
	social := c.SocialLinks
	if social == nil {
		social = map[string]string{}
	}
	custom := c.CustomLinks
	if custom == nil {
		custom = []model.CustomLink{}
	}
	socialJSON, err := json.Marshal(social)
	if err != nil {
		return CardRow{}, err
	}
	customJSON, err := json.Marshal(custom)
	if err != nil {
		return CardRow{}, err
	}
	template := c.Template
	if template == "" {
		template = model.DefaultTemplate
	}
	return CardRow{
		ID:          c.ID,
		UserID:      c.UserID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Title:       nullString(c.Title),
		Industry:    nullString(c.Industry),
		Bio:         nullString(c.Bio),
		PhotoURL:    nullString(c.PhotoURL),
		Phone:       nullString(c.Phone),
		Email:       c.Email,
		Address:     nullString(c.Address),
		Template:    nullString(template),
		SocialLinks: socialJSON,
		CustomLinks: customJSON,
		IsActive:    sql.NullBool{Bool: c.IsActive, Valid: true},
		ScanCount:   sql.NullInt64{Int64: int64(c.ScanCount), Valid: true},
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}, nil
}

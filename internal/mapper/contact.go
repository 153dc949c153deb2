package mapper

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bizcard/internal/model"
)

// ContactColumns is the column list matching ContactRow.ScanTargets.
const ContactColumns = `id, user_id, card_id, name, email, phone, company, position, notes, tags,
scanned_at, location, created_at, updated_at`

// ContactRow is the wire representation of a row in the contacts table.
type ContactRow struct {
	ID        string
	UserID    string
	CardID    sql.NullInt64
	Name      string
	Email     sql.NullString
	Phone     sql.NullString
	Company   sql.NullString
	Position  sql.NullString
	Notes     sql.NullString
	Tags      []byte
	ScannedAt time.Time
	Location  sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScanTargets returns pointers in ContactColumns order.
func (r *ContactRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.UserID, &r.CardID, &r.Name, &r.Email, &r.Phone, &r.Company, &r.Position,
		&r.Notes, &r.Tags, &r.ScannedAt, &r.Location, &r.CreatedAt, &r.UpdatedAt,
	}
}

// ContactFromRow maps a contacts row to the local model.
func ContactFromRow(r ContactRow) (model.Contact, error) {
	c := model.Contact{
		ID:        r.ID,
		UserID:    r.UserID,
		CardID:    int64Ptr(r.CardID),
		Name:      r.Name,
		Email:     r.Email.String,
		Phone:     r.Phone.String,
		Company:   r.Company.String,
		Position:  r.Position.String,
		Notes:     r.Notes.String,
		Tags:      []string{},
		ScannedAt: r.ScannedAt,
		Location:  stringPtr(r.Location),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := decodeJSON(r.Tags, &c.Tags); err != nil {
		return model.Contact{}, fmt.Errorf("contact %s tags: %w", r.ID, err)
	}
	c.Tags = model.UniqueTags(c.Tags)
	return c, nil
}

// ContactToRow maps the local model back to its row representation.
func ContactToRow(c model.Contact) (ContactRow, error) {
	tags, err := json.Marshal(model.UniqueTags(c.Tags))
	if err != nil {
		return ContactRow{}, err
	}
	return ContactRow{
		ID:        c.ID,
		UserID:    c.UserID,
		CardID:    nullInt64Ptr(c.CardID),
		Name:      c.Name,
		Email:     nullString(c.Email),
		Phone:     nullString(c.Phone),
		Company:   nullString(c.Company),
		Position:  nullString(c.Position),
		Notes:     nullString(c.Notes),
		Tags:      tags,
		ScannedAt: c.ScannedAt,
		Location:  nullStringPtr(c.Location),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

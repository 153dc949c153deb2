package repository

import (
	"context"
	"database/sql"
	"errors"

	"bizcard/internal/mapper"
	"bizcard/internal/model"
)

// ContactRepository defines contact persistence. Mutations are owner-scoped.
type ContactRepository interface {
	// ListByUser returns the user's contacts, most recently scanned first
	ListByUser(ctx context.Context, userID string) ([]model.Contact, error)
	Create(ctx context.Context, c *model.Contact) (*model.Contact, error)
	Update(ctx context.Context, c *model.Contact) (*model.Contact, error)
	Delete(ctx context.Context, id, userID string) error
}

type contactRepo struct {
	db DBTX
}

func NewContactRepo(db DBTX) ContactRepository {
	return &contactRepo{db: db}
}

func (r *contactRepo) ListByUser(ctx context.Context, userID string) ([]model.Contact, error) {
	query := `
		SELECT ` + mapper.ContactColumns + `
		FROM contacts
		WHERE user_id = $1
		ORDER BY scanned_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var cr mapper.ContactRow
		if err := rows.Scan(cr.ScanTargets()...); err != nil {
			return nil, err
		}
		c, err := mapper.ContactFromRow(cr)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepo) Create(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	row, err := mapper.ContactToRow(*c)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO contacts (id, user_id, card_id, name, email, phone, company, position, notes, tags,
		                      scanned_at, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)
		RETURNING ` + mapper.ContactColumns
	return r.scanOne(r.db.QueryRowContext(ctx, query,
		row.ID, row.UserID, row.CardID, row.Name, row.Email, row.Phone, row.Company, row.Position,
		row.Notes, string(row.Tags), row.ScannedAt, row.Location,
	))
}

func (r *contactRepo) Update(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	row, err := mapper.ContactToRow(*c)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE contacts
		SET card_id = $1, name = $2, email = $3, phone = $4, company = $5, position = $6, notes = $7,
		    tags = $8::jsonb, location = $9, updated_at = NOW()
		WHERE id = $10 AND user_id = $11
		RETURNING ` + mapper.ContactColumns
	return r.scanOne(r.db.QueryRowContext(ctx, query,
		row.CardID, row.Name, row.Email, row.Phone, row.Company, row.Position, row.Notes,
		string(row.Tags), row.Location, row.ID, row.UserID,
	))
}

func (r *contactRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrContactNotFound)
}

func (r *contactRepo) scanOne(row *sql.Row) (*model.Contact, error) {
	var cr mapper.ContactRow
	if err := row.Scan(cr.ScanTargets()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	c, err := mapper.ContactFromRow(cr)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

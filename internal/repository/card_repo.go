package repository

import (
	"context"
	"database/sql"
	"errors"

	"bizcard/internal/mapper"
	"bizcard/internal/model"
)

// CardRepository defines the interface for interacting with card data.
// Every mutation is scoped by both card id and owning user id.
type CardRepository interface {
	// ListByUser returns the user's cards, newest first
	ListByUser(ctx context.Context, userID string) ([]model.Card, error)
	Create(ctx context.Context, c *model.Card) (*model.Card, error)
	Update(ctx context.Context, c *model.Card) (*model.Card, error)
	Delete(ctx context.Context, id int64, userID string) error
	// GetActiveByID is the public read path; inactive cards are reported as not found
	GetActiveByID(ctx context.Context, id int64) (*model.Card, error)
	ToggleActive(ctx context.Context, id int64, userID string) (*model.Card, error)
	// RecomputeScanCount rewrites scan_count from the scans table and returns the new value
	RecomputeScanCount(ctx context.Context, id int64) (int, error)
}

type cardRepo struct {
	db DBTX
}

// NewCardRepo creates a new CardRepository
func NewCardRepo(db DBTX) CardRepository {
	return &cardRepo{db: db}
}

func (r *cardRepo) ListByUser(ctx context.Context, userID string) ([]model.Card, error) {
	query := `
		SELECT ` + mapper.CardColumns + `
		FROM cards
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []model.Card{}
	for rows.Next() {
		var cr mapper.CardRow
		if err := rows.Scan(cr.ScanTargets()...); err != nil {
			return nil, err
		}
		card, err := mapper.CardFromRow(cr)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *cardRepo) Create(ctx context.Context, c *model.Card) (*model.Card, error) {
	row, err := mapper.CardToRow(*c)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO cards (user_id, first_name, last_name, title, industry, bio, photo_url, phone, email,
		                   address, template, social_links, custom_links, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13::jsonb, $14)
		RETURNING ` + mapper.CardColumns
	return r.scanOne(r.db.QueryRowContext(ctx, query,
		row.UserID, row.FirstName, row.LastName, row.Title, row.Industry, row.Bio, row.PhotoURL,
		row.Phone, row.Email, row.Address, row.Template, string(row.SocialLinks), string(row.CustomLinks),
		row.IsActive,
	))
}

func (r *cardRepo) Update(ctx context.Context, c *model.Card) (*model.Card, error) {
	row, err := mapper.CardToRow(*c)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE cards
		SET first_name = $1, last_name = $2, title = $3, industry = $4, bio = $5, photo_url = $6,
		    phone = $7, email = $8, address = $9, template = $10, social_links = $11::jsonb,
		    custom_links = $12::jsonb, updated_at = NOW()
		WHERE id = $13 AND user_id = $14
		RETURNING ` + mapper.CardColumns
	return r.scanOne(r.db.QueryRowContext(ctx, query,
		row.FirstName, row.LastName, row.Title, row.Industry, row.Bio, row.PhotoURL, row.Phone,
		row.Email, row.Address, row.Template, string(row.SocialLinks), string(row.CustomLinks),
		row.ID, row.UserID,
	))
}

func (r *cardRepo) Delete(ctx context.Context, id int64, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrCardNotFound)
}

func (r *cardRepo) GetActiveByID(ctx context.Context, id int64) (*model.Card, error) {
	query := `SELECT ` + mapper.CardColumns + ` FROM cards WHERE id = $1 AND is_active = TRUE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *cardRepo) ToggleActive(ctx context.Context, id int64, userID string) (*model.Card, error) {
	query := `
		UPDATE cards SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + mapper.CardColumns
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *cardRepo) RecomputeScanCount(ctx context.Context, id int64) (int, error) {
	query := `
		UPDATE cards SET scan_count = (SELECT COUNT(*) FROM scans WHERE card_id = $1)
		WHERE id = $1
		RETURNING scan_count
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrCardNotFound
		}
		return 0, err
	}
	return count, nil
}

func (r *cardRepo) scanOne(row *sql.Row) (*model.Card, error) {
	var cr mapper.CardRow
	if err := row.Scan(cr.ScanTargets()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	card, err := mapper.CardFromRow(cr)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

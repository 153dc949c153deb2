package repository

import (
	"context"
	"database/sql"
	"errors"

	"bizcard/internal/mapper"
	"bizcard/internal/model"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// Create inserts the profile, or returns the existing row when one is already present.
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)
	UpdatePremium(ctx context.Context, id string, isPremium bool) error
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) error
	UpdateStripeCustomerID(ctx context.Context, id, customerID string) error
	GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error)
}

type profileRepo struct {
	db DBTX
}

func NewProfileRepo(db DBTX) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT ` + mapper.ProfileColumns + ` FROM profiles WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *profileRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error) {
	query := `SELECT ` + mapper.ProfileColumns + ` FROM profiles WHERE stripe_customer_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, customerID))
}

func (r *profileRepo) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	row := mapper.ProfileToRow(*p)
	query := `INSERT INTO profiles (id, email, full_name, avatar_url, is_premium)
              VALUES ($1, $2, $3, $4, $5)
              ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
              RETURNING ` + mapper.ProfileColumns
	var out mapper.ProfileRow
	err := r.db.QueryRowContext(ctx, query, row.ID, row.Email, row.FullName, row.AvatarURL, row.IsPremium).
		Scan(out.ScanTargets()...)
	if err != nil {
		return nil, err
	}
	created := mapper.ProfileFromRow(out)
	return &created, nil
}

func (r *profileRepo) UpdatePremium(ctx context.Context, id string, isPremium bool) error {
	query := `INSERT INTO profiles (id, is_premium) VALUES ($1, $2)
              ON CONFLICT (id) DO UPDATE SET is_premium = EXCLUDED.is_premium, updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, id, isPremium)
	return err
}

func (r *profileRepo) UpdateAvatarURL(ctx context.Context, id, avatarURL string) error {
	query := `UPDATE profiles SET avatar_url = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, avatarURL, id)
	return err
}

func (r *profileRepo) UpdateStripeCustomerID(ctx context.Context, id, customerID string) error {
	query := `UPDATE profiles SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, customerID, id)
	return err
}

func (r *profileRepo) scanOne(row *sql.Row) (*model.Profile, error) {
	var pr mapper.ProfileRow
	if err := row.Scan(pr.ScanTargets()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p := mapper.ProfileFromRow(pr)
	return &p, nil
}

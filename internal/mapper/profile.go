package mapper

import (
	"database/sql"
	"time"

	"bizcard/internal/model"
)

// ProfileColumns is the column list matching ProfileRow.ScanTargets.
const ProfileColumns = `id, email, full_name, avatar_url, is_premium, stripe_customer_id, created_at, updated_at`

// ProfileRow is the wire representation of a row in the profiles table.
type ProfileRow struct {
	ID               string
	Email            sql.NullString
	FullName         sql.NullString
	AvatarURL        sql.NullString
	IsPremium        sql.NullBool
	StripeCustomerID sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ScanTargets returns pointers in ProfileColumns order.
func (r *ProfileRow) ScanTargets() []any {
	return []any{&r.ID, &r.Email, &r.FullName, &r.AvatarURL, &r.IsPremium, &r.StripeCustomerID, &r.CreatedAt, &r.UpdatedAt}
}

func ProfileFromRow(r ProfileRow) model.Profile {
	return model.Profile{
		ID:               r.ID,
		Email:            r.Email.String,
		FullName:         r.FullName.String,
		AvatarURL:        r.AvatarURL.String,
		IsPremium:        r.IsPremium.Valid && r.IsPremium.Bool,
		StripeCustomerID: stringPtr(r.StripeCustomerID),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func ProfileToRow(p model.Profile) ProfileRow {
	return ProfileRow{
		ID:               p.ID,
		Email:            nullString(p.Email),
		FullName:         nullString(p.FullName),
		AvatarURL:        nullString(p.AvatarURL),
		IsPremium:        sql.NullBool{Bool: p.IsPremium, Valid: true},
		StripeCustomerID: nullStringPtr(p.StripeCustomerID),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

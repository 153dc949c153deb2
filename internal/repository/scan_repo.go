package repository

import (
	"context"

	"bizcard/internal/mapper"
	"bizcard/internal/model"
)

// ScanRepository is append-only: scans are never updated or deleted by the application.
type ScanRepository interface {
	Create(ctx context.Context, s *model.Scan) error
}

type scanRepo struct {
	db DBTX
}

func NewScanRepo(db DBTX) ScanRepository {
	return &scanRepo{db: db}
}

func (r *scanRepo) Create(ctx context.Context, s *model.Scan) error {
	row := mapper.ScanToRow(*s)
	query := `
		INSERT INTO scans (card_id, scanned_at, location, device_info, referrer)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query, row.CardID, row.ScannedAt, row.Location, row.DeviceInfo, row.Referrer).
		Scan(&s.ID)
}

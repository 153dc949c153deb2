package mapper

import (
	"database/sql"
	"time"

	"bizcard/internal/model"
)

// ScanRow is the wire representation of a row in the scans table.
type ScanRow struct {
	ID         int64
	CardID     int64
	ScannedAt  time.Time
	Location   sql.NullString
	DeviceInfo sql.NullString
	Referrer   sql.NullString
}

func ScanToRow(s model.Scan) ScanRow {
	return ScanRow{
		ID:         s.ID,
		CardID:     s.CardID,
		ScannedAt:  s.ScannedAt,
		Location:   nullString(s.Location),
		DeviceInfo: nullString(s.DeviceInfo),
		Referrer:   nullString(s.Referrer),
	}
}

func ScanFromRow(r ScanRow) model.Scan {
	return model.Scan{
		ID:         r.ID,
		CardID:     r.CardID,
		ScannedAt:  r.ScannedAt,
		Location:   r.Location.String,
		DeviceInfo: r.DeviceInfo.String,
		Referrer:   r.Referrer.String,
	}
}

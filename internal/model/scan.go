package model

import "time"

// Scan is an append-only record of one view of a public card.
type Scan struct {
	ID         int64     `json:"id"`
	CardID     int64     `json:"card_id"`
	ScannedAt  time.Time `json:"scanned_at"`
	Location   string    `json:"location"`
	DeviceInfo string    `json:"device_info"`
	Referrer   string    `json:"referrer"`
}

// ScanMeta is the viewer information recorded with a scan
type ScanMeta struct {
	Location   string `json:"location"`
	DeviceInfo string `json:"device_info"`
	Referrer   string `json:"referrer"`
}

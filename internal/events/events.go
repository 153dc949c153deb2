// Package events defines the payloads exchanged between the API and the queue workers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Default topic names. They double as pgmq queue names, so they must be valid identifiers.
const (
	TopicCardScanned   = "card_scanned"
	TopicContactImport = "contact_import"
)

// Publisher delivers a payload to a topic and returns the backend's message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// ScanEvent is published after a scan row was written.
type ScanEvent struct {
	CardID     int64     `json:"card_id"`
	ScanID     int64     `json:"scan_id"`
	ScannedAt  time.Time `json:"scanned_at"`
	Location   string    `json:"location,omitempty"`
	DeviceInfo string    `json:"device_info,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
}

// ContactImport is a visitor's "connect" submission from a public card.
type ContactImport struct {
	CardID      int64     `json:"card_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Company     string    `json:"company,omitempty"`
	Position    string    `json:"position,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Location    *string   `json:"location,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PublishJSON marshals v and publishes it on topic.
func PublishJSON(ctx context.Context, p Publisher, topic string, v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", topic, err)
	}
	return p.Publish(ctx, topic, payload)
}

// ErrNoBackend is returned by Nop. Nothing consumes the topic, so the message is gone.
var ErrNoBackend = errors.New("no event backend configured")

// Nop drops every message. It is used when no event backend is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) (string, error) {
	return "", ErrNoBackend
}

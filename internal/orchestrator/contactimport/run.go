// Package contactimport turns "connect" submissions on public cards into contacts of the card owner.
package contactimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bizcard/internal/config"
	"bizcard/internal/events"
	"bizcard/internal/model"
	"bizcard/internal/orchestrator"
	"bizcard/internal/pgmq"
	"bizcard/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// TagScanned marks contacts created from a public card.
const TagScanned = "scanned"

// namespace for contact ids derived from queue message ids
var importNamespace = uuid.MustParse("8f0c8f5e-3f43-4f3a-9a53-3b1f3c7e2d10")

// ContactID is stable for a message, so a redelivered message cannot create a second contact.
// key is the backend's message id: the pgmq msg_id or the Pub/Sub message ID.
func ContactID(queue, key string) string {
	return uuid.NewSHA1(importNamespace, []byte(queue+":"+key)).String()
}

type Processor struct {
	Cards    repository.CardRepository
	Contacts repository.ContactRepository
	Queue    string
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Process handles one pgmq message.
func (p *Processor) Process(ctx context.Context, msg *pgmq.Message) error {
	return p.Handle(ctx, strconv.FormatInt(msg.ID, 10), msg.Data)
}

// Handle imports one submission. key identifies the delivery for idempotency.
func (p *Processor) Handle(ctx context.Context, key string, data []byte) error {
	var in events.ContactImport
	if err := json.Unmarshal(data, &in); err != nil {
		return orchestrator.Permanent(fmt.Errorf("invalid contact import: %w", err))
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.CardID == 0 || in.Name == "" {
		return orchestrator.Permanent(errors.New("contact import requires card_id and name"))
	}

	card, err := p.Cards.GetActiveByID(ctx, in.CardID)
	if errors.Is(err, repository.ErrCardNotFound) {
		return orchestrator.Permanent(err)
	}
	if err != nil {
		return err
	}

	scannedAt := in.SubmittedAt
	if scannedAt.IsZero() {
		scannedAt = p.Now()
	}
	cardID := card.ID
	contact := &model.Contact{
		ID:        ContactID(p.Queue, key),
		UserID:    card.UserID,
		CardID:    &cardID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		Position:  in.Position,
		Notes:     in.Notes,
		Tags:      []string{TagScanned},
		ScannedAt: scannedAt.UTC(),
		Location:  in.Location,
	}
	if _, err := p.Contacts.Create(ctx, contact); err != nil {
		if isUniqueViolation(err) {
			p.Logger.Info().Str("msg_id", key).Msg("Contact already imported")
			return nil
		}
		return err
	}
	p.Logger.Info().Int64("card_id", card.ID).Str("user_id", card.UserID).Msg("Contact imported")
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Run starts the contact import orchestrator.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, cards repository.CardRepository, contacts repository.ContactRepository, cfg config.Worker) error {
	p := NewProcessor(logger, cards, contacts, cfg)
	return orchestrator.NewConsumer("contact-import", client, cfg, p.Process, logger).Run(ctx)
}

// NewProcessor builds a processor for cfg's queue.
func NewProcessor(logger zerolog.Logger, cards repository.CardRepository, contacts repository.ContactRepository, cfg config.Worker) *Processor {
	return &Processor{
		Cards:    cards,
		Contacts: contacts,
		Queue:    cfg.Queue,
		Logger:   logger.With().Str("service", "ContactImport").Logger(),
		Now:      time.Now,
	}
}

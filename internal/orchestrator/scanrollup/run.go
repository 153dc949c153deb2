// Package scanrollup keeps cards.scan_count equal to the number of recorded scans.
package scanrollup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bizcard/internal/config"
	"bizcard/internal/events"
	"bizcard/internal/orchestrator"
	"bizcard/internal/pgmq"
	"bizcard/internal/repository"

	"github.com/rs/zerolog"
)

// Process recomputes the authoritative scan count of the card named in the event.
func Process(ctx context.Context, cards repository.CardRepository, logger zerolog.Logger, msg *pgmq.Message) error {
	return Handle(ctx, cards, logger, msg.Data)
}

// Handle is Process for a raw event payload.
func Handle(ctx context.Context, cards repository.CardRepository, logger zerolog.Logger, data []byte) error {
	var ev events.ScanEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return orchestrator.Permanent(fmt.Errorf("invalid scan event: %w", err))
	}
	if ev.CardID == 0 {
		return orchestrator.Permanent(errors.New("scan event without card_id"))
	}
	count, err := cards.RecomputeScanCount(ctx, ev.CardID)
	if errors.Is(err, repository.ErrCardNotFound) {
		// card was deleted after the scan; its scans went with it
		logger.Info().Int64("card_id", ev.CardID).Msg("Card no longer exists, skipping rollup")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Debug().Int64("card_id", ev.CardID).Int("scan_count", count).Msg("Scan count recomputed")
	return nil
}

// Run starts the scan rollup orchestrator.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, cards repository.CardRepository, cfg config.Worker) error {
	log := logger.With().Str("service", "ScanRollup").Logger()
	c := orchestrator.NewConsumer("scan-rollup", client, cfg, func(ctx context.Context, msg *pgmq.Message) error {
		return Process(ctx, cards, log, msg)
	}, logger)
	return c.Run(ctx)
}

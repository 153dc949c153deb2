// Package orchestrator runs the queue consumers that keep derived data in sync.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bizcard/internal/config"
	"bizcard/internal/pgmq"

	"github.com/rs/zerolog"
)

// Queue is the subset of the pgmq client a consumer needs.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, timeoutSec int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgID int64) error
	Send(ctx context.Context, queue string, payload []byte) (int64, error)
}

// Handler processes one message. Returning a permanent error skips the remaining retries.
type Handler func(ctx context.Context, msg *pgmq.Message) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// DeadLetter is the envelope written to a dead-letter queue.
type DeadLetter struct {
	Queue     string          `json:"queue"`
	MsgID     int64           `json:"msg_id,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error"`
	Payload   json.RawMessage `json:"payload"`
	FailedAt  time.Time       `json:"failed_at"`
}

// Consumer polls one queue and applies Handler with retries and exponential backoff.
type Consumer struct {
	Name    string
	Queue   Queue
	Config  config.Worker
	Handler Handler
	Logger  zerolog.Logger

	// sleep is swapped in tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewConsumer(name string, q Queue, cfg config.Worker, h Handler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		Name:    name,
		Queue:   q,
		Config:  cfg,
		Handler: h,
		Logger:  logger.With().Str("service", name).Str("queue", cfg.Queue).Logger(),
		sleep:   sleepCtx,
		now:     time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.Logger.Info().Msgf("Starting %s orchestrator", c.Name)
	for {
		select {
		case <-ctx.Done():
			c.Logger.Info().Msgf("Shutting down %s orchestrator", c.Name)
			return nil
		default:
		}
		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.Logger.Error().Err(err).Msg("Error reading queue")
			_ = c.sleep(ctx, time.Second)
		}
	}
}

// visibility keeps a message hidden for the whole retry window of one attempt cycle.
func (c *Consumer) visibility() int {
	v := int(c.Config.BackoffMax.Seconds())*c.Config.MaxRetries + c.Config.PollTimeoutSec
	if v < 30 {
		v = 30
	}
	return v
}

// Poll reads one batch and processes it. It returns the number of messages read.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	msgs, err := c.Queue.ReadWithPoll(ctx, c.Config.Queue, c.visibility(), c.Config.PollMaxMsg, c.Config.PollTimeoutSec)
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		c.process(ctx, msg)
	}
	return len(msgs), nil
}

func (c *Consumer) process(ctx context.Context, msg *pgmq.Message) {
	log := c.Logger.With().Int64("msg_id", msg.ID).Logger()
	log.Debug().Msgf("Received job: %s", string(msg.Data))

	maxRetries := c.Config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	backoff := c.Config.BackoffInitial

	var err error
	attempt := 0
	for attempt < maxRetries {
		attempt++
		err = c.Handler(ctx, msg)
		if err == nil || IsPermanent(err) {
			break
		}
		log.Error().Err(err).Int("attempt", attempt).Msg("Job failed, retrying")
		if attempt == maxRetries {
			break
		}
		if sleepErr := c.sleep(ctx, backoff); sleepErr != nil {
			// shutting down; the message becomes visible again after its timeout
			return
		}
		backoff *= 2
		if backoff > c.Config.BackoffMax {
			backoff = c.Config.BackoffMax
		}
	}

	if err != nil {
		if !c.deadLetter(ctx, msg, attempt, err) {
			// left on the queue; it becomes visible again after its timeout
			return
		}
		log.Warn().Int("attempts", attempt).Err(err).Msg("Exhausted retries; moving job to DLQ")
	}

	// Acknowledge (delete) the original message so it won't retry
	if err := c.Queue.Delete(ctx, c.Config.Queue, msg.ID); err != nil {
		log.Error().Err(err).Msg("Error deleting message")
	}
}

// deadLetter reports whether the original message may be deleted.
func (c *Consumer) deadLetter(ctx context.Context, msg *pgmq.Message, attempts int, cause error) bool {
	if c.Config.DeadLetter == "" {
		return true
	}
	payload := json.RawMessage(msg.Data)
	if !json.Valid(payload) {
		b, _ := json.Marshal(string(msg.Data))
		payload = b
	}
	body, err := json.Marshal(DeadLetter{
		Queue:    c.Config.Queue,
		MsgID:    msg.ID,
		Attempts: attempts,
		Error:    cause.Error(),
		Payload:  payload,
		FailedAt: c.now().UTC(),
	})
	if err != nil {
		c.Logger.Error().Err(err).Msg("Failed to marshal payload for dead-letter queue")
		return true
	}
	if _, err := c.Queue.Send(ctx, c.Config.DeadLetter, body); err != nil {
		c.Logger.Error().Err(err).Str("dlq", c.Config.DeadLetter).Msg("Failed to send message to dead-letter queue")
		return false
	}
	return true
}

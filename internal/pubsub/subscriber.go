package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bizcard/internal/config"
	"bizcard/internal/events"
	"bizcard/internal/orchestrator"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// HandlerFunc processes one delivery. id is the Pub/Sub message ID.
type HandlerFunc func(ctx context.Context, id string, data []byte) error

// Subscription is the part of *pubsub.Subscription a Subscriber uses.
type Subscription interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Subscriber pulls the "<queue>-sub" subscription of a worker and acks or nacks
// each message by the handler's result. Retryable failures are nacked so that the
// subscription's retry and dead-letter policies apply; permanent failures are
// forwarded to the dead-letter topic right away.
type Subscriber struct {
	Name       string
	Sub        Subscription
	DeadLetter events.Publisher
	Config     config.Worker
	Handler    HandlerFunc
	Logger     zerolog.Logger

	now    func() time.Time
	client *pubsub.Client
}

// NewSubscriber connects to the project in cfg and binds the worker's subscription.
func NewSubscriber(ctx context.Context, cfg *config.Config, name string, w config.Worker, h HandlerFunc, logger zerolog.Logger) (*Subscriber, error) {
	pub, err := NewPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sub := pub.client.Subscription(w.Queue + "-sub")
	sub.ReceiveSettings.MaxOutstandingMessages = max(w.PollMaxMsg, 1)
	s := newSubscriber(name, sub, pub, w, h, logger)
	s.client = pub.client
	return s, nil
}

func newSubscriber(name string, sub Subscription, dlq events.Publisher, w config.Worker, h HandlerFunc, logger zerolog.Logger) *Subscriber {
	return &Subscriber{
		Name:       name,
		Sub:        sub,
		DeadLetter: dlq,
		Config:     w,
		Handler:    h,
		Logger:     logger.With().Str("service", name).Str("subscription", w.Queue+"-sub").Logger(),
		now:        time.Now,
	}
}

// Run receives until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	s.Logger.Info().Msgf("Starting %s orchestrator", s.Name)
	err := s.Sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		if s.settle(ctx, m.ID, m.Data, deliveryAttempt(m)) {
			m.Ack()
		} else {
			m.Nack()
		}
	})
	if ctx.Err() != nil {
		s.Logger.Info().Msgf("Shutting down %s orchestrator", s.Name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("receive from %s-sub: %w", s.Config.Queue, err)
	}
	return nil
}

// Close releases the client opened by NewSubscriber.
func (s *Subscriber) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func deliveryAttempt(m *pubsub.Message) int {
	if m.DeliveryAttempt == nil {
		return 1
	}
	return *m.DeliveryAttempt
}

// settle reports whether the message should be acked.
func (s *Subscriber) settle(ctx context.Context, id string, data []byte, attempt int) bool {
	log := s.Logger.With().Str("msg_id", id).Int("attempt", attempt).Logger()
	log.Debug().Msgf("Received job: %s", string(data))

	err := s.Handler(ctx, id, data)
	if err == nil {
		return true
	}
	if !orchestrator.IsPermanent(err) {
		log.Error().Err(err).Msg("Job failed, leaving it for redelivery")
		return false
	}
	if s.Config.DeadLetter == "" || s.DeadLetter == nil {
		log.Warn().Err(err).Msg("Dropping job that cannot succeed")
		return true
	}

	payload := json.RawMessage(data)
	if !json.Valid(payload) {
		b, _ := json.Marshal(string(data))
		payload = b
	}
	if _, perr := events.PublishJSON(ctx, s.DeadLetter, s.Config.DeadLetter, orchestrator.DeadLetter{
		Queue:     s.Config.Queue,
		MessageID: id,
		Attempts:  attempt,
		Error:     err.Error(),
		Payload:   payload,
		FailedAt:  s.now().UTC(),
	}); perr != nil {
		log.Error().Err(perr).Str("dlq", s.Config.DeadLetter).Msg("Failed to send message to dead-letter topic")
		return false
	}
	log.Warn().Err(err).Msg("Moved job to DLQ")
	return true
}

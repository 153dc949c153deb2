package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bizcard/internal/config"
	"bizcard/internal/model"
	"bizcard/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrBillingNotConfigured = errors.New("billing is not configured")
	ErrInvalidSignature     = errors.New("signature verification failed")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrNoStripeCustomer     = errors.New("no billing account for user")
	ErrProfileNotFound      = errors.New("profile not found")
)

// stripeAPI holds the Stripe calls so tests can replace them.
type stripeAPI struct {
	newCustomer func(*stripe.CustomerParams) (*stripe.Customer, error)
	newCheckout func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	newPortal   func(*stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

// StripeService manages Stripe integration
type StripeService struct {
	cfg          *config.Config
	profiles     repository.ProfileRepository
	entitlements EntitlementService
	api          stripeAPI
	logger       zerolog.Logger
}

// NewStripeService initializes Stripe key and returns service with a scoped logger
func NewStripeService(cfg *config.Config, profiles repository.ProfileRepository, entitlements EntitlementService, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{
		cfg:          cfg,
		profiles:     profiles,
		entitlements: entitlements,
		api: stripeAPI{
			newCustomer: customerpkg.New,
			newCheckout: checkoutsession.New,
			newPortal:   billingsession.New,
		},
		logger: lg,
	}
}

// getUserIDFromEvent resolves the user from webhook metadata or the customer id
func (s *StripeService) getUserIDFromEvent(ctx context.Context, metadata map[string]string, customerID string) (string, error) {
	if userID, ok := metadata["user_id"]; ok && userID != "" {
		return userID, nil
	}
	if customerID == "" {
		return "", errors.New("cannot determine user: missing metadata and customer id")
	}
	s.logger.Warn().Str("stripe_customer_id", customerID).Msg("Missing user_id metadata; looking up user by customer ID")
	p, err := s.profiles.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("failed to lookup user by Stripe customer ID: %w", err)
	}
	if p == nil {
		return "", fmt.Errorf("no user found for customer ID: %s", customerID)
	}
	return p.ID, nil
}

// GetOrCreateCustomer ensures a Stripe Customer exists for the profile
func (s *StripeService) GetOrCreateCustomer(ctx context.Context, p *model.Profile) (string, error) {
	if p.StripeCustomerID != nil && *p.StripeCustomerID != "" {
		return *p.StripeCustomerID, nil
	}
	params := &stripe.CustomerParams{
		Email:    stripe.String(p.Email),
		Name:     stripe.String(p.FullName),
		Metadata: map[string]string{"user_id": p.ID},
	}
	cust, err := s.api.newCustomer(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", p.ID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.profiles.UpdateStripeCustomerID(ctx, p.ID, cust.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", p.ID).Msg("Failed to store stripe customer id on profile")
		return "", fmt.Errorf("store stripe customer id: %w", err)
	}
	return cust.ID, nil
}

func (s *StripeService) profile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// CreateCheckoutSession creates a Stripe Checkout session for the premium plan and returns its URL
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID string) (string, error) {
	if s.cfg.StripeSecretKey == "" || s.cfg.StripePremiumPrice == "" {
		return "", ErrBillingNotConfigured
	}
	p, err := s.profile(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch profile for checkout session")
		return "", err
	}
	customerID, err := s.GetOrCreateCustomer(ctx, p)
	if err != nil {
		return "", err
	}
	sess, err := s.api.newCheckout(&stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(s.cfg.StripePremiumPrice), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(stripe.CheckoutSessionModeSubscription),
		SuccessURL:         stripe.String(s.cfg.StripeReturnURL + "?status=success"),
		CancelURL:          stripe.String(s.cfg.StripeReturnURL + "?status=cancel"),
		Metadata:           map[string]string{"user_id": userID},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": userID},
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a Stripe Customer Portal session and returns its URL
func (s *StripeService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	if s.cfg.StripeSecretKey == "" {
		return "", ErrBillingNotConfigured
	}
	p, err := s.profile(ctx, userID)
	if err != nil {
		return "", err
	}
	if p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
		return "", ErrNoStripeCustomer
	}
	sess, err := s.api.newPortal(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*p.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.StripeReturnURL),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// premiumStatuses are the subscription states that grant premium.
var premiumStatuses = map[stripe.SubscriptionStatus]bool{
	stripe.SubscriptionStatusActive:   true,
	stripe.SubscriptionStatusTrialing: true,
	stripe.SubscriptionStatusPastDue:  true,
}

// HandleWebhook verifies and applies a Stripe webhook event
func (s *StripeService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		customerID := ""
		if cs.Customer != nil {
			customerID = cs.Customer.ID
		}
		userID, err := s.getUserIDFromEvent(ctx, cs.Metadata, customerID)
		if err != nil {
			s.logger.Error().Err(err).Str("checkout_session_id", cs.ID).Msg("Failed to determine user ID from checkout session")
			return err
		}
		if customerID != "" {
			s.rememberCustomer(ctx, userID, customerID)
		}
		return s.entitlements.SetPremium(ctx, userID, true)

	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		customerID := ""
		if ss.Customer != nil {
			customerID = ss.Customer.ID
		}
		userID, err := s.getUserIDFromEvent(ctx, ss.Metadata, customerID)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Failed to determine user ID from subscription")
			return err
		}
		premium := event.Type == stripe.EventTypeCustomerSubscriptionUpdated && premiumStatuses[ss.Status]
		s.logger.Info().Str("subscription_id", ss.ID).Str("status", string(ss.Status)).Bool("premium", premium).Msg("Subscription changed")
		return s.entitlements.SetPremium(ctx, userID, premium)

	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	return nil
}

func (s *StripeService) rememberCustomer(ctx context.Context, userID, customerID string) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil || p == nil {
		return
	}
	if p.StripeCustomerID != nil && *p.StripeCustomerID == customerID {
		return
	}
	if err := s.profiles.UpdateStripeCustomerID(ctx, userID, customerID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store stripe customer id on profile")
	}
}

package handler

import (
	"context"
	"errors"

	"bizcard/internal/api/v1/dto"
	"bizcard/internal/api/v1/operation"
	"bizcard/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// BillingService is implemented by service.StripeService.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID string) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type BillingHandler struct {
	billing BillingService
	logger  zerolog.Logger
}

func NewBillingHandler(billing BillingService, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: logger.With().Str("handler", "BillingHandler").Logger()}
}

func billingError(err error) error {
	switch {
	case errors.Is(err, service.ErrBillingNotConfigured):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, service.ErrNoStripeCustomer), errors.Is(err, service.ErrProfileNotFound):
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error502BadGateway("Billing provider request failed", err)
}

func (h *BillingHandler) CreateCheckoutSession(ctx context.Context, input *operation.CheckoutInput) (*operation.URLOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	url, err := h.billing.CreateCheckoutSession(ctx, userID)
	if err != nil {
		return nil, billingError(err)
	}
	return &operation.URLOutput{Body: dto.URLResponseDTO{URL: url}}, nil
}

func (h *BillingHandler) CreatePortalSession(ctx context.Context, input *operation.PortalInput) (*operation.URLOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	url, err := h.billing.CreatePortalSession(ctx, userID)
	if err != nil {
		return nil, billingError(err)
	}
	return &operation.URLOutput{Body: dto.URLResponseDTO{URL: url}}, nil
}

// StripeWebhook applies a signed Stripe event. Non-2xx answers make Stripe retry.
func (h *BillingHandler) StripeWebhook(ctx context.Context, input *operation.StripeWebhookInput) (*operation.StripeWebhookOutput, error) {
	if err := h.billing.HandleWebhook(ctx, input.RawBody, input.Signature); err != nil {
		if errors.Is(err, service.ErrInvalidSignature) || errors.Is(err, service.ErrInvalidPayload) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		h.logger.Error().Err(err).Msg("Failed to process Stripe webhook")
		return nil, huma.Error500InternalServerError("Failed to process webhook", err)
	}
	return &operation.StripeWebhookOutput{Body: dto.WebhookResponseDTO{Received: true}}, nil
}

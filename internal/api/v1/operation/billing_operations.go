package operation

import "bizcard/internal/api/v1/dto"

type CheckoutInput struct{}

type PortalInput struct{}

type StripeWebhookInput struct {
	Signature string `header:"Stripe-Signature" required:"true"`
	RawBody   []byte
}

type StripeWebhookOutput struct {
	Body dto.WebhookResponseDTO `json:"body"`
}

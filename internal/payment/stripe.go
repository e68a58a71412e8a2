// internal/payment/stripe.go
package payment

import (
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
)

// StripeClient only verifies webhook deliveries; no checkout is created
// because purchases are paid by PIX and confirmed by staff.
type StripeClient struct {
	webhookSecret string
}

func NewStripeClient(webhookSecret string) *StripeClient {
	return &StripeClient{webhookSecret: webhookSecret}
}

func (s *StripeClient) GetWebhookSecret() string {
	return s.webhookSecret
}

func (s *StripeClient) VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("webhook secret is not configured")
	}
	return webhook.ConstructEvent(payload, sig, s.webhookSecret)
}

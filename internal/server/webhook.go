package server

import (
	"io"
	"net/http"

	"robux-bot/internal/metrics"
	"robux-bot/internal/payment"
	"robux-bot/pkg/logger"
)

const maxWebhookBody = 64 << 10

// PaymentWebhook acknowledges gateway deliveries. Purchases are still
// confirmed by staff, so events are verified and logged but change no cart.
type PaymentWebhook struct {
	stripe  *payment.StripeClient
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewPaymentWebhook(stripe *payment.StripeClient, m *metrics.Metrics, l *logger.Logger) *PaymentWebhook {
	return &PaymentWebhook{stripe: stripe, metrics: m, logger: l}
}

func (h *PaymentWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warnw("Failed to read webhook body", "error", err)
		h.metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if h.stripe.GetWebhookSecret() == "" {
		h.logger.Infow("Payment webhook received without verification", "bytes", len(body))
		h.metrics.WebhookEvents.WithLabelValues("unverified").Inc()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Webhook received"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.logger.Warnw("Missing Stripe signature header")
		h.metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		http.Error(w, "Missing signature", http.StatusBadRequest)
		return
	}

	event, err := h.stripe.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warnw("Failed to verify webhook signature", "error", err)
		h.metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	h.logger.Infow("Payment webhook received", "event_id", event.ID, "type", event.Type)
	h.metrics.WebhookEvents.WithLabelValues("accepted").Inc()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Webhook received"))
}

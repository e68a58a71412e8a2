package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"

	"robux-bot/internal/metrics"
	"robux-bot/internal/payment"
	"robux-bot/pkg/logger"
)

const testSecret = "whsec_test"

func newRoutes(secret string) (http.Handler, *metrics.Metrics) {
	m := metrics.New()
	webhook := NewPaymentWebhook(payment.NewStripeClient(secret), m, logger.NewNop())
	return Routes(webhook, m), m
}

func sign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestHealth(t *testing.T) {
	routes, _ := newRoutes("")
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	routes, m := newRoutes("")
	m.CartsStarted.Inc()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "robux_store_carts_started_total 1")
}

func TestWebhookRejectsGet(t *testing.T) {
	routes, _ := newRoutes("")
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook/payment", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhookWithoutSecretAcknowledges(t *testing.T) {
	routes, m := newRoutes("")
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues("unverified")))
}

func TestWebhookSignature(t *testing.T) {
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","api_version":%q}`, stripe.APIVersion))

	tests := []struct {
		name      string
		signature string
		wantCode  int
		outcome   string
	}{
		{"valid", sign(payload, testSecret), http.StatusOK, "accepted"},
		{"missing", "", http.StatusBadRequest, "rejected"},
		{"wrong secret", sign(payload, "whsec_other"), http.StatusBadRequest, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes, m := newRoutes(testSecret)
			req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(string(payload)))
			if tt.signature != "" {
				req.Header.Set("Stripe-Signature", tt.signature)
			}
			rec := httptest.NewRecorder()
			routes.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues(tt.outcome)))
		})
	}
}

package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWithoutSecret(t *testing.T) {
	c := NewStripeClient("")
	_, err := c.VerifyWebhookSignature([]byte(`{}`), "t=1,v1=abc")
	assert.ErrorContains(t, err, "not configured")
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	c := NewStripeClient("whsec_test")
	_, err := c.VerifyWebhookSignature([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
	assert.Error(t, err)
}

func TestPixConfigured(t *testing.T) {
	assert.False(t, Pix{}.Configured())
	assert.True(t, Pix{Key: "loja@example.com"}.Configured())
}

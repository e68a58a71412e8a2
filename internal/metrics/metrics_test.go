package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreExposed(t *testing.T) {
	m := New()
	m.CartsStarted.Inc()
	m.Transitions.WithLabelValues("expired").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("expired")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "robux_store_carts_started_total 1")
}

func TestInstancesDoNotShareRegistry(t *testing.T) {
	a, b := New(), New()
	a.Expired.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Expired))
}

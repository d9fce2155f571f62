package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
)

func TestCollector_Handler(t *testing.T) {
	c := metrics.NewCollector()
	c.ObserveTransition("planned", "confirmed")
	c.ObserveTransition("paid", "paid")
	c.ObserveAlert("overdue-payment")
	c.ObserveGenerated(3, true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `ledger_status_transitions_total{from="planned",to="confirmed"} 1`)
	assert.Contains(t, string(body), `ledger_alerts_raised_total{type="overdue-payment"} 1`)
	assert.Contains(t, string(body), `ledger_recurrence_generated_total 3`)
	assert.NotContains(t, string(body), `from="paid"`)
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *metrics.Collector

	assert.NotPanics(t, func() {
		c.ObserveTransition("a", "b")
		c.ObserveConflict("x")
		c.ObserveTransfer()
		c.ObserveGenerated(1, false)
		c.ObserveSwept(1)
		c.ObserveAlert("x")
		c.ObserveReconciliation(1, 1)
		c.ObserveJob("x", 1)
	})
}

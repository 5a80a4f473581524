package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_AuthEvent(t *testing.T) {
	m := New()

	m.AuthEvent("login", "success")
	m.AuthEvent("login", "success")
	m.AuthEvent("login", "failure")

	assert.InDelta(t, 2, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "failure")), 0)
}

func TestMetrics_CleanupDeletedIgnoresZero(t *testing.T) {
	m := New()

	m.CleanupDeleted("refresh_tokens", 0)
	m.CleanupDeleted("refresh_tokens", 4)
	m.CleanupDeleted("revoked_tokens", 2)

	assert.InDelta(t, 4, testutil.ToFloat64(m.cleanupDeleted.WithLabelValues("refresh_tokens")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.cleanupDeleted.WithLabelValues("revoked_tokens")), 0)
}

func TestTracker_End(t *testing.T) {
	m := New()

	require.NoError(t, m.TrackCleanup().End(nil))
	err := m.TrackCleanup().End(assert.AnError)

	assert.ErrorIs(t, err, assert.AnError)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cleanupRuns.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cleanupRuns.WithLabelValues("failure")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AuthEvent("login", "success")
		m.CleanupDeleted("refresh_tokens", 3)
		m.AuditDropped()
		_ = m.TrackCleanup().End(nil)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AuditDropped()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenantauth_audit_dropped_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceNilReceiver(t *testing.T) {
	var m *MetricsService

	m.ObserveHTTPRequest("GET", "/x", 200, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordLeaveTransition("approved", "success")
	assert.Zero(t, m.Snapshot().RequestsTotal)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest("GET", "/api/v1/leaves", 200, 10*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/leaves", 500, 30*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveDBQuery("leave_transition_tx", 4*time.Millisecond)
	m.RecordLeaveTransition("approved", "success")
	m.RecordLeaveTransition("approved", "success")

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(1), snap.DBQueryCount)
	assert.InDelta(t, 4, snap.AverageDBQueryDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.LeaveTransitions["approved:success"])
	assert.Equal(t, float64(2), testutil.ToFloat64(m.leaveTransitions.WithLabelValues("approved", "success")))
}

func TestMetricsServiceExposition(t *testing.T) {
	m := NewMetricsService()
	m.RecordExport("leave_register", "csv")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lecture_diary_report_exports_total{format="csv",report="leave_register"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

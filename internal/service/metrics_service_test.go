package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCounts(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/timetable", 200, 10*time.Millisecond)
	m.ObserveStoreOperation("initialize", time.Millisecond, nil)
	m.ObserveStoreOperation("register_account", time.Millisecond, errors.New("dup"))
	m.ObserveChat("ok", time.Second)
	m.CodeIssued()
	m.CodeDelivered(nil)
	m.CodeDelivered(errors.New("smtp"))
	m.SessionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/timetable",status="200"} 1`)
	assert.Contains(t, body, `timetable_store_operation_failures_total{operation="register_account"} 1`)
	assert.NotContains(t, body, `timetable_store_operation_failures_total{operation="initialize"}`)
	assert.Contains(t, body, `timetable_chat_requests_total{outcome="ok"} 1`)
	assert.Contains(t, body, "timetable_one_time_codes_issued_total 1")
	assert.Contains(t, body, `timetable_one_time_code_deliveries_total{outcome="failed"} 1`)
	assert.Contains(t, body, "timetable_sessions_opened_total 1")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	m.ObserveStoreOperation("x", time.Millisecond, nil)
	m.ObserveChat("ok", 0)
	m.CodeIssued()
	m.CodeDelivered(nil)
	m.SessionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

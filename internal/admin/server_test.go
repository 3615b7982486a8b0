package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetbook/resilience/pkg/config"
	"github.com/fleetbook/resilience/pkg/resilience"
)

type stubConnectivity struct {
	state resilience.ConnState
}

func (s stubConnectivity) State() resilience.ConnState { return s.state }

func newTestServer(online bool) (*Server, *resilience.Registry, *gin.Engine) {
	registry := resilience.NewRegistry(resilience.DefaultBreakerConfig(""))
	monitor := stubConnectivity{state: resilience.ConnState{
		Online:    online,
		Transport: resilience.TransportWifi,
	}}

	srv := NewServer(registry, monitor, prometheus.NewRegistry())
	router := srv.NewRouter(&config.Config{})
	return srv, registry, router
}

func doRequest(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	_, registry, router := newTestServer(true)
	registry.Get("booking-api")

	w := doRequest(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["online"])
	assert.Equal(t, "wifi", body["transport"])
	assert.Equal(t, float64(1), body["breakers"])
}

func TestHealthEndpoint_Offline(t *testing.T) {
	_, _, router := newTestServer(false)

	w := doRequest(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "offline", body["status"])
}

func TestHealthEndpoint_DegradedWithOpenBreaker(t *testing.T) {
	_, registry, router := newTestServer(true)

	cb := registry.GetWithConfig("booking-api", resilience.BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		SuccessThreshold: 1,
	})
	cb.RecordFailure(errors.New("boom"))
	require.Equal(t, resilience.StateOpen, cb.State())

	w := doRequest(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, float64(1), body["open_breakers"])
}

func TestListBreakers(t *testing.T) {
	_, registry, router := newTestServer(true)
	registry.Get("booking-api")
	registry.Get("pricing-api")

	w := doRequest(router, http.MethodGet, "/api/v1/circuit-breakers")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)

	stats, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, stats, 2)
}

func TestGetBreaker(t *testing.T) {
	_, registry, router := newTestServer(true)
	registry.Get("booking-api")

	w := doRequest(router, http.MethodGet, "/api/v1/circuit-breakers/booking-api")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	require.True(t, resp.Success)

	stats, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "booking-api", stats["name"])
	assert.Equal(t, "CLOSED", stats["state"])
}

func TestGetBreaker_NotFound(t *testing.T) {
	_, _, router := newTestServer(true)

	w := doRequest(router, http.MethodGet, "/api/v1/circuit-breakers/missing")
	require.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeEnvelope(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestResetBreaker(t *testing.T) {
	_, registry, router := newTestServer(true)

	cb := registry.GetWithConfig("booking-api", resilience.BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		SuccessThreshold: 1,
	})
	cb.RecordFailure(errors.New("boom"))
	require.Equal(t, resilience.StateOpen, cb.State())

	w := doRequest(router, http.MethodPost, "/api/v1/circuit-breakers/booking-api/reset")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestResetBreaker_NotFound(t *testing.T) {
	_, _, router := newTestServer(true)

	w := doRequest(router, http.MethodPost, "/api/v1/circuit-breakers/missing/reset")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConnectivityEndpoint(t *testing.T) {
	_, _, router := newTestServer(true)

	w := doRequest(router, http.MethodGet, "/api/v1/connectivity")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["online"])
	assert.Equal(t, "wifi", data["transport"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, _, router := newTestServer(true)

	w := doRequest(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	_, _, router := newTestServer(true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "test-request-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, "test-request-123", w.Header().Get("X-Request-ID"))
}

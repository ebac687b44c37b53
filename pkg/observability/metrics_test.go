package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	require.NotNil(t, metrics)

	metrics.RecordLogin("success")
	metrics.RecordGateDecision("role", true)
	metrics.RecordAccountOperation("create", nil)
	metrics.RecordProviderCall("token", time.Millisecond, nil)
	metrics.Accounts.WithLabelValues("active").Set(1)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"accountgate_logins_total",
		"accountgate_gate_decisions_total",
		"accountgate_account_operations_total",
		"accountgate_provider_request_duration_seconds",
		"accountgate_accounts",
	} {
		assert.True(t, names[want], want)
	}
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	assert.Panics(t, func() { NewMetrics(registry) })
}

func TestMetrics_Recorders(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordLogin("success")
	metrics.RecordLogin("success")
	metrics.RecordLogin("suspended")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues("suspended")))

	metrics.RecordGateDecision("active", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GateDecisionsTotal.WithLabelValues("active", "deny")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.GateDecisionsTotal.WithLabelValues("active", "allow")))

	metrics.RecordAccountOperation("update", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AccountOperationsTotal.WithLabelValues("update", "error")))

	metrics.RecordProviderCall("profile", 20*time.Millisecond, errors.New("status 500"))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.ProviderRequestDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var metrics *Metrics

	assert.NotPanics(t, func() {
		metrics.RecordLogin("success")
		metrics.RecordGateDecision("session", true)
		metrics.RecordAccountOperation("list", nil)
		metrics.RecordProviderCall("token", time.Second, nil)
	})
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/admin/update_user/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodPut)

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/update_user/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPut, "/admin/update_user/{id}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.HTTPRequestsTotal))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.RecordLogin("provider_error")

	router := mux.NewRouter()
	RegisterMetricsEndpoint(router, registry)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `accountgate_logins_total{outcome="provider_error"} 1`))
}

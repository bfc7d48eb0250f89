package admin_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainwalk/recudns/internal/admin"
	"github.com/domainwalk/recudns/internal/cache"
)

func TestHealthzOKWithoutStore(t *testing.T) {
	s := admin.New("127.0.0.1:0", nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzReflectsStoreHealth(t *testing.T) {
	store, err := cache.OpenInMemory(nil)
	require.NoError(t, err)
	defer store.Close()

	s := admin.New("127.0.0.1:0", store, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsReportsQueryCounters(t *testing.T) {
	stats := &admin.QueryStats{}
	stats.IncQuery()
	stats.IncQuery()
	stats.IncCacheHit()

	s := admin.New("127.0.0.1:0", nil, stats, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queries_total":2`)
	assert.Contains(t, rec.Body.String(), `"cache_hits":1`)
}

func TestMetricsEndpointExposesPrometheusFormat(t *testing.T) {
	metrics := admin.NewMetrics()
	metrics.QueriesTotal.Inc()

	s := admin.New("127.0.0.1:0", nil, nil, metrics, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recudns_queries_total")
}

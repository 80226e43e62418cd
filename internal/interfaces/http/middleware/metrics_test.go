package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sawi/backend/internal/infrastructure/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// httpRequestCount reads sawi_http_requests_total for one label set
func httpRequestCount(t *testing.T, method, route, status string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "sawi_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["method"] == method && labels["route"] == route && labels["status"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestHTTPMetrics(t *testing.T) {
	metrics.Init(nil, zap.NewNop())

	router := gin.New()
	router.Use(HTTPMetrics("/metrics"))
	router.GET("/items/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	itemsBefore := httpRequestCount(t, http.MethodGet, "/items/:id", "200")
	unmatchedBefore := httpRequestCount(t, http.MethodGet, "unmatched", "404")
	scrapeBefore := httpRequestCount(t, http.MethodGet, "/metrics", "200")

	for _, path := range []string{"/items/1", "/items/2", "/nowhere", "/metrics"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, itemsBefore+2, httpRequestCount(t, http.MethodGet, "/items/:id", "200"))
	assert.Equal(t, unmatchedBefore+1, httpRequestCount(t, http.MethodGet, "unmatched", "404"))
	assert.Equal(t, scrapeBefore, httpRequestCount(t, http.MethodGet, "/metrics", "200"))
}

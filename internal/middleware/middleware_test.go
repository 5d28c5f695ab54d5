package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/endless-runner/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, buf *bytes.Buffer) (*gin.Engine, *PrometheusMiddleware) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	pm := NewPrometheusMiddleware("test_api", reg, reg)
	rl := NewRequestLogger(logging.NewWriterLogger("api", buf, logging.DEBUG))

	r := gin.New()
	r.Use(rl.Handler(), pm.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	pm.RegisterMetricsEndpoint(r)
	return r, pm
}

func TestMiddleware_RecordsRequests(t *testing.T) {
	var buf bytes.Buffer
	r, pm := newRouter(t, &buf)

	for _, path := range []string{"/ok", "/fail"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/fail", "500")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.reqInflight))
	assert.Contains(t, buf.String(), "[HTTP] ◀ GET /ok 200")
}

func TestMiddleware_MetricsEndpoint(t *testing.T) {
	var buf bytes.Buffer
	r, _ := newRouter(t, &buf)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "test_api_http_request_duration_seconds"))
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	rl := NewRequestLogger(logging.NewWriterLogger("api", &buf, logging.INFO))

	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/journal/:tick", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/health", "/api/journal/7", "/boom"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.NotEmpty(t, w.Header().Get(TraceHeader))
	}

	out := buf.String()
	assert.NotContains(t, out, "GET /health", "успешный health пишется только в DEBUG")
	assert.Contains(t, out, "[WARN] [api] [HTTP] ◀ GET /api/journal/:tick 404")
	assert.Contains(t, out, "[ERROR] [api] [HTTP] ◀ GET /boom 502")
}

func TestPrometheusMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	var buf bytes.Buffer
	r, pm := newRouter(t, &buf)

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(pm.reqDuration), "только /missing")
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/missing", "404")))
}

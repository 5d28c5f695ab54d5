package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPath = "/metrics"

// PrometheusMiddleware HTTP-метрики админского API:
// <service>_http_request_duration_seconds, _http_requests_inflight, _http_request_errors_total.
// Запросы к самому /metrics не учитываются.
type PrometheusMiddleware struct {
	gatherer    prometheus.Gatherer
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
}

// NewPrometheusMiddleware регистрирует метрики в reg; /metrics отдаёт gatherer
func NewPrometheusMiddleware(service string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *PrometheusMiddleware {
	factory := promauto.With(reg)
	labels := []string{"method", "path", "status"}

	return &PrometheusMiddleware{
		gatherer: gatherer,
		reqDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Время обработки запросов админского API.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 7), // 1 мс .. ~4 с
		}, labels),
		reqInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		reqErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Ответы со статусом 4xx и 5xx.",
		}, labels),
	}
}

func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == metricsPath {
			c.Next()
			return
		}

		pm.reqInflight.Inc()
		defer pm.reqInflight.Dec()

		start := time.Now()
		c.Next()

		code := c.Writer.Status()
		lv := []string{c.Request.Method, routePath(c), strconv.Itoa(code)}
		pm.reqDuration.WithLabelValues(lv...).Observe(time.Since(start).Seconds())
		if code >= http.StatusBadRequest {
			pm.reqErrors.WithLabelValues(lv...).Inc()
		}
	}
}

// RegisterMetricsEndpoint вешает GET /metrics на router
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine) {
	r.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(pm.gatherer, promhttp.HandlerOpts{})))
}

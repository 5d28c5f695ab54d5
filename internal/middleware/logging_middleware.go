package middleware

import (
	"net/http"
	"time"

	"github.com/annel0/endless-runner/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader заголовок ответа с trace-ID запроса
const TraceHeader = "X-Trace-ID"

// quietPaths опрашиваются мониторингом, успешные ответы пишутся только в DEBUG
var quietPaths = map[string]bool{
	metricsPath: true,
	"/health":   true,
}

// RequestLogger пишет одну строку на запрос админского API.
// Уровень зависит от статуса: 5xx ERROR, 4xx WARN.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := requestTraceID(c)
		c.Set("trace_id", traceID)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		c.Next()

		path := routePath(c)
		status := c.Writer.Status()
		const line = "[HTTP] ◀ %s %s %d %s ip=%s trace=%s"
		args := []interface{}{c.Request.Method, path, status, time.Since(start), c.ClientIP(), traceID}

		switch {
		case status >= http.StatusInternalServerError:
			rl.logger.Error(line, args...)
		case status >= http.StatusBadRequest:
			rl.logger.Warn(line, args...)
		case quietPaths[path]:
			rl.logger.Debug(line, args...)
		default:
			rl.logger.Info(line, args...)
		}
	}
}

// requestTraceID trace-ID активного span'а OpenTelemetry, иначе новый uuid
func requestTraceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

// routePath шаблон маршрута (/api/journal/:tick), для несовпавших запросов исходный путь
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/endless-runner/internal/journal"
	"github.com/annel0/endless-runner/internal/logging"
	"github.com/annel0/endless-runner/internal/middleware"
	"github.com/annel0/endless-runner/internal/sim"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// StreamSource источник состояния прогона
type StreamSource interface {
	Snapshot() sim.Snapshot
	ToggleSlowMotion() bool
}

// JournalReader чтение журнала событий
type JournalReader interface {
	Tail(runID string, limit int) ([]journal.Record, error)
	Load(runID string, tick uint64) (journal.Record, error)
}

// RestServer админский REST API прогона
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	stream  StreamSource
	journal JournalReader
	logger  *logging.Logger
	port    string
	metrics *ServerMetrics
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string                // порт для запуска сервера
	Stream   StreamSource          // прогон
	Journal  JournalReader         // nil, если журнал выключен
	Logger   *logging.Logger       // логгер запросов
	Registry prometheus.Registerer // куда регистрировать HTTP-метрики
	Gatherer prometheus.Gatherer   // что отдавать на /metrics
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger(config.Logger)
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("admin_api"))

	promMw := middleware.NewPrometheusMiddleware("admin_api", config.Registry, config.Gatherer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	rs := &RestServer{
		router:  router,
		stream:  config.Stream,
		journal: config.Journal,
		logger:  config.Logger,
		port:    config.Port,
		metrics: NewServerMetrics(),
	}
	rs.setupRoutes()
	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return rs
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	api := rs.router.Group("/api")
	{
		api.GET("/stream", rs.handleStream)
		api.GET("/stream/instances", rs.handleInstances)
		api.POST("/stream/slowmo", rs.handleSlowMotion)

		api.GET("/journal", rs.handleJournalTail)
		api.GET("/journal/:tick", rs.handleJournalTick)
	}

	rs.router.GET("/health", rs.handleHealth)
}

// Handler http.Handler сервера, используется в тестах
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// handleStream текущее состояние прогона
func (rs *RestServer) handleStream(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние прогона",
		Data:    rs.stream.Snapshot(),
	})
}

// handleInstances живые сегменты, старые первыми
func (rs *RestServer) handleInstances(c *gin.Context) {
	snap := rs.stream.Snapshot()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Живые сегменты",
		Data: map[string]interface{}{
			"instances": snap.Instances,
			"total":     len(snap.Instances),
			"frontier":  snap.Frontier,
		},
	})
}

// handleSlowMotion переключает замедление времени
func (rs *RestServer) handleSlowMotion(c *gin.Context) {
	active := rs.stream.ToggleSlowMotion()
	rs.logger.Info("🐢 Замедление переключено через API: active=%v", active)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Замедление переключено",
		Data:    map[string]bool{"active": active},
	})
}

// handleJournalTail последние записи журнала текущего прогона
func (rs *RestServer) handleJournalTail(c *gin.Context) {
	if rs.journal == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Журнал выключен"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный limit"})
			return
		}
		limit = v
	}
	runID := c.DefaultQuery("run", rs.stream.Snapshot().RunID)

	records, err := rs.journal.Tail(runID, limit)
	if err != nil {
		rs.logger.Error("Ошибка чтения журнала: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Ошибка чтения журнала"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Записей: %d", len(records)),
		Data:    records,
	})
}

// handleJournalTick запись журнала для конкретного тика
func (rs *RestServer) handleJournalTick(c *gin.Context) {
	if rs.journal == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Журнал выключен"})
		return
	}

	tick, err := strconv.ParseUint(c.Param("tick"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный номер тика"})
		return
	}
	runID := c.DefaultQuery("run", rs.stream.Snapshot().RunID)

	rec, err := rs.journal.Load(runID, tick)
	if errors.Is(err, journal.ErrNotFound) {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Запись не найдена"})
		return
	}
	if err != nil {
		rs.logger.Error("Ошибка чтения журнала: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Ошибка чтения журнала"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Запись журнала", Data: rec})
}

// handleHealth проверка состояния процесса и прогона
func (rs *RestServer) handleHealth(c *gin.Context) {
	snap := rs.stream.Snapshot()
	status := "ok"
	if snap.Bootstrapped && !snap.Enabled {
		status = "degraded"
	}

	resp := gin.H{
		"status":       status,
		"time":         time.Now().Unix(),
		"uptime":       rs.metrics.GetUptime(),
		"memory_mb":    rs.metrics.GetMemoryUsage(),
		"memory":       rs.metrics.GetDetailedMemoryStats(),
		"run_id":       snap.RunID,
		"window_size":  snap.WindowSize,
		"live_objects": snap.Host.Live,
	}
	if rss, err := rs.metrics.GetProcessRSS(); err == nil {
		resp["rss_mb"] = rss
	}
	if cpuPercent, err := rs.metrics.GetCPUUsage(); err == nil {
		resp["cpu_percent"] = cpuPercent
	}
	if snap.Error != "" {
		resp["error"] = snap.Error
	}
	c.JSON(http.StatusOK, resp)
}

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.port)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает REST сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}

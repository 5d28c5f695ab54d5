package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/endless-runner/internal/api"
	"github.com/annel0/endless-runner/internal/config"
	"github.com/annel0/endless-runner/internal/eventbus"
	"github.com/annel0/endless-runner/internal/journal"
	"github.com/annel0/endless-runner/internal/logging"
	"github.com/annel0/endless-runner/internal/observability"
	"github.com/annel0/endless-runner/internal/sim"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML-конфигу (по умолчанию $RUNNER_CONFIG)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("runner"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if level, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		logging.SetDefaultLevel(level, logging.DEBUG)
	} else {
		logging.Warn("Неизвестный log_level %q, используется INFO", cfg.LogLevel)
	}

	runID := uuid.NewString()
	logging.Info("🏃 Запуск endless runner, прогон %s", runID)
	logging.Info("📡 Окно K=%d, длина сегмента %.1f, дистанция генерации %.1f, каталог %v",
		cfg.Stream.WindowSize, cfg.Stream.SegmentLength, cfg.Stream.PreGenerationDistance, cfg.Stream.SegmentCatalog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, logging.GetComponentLogger("telemetry"))
		if err != nil {
			logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Error("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	registry := prometheus.NewRegistry()
	streamMetrics := observability.NewStreamMetrics(registry)

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения к шине событий: %v", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error("Ошибка закрытия шины: %v", err)
		}
	}()

	busExporter := eventbus.NewMetricsExporter(bus, registry)
	busExporter.Start()
	defer busExporter.Stop()

	if _, err := eventbus.StartLoggingListener(bus, logging.GetComponentLogger("eventbus")); err != nil {
		logging.Warn("Не удалось запустить LoggingListener: %v", err)
	}

	sinks := []sim.EventSink{eventbus.NewStreamPublisher(bus, cfg.Telemetry.ServiceName, runID)}

	// === ЖУРНАЛ ===
	var journalReader api.JournalReader
	if cfg.Journal.Enabled {
		j, err := journal.Open(journal.Options{Path: cfg.Journal.Path, InMemory: cfg.Journal.InMemory}, runID)
		if err != nil {
			log.Fatalf("❌ Ошибка открытия журнала: %v", err)
		}
		defer j.Close()
		sinks = append(sinks, j)
		journalReader = j
		logging.Info("📒 Журнал событий: %s (in_memory=%v)", cfg.Journal.Path, cfg.Journal.InMemory)
	}

	// === ПРОГОН ===
	runner, err := sim.New(sim.Options{
		Config:  cfg,
		Logger:  logging.GetStreamLogger(),
		Metrics: streamMetrics,
		Sinks:   sinks,
		RunID:   runID,
	})
	if err != nil {
		log.Fatalf("❌ Ошибка создания прогона: %v", err)
	}

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Stream:   runner,
		Journal:  journalReader,
		Logger:   logging.GetAPILogger(),
		Registry: registry,
		Gatherer: registry,
	})
	go func() {
		if err := restServer.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
		}
	}()

	if _, err := runner.Bootstrap(ctx); err != nil {
		logging.Error("❌ Ошибка инициализации прогона: %v", err)
	} else {
		logging.Info("✅ Прогон запущен, %d Гц", cfg.Sim.TickRateHz)
		logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetRESTPort())
		logging.Info("   📈 Метрики: http://localhost:%d/metrics", cfg.Server.GetRESTPort())

		err := runner.Run(ctx)
		switch {
		case err == nil:
			st := runner.Snapshot().Progress
			logging.Info("🏁 Прогон окончен: %s, уровень %d, монет %d/%d", st.Outcome, st.Level, st.Coins, st.CoinsToWin)
		case errors.Is(err, context.Canceled):
		case errors.Is(err, sim.ErrStopped):
			// Контроллер отключён, API продолжает отдавать состояние до сигнала
			logging.Error("❌ %v", err)
			<-ctx.Done()
		default:
			logging.Error("❌ Прогон завершился с ошибкой: %v", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	logging.Info("📡 Завершение работы...")

	if err := runner.Close(); err != nil {
		logging.Error("❌ Ошибка освобождения сегментов: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	logging.Info("👋 Прогон %s остановлен", runID)
}

// newEventBus JetStream, если задан url, иначе in-memory шина
func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("🚌 Шина событий: in-memory, буфер %d", cfg.Buffer)
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
	retention := time.Duration(cfg.Retention) * time.Hour
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, retention)
	if err != nil {
		return nil, err
	}
	logging.Info("🚌 Шина событий: JetStream %s, стрим %s", cfg.URL, cfg.Stream)
	return bus, nil
}

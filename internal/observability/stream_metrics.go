package observability

import (
	"context"

	"github.com/annel0/endless-runner/internal/progress"
	"github.com/annel0/endless-runner/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "runner"

// StreamMetrics Prometheus-метрики ядра стриминга
type StreamMetrics struct {
	Ticks          prometheus.Counter
	Events         *prometheus.CounterVec
	WindowSize     prometheus.Gauge
	FrontierZ      prometheus.Gauge
	AgentZ         prometheus.Gauge
	Disabled       prometheus.Gauge
	TimeScale      prometheus.Gauge
	LiveInstances  prometheus.Gauge
	BootstrapTotal prometheus.Counter
	Coins          prometheus.Gauge
	Level          prometheus.Gauge
	Outcomes       *prometheus.CounterVec
}

// NewStreamMetrics создаёт метрики и регистрирует их в reg
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	m := &StreamMetrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Количество выполненных тиков контроллера.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stream_events_total",
			Help:      "События стриминга по типу.",
		}, []string{"kind"}),
		WindowSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "window_size",
			Help:      "Число живых сегментов в окне.",
		}),
		FrontierZ: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "frontier_z",
			Help:      "Позиция фронтира вдоль оси движения.",
		}),
		AgentZ: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "agent_z",
			Help:      "Позиция агента вдоль оси движения.",
		}),
		Disabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "controller_disabled",
			Help:      "1, если контроллер отключён после ошибки.",
		}),
		TimeScale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "time_scale",
			Help:      "Текущий множитель времени.",
		}),
		LiveInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "host_live_instances",
			Help:      "Живые экземпляры в хосте мира.",
		}),
		BootstrapTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bootstrap_total",
			Help:      "Успешные начальные инициализации.",
		}),
		Coins: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "coins",
			Help:      "Монеты, собранные на текущем уровне.",
		}),
		Level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "level",
			Help:      "Текущий уровень.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "level_outcomes_total",
			Help:      "Завершённые уровни по итогу.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.Ticks, m.Events, m.WindowSize, m.FrontierZ, m.AgentZ,
		m.Disabled, m.TimeScale, m.LiveInstances, m.BootstrapTotal,
		m.Coins, m.Level, m.Outcomes,
	)
	return m
}

// Consume считает события тика по типам
func (m *StreamMetrics) Consume(_ context.Context, _ uint64, events []stream.Event) error {
	for _, ev := range events {
		m.Events.WithLabelValues(ev.Kind.String()).Inc()
	}
	return nil
}

// ObserveBootstrap фиксирует результат инициализации
func (m *StreamMetrics) ObserveBootstrap(res stream.BootstrapResult, windowSize int) {
	m.BootstrapTotal.Inc()
	m.AgentZ.Set(res.AgentPosition.Z)
	m.FrontierZ.Set(res.FrontierZ)
	m.WindowSize.Set(float64(windowSize))
}

// ObserveTick фиксирует состояние после тика
func (m *StreamMetrics) ObserveTick(res stream.TickResult, enabled bool) {
	m.Ticks.Inc()
	m.AgentZ.Set(res.AgentZ)
	m.FrontierZ.Set(res.FrontierZ)
	m.WindowSize.Set(float64(res.WindowSize))
	if enabled {
		m.Disabled.Set(0)
	} else {
		m.Disabled.Set(1)
	}
}

// ObserveProgress обновляет монеты и уровень; ended: уровень только что закончился
func (m *StreamMetrics) ObserveProgress(st progress.State, ended bool) {
	m.Coins.Set(float64(st.Coins))
	m.Level.Set(float64(st.Level))
	if ended {
		m.Outcomes.WithLabelValues(st.Outcome.String()).Inc()
	}
}

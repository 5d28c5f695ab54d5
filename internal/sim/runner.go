// Package sim собирает ядро стриминга, агента, хост мира и замедление времени
// в один headless-прогон с фиксированным шагом.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/annel0/endless-runner/internal/config"
	"github.com/annel0/endless-runner/internal/logging"
	"github.com/annel0/endless-runner/internal/movement"
	"github.com/annel0/endless-runner/internal/observability"
	"github.com/annel0/endless-runner/internal/progress"
	"github.com/annel0/endless-runner/internal/stream"
	"github.com/annel0/endless-runner/internal/timescale"
	"github.com/annel0/endless-runner/internal/vec"
	"github.com/annel0/endless-runner/internal/world"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrStopped прогон остановлен, потому что контроллер отключён
var ErrStopped = errors.New("sim: controller disabled")

// EventSink получатель событий стриминга (метрики, шина, журнал)
type EventSink interface {
	Consume(ctx context.Context, tick uint64, events []stream.Event) error
}

// Options зависимости прогона
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *observability.StreamMetrics // nil: без метрик
	Sinks   []EventSink
	RunID   string // пусто: сгенерировать
	Input   movement.InputSource
}

// Runner headless-прогон бесконечного раннера
type Runner struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *observability.StreamMetrics
	sinks   []EventSink
	runID   string

	mu           sync.Mutex
	controller   *stream.Controller
	agent        *movement.Agent
	meter        *timescale.Meter
	host         *world.Host
	tracker      *progress.Tracker
	coins        []coin
	bootstrapped bool
	steps        uint64
	elapsed      float64
	sinceAuto    float64
	last         stream.TickResult
}

// coin монета в центре сегмента, засчитывается, когда агент проходит её z
type coin struct {
	order uint64
	z     float64
}

// Snapshot копия состояния прогона для админского API
type Snapshot struct {
	RunID         string                   `json:"run_id"`
	Bootstrapped  bool                     `json:"bootstrapped"`
	Enabled       bool                     `json:"enabled"`
	Error         string                   `json:"error,omitempty"`
	Steps         uint64                   `json:"steps"`
	Ticks         uint64                   `json:"ticks"`
	Elapsed       float64                  `json:"elapsed_seconds"`
	AgentPosition vec.Vec3Float            `json:"agent_position"`
	Frontier      vec.Transform            `json:"frontier"`
	WindowSize    int                      `json:"window_size"`
	Instances     []stream.SegmentInstance `json:"instances"`
	TimeScale     float64                  `json:"time_scale"`
	SlowMotion    bool                     `json:"slow_motion"`
	Resource      float64                  `json:"slow_motion_resource"`
	Host          world.HostStats          `json:"host"`
	Progress      progress.State           `json:"progress"`
	LastTick      stream.TickResult        `json:"last_tick"`
}

// StreamSettings переводит секцию конфига в настройки ядра
func StreamSettings(cfg config.StreamConfig) stream.Settings {
	s := stream.Settings{
		Catalog:               append([]string(nil), cfg.SegmentCatalog...),
		SegmentLength:         cfg.SegmentLength,
		WindowSize:            cfg.WindowSize,
		PreGenerationDistance: cfg.PreGenerationDistance,
		AgentClearanceMargin:  cfg.AgentClearanceMargin,
		AgentLift:             cfg.AgentLift,
		AgentTemplate:         cfg.AgentTemplate,
	}
	if cfg.FrontierAnchor != nil {
		s.FrontierAnchor = &vec.Transform{
			Position: vec.Vec3Float{Y: cfg.FrontierAnchor.Y},
			Rotation: vec.Vec3Float{Y: cfg.FrontierAnchor.Yaw},
		}
	}
	return s
}

// New собирает прогон. Ошибки конфигурации ядра проявятся в Bootstrap.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("sim: config is nil")
	}
	if opts.Config.Sim.TickRateHz <= 0 {
		return nil, fmt.Errorf("sim: tick_rate_hz must be positive, got %d", opts.Config.Sim.TickRateHz)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	cfg := opts.Config
	input := opts.Input
	if input == nil {
		if cfg.Movement.NoiseAmplitude > 0 {
			input = movement.NewNoiseInput(cfg.Stream.Seed, cfg.Movement.NoiseFrequency, cfg.Movement.NoiseAmplitude)
		} else {
			input = movement.ConstantInput(0)
		}
	}

	host := world.NewHost(cfg.Stream.SegmentCatalog, logger)
	agent := movement.NewAgent(movement.Settings{
		ForwardSpeed:    cfg.Movement.ForwardSpeed,
		SidewaySpeed:    cfg.Movement.SidewaySpeed,
		HorizontalLimit: cfg.Movement.HorizontalLimit,
		InputSmoothTime: cfg.Movement.InputSmoothTime,
		Templates:       []string{cfg.Stream.AgentTemplate},
	}, input, logger)
	meter := timescale.NewMeter(timescale.Settings{
		NormalScale: cfg.TimeScale.NormalScale,
		SlowScale:   cfg.TimeScale.SlowScale,
		Duration:    cfg.TimeScale.Duration,
		MaxResource: cfg.TimeScale.MaxResource,
		DrainRate:   cfg.TimeScale.DrainRate,
		RegenRate:   cfg.TimeScale.RegenRate,
		RegenDelay:  cfg.TimeScale.RegenDelay,
	}, logger)

	tracker := progress.NewTracker(progress.Settings{
		BaseCoinsToWin:        cfg.Progress.BaseCoinsToWin,
		CoinsIncreasePerLevel: cfg.Progress.CoinsIncreasePerLevel,
		StartLevel:            cfg.Progress.StartLevel,
	}, logger)

	rng := rand.New(rand.NewSource(cfg.Stream.Seed))
	controller := stream.NewController(StreamSettings(cfg.Stream), host, agent, rng, logger)

	return &Runner{
		cfg:        cfg,
		logger:     logger,
		metrics:    opts.Metrics,
		sinks:      opts.Sinks,
		runID:      runID,
		controller: controller,
		agent:      agent,
		meter:      meter,
		host:       host,
		tracker:    tracker,
	}, nil
}

// RunID идентификатор прогона
func (r *Runner) RunID() string { return r.runID }

// Host хост мира прогона
func (r *Runner) Host() *world.Host { return r.host }

// Bootstrap ставит агента и заполняет окно
func (r *Runner) Bootstrap(ctx context.Context) (stream.BootstrapResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "sim.Bootstrap")
	defer span.End()

	r.mu.Lock()
	res, err := r.controller.Bootstrap()
	if err == nil {
		r.bootstrapped = true
		r.trackCoins(res.Events)
	}
	windowSize := r.controller.WindowSize()
	state := r.tracker.State()
	r.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}

	span.SetAttributes(
		attribute.String("run.id", r.runID),
		attribute.Int("window.size", windowSize),
		attribute.Float64("frontier.z", res.FrontierZ),
	)
	if r.metrics != nil {
		r.metrics.ObserveBootstrap(res, windowSize)
		r.metrics.ObserveProgress(state, false)
		r.metrics.LiveInstances.Set(float64(r.host.Live()))
	}
	r.dispatch(ctx, 0, res.Events)

	r.logger.Info("🏁 Прогон %s инициализирован: агент %s в %+v, фронтир z=%.2f",
		r.runID, res.Agent, res.AgentPosition, res.FrontierZ)
	return res, nil
}

// Step продвигает прогон на dt секунд реального времени:
// замедление, затем движение агента, монеты, тик контроллера и рассылка событий.
// После конца уровня время заморожено: агент стоит, замедление не тратится.
func (r *Runner) Step(ctx context.Context, dt float64) (stream.TickResult, error) {
	r.mu.Lock()
	if r.tracker.Outcome() == progress.Won && r.cfg.Progress.AutoNextLevel {
		r.tracker.Restart()
	}

	scale := 0.0
	if !r.tracker.Ended() {
		if auto := r.cfg.TimeScale.AutoEvery; auto > 0 {
			r.sinceAuto += dt
			if r.sinceAuto >= auto {
				r.sinceAuto = 0
				if r.meter.Activate() {
					r.logger.Debug("🐢 Автоматическое замедление на шаге %d", r.steps)
				}
			}
		}
		scale = r.meter.Update(dt)
	}
	r.agent.Update(dt * scale)
	r.elapsed += dt
	r.steps++
	ended := r.collectCoins()

	res, err := r.controller.Step()
	r.last = res
	r.trackCoins(res.Events)
	if err != nil && r.tracker.Lose() {
		ended = true
	}
	enabled := r.controller.Enabled()
	state := r.tracker.State()
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ObserveTick(res, enabled)
		r.metrics.TimeScale.Set(scale)
		r.metrics.LiveInstances.Set(float64(r.host.Live()))
		r.metrics.ObserveProgress(state, ended)
	}
	r.dispatch(ctx, res.Tick, res.Events)

	if err != nil {
		r.logger.Error("❌ Контроллер отключён на тике %d: %v", res.Tick, err)
		return res, err
	}
	return res, nil
}

// trackCoins ставит монету на каждый новый сегмент и убирает монеты вытесненных
func (r *Runner) trackCoins(events []stream.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case stream.EventSegmentSpawned:
			r.coins = append(r.coins, coin{order: ev.Order, z: ev.Transform.Position.Z})
		case stream.EventSegmentEvicted:
			for i, c := range r.coins {
				if c.order == ev.Order {
					r.coins = append(r.coins[:i], r.coins[i+1:]...)
					break
				}
			}
		}
	}
}

// collectCoins засчитывает пройденные агентом монеты.
// true, если уровень закончился на этом шаге.
func (r *Runner) collectCoins() bool {
	pos, ok := r.agent.Position()
	if !ok {
		return false
	}
	wasEnded := r.tracker.Ended()
	// монеты упорядочены по z, сегменты ставятся только вперёд
	for len(r.coins) > 0 && r.coins[0].z <= pos.Z {
		r.coins = r.coins[1:]
		r.tracker.CollectCoin()
	}
	return !wasEnded && r.tracker.Ended()
}

// Run выполняет шаги с частотой tick_rate_hz до отмены контекста,
// достижения max_ticks или отключения контроллера.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	bootstrapped := r.bootstrapped
	failed := r.controller.Err()
	r.mu.Unlock()
	if failed != nil {
		return failed
	}
	if !bootstrapped {
		if _, err := r.Bootstrap(ctx); err != nil {
			return err
		}
	}

	interval := time.Second / time.Duration(r.cfg.Sim.TickRateHz)
	dt := 1.0 / float64(r.cfg.Sim.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Step(ctx, dt); err != nil {
				return fmt.Errorf("%w: %v", ErrStopped, err)
			}
			if r.gameOver() {
				st := r.Snapshot().Progress
				r.logger.Info("🏁 Игра окончена: %s, уровень %d", st.Outcome, st.Level)
				return nil
			}
			if limit := r.cfg.Sim.MaxTicks; limit > 0 && r.Steps() >= limit {
				r.logger.Info("⏹️ Достигнут лимит шагов: %d", limit)
				return nil
			}
		}
	}
}

// gameOver уровень закончен и следующий не начнётся сам
func (r *Runner) gameOver() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.tracker.Ended() {
		return false
	}
	return !(r.tracker.Outcome() == progress.Won && r.cfg.Progress.AutoNextLevel)
}

// ToggleSlowMotion переключает замедление времени
func (r *Runner) ToggleSlowMotion() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meter.Toggle()
	return r.meter.Active()
}

// Steps количество выполненных шагов
func (r *Runner) Steps() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps
}

// Snapshot копия текущего состояния
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		RunID:        r.runID,
		Bootstrapped: r.bootstrapped,
		Enabled:      r.controller.Enabled(),
		Steps:        r.steps,
		Ticks:        r.controller.Ticks(),
		Elapsed:      r.elapsed,
		Frontier:     r.controller.Frontier(),
		WindowSize:   r.controller.WindowSize(),
		Instances:    r.controller.Instances(),
		TimeScale:    r.meter.Scale(),
		SlowMotion:   r.meter.Active(),
		Resource:     r.meter.Resource(),
		Host:         r.host.Stats(),
		Progress:     r.tracker.State(),
		LastTick:     r.last,
	}
	if r.tracker.Ended() {
		s.TimeScale = 0
	}
	if err := r.controller.Err(); err != nil {
		s.Error = err.Error()
	}
	if pos, ok := r.agent.Position(); ok {
		s.AgentPosition = pos
	}
	return s
}

// Close освобождает все сегменты прогона
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.controller.Close()
	if r.metrics != nil {
		r.metrics.WindowSize.Set(0)
		r.metrics.LiveInstances.Set(float64(r.host.Live()))
	}
	r.logger.Info("🛑 Прогон %s завершён после %d шагов", r.runID, r.steps)
	return err
}

// dispatch отдаёт события получателям. Ошибка получателя не останавливает прогон.
func (r *Runner) dispatch(ctx context.Context, tick uint64, events []stream.Event) {
	if len(events) == 0 {
		return
	}
	if r.metrics != nil {
		_ = r.metrics.Consume(ctx, tick, events)
	}
	for _, sink := range r.sinks {
		if err := sink.Consume(ctx, tick, events); err != nil {
			r.logger.Warn("⚠️ Получатель событий %T: %v", sink, err)
		}
	}
}

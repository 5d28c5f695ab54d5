package movement

import (
	"errors"
	"fmt"

	"github.com/annel0/endless-runner/internal/logging"
	"github.com/annel0/endless-runner/internal/stream"
	"github.com/annel0/endless-runner/internal/vec"
	"github.com/google/uuid"
)

var (
	ErrAlreadySpawned  = errors.New("movement: agent already spawned")
	ErrUnknownTemplate = errors.New("movement: unknown agent template")
)

// Settings параметры движения агента
type Settings struct {
	ForwardSpeed    float64  // Скорость вдоль оси Z, ед./с
	SidewaySpeed    float64  // Боковая скорость при полном отклонении
	HorizontalLimit float64  // |X| не превышает это значение
	InputSmoothTime float64  // Время сглаживания управления, с
	Templates       []string // Допустимые шаблоны агента; пусто: любой непустой
}

// Agent бегущий вперёд агент. Реализует stream.Mover.
type Agent struct {
	settings Settings
	input    InputSource
	logger   *logging.Logger

	handle   stream.AgentHandle
	template string
	spawned  bool
	pos      vec.Vec3Float
	elapsed  float64

	rawInput      float64
	smoothedInput float64
	smoothVel     float64
}

// NewAgent создаёт агента; до SpawnAgent его позиции нет
func NewAgent(settings Settings, input InputSource, logger *logging.Logger) *Agent {
	if input == nil {
		input = ConstantInput(0)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Agent{settings: settings, input: input, logger: logger}
}

// SpawnAgent помещает агента в мир
func (a *Agent) SpawnAgent(template string, at vec.Vec3Float) (stream.AgentHandle, error) {
	if a.spawned {
		return "", ErrAlreadySpawned
	}
	if template == "" || !a.knownTemplate(template) {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}
	a.handle = stream.AgentHandle(uuid.NewString())
	a.template = template
	a.pos = at
	a.spawned = true
	a.logger.Info("agent '%s' spawned at position (%.2f, %.2f, %.2f)", template, at.X, at.Y, at.Z)
	return a.handle, nil
}

func (a *Agent) knownTemplate(template string) bool {
	if len(a.settings.Templates) == 0 {
		return true
	}
	for _, t := range a.settings.Templates {
		if t == template {
			return true
		}
	}
	return false
}

// CurrentAgentPosition позиция вдоль оси движения
func (a *Agent) CurrentAgentPosition() (float64, bool) {
	return a.pos.Z, a.spawned
}

// Position полная позиция агента
func (a *Agent) Position() (vec.Vec3Float, bool) {
	return a.pos, a.spawned
}

// Handle идентификатор агента
func (a *Agent) Handle() stream.AgentHandle { return a.handle }

// SmoothedInput текущее сглаженное управление
func (a *Agent) SmoothedInput() float64 { return a.smoothedInput }

// Update продвигает агента на dt секунд игрового времени
func (a *Agent) Update(dt float64) {
	if !a.spawned || dt <= 0 {
		return
	}
	a.elapsed += dt

	a.pos = a.pos.Add(vec.Forward.Mul(a.settings.ForwardSpeed * dt))

	a.rawInput = a.input.Sample(a.elapsed)
	a.smoothedInput = SmoothDamp(a.smoothedInput, a.rawInput, &a.smoothVel, a.settings.InputSmoothTime, 0, dt)

	a.pos.X += a.smoothedInput * a.settings.SidewaySpeed * dt
	a.pos.X = clamp(a.pos.X, -a.settings.HorizontalLimit, a.settings.HorizontalLimit)
}

package stream

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/annel0/endless-runner/internal/logging"
	"github.com/annel0/endless-runner/internal/vec"
)

type state int

const (
	stateNew state = iota
	stateRunning
	stateDisabled
	stateClosed
)

// Controller владеет фронтиром и окном сегментов и выполняет потиковый цикл.
// Не потокобезопасен: все вызовы должны идти из одного цикла тиков.
type Controller struct {
	settings Settings
	catalog  *Catalog
	frontier *Frontier
	window   *Window
	trigger  TriggerPolicy

	host   WorldHost
	mover  Mover
	rng    RandSource
	logger *logging.Logger

	nextOrder uint64
	ticks     uint64
	state     state
	err       error
	agent     AgentHandle
}

// NewController создаёт контроллер. Настройки проверяются в Bootstrap.
// Если rng == nil, используется источник, засеянный текущим временем.
func NewController(settings Settings, host WorldHost, mover Mover, rng RandSource, logger *logging.Logger) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	anchor := vec.Transform{}
	if settings.FrontierAnchor != nil {
		anchor = *settings.FrontierAnchor
	}
	return &Controller{
		settings: settings,
		catalog:  NewCatalog(settings.Catalog...),
		frontier: NewFrontier(anchor),
		window:   NewWindow(settings.WindowSize + 1),
		trigger:  TriggerPolicy{PreGenerationDistance: settings.PreGenerationDistance},
		host:     host,
		mover:    mover,
		rng:      rng,
		logger:   logger,
	}
}

// Tick выполняет один шаг для заданной позиции агента:
// проверка триггера и спавн, затем вытеснение лишнего сегмента.
// На отключённом или не инициализированном контроллере ничего не делает.
func (c *Controller) Tick(agentZ float64) (TickResult, error) {
	if c.state != stateRunning {
		return c.result(agentZ, false, nil), nil
	}
	c.ticks++

	var events []Event
	frontierZ := c.frontier.PositionAlongAxis()
	triggered := !c.window.IsEmpty() && c.trigger.ShouldSpawn(agentZ, frontierZ)

	c.logger.Trace("agent z=%.2f trigger z=%.2f frontier z=%.2f window=%d",
		agentZ, c.trigger.TriggerZ(frontierZ), frontierZ, c.window.Size())

	if triggered {
		ev, err := c.spawnNext()
		if err != nil {
			c.disable(err)
			return c.result(agentZ, triggered, events), err
		}
		events = append(events, ev)
	}

	if c.window.Size() > c.settings.WindowSize {
		ev, ok, err := c.evictOldest()
		if ok {
			events = append(events, ev)
		}
		if err != nil {
			c.disable(err)
			return c.result(agentZ, triggered, events), err
		}
	}

	return c.result(agentZ, triggered, events), nil
}

// Step читает позицию агента у коллаборатора движения и выполняет Tick.
// Без действующего агента тик пропускается.
func (c *Controller) Step() (TickResult, error) {
	if c.state != stateRunning {
		return c.result(0, false, nil), nil
	}
	agentZ, ok := c.mover.CurrentAgentPosition()
	if !ok {
		c.logger.Debug("agent handle is not valid, tick skipped")
		return c.result(0, false, nil), nil
	}
	return c.Tick(agentZ)
}

// Close отключает контроллер и освобождает все живые сегменты, старые первыми.
// Повторный вызов ничего не делает.
func (c *Controller) Close() error {
	if c.state == stateClosed {
		return nil
	}
	var errs []error
	released := 0
	for !c.window.IsEmpty() {
		_, ok, err := c.evictOldest()
		if ok {
			released++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	c.state = stateClosed
	c.logger.Info("stream closed, released %d segments", released)
	return errors.Join(errs...)
}

// Enabled true, пока контроллер инициализирован и не отключён
func (c *Controller) Enabled() bool { return c.state == stateRunning }

// Err причина отключения; nil, если контроллер не отключался из-за ошибки
func (c *Controller) Err() error { return c.err }

// Ticks количество выполненных тиков
func (c *Controller) Ticks() uint64 { return c.ticks }

// WindowSize текущее количество живых сегментов
func (c *Controller) WindowSize() int { return c.window.Size() }

// Instances копия окна, старые первыми
func (c *Controller) Instances() []SegmentInstance { return c.window.Snapshot() }

// Frontier текущая позиция фронтира
func (c *Controller) Frontier() vec.Transform { return c.frontier.Transform() }

// Agent handle агента после bootstrap
func (c *Controller) Agent() AgentHandle { return c.agent }

// Settings настройки контроллера
func (c *Controller) Settings() Settings { return c.settings }

// spawnNext материализует случайный сегмент на фронтире и сдвигает фронтир
func (c *Controller) spawnNext() (Event, error) {
	tpl, err := c.catalog.Pick(c.rng)
	if err != nil {
		return Event{}, err
	}
	at := c.frontier.Transform()
	handle, err := c.host.Materialize(tpl, at)
	if err != nil {
		return Event{}, fmt.Errorf("%w: materialize %q at z=%.2f: %v", ErrCollaborator, tpl.ID, at.Position.Z, err)
	}

	inst := SegmentInstance{
		Template:  tpl,
		Transform: at,
		Order:     c.nextOrder,
		Handle:    handle,
	}
	c.nextOrder++
	c.window.Append(inst)
	c.frontier.Advance(c.settings.SegmentLength)

	c.logger.Debug("spawned segment %s #%d at z=%.2f, frontier moved to z=%.2f, active segments: %d",
		tpl.ID, inst.Order, at.Position.Z, c.frontier.PositionAlongAxis(), c.window.Size())
	return segmentEvent(EventSegmentSpawned, inst), nil
}

// evictOldest убирает самый старый сегмент и освобождает его у хоста ровно один раз
func (c *Controller) evictOldest() (Event, bool, error) {
	inst, ok := c.window.EvictOldest()
	if !ok {
		return Event{}, false, nil
	}
	ev := segmentEvent(EventSegmentEvicted, inst)
	if err := c.host.Release(inst.Handle); err != nil {
		return ev, true, fmt.Errorf("%w: release segment #%d (%s): %v", ErrCollaborator, inst.Order, inst.Handle, err)
	}
	c.logger.Debug("destroyed oldest segment #%d, remaining active segments: %d", inst.Order, c.window.Size())
	return ev, true, nil
}

func (c *Controller) disable(err error) {
	if c.state == stateClosed {
		return
	}
	c.state = stateDisabled
	c.err = err
	c.logger.Error("stream disabled: %v", err)
}

func (c *Controller) result(agentZ float64, triggered bool, events []Event) TickResult {
	return TickResult{
		Tick:       c.ticks,
		AgentZ:     agentZ,
		Triggered:  triggered,
		Events:     events,
		WindowSize: c.window.Size(),
		FrontierZ:  c.frontier.PositionAlongAxis(),
	}
}

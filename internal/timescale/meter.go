package timescale

import (
	"math"

	"github.com/annel0/endless-runner/internal/logging"
)

// Settings параметры замедления времени
type Settings struct {
	NormalScale float64 // Обычный масштаб времени
	SlowScale   float64 // Масштаб во время замедления
	Duration    float64 // Максимальная длительность одного замедления, с
	MaxResource float64 // Ёмкость ресурса
	DrainRate   float64 // Расход ресурса в секунду реального времени
	RegenRate   float64 // Восстановление в секунду
	RegenDelay  float64 // Пауза перед восстановлением после использования, с
}

// Meter ресурс замедления времени. Время считается в unscaled секундах.
type Meter struct {
	settings Settings
	logger   *logging.Logger

	resource   float64
	active     bool
	timer      float64
	regenDelay float64
	scale      float64
}

// NewMeter создаёт полный ресурс с обычным масштабом
func NewMeter(settings Settings, logger *logging.Logger) *Meter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Meter{
		settings: settings,
		logger:   logger,
		resource: settings.MaxResource,
		scale:    settings.NormalScale,
	}
}

// Activate включает замедление, если оно не активно и ресурс не пуст
func (m *Meter) Activate() bool {
	if m.active || m.resource <= 0 {
		return false
	}
	m.scale = m.settings.SlowScale
	m.active = true
	m.timer = m.settings.Duration
	m.logger.Debug("slow motion activated, time scale %.2f", m.scale)
	return true
}

// Deactivate возвращает обычный масштаб и запускает паузу восстановления
func (m *Meter) Deactivate() {
	if !m.active {
		return
	}
	m.scale = m.settings.NormalScale
	m.active = false
	m.regenDelay = m.settings.RegenDelay
	m.logger.Debug("slow motion deactivated, time scale %.2f", m.scale)
}

// Toggle переключает замедление
func (m *Meter) Toggle() {
	if m.active {
		m.Deactivate()
	} else {
		m.Activate()
	}
}

// Update продвигает ресурс на dt реальных секунд и возвращает текущий масштаб
func (m *Meter) Update(dt float64) float64 {
	if dt <= 0 {
		return m.scale
	}
	if m.active {
		m.resource -= m.settings.DrainRate * dt
		if m.resource <= 0 {
			m.resource = 0
			m.Deactivate()
		}

		m.timer -= dt
		if m.timer <= 0 && m.active {
			m.Deactivate()
		}
		return m.scale
	}

	if m.resource < m.settings.MaxResource {
		if m.regenDelay > 0 {
			m.regenDelay -= dt
		} else {
			m.resource = math.Min(m.resource+m.settings.RegenRate*dt, m.settings.MaxResource)
		}
	}
	return m.scale
}

// Scale текущий масштаб времени
func (m *Meter) Scale() float64 { return m.scale }

// Active true во время замедления
func (m *Meter) Active() bool { return m.active }

// Resource остаток ресурса
func (m *Meter) Resource() float64 { return m.resource }

// Fraction остаток ресурса в долях от ёмкости
func (m *Meter) Fraction() float64 {
	if m.settings.MaxResource <= 0 {
		return 0
	}
	return m.resource / m.settings.MaxResource
}

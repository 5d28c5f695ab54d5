package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/endless-runner/internal/logging"
	"github.com/annel0/endless-runner/internal/stream"
	"github.com/annel0/endless-runner/internal/vec"
	"github.com/google/uuid"
)

// ErrUnknownInstance handle не выдавался или уже освобождён
var ErrUnknownInstance = errors.New("world: unknown instance")

// ErrUnknownTemplate шаблон отсутствует в реестре хоста
var ErrUnknownTemplate = errors.New("world: unknown template")

// Instance геометрия сегмента, существующая в мире
type Instance struct {
	Handle    stream.InstanceHandle
	Template  string
	Transform vec.Transform
}

// HostStats счётчики хоста
type HostStats struct {
	Materialized uint64 `json:"materialized"`
	Released     uint64 `json:"released"`
	Live         int    `json:"live"`
	PeakLive     int    `json:"peak_live"`
}

// Host in-memory мир: хранит живые экземпляры сегментов по handle.
// Безопасен для чтения из других горутин (например, REST API).
type Host struct {
	mu        sync.RWMutex
	templates map[string]struct{}
	instances map[stream.InstanceHandle]Instance
	stats     HostStats
	logger    *logging.Logger
}

// NewHost создаёт хост. Если templates пуст, принимается любой шаблон.
func NewHost(templates []string, logger *logging.Logger) *Host {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	h := &Host{
		instances: make(map[stream.InstanceHandle]Instance),
		logger:    logger,
	}
	if len(templates) > 0 {
		h.templates = make(map[string]struct{}, len(templates))
		for _, id := range templates {
			h.templates[id] = struct{}{}
		}
	}
	return h
}

// Materialize создаёт экземпляр шаблона в заданной позиции
func (h *Host) Materialize(tpl stream.SegmentTemplate, at vec.Transform) (stream.InstanceHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.templates != nil {
		if _, ok := h.templates[tpl.ID]; !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, tpl.ID)
		}
	}

	handle := stream.InstanceHandle(uuid.NewString())
	h.instances[handle] = Instance{Handle: handle, Template: tpl.ID, Transform: at}
	h.stats.Materialized++
	if len(h.instances) > h.stats.PeakLive {
		h.stats.PeakLive = len(h.instances)
	}
	h.logger.Trace("materialized %s as %s at z=%.2f", tpl.ID, handle, at.Position.Z)
	return handle, nil
}

// Release уничтожает экземпляр; повторный Release того же handle: ошибка
func (h *Host) Release(handle stream.InstanceHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.instances[handle]; !ok {
		h.logger.Warn("release of unknown instance %s", handle)
		return fmt.Errorf("%w: %s", ErrUnknownInstance, handle)
	}
	delete(h.instances, handle)
	h.stats.Released++
	h.logger.Trace("released %s", handle)
	return nil
}

// Live количество живых экземпляров
func (h *Host) Live() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.instances)
}

// Get возвращает экземпляр по handle
func (h *Host) Get(handle stream.InstanceHandle) (Instance, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	inst, ok := h.instances[handle]
	return inst, ok
}

// Stats снимок счётчиков
func (h *Host) Stats() HostStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.stats
	s.Live = len(h.instances)
	return s
}

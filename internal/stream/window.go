package stream

import "github.com/annel0/endless-runner/internal/vec"

// SegmentInstance материализованный сегмент.
// Order: строго возрастающий номер создания, задаёт порядок FIFO.
type SegmentInstance struct {
	Template  SegmentTemplate `json:"template"`
	Transform vec.Transform   `json:"transform"`
	Order     uint64          `json:"order"`
	Handle    InstanceHandle  `json:"handle"`
}

// Window упорядоченная очередь живых сегментов, старые в начале.
// Ёмкость здесь не ограничивается: за размер отвечает Controller.
type Window struct {
	items []SegmentInstance
}

// NewWindow создаёт пустое окно с запасом под capacity элементов
func NewWindow(capacity int) *Window {
	if capacity < 0 {
		capacity = 0
	}
	return &Window{items: make([]SegmentInstance, 0, capacity)}
}

// Append добавляет экземпляр в хвост (самый новый)
func (w *Window) Append(inst SegmentInstance) {
	w.items = append(w.items, inst)
}

// EvictOldest извлекает самый старый экземпляр; на пустом окне ничего не делает
func (w *Window) EvictOldest() (SegmentInstance, bool) {
	if len(w.items) == 0 {
		return SegmentInstance{}, false
	}
	oldest := w.items[0]
	w.items[0] = SegmentInstance{}
	w.items = w.items[1:]
	return oldest, true
}

// Size количество живых сегментов
func (w *Window) Size() int {
	return len(w.items)
}

// IsEmpty true, если сегментов нет
func (w *Window) IsEmpty() bool {
	return len(w.items) == 0
}

// Snapshot копия содержимого, старые первыми
func (w *Window) Snapshot() []SegmentInstance {
	out := make([]SegmentInstance, len(w.items))
	copy(out, w.items)
	return out
}

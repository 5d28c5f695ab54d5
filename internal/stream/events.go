package stream

import "github.com/annel0/endless-runner/internal/vec"

// EventKind тип события стриминга
type EventKind int

const (
	EventAgentSpawned EventKind = iota
	EventSegmentSpawned
	EventSegmentEvicted
)

func (k EventKind) String() string {
	switch k {
	case EventAgentSpawned:
		return "AgentSpawned"
	case EventSegmentSpawned:
		return "SegmentSpawned"
	case EventSegmentEvicted:
		return "SegmentEvicted"
	default:
		return "Unknown"
	}
}

// Event одно изменение мира, произведённое ядром
type Event struct {
	Kind      EventKind     `json:"kind"`
	Order     uint64        `json:"order"`
	Template  string        `json:"template"`
	Transform vec.Transform `json:"transform"`
	Handle    string        `json:"handle"`
}

func segmentEvent(kind EventKind, inst SegmentInstance) Event {
	return Event{
		Kind:      kind,
		Order:     inst.Order,
		Template:  inst.Template.ID,
		Transform: inst.Transform,
		Handle:    string(inst.Handle),
	}
}

// TickResult результат одного тика
type TickResult struct {
	Tick       uint64  `json:"tick"`
	AgentZ     float64 `json:"agent_z"`
	Triggered  bool    `json:"triggered"`
	Events     []Event `json:"events,omitempty"`
	WindowSize int     `json:"window_size"`
	FrontierZ  float64 `json:"frontier_z"`
}

// Spawned количество созданных сегментов
func (r TickResult) Spawned() int { return r.count(EventSegmentSpawned) }

// Evicted количество удалённых сегментов
func (r TickResult) Evicted() int { return r.count(EventSegmentEvicted) }

func (r TickResult) count(kind EventKind) int {
	n := 0
	for _, ev := range r.Events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// BootstrapResult результат начальной инициализации
type BootstrapResult struct {
	Agent         AgentHandle   `json:"agent"`
	AgentPosition vec.Vec3Float `json:"agent_position"`
	Events        []Event       `json:"events"`
	FrontierZ     float64       `json:"frontier_z"`
}

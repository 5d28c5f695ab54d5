package stream

import "github.com/annel0/endless-runner/internal/vec"

// SegmentTemplate неизменяемая ссылка на геометрию сегмента, которой владеет мир-хост
type SegmentTemplate struct {
	ID string `json:"id"`
}

// InstanceHandle идентификатор материализованного сегмента у мир-хоста
type InstanceHandle string

// AgentHandle идентификатор агента у коллаборатора движения
type AgentHandle string

// WorldHost создаёт и уничтожает геометрию сегментов.
// Release вызывается не более одного раза на каждый handle.
type WorldHost interface {
	Materialize(tpl SegmentTemplate, at vec.Transform) (InstanceHandle, error)
	Release(h InstanceHandle) error
}

// Mover коллаборатор движения: создаёт агента и отдаёт его позицию вдоль оси Z.
// ok == false означает, что агента нет (handle недействителен).
type Mover interface {
	SpawnAgent(template string, at vec.Vec3Float) (AgentHandle, error)
	CurrentAgentPosition() (z float64, ok bool)
}

// RandSource источник случайных чисел для выбора шаблона; *rand.Rand подходит
type RandSource interface {
	Intn(n int) int
}

package stream

// TriggerPolicy решает, нужен ли новый сегмент в текущем тике.
// PreGenerationDistance: запас до фронтира, при котором генерация начинается заранее.
type TriggerPolicy struct {
	PreGenerationDistance float64
}

// TriggerZ координата, достигнув которой агент вызывает генерацию
func (p TriggerPolicy) TriggerZ(frontierZ float64) float64 {
	return frontierZ - p.PreGenerationDistance
}

// ShouldSpawn agentZ >= frontierZ - PreGenerationDistance
func (p TriggerPolicy) ShouldSpawn(agentZ, frontierZ float64) bool {
	return agentZ >= p.TriggerZ(frontierZ)
}

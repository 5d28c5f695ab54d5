package stream

import (
	"math"

	"github.com/annel0/endless-runner/internal/vec"
)

// Settings параметры подсистемы стриминга
type Settings struct {
	Catalog               []string       // Идентификаторы шаблонов сегментов
	SegmentLength         float64        // Длина сегмента вдоль оси Z
	WindowSize            int            // K: сколько сегментов держать одновременно
	PreGenerationDistance float64        // Запас генерации перед фронтиром
	AgentClearanceMargin  float64        // Отступ агента от границы первого сегмента
	AgentLift             float64        // Подъём агента над фронтиром по Y
	AgentTemplate         string         // Шаблон агента у коллаборатора движения
	FrontierAnchor        *vec.Transform // Высота и ориентация фронтира; nil: не задан
}

// Validate проверяет настройки и возвращает первую найденную ConfigurationError
func (s Settings) Validate() error {
	if err := NewCatalog(s.Catalog...).validate(); err != nil {
		return err
	}
	if !(s.SegmentLength > 0) || math.IsInf(s.SegmentLength, 0) {
		return &ConfigurationError{Field: "segment_length", Reason: "must be positive"}
	}
	if s.WindowSize < 1 {
		return &ConfigurationError{Field: "window_size", Reason: "must be at least 1"}
	}
	if !(s.PreGenerationDistance >= 0) {
		return &ConfigurationError{Field: "pre_generation_distance", Reason: "must be non-negative"}
	}
	if math.IsNaN(s.AgentClearanceMargin) || math.IsInf(s.AgentClearanceMargin, 0) {
		return &ConfigurationError{Field: "agent_clearance_margin", Reason: "must be finite"}
	}
	if s.FrontierAnchor == nil {
		return &ConfigurationError{Field: "frontier_anchor", Reason: "spawn frontier is not configured"}
	}
	if s.AgentTemplate == "" {
		return &ConfigurationError{Field: "agent_template", Reason: "agent template is not configured"}
	}
	return nil
}

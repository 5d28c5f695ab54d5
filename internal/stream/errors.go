package stream

import (
	"errors"
	"fmt"

	"github.com/annel0/endless-runner/internal/vec"
)

var (
	// ErrConfiguration некорректная конфигурация, обнаруженная при bootstrap
	ErrConfiguration = errors.New("stream: configuration error")
	// ErrAgentSpawn коллаборатор движения не смог создать агента
	ErrAgentSpawn = errors.New("stream: agent spawn failed")
	// ErrCollaborator мир-хост не смог создать или освободить сегмент
	ErrCollaborator = errors.New("stream: world host failure")
	// ErrAlreadyBootstrapped повторный вызов Bootstrap
	ErrAlreadyBootstrapped = errors.New("stream: already bootstrapped")
)

// ConfigurationError описывает конкретное нарушение конфигурации
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stream: invalid %s: %s", e.Field, e.Reason)
}

// Is позволяет errors.Is(err, ErrConfiguration)
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// AgentSpawnError ошибка создания агента в заданной позиции
type AgentSpawnError struct {
	Position vec.Vec3Float
	Err      error
}

func (e *AgentSpawnError) Error() string {
	return fmt.Sprintf("stream: agent spawn at (%.2f, %.2f, %.2f) failed: %v",
		e.Position.X, e.Position.Y, e.Position.Z, e.Err)
}

func (e *AgentSpawnError) Is(target error) bool {
	return target == ErrAgentSpawn
}

func (e *AgentSpawnError) Unwrap() error {
	return e.Err
}

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/annel0/endless-runner/internal/stream"
	"github.com/google/uuid"
)

// SegmentPayload полезная нагрузка событий сегментов
type SegmentPayload struct {
	Tick  uint64       `json:"tick"`
	Event stream.Event `json:"event"`
}

// StreamPublisher превращает события ядра стриминга в Envelope и публикует их.
type StreamPublisher struct {
	bus    EventBus
	source string
	runID  string
	now    func() time.Time
}

// NewStreamPublisher создаёт издателя для прогона runID
func NewStreamPublisher(bus EventBus, source, runID string) *StreamPublisher {
	return &StreamPublisher{bus: bus, source: source, runID: runID, now: time.Now}
}

// Consume публикует все события тика по порядку
func (p *StreamPublisher) Consume(ctx context.Context, tick uint64, events []stream.Event) error {
	for _, ev := range events {
		env, err := p.envelope(tick, ev)
		if err != nil {
			return err
		}
		if err := p.bus.Publish(ctx, env); err != nil {
			return fmt.Errorf("publish %s #%d: %w", env.EventType, ev.Order, err)
		}
	}
	return nil
}

func (p *StreamPublisher) envelope(tick uint64, ev stream.Event) (*Envelope, error) {
	payload, err := json.Marshal(SegmentPayload{Tick: tick, Event: ev})
	if err != nil {
		return nil, err
	}
	// Событие агента единственное за прогон, его не дропаем
	priority := 3
	if ev.Kind == stream.EventAgentSpawned {
		priority = 9
	}
	return &Envelope{
		ID:            uuid.NewString(),
		Timestamp:     p.now().UTC(),
		Source:        p.source,
		EventType:     ev.Kind.String(),
		Version:       1,
		CorrelationID: p.runID,
		Priority:      priority,
		Payload:       payload,
		Metadata: map[string]string{
			"order": strconv.FormatUint(ev.Order, 10),
		},
	}, nil
}

// DecodeSegmentPayload разбирает Payload события сегмента
func DecodeSegmentPayload(env *Envelope) (SegmentPayload, error) {
	var p SegmentPayload
	err := json.Unmarshal(env.Payload, &p)
	return p, err
}

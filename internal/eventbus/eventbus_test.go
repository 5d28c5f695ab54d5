package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/annel0/endless-runner/internal/stream"
	"github.com/annel0/endless-runner/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	envs []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.envs = append(c.envs, ev)
	c.mu.Unlock()
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(16)
	all := &collector{}
	evicted := &collector{}

	_, err := bus.Subscribe(context.Background(), Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{Types: []string{"SegmentEvicted"}}, evicted.handle)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "1", EventType: "SegmentSpawned"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "2", EventType: "SegmentEvicted"}))
	require.NoError(t, bus.Close())

	assert.Len(t, all.envs, 2)
	require.Len(t, evicted.envs, 1)
	assert.Equal(t, "2", evicted.envs[0].ID)

	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(3), stats.Consumed)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	c := &collector{}
	sub, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "SegmentSpawned"}))
	require.NoError(t, bus.Close())
	assert.Empty(t, c.envs)
}

func TestStreamPublisher_Consume(t *testing.T) {
	bus := NewMemoryBus(16)
	c := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	pub := NewStreamPublisher(bus, "runner-sim", "run-1")
	events := []stream.Event{
		{Kind: stream.EventSegmentSpawned, Order: 3, Template: "ramp", Transform: vec.Transform{Position: vec.Vec3Float{Z: 30}}},
		{Kind: stream.EventSegmentEvicted, Order: 0, Template: "gap"},
	}
	require.NoError(t, pub.Consume(context.Background(), 42, events))
	require.NoError(t, bus.Close())

	require.Len(t, c.envs, 2)
	first := c.envs[0]
	assert.Equal(t, "SegmentSpawned", first.EventType)
	assert.Equal(t, "runner-sim", first.Source)
	assert.Equal(t, "run-1", first.CorrelationID)
	assert.Equal(t, "3", first.Metadata["order"])
	assert.NotEmpty(t, first.ID)

	payload, err := DecodeSegmentPayload(first)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), payload.Tick)
	assert.Equal(t, events[0], payload.Event)
	assert.Equal(t, "SegmentEvicted", c.envs[1].EventType)
}

func TestMetricsExporter_Collect(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "SegmentSpawned"}))
	require.NoError(t, bus.Close())

	prev := me.collect(Stats{})
	assert.Equal(t, 1.0, testutil.ToFloat64(me.published))
	me.collect(prev)
	assert.Equal(t, 1.0, testutil.ToFloat64(me.published), "повторный сбор без новых событий не меняет счётчик")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "runner.SegmentSpawned", Subject("SegmentSpawned"))
}

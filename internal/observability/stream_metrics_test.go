package observability

import (
	"context"
	"testing"

	"github.com/annel0/endless-runner/internal/progress"
	"github.com/annel0/endless-runner/internal/stream"
	"github.com/annel0/endless-runner/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamMetrics_Consume(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStreamMetrics(reg)

	events := []stream.Event{
		{Kind: stream.EventSegmentSpawned, Order: 3},
		{Kind: stream.EventSegmentEvicted, Order: 0},
		{Kind: stream.EventSegmentSpawned, Order: 4},
	}
	require.NoError(t, m.Consume(context.Background(), 1, events))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("SegmentSpawned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("SegmentEvicted")))
}

func TestStreamMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStreamMetrics(reg)

	m.ObserveBootstrap(stream.BootstrapResult{AgentPosition: vec.Vec3Float{Z: -5}, FrontierZ: 30}, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BootstrapTotal))
	assert.Equal(t, -5.0, testutil.ToFloat64(m.AgentZ))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WindowSize))

	m.ObserveTick(stream.TickResult{AgentZ: 11, FrontierZ: 40, WindowSize: 3}, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ticks))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.FrontierZ))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Disabled))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestStreamMetrics_ObserveProgress(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStreamMetrics(reg)

	m.ObserveProgress(progress.State{Level: 1, Coins: 4, CoinsToWin: 10}, false)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Coins))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Level))
	assert.Equal(t, 0, testutil.CollectAndCount(m.Outcomes))

	m.ObserveProgress(progress.State{Level: 2, Coins: 10, CoinsToWin: 10, Outcome: progress.Won}, true)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Level))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("won")))
}

func TestTracer_NoopWithoutInit(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "test")
	defer span.End()
	assert.NotNil(t, span)
}

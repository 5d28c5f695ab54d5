package world

import (
	"math/rand"
	"testing"

	"github.com/annel0/endless-runner/internal/stream"
	"github.com/annel0/endless-runner/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHost_MaterializeRelease(t *testing.T) {
	h := NewHost([]string{"straight"}, nil)

	at := vec.Transform{Position: vec.Vec3Float{Z: 10}}
	handle, err := h.Materialize(stream.SegmentTemplate{ID: "straight"}, at)
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	assert.Equal(t, 1, h.Live())

	inst, ok := h.Get(handle)
	require.True(t, ok)
	assert.Equal(t, "straight", inst.Template)
	assert.Equal(t, at, inst.Transform)

	require.NoError(t, h.Release(handle))
	assert.Equal(t, 0, h.Live())

	err = h.Release(handle)
	assert.ErrorIs(t, err, ErrUnknownInstance, "повторное освобождение должно быть ошибкой")

	stats := h.Stats()
	assert.Equal(t, uint64(1), stats.Materialized)
	assert.Equal(t, uint64(1), stats.Released)
	assert.Equal(t, 1, stats.PeakLive)
}

func TestHost_UnknownTemplate(t *testing.T) {
	h := NewHost([]string{"straight"}, nil)
	_, err := h.Materialize(stream.SegmentTemplate{ID: "lava"}, vec.Transform{})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Equal(t, 0, h.Live())
}

type stillMover struct{ z float64 }

func (m *stillMover) SpawnAgent(string, vec.Vec3Float) (stream.AgentHandle, error) {
	return "agent", nil
}

func (m *stillMover) CurrentAgentPosition() (float64, bool) { return m.z, true }

func TestHost_BoundedUnderStreaming(t *testing.T) {
	catalog := []string{"straight", "ramp", "gap"}
	h := NewHost(catalog, nil)
	mover := &stillMover{}
	c := stream.NewController(stream.Settings{
		Catalog:               catalog,
		SegmentLength:         10,
		WindowSize:            4,
		PreGenerationDistance: 20,
		AgentTemplate:         "runner",
		FrontierAnchor:        &vec.Transform{},
	}, h, mover, rand.New(rand.NewSource(1)), nil)

	_, err := c.Bootstrap()
	require.NoError(t, err)

	for i := 0; i < 5000; i++ {
		mover.z += 1.7
		_, err := c.Step()
		require.NoError(t, err)
		assert.LessOrEqual(t, h.Live(), 4)
	}
	assert.Equal(t, 5, h.Stats().PeakLive, "пиковое значение K+1 внутри тика")

	require.NoError(t, c.Close())
	assert.Equal(t, 0, h.Live())
}

package stream

import (
	"math/rand"
	"testing"

	"github.com/annel0/endless-runner/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerPolicy_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	for i := 0; i < 10000; i++ {
		agent := rng.Float64()*2000 - 1000
		frontier := rng.Float64()*2000 - 1000
		dist := rng.Float64() * 100
		p := TriggerPolicy{PreGenerationDistance: dist}
		assert.Equal(t, agent >= frontier-dist, p.ShouldSpawn(agent, frontier),
			"agent=%v frontier=%v dist=%v", agent, frontier, dist)
	}

	p := TriggerPolicy{PreGenerationDistance: 20}
	assert.True(t, p.ShouldSpawn(10, 30), "граница включается")
	assert.False(t, p.ShouldSpawn(9.999, 30))
}

func TestWindow_FIFO(t *testing.T) {
	w := NewWindow(2)
	assert.True(t, w.IsEmpty())

	_, ok := w.EvictOldest()
	assert.False(t, ok, "вытеснение из пустого окна: no-op")

	for i := uint64(0); i < 5; i++ {
		w.Append(SegmentInstance{Order: i})
	}
	assert.Equal(t, 5, w.Size())

	for i := uint64(0); i < 5; i++ {
		inst, ok := w.EvictOldest()
		require.True(t, ok)
		assert.Equal(t, i, inst.Order)
	}
	assert.True(t, w.IsEmpty())
}

func TestWindow_SnapshotIsCopy(t *testing.T) {
	w := NewWindow(1)
	w.Append(SegmentInstance{Order: 1})
	snap := w.Snapshot()
	snap[0].Order = 99

	inst, _ := w.EvictOldest()
	assert.Equal(t, uint64(1), inst.Order)
}

func TestCatalog_PickUniform(t *testing.T) {
	c := NewCatalog("a", "b", "c", "d")
	rng := rand.New(rand.NewSource(5))
	counts := map[string]int{}
	const n = 40000
	for i := 0; i < n; i++ {
		tpl, err := c.Pick(rng)
		require.NoError(t, err)
		counts[tpl.ID]++
	}
	require.Len(t, counts, 4)
	for id, cnt := range counts {
		assert.InDelta(t, n/4, cnt, n*0.02, "шаблон %s выбирается неравномерно", id)
	}
}

func TestCatalog_PickEmpty(t *testing.T) {
	_, err := NewCatalog().Pick(fixedRand{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestCatalog_TemplatesCopy(t *testing.T) {
	c := NewCatalog("a", "b")
	tpls := c.Templates()
	tpls[0].ID = "x"
	assert.Equal(t, "a", c.Templates()[0].ID)
	assert.Equal(t, 2, c.Len())
}

func TestFrontier_Advance(t *testing.T) {
	f := NewFrontier(vec.Transform{Position: vec.Vec3Float{Y: 1}, Rotation: vec.Vec3Float{Y: 45}})
	f.Advance(10)
	f.Advance(2.5)
	assert.Equal(t, 12.5, f.PositionAlongAxis())
	assert.Equal(t, vec.Vec3Float{Y: 45}, f.Transform().Rotation)
	assert.Equal(t, 1.0, f.Transform().Position.Y)
}

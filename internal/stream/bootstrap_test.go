package stream

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_Deterministic(t *testing.T) {
	run := func() ([]SegmentTemplate, *fakeMover) {
		host := newFakeHost()
		mover := &fakeMover{}
		c := NewController(scenarioSettings(), host, mover, rand.New(rand.NewSource(42)), nil)
		res, err := c.Bootstrap()
		require.NoError(t, err)
		assert.Len(t, res.Events, 4, "одно событие агента и K сегментов")
		assert.Equal(t, EventAgentSpawned, res.Events[0].Kind)
		return host.materialized, mover
	}

	first, mover1 := run()
	second, mover2 := run()
	assert.Len(t, first, 3)
	assert.Equal(t, first, second, "одинаковый сид даёт одинаковую последовательность")
	assert.Len(t, mover1.spawns, 1)
	assert.Len(t, mover2.spawns, 1)
	assert.Equal(t, "runner", mover1.template)
}

func TestBootstrap_ClearanceAndLift(t *testing.T) {
	settings := scenarioSettings()
	settings.AgentClearanceMargin = 0.75
	settings.AgentLift = 0.5
	mover := &fakeMover{}
	c := NewController(settings, newFakeHost(), mover, fixedRand{}, nil)

	res, err := c.Bootstrap()
	require.NoError(t, err)
	assert.InDelta(t, -5.75, res.AgentPosition.Z, 1e-9)
	assert.InDelta(t, 0.5, res.AgentPosition.Y, 1e-9)

	inst := c.Instances()
	require.Len(t, inst, 3)
	assert.InDelta(t, -0.75, inst[0].Transform.Position.Z, 1e-9, "первый сегмент в половине длины от агента")
	assert.InDelta(t, 29.25, res.FrontierZ, 1e-9)
}

func TestBootstrap_EmptyCatalog(t *testing.T) {
	settings := scenarioSettings()
	settings.Catalog = nil
	host := newFakeHost()
	mover := &fakeMover{}
	c := NewController(settings, host, mover, fixedRand{}, nil)

	_, err := c.Bootstrap()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "segment_catalog", cfgErr.Field)

	assert.Empty(t, host.materialized, "ни одного спавна")
	assert.Empty(t, mover.spawns)
	assert.False(t, c.Enabled())

	res, err := c.Tick(100)
	require.NoError(t, err)
	assert.Empty(t, res.Events)
}

func TestBootstrap_InvalidSettings(t *testing.T) {
	cases := []struct {
		name   string
		field  string
		mutate func(*Settings)
	}{
		{"zero length", "segment_length", func(s *Settings) { s.SegmentLength = 0 }},
		{"zero window", "window_size", func(s *Settings) { s.WindowSize = 0 }},
		{"negative distance", "pre_generation_distance", func(s *Settings) { s.PreGenerationDistance = -1 }},
		{"nan clearance", "agent_clearance_margin", func(s *Settings) { s.AgentClearanceMargin = math.NaN() }},
		{"+inf clearance", "agent_clearance_margin", func(s *Settings) { s.AgentClearanceMargin = math.Inf(1) }},
		{"-inf clearance", "agent_clearance_margin", func(s *Settings) { s.AgentClearanceMargin = math.Inf(-1) }},
		{"no anchor", "frontier_anchor", func(s *Settings) { s.FrontierAnchor = nil }},
		{"no agent template", "agent_template", func(s *Settings) { s.AgentTemplate = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := scenarioSettings()
			tc.mutate(&settings)
			host := newFakeHost()
			mover := &fakeMover{}
			c := NewController(settings, host, mover, fixedRand{}, nil)

			_, err := c.Bootstrap()
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
			assert.Empty(t, host.materialized)

			// отключённый контроллер не реагирует на тики
			res, err := c.Tick(-1e9)
			require.NoError(t, err)
			assert.False(t, res.Triggered)
			assert.Empty(t, host.materialized)
		})
	}
}

func TestBootstrap_AgentSpawnFailure(t *testing.T) {
	host := newFakeHost()
	c := NewController(scenarioSettings(), host, &fakeMover{fail: true}, fixedRand{}, nil)

	_, err := c.Bootstrap()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentSpawn)
	assert.NotErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, host.materialized)
	assert.False(t, c.Enabled())
}

func TestBootstrap_OnlyOnce(t *testing.T) {
	host := newFakeHost()
	c := NewController(scenarioSettings(), host, &fakeMover{}, fixedRand{}, nil)
	_, err := c.Bootstrap()
	require.NoError(t, err)

	_, err = c.Bootstrap()
	assert.ErrorIs(t, err, ErrAlreadyBootstrapped)
	assert.Len(t, host.materialized, 3)
}

func TestBootstrap_PrefillFailure(t *testing.T) {
	host := newFakeHost()
	host.failAfter = 2
	c := NewController(scenarioSettings(), host, &fakeMover{}, fixedRand{}, nil)

	res, err := c.Bootstrap()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollaborator)
	assert.Equal(t, 2, c.WindowSize())
	assert.Equal(t, 20.0, res.FrontierZ)
	assert.False(t, c.Enabled())

	require.NoError(t, c.Close())
	assert.Equal(t, 0, host.live(), "созданные сегменты освобождаются при закрытии")
}

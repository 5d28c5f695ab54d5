package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutPath(t *testing.T) {
	t.Setenv("RUNNER_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 3, cfg.Stream.WindowSize)
	assert.NotNil(t, cfg.Stream.FrontierAnchor)
}

func TestLoad_OverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.yaml")
	yml := `
stream:
  segment_catalog: [a, b]
  segment_length: 12.5
  window_size: 5
  frontier_anchor:
    y: 1.5
    yaw: 90
sim:
  max_ticks: 100
progress:
  base_coins_to_win: 4
  auto_next_level: false
journal:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.Stream.SegmentCatalog)
	assert.Equal(t, 12.5, cfg.Stream.SegmentLength)
	assert.Equal(t, 5, cfg.Stream.WindowSize)
	assert.Equal(t, 1.5, cfg.Stream.FrontierAnchor.Y)
	assert.Equal(t, 90.0, cfg.Stream.FrontierAnchor.Yaw)
	assert.Equal(t, uint64(100), cfg.Sim.MaxTicks)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 4, cfg.Progress.BaseCoinsToWin)
	assert.False(t, cfg.Progress.AutoNextLevel)

	// Значения, которых нет в файле, остаются по умолчанию
	assert.Equal(t, 20.0, cfg.Stream.PreGenerationDistance)
	assert.Equal(t, 60, cfg.Sim.TickRateHz)
	assert.Equal(t, "runner", cfg.Stream.AgentTemplate)
	assert.Equal(t, 2, cfg.Progress.CoinsIncreasePerLevel)
	assert.Equal(t, 1, cfg.Progress.StartLevel)
}

func TestLoad_EnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream:\n  window_size: 7\n"), 0644))
	t.Setenv("RUNNER_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Stream.WindowSize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream: [unclosed"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestParse_NullAnchor(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse([]byte("stream:\n  frontier_anchor: null\n"), cfg))
	assert.Nil(t, cfg.Stream.FrontierAnchor, "явный null отключает якорь фронтира")
}

func TestGetRESTPort(t *testing.T) {
	s := ServerConfig{RESTPort: 9000}
	assert.Equal(t, 9000, s.GetRESTPort())

	s.RESTPort = 0
	t.Setenv("RUNNER_REST_PORT", "9100")
	assert.Equal(t, 9100, s.GetRESTPort())

	t.Setenv("RUNNER_REST_PORT", "bogus")
	assert.Equal(t, 8088, s.GetRESTPort())
}

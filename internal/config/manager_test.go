package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	cfg := m.Get()
	assert.Equal(t, 8090, cfg.ServerPort)
	assert.Equal(t, TargetGame, cfg.Capture.DefaultTarget)
	assert.Equal(t, 1920, cfg.Capture.MaxWidth)
	assert.Equal(t, 1080, cfg.Capture.MaxHeight)

	rule, ok := m.Target(TargetScene)
	require.True(t, ok)
	assert.NotEmpty(t, rule.TitlePatterns)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: 9999
targets:
  game:
    title_patterns: ["^Play Mode$"]
`), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, 9999, cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"^Play Mode$"}, cfg.Targets[TargetGame].TitlePatterns)
	assert.Contains(t, cfg.Targets, TargetEditor)
}

func TestInvalidPatternRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
targets:
  scene:
    title_patterns: ["("]
`), 0644))

	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestGetReturnsCopy(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg := m.Get()
	cfg.ServerPort = 1
	cfg.Targets[TargetScene] = TargetRule{TitlePatterns: []string{"mutated"}}

	fresh := m.Get()
	assert.Equal(t, 8090, fresh.ServerPort)
	assert.NotEqual(t, []string{"mutated"}, fresh.Targets[TargetScene].TitlePatterns)
}

func TestOverrideIsNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	m.Override(func(cfg *Config) { cfg.ServerPort = 7000 })
	assert.Equal(t, 7000, m.Get().ServerPort)

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, 8090, reloaded.Get().ServerPort)
}

func TestSetValueThroughViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, m.SetValue("capture.max_width", 1280))
	assert.Equal(t, 1280, m.Get().Capture.MaxWidth)

	v, err := m.GetViper()
	require.NoError(t, err)
	assert.Equal(t, 1280, v.GetInt("capture.max_width"))

	assert.Error(t, m.SetValue("capture.default_target", "inspector"))
	assert.Equal(t, TargetGame, m.Get().Capture.DefaultTarget)
}

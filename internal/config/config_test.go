package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leafsim.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[leaf]
parallel_reinsert = true
reinsert_workers = 8
size_tiers = [300.0, 100.0]

[sim]
tick_rate = "33ms"
frames = 120

[logging]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Leaf.ParallelReinsert)
	assert.Equal(t, 8, cfg.Leaf.ReinsertWorkers)
	assert.Equal(t, []float32{300, 100}, cfg.Leaf.SizeTiers)
	assert.Equal(t, 10, cfg.Leaf.MaxDirtyIterations, "untouched keys keep defaults")
	assert.Equal(t, 4096, cfg.Leaf.MaxGroupEntities)
	assert.Equal(t, 33*time.Millisecond, cfg.Sim.TickRate)
	assert.Equal(t, 120, cfg.Sim.Frames)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "[leaf]\nmax_dirty_iterations = 0\n"))
	assert.ErrorContains(t, err, "max_dirty_iterations")

	_, err = Load(writeConfig(t, "[leaf]\nsize_tiers = [10.0, 20.0]\n"))
	assert.ErrorContains(t, err, "decreasing")

	_, err = Load(writeConfig(t, "[leaf]\nsize_tiers = [40.0, 30.0, 20.0, 10.0]\n"))
	assert.ErrorContains(t, err, "at most")

	_, err = Load(writeConfig(t, "[leaf\n"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorContains(t, err, "read config")
}

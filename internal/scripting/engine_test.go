package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fadeScript = `
props.fader = {
  fx_blend = function(ctx)
    return 255 - ctx.distance
  end,
}

props.hologram = {
  fx_blend = function(ctx) return 999 end,
  receive_projected = function(ctx) return not ctx.flashlight end,
}

props.broken = {
  fx_blend = function(ctx) error("boom") end,
  receive_projected = function(ctx) error("boom") end,
}

props.wordy = {
  fx_blend = function(ctx) return "half" end,
}
`

func newTestEngine(t *testing.T, src string) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "props"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "props", "test.lua"), []byte(src), 0o644))
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestPropsRegistered(t *testing.T) {
	e := newTestEngine(t, fadeScript)
	assert.Equal(t, []string{"broken", "fader", "hologram", "wordy"}, e.Props())
	assert.True(t, e.HasProp("fader"))
	assert.False(t, e.HasProp("missing"))
}

func TestComputeFxBlend(t *testing.T) {
	e := newTestEngine(t, fadeScript)

	assert.Equal(t, 155, e.ComputeFxBlend("fader", PropContext{Distance: 100}))
	assert.Equal(t, 0, e.ComputeFxBlend("fader", PropContext{Distance: 400}), "clamped low")
	assert.Equal(t, 255, e.ComputeFxBlend("hologram", PropContext{}), "clamped high")
	assert.Equal(t, 255, e.ComputeFxBlend("broken", PropContext{}))
	assert.Equal(t, 255, e.ComputeFxBlend("wordy", PropContext{}))
	assert.Equal(t, 255, e.ComputeFxBlend("missing", PropContext{}))
}

func TestShouldReceiveProjectedTextures(t *testing.T) {
	e := newTestEngine(t, fadeScript)

	assert.True(t, e.ShouldReceiveProjectedTextures("hologram", true, false))
	assert.False(t, e.ShouldReceiveProjectedTextures("hologram", false, true))
	assert.True(t, e.ShouldReceiveProjectedTextures("fader", false, true), "no callback means receive")
	assert.True(t, e.ShouldReceiveProjectedTextures("broken", true, true))
}

func TestNewEngineErrors(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nothing"), zap.NewNop())
	require.NoError(t, err, "missing script dir is allowed")
	assert.Empty(t, e.Props())
	e.Close()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "props"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "props", "bad.lua"), []byte("props.x = {"), 0o644))
	_, err = NewEngine(dir, zap.NewNop())
	assert.ErrorContains(t, err, "bad.lua")
}

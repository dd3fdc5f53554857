package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-treeform/pkg/camera"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.False(t, cfg.Capture.Enabled)
	assert.False(t, cfg.PhotoDir.Enabled())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Focus, cfg.Focus)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treeform.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
focus:
  release_delay: 1.5s
scene:
  seed: 7
  frame_kinds: [star, photo]
web:
  port: 9000
photo_dir:
  dir: /tmp/photos
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1500*time.Millisecond, cfg.Focus.ReleaseDelay)
	assert.EqualValues(t, 7, cfg.Scene.Seed)
	assert.Equal(t, []string{"star", "photo"}, cfg.Scene.FrameKinds)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, "/tmp/photos", cfg.PhotoDir.Dir)

	// untouched sections keep their defaults
	assert.Equal(t, Default().Camera, cfg.Camera)
	assert.Equal(t, Default().PhotoDir.Extensions, cfg.PhotoDir.Extensions)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("focus: [not, a, map"), 0o644))
	_, err := Load(garbage)
	assert.Error(t, err)

	slow := filepath.Join(dir, "slow.yaml")
	require.NoError(t, os.WriteFile(slow, []byte("camera:\n  focus_rate: 1\n"), 0o644))
	_, err = Load(slow)
	assert.ErrorIs(t, err, camera.ErrFocusTooSlow)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvPhotoDir, "/srv/photos")
	t.Setenv(EnvCameraDevice, "2")
	t.Setenv(EnvSeed, "1234")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, 9100, cfg.Web.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/srv/photos", cfg.PhotoDir.Dir)
	assert.Equal(t, 2, cfg.Capture.Device)
	assert.True(t, cfg.Capture.Enabled)
	assert.EqualValues(t, 1234, cfg.Scene.Seed)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	t.Setenv(EnvPort, "eighty")
	assert.Error(t, Default().ApplyEnv())
}

func TestValidate_OptionalSections(t *testing.T) {
	cfg := Default()
	cfg.Capture.JPEGQuality = 0
	cfg.PhotoDir.MaxBytes = 0
	assert.NoError(t, cfg.Validate(), "disabled sections are not checked")

	cfg.Capture.Enabled = true
	assert.Error(t, cfg.Validate())
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "treeform.yaml")

	cfg := Default()
	cfg.Scene.Seed = 99
	cfg.Focus.ReleaseDelay = 250 * time.Millisecond
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

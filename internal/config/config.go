// Package config loads the treeform configuration: a YAML file layered over
// the built-in defaults, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-treeform/pkg/audio"
	"github.com/teslashibe/go-treeform/pkg/camera"
	"github.com/teslashibe/go-treeform/pkg/capture"
	"github.com/teslashibe/go-treeform/pkg/focus"
	"github.com/teslashibe/go-treeform/pkg/gesture"
	"github.com/teslashibe/go-treeform/pkg/morph"
	"github.com/teslashibe/go-treeform/pkg/photodir"
	"github.com/teslashibe/go-treeform/pkg/scene"
	"github.com/teslashibe/go-treeform/pkg/web"
)

// Environment overrides.
const (
	EnvPort         = "TREEFORM_PORT"
	EnvLogLevel     = "TREEFORM_LOG_LEVEL"
	EnvPhotoDir     = "TREEFORM_PHOTO_DIR"
	EnvCameraDevice = "TREEFORM_CAMERA_DEVICE"
	EnvSeed         = "TREEFORM_SEED"
)

// Config is the whole application configuration.
type Config struct {
	LogLevel string          `yaml:"log_level"`
	Scene    scene.Config    `yaml:"scene"`
	Gesture  gesture.Config  `yaml:"gesture"`
	Focus    focus.Config    `yaml:"focus"`
	Morph    morph.Config    `yaml:"morph"`
	Camera   camera.Config   `yaml:"camera"`
	Audio    audio.Config    `yaml:"audio"`
	Web      web.Config      `yaml:"web"`
	Capture  capture.Config  `yaml:"capture"`
	PhotoDir photodir.Config `yaml:"photo_dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := scene.DefaultOptions()
	return &Config{
		LogLevel: "info",
		Scene:    opts.Scene,
		Gesture:  opts.Gesture,
		Focus:    opts.Focus,
		Morph:    opts.Morph,
		Camera:   opts.Camera,
		Audio:    opts.Audio,
		Web:      web.DefaultConfig(),
		Capture:  capture.DefaultConfig(),
		PhotoDir: photodir.DefaultConfig(),
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file; a missing file is an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from TREEFORM_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Web.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPhotoDir); v != "" {
		c.PhotoDir.Dir = v
	}
	if v := os.Getenv(EnvCameraDevice); v != "" {
		dev, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCameraDevice, err)
		}
		c.Capture.Device = dev
		c.Capture.Enabled = true
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Scene.Seed = seed
	}
	return nil
}

// Validate checks every section. Capture and the photo watcher are only
// checked when enabled.
func (c *Config) Validate() error {
	opts := c.SceneOptions()
	errs := []error{opts.Validate()}
	if err := c.Web.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("web: %w", err))
	}
	if c.Capture.Enabled {
		if err := c.Capture.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("capture: %w", err))
		}
	}
	if c.PhotoDir.Enabled() {
		if err := c.PhotoDir.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("photo_dir: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SceneOptions returns the director's share of the configuration.
func (c *Config) SceneOptions() scene.Options {
	return scene.Options{
		Scene:   c.Scene,
		Gesture: c.Gesture,
		Focus:   c.Focus,
		Morph:   c.Morph,
		Camera:  c.Camera,
		Audio:   c.Audio,
	}
}

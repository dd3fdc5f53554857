// Package scene runs the per-frame tick that threads gesture, focus, morph,
// camera and audio state through one another.
package scene

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-treeform/pkg/morph"
)

// ErrInvalidConfig wraps every configuration error.
var ErrInvalidConfig = errors.New("invalid scene config")

// Config holds the director's own tuning.
type Config struct {
	TickInterval  time.Duration `yaml:"tick_interval" json:"tick_interval"`   // frame period of Run
	AmbientRate   float64       `yaml:"ambient_rate" json:"ambient_rate"`     // idle tree rotation, rad/s
	SignalTimeout time.Duration `yaml:"signal_timeout" json:"signal_timeout"` // older gesture readings count as no hands
	FrameKinds    []string      `yaml:"frame_kinds" json:"frame_kinds"`       // entity kinds streamed per frame
	MaxPhotos     int           `yaml:"max_photos" json:"max_photos"`         // 0 = unlimited
	MaxMusicBytes int           `yaml:"max_music_bytes" json:"max_music_bytes"`
	Seed          uint64        `yaml:"seed" json:"seed"` // 0 = random per run
}

// DefaultConfig returns a 60 Hz director streaming everything but particles.
func DefaultConfig() Config {
	return Config{
		TickInterval:  time.Second / 60,
		AmbientRate:   0.6,
		SignalTimeout: time.Second,
		FrameKinds: []string{
			morph.KindOrnamentBox.String(),
			morph.KindOrnamentSphere.String(),
			morph.KindStar.String(),
			morph.KindPhoto.String(),
		},
		MaxPhotos:     200,
		MaxMusicBytes: 32 << 20,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive, got %v", ErrInvalidConfig, c.TickInterval)
	}
	if c.AmbientRate < 0 {
		return fmt.Errorf("%w: ambient_rate must not be negative, got %v", ErrInvalidConfig, c.AmbientRate)
	}
	if c.SignalTimeout < 0 || c.MaxPhotos < 0 || c.MaxMusicBytes < 0 {
		return fmt.Errorf("%w: timeouts and limits must not be negative", ErrInvalidConfig)
	}
	if _, err := c.kindFilter(); err != nil {
		return err
	}
	return nil
}

func (c *Config) kindFilter() (func(morph.Kind) bool, error) {
	var set [8]bool
	for _, name := range c.FrameKinds {
		k, ok := morph.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown frame kind %q", ErrInvalidConfig, name)
		}
		set[k] = true
	}
	return func(k morph.Kind) bool { return int(k) < len(set) && set[k] }, nil
}

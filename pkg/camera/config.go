// Package camera drives the viewer camera through the Idle, Overview and
// Focus states. Tuning follows the same runtime-configurable pattern as the
// other controllers.
package camera

import (
	"errors"
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/teslashibe/go-treeform/pkg/morph"
)

// ErrFocusTooSlow is returned when the focus rate cannot outrun the morph.
var ErrFocusTooSlow = errors.New("focus rate must exceed every morph speed")

// Config holds all camera tuning. Rates are exponential smoothing constants in 1/s.
type Config struct {
	// === Idle ===
	RestPosition     math32.Vector3 `yaml:"rest_position" json:"rest_position"`
	FocalPoint       math32.Vector3 `yaml:"focal_point" json:"focal_point"`
	IdlePositionRate float64        `yaml:"idle_position_rate" json:"idle_position_rate"`
	IdleTargetRate   float64        `yaml:"idle_target_rate" json:"idle_target_rate"`

	// === Overview ===
	OverviewRadius     float32 `yaml:"overview_radius" json:"overview_radius"`
	OverviewRadiusRate float64 `yaml:"overview_radius_rate" json:"overview_radius_rate"`
	OverviewTargetRate float64 `yaml:"overview_target_rate" json:"overview_target_rate"`
	AngularRate        float64 `yaml:"angular_rate" json:"angular_rate"` // rad/s at full rotation input

	// === Focus ===
	FocusRate           float64 `yaml:"focus_rate" json:"focus_rate"`
	FocusDistanceNarrow float32 `yaml:"focus_distance_narrow" json:"focus_distance_narrow"`
	FocusDistanceWide   float32 `yaml:"focus_distance_wide" json:"focus_distance_wide"`
	NarrowViewport      int     `yaml:"narrow_viewport" json:"narrow_viewport"` // widths below this are narrow
	MinDirectionSq      float32 `yaml:"min_direction_sq" json:"min_direction_sq"`
}

// DefaultConfig returns the standard framing: camera 60 units in front of
// the tree looking at its upper trunk.
func DefaultConfig() Config {
	return Config{
		RestPosition:     math32.Vec3(0, 0, 60),
		FocalPoint:       math32.Vec3(0, 3, 0),
		IdlePositionRate: 1.5,
		IdleTargetRate:   2.0,

		OverviewRadius:     60,
		OverviewRadiusRate: 2.0,
		OverviewTargetRate: 2.0,
		AngularRate:        2.0,

		FocusRate:           12,
		FocusDistanceNarrow: 12,
		FocusDistanceWide:   6,
		NarrowViewport:      768,
		MinDirectionSq:      0.1,
	}
}

// Validate checks that the values are within usable ranges.
func (c *Config) Validate() error {
	rates := []struct {
		name string
		v    float64
	}{
		{"idle_position_rate", c.IdlePositionRate},
		{"idle_target_rate", c.IdleTargetRate},
		{"overview_radius_rate", c.OverviewRadiusRate},
		{"overview_target_rate", c.OverviewTargetRate},
		{"focus_rate", c.FocusRate},
	}
	for _, r := range rates {
		if r.v <= 0 {
			return fmt.Errorf("%s must be positive, got %v", r.name, r.v)
		}
	}
	if c.AngularRate < 0 {
		return fmt.Errorf("angular_rate must not be negative, got %v", c.AngularRate)
	}
	if c.OverviewRadius <= 0 {
		return fmt.Errorf("overview_radius must be positive, got %v", c.OverviewRadius)
	}
	if c.FocusDistanceNarrow <= 0 || c.FocusDistanceWide <= 0 {
		return fmt.Errorf("focus distances must be positive, got %v/%v", c.FocusDistanceNarrow, c.FocusDistanceWide)
	}
	return nil
}

// ValidateFor checks the config and that the focus rate is faster than any
// morph layer. A slower camera lags the still-accelerating photo and the
// subject rushes toward the lens.
func (c *Config) ValidateFor(m *morph.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if maxSpeed := m.MaxSpeed(); c.FocusRate <= maxSpeed {
		return fmt.Errorf("%w: focus_rate %v <= %v", ErrFocusTooSlow, c.FocusRate, maxSpeed)
	}
	return nil
}

// FocusDistance returns the viewing distance for a viewport width. A zero
// width is unknown and treated as wide.
func (c *Config) FocusDistance(viewportWidth int) float32 {
	if viewportWidth > 0 && viewportWidth < c.NarrowViewport {
		return c.FocusDistanceNarrow
	}
	return c.FocusDistanceWide
}

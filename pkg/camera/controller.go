package camera

import (
	"fmt"
	"math"
	"sync/atomic"

	"cogentcore.org/core/math32"

	"github.com/teslashibe/go-treeform/pkg/gesture"
	"github.com/teslashibe/go-treeform/pkg/morph"
)

// Mode is the camera state.
type Mode int

const (
	Idle Mode = iota
	Overview
	Focus
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Overview:
		return "overview"
	case Focus:
		return "focus"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	for _, c := range []Mode{Idle, Overview, Focus} {
		if c.String() == string(b) {
			*m = c
			return nil
		}
	}
	return fmt.Errorf("unknown camera mode %q", b)
}

// Input is what the controller consumes each tick.
type Input struct {
	Signal gesture.Signal
	Sticky bool // debounced focus

	// Focused is the world position of the focused entity, group rotation
	// included. Only meaningful when HasFocused is set.
	Focused    math32.Vector3
	HasFocused bool

	ViewportWidth int // pixels, 0 if unknown
}

// SelectMode applies the priority Focus > Overview > Idle.
func SelectMode(in Input) Mode {
	switch {
	case in.Sticky && in.HasFocused:
		return Focus
	case in.Signal.ExplodeRequested:
		return Overview
	default:
		return Idle
	}
}

// State is the camera output of one tick.
type State struct {
	Position    math32.Vector3 `json:"position"`
	LookTarget  math32.Vector3 `json:"look_target"`
	Orientation math32.Quat    `json:"orientation"`
	Mode        Mode           `json:"mode"`
	OrbitAngle  float32        `json:"orbit_angle"` // azimuth of the camera about +Y
}

// Controller owns the camera state. Update is called from the frame loop
// only; SetConfig may be called from any goroutine.
type Controller struct {
	tuning atomic.Pointer[Config]
	state  State
}

// NewController creates a controller at the rest position.
func NewController(cfg Config) *Controller {
	c := &Controller{}
	c.tuning.Store(&cfg)
	c.Reset()
	return c
}

// Config returns the tuning in use.
func (c *Controller) Config() Config {
	return *c.tuning.Load()
}

// SetConfig swaps the tuning. It takes effect on the next Update.
func (c *Controller) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.tuning.Store(&cfg)
	return nil
}

// Reset puts the camera at rest looking at the focal point.
func (c *Controller) Reset() {
	cfg := c.tuning.Load()
	c.state = State{
		Position:   cfg.RestPosition,
		LookTarget: cfg.FocalPoint,
		Mode:       Idle,
	}
	c.finish()
}

// State returns the state after the last Update.
func (c *Controller) State() State {
	return c.state
}

// Update advances the camera by dt seconds. An invalid dt selects the mode
// but moves nothing.
func (c *Controller) Update(in Input, dt float64) State {
	cfg := c.tuning.Load()
	c.state.Mode = SelectMode(in)

	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return c.state
	}

	switch c.state.Mode {
	case Focus:
		c.focus(cfg, in, dt)
	case Overview:
		c.overview(cfg, in, dt)
	default:
		c.idle(cfg, dt)
	}
	c.finish()
	return c.state
}

func (c *Controller) idle(cfg *Config, dt float64) {
	c.state.Position = approach(c.state.Position, cfg.RestPosition, cfg.IdlePositionRate, dt)
	c.state.LookTarget = approach(c.state.LookTarget, cfg.FocalPoint, cfg.IdleTargetRate, dt)
}

// overview keeps the camera on a sphere about the origin: the radius is
// smoothed, the azimuth integrates the rotation input directly.
func (c *Controller) overview(cfg *Config, in Input, dt float64) {
	c.state.LookTarget = approach(c.state.LookTarget, cfg.FocalPoint, cfg.OverviewTargetRate, dt)

	pos := c.state.Position
	dist := pos.Length()
	dir := front
	if dist > 0 {
		dir = pos.DivScalar(dist)
	}

	yaw := float32(in.Signal.RotationInput * dt * cfg.AngularRate)
	if yaw != 0 {
		dir = dir.MulQuat(math32.NewQuatAxisAngle(up, yaw))
	}

	k := float32(morph.StepFactor(cfg.OverviewRadiusRate, dt))
	dist += (cfg.OverviewRadius - dist) * k
	c.state.Position = dir.MulScalar(dist)
}

// focus frames the focused entity from outside the tree, along the ray from
// the origin through it.
func (c *Controller) focus(cfg *Config, in Input, dt float64) {
	dir := front
	if in.Focused.LengthSquared() > 0 {
		if n := in.Focused.Normal(); n.LengthSquared() >= cfg.MinDirectionSq {
			dir = n
		}
	}
	target := in.Focused.Add(dir.MulScalar(cfg.FocusDistance(in.ViewportWidth)))

	c.state.Position = approach(c.state.Position, target, cfg.FocusRate, dt)
	c.state.LookTarget = approach(c.state.LookTarget, in.Focused, cfg.FocusRate, dt)
}

func (c *Controller) finish() {
	c.state.Orientation = morph.LookRotation(c.state.Position, c.state.LookTarget)
	c.state.OrbitAngle = math32.Atan2(c.state.Position.X, c.state.Position.Z)
}

var (
	up    = math32.Vec3(0, 1, 0)
	front = math32.Vec3(0, 0, 1)
)

// approach moves v toward target by min(1, rate*dt) of the remaining distance.
func approach(v, target math32.Vector3, rate, dt float64) math32.Vector3 {
	return v.Lerp(target, float32(morph.StepFactor(rate, dt)))
}

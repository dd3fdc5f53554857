package camera

import (
	"errors"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-treeform/pkg/gesture"
	"github.com/teslashibe/go-treeform/pkg/morph"
)

const frame = 1.0 / 60

func steps(c *Controller, in Input, seconds float64) State {
	var s State
	for t := 0.0; t < seconds; t += frame {
		s = c.Update(in, frame)
	}
	return s
}

func assertNear(t *testing.T, want, got math32.Vector3, delta float64, msg string) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, msg)
	assert.InDelta(t, want.Y, got.Y, delta, msg)
	assert.InDelta(t, want.Z, got.Z, delta, msg)
}

func TestSelectMode_Priority(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want Mode
	}{
		{"nothing", Input{}, Idle},
		{"explode", Input{Signal: gesture.Signal{ExplodeRequested: true}}, Overview},
		{"sticky without entity", Input{Sticky: true, Signal: gesture.Signal{ExplodeRequested: true}}, Overview},
		{"focus beats explode", Input{Sticky: true, HasFocused: true, Signal: gesture.Signal{ExplodeRequested: true}}, Focus},
		{"focus alone", Input{Sticky: true, HasFocused: true}, Focus},
		{"entity without sticky", Input{HasFocused: true}, Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectMode(tt.in))
		})
	}
}

func TestController_StartsAtRest(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg)
	s := c.State()
	assert.Equal(t, cfg.RestPosition, s.Position)
	assert.Equal(t, cfg.FocalPoint, s.LookTarget)
	assert.Equal(t, Idle, s.Mode)
}

func TestController_IdleReturnsToRest(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg)

	// wander off in overview first
	steps(c, Input{Signal: gesture.Signal{ExplodeRequested: true, RotationInput: 1}}, 1)
	require.Greater(t, math32.Abs(c.State().Position.X), float32(1))

	s := steps(c, Input{}, 10)
	assert.Equal(t, Idle, s.Mode)
	assertNear(t, cfg.RestPosition, s.Position, 1e-3, "position")
	assertNear(t, cfg.FocalPoint, s.LookTarget, 1e-3, "look target")
}

func TestController_IdleRates(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg)
	c.state.Position = math32.Vec3(0, 0, 40)
	c.state.LookTarget = math32.Vec3(0, 13, 0)

	s := c.Update(Input{}, 0.1)
	// position covers 15% of the gap, look target 20%
	assert.InDelta(t, 43, s.Position.Z, 1e-4)
	assert.InDelta(t, 11, s.LookTarget.Y, 1e-4)
}

func TestController_OverviewRotationIsOpenLoop(t *testing.T) {
	c := NewController(DefaultConfig())

	s0 := c.Update(Input{Signal: gesture.Signal{ExplodeRequested: true, RotationInput: 0.5}}, 0.1)
	assert.Equal(t, Overview, s0.Mode)
	assert.InDelta(t, 0.1, s0.OrbitAngle, 1e-4, "0.5 * 0.1s * 2 rad/s")

	// zero input stops the orbit on the very next tick
	s1 := c.Update(Input{Signal: gesture.Signal{ExplodeRequested: true}}, 0.1)
	assert.InDelta(t, s0.OrbitAngle, s1.OrbitAngle, 1e-5)

	// reversing the input reverses immediately
	s2 := c.Update(Input{Signal: gesture.Signal{ExplodeRequested: true, RotationInput: -1}}, 0.1)
	assert.InDelta(t, s1.OrbitAngle-0.2, s2.OrbitAngle, 1e-4)
}

func TestController_OverviewRadiusConverges(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg)
	c.state.Position = math32.Vec3(0, 10, 20)

	s := steps(c, Input{Signal: gesture.Signal{ExplodeRequested: true, RotationInput: 0.3}}, 10)
	assert.InDelta(t, cfg.OverviewRadius, s.Position.Length(), 1e-2)
	assertNear(t, cfg.FocalPoint, s.LookTarget, 1e-3, "look target")
}

func TestController_FocusFramesEntity(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		distance float32
	}{
		{"wide", 1440, 6},
		{"narrow", 390, 12},
		{"unknown", 0, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(DefaultConfig())
			photo := math32.Vec3(8, 2, -5)
			in := Input{Sticky: true, HasFocused: true, Focused: photo, ViewportWidth: tt.width}

			s := steps(c, in, 3)
			assert.Equal(t, Focus, s.Mode)

			want := photo.Add(photo.Normal().MulScalar(tt.distance))
			assertNear(t, want, s.Position, 1e-3, "position")
			assertNear(t, photo, s.LookTarget, 1e-3, "look target")

			// camera looks down its -Z axis at the photo
			forward := math32.Vec3(0, 0, -1).MulQuat(s.Orientation)
			assert.Greater(t, forward.Dot(photo.Sub(s.Position).Normal()), float32(0.999))
		})
	}
}

func TestController_FocusAtOriginFallsBackToFront(t *testing.T) {
	c := NewController(DefaultConfig())
	s := steps(c, Input{Sticky: true, HasFocused: true, Focused: math32.Vector3{}}, 3)
	assertNear(t, math32.Vec3(0, 0, 6), s.Position, 1e-3, "position")
}

func TestController_FocusTracksMovingEntity(t *testing.T) {
	// the entity moves outward at the photo layer's focus speed; the camera
	// must keep a stable distance rather than let the subject rush the lens
	cfg := DefaultConfig()
	c := NewController(cfg)
	m := morph.NewSmoother(0)
	structural := math32.Vec3(5, 0, 0)
	scatter := math32.Vec3(35, 0, 0)

	var s State
	for i := 0; i < 180; i++ {
		m.Advance(1, 4.0, frame)
		photo := structural.Lerp(scatter, float32(m.Value))
		s = c.Update(Input{Sticky: true, HasFocused: true, Focused: photo}, frame)
		if i > 60 {
			gap := s.Position.Sub(photo).Length()
			assert.Greater(t, gap, cfg.FocusDistanceWide*0.8, "tick %d", i)
		}
	}
	assert.InDelta(t, 35+cfg.FocusDistanceWide, s.Position.X, 0.05)
}

func TestController_InvalidDTHoldsPose(t *testing.T) {
	c := NewController(DefaultConfig())
	before := c.State()
	s := c.Update(Input{Signal: gesture.Signal{ExplodeRequested: true, RotationInput: 1}}, -0.5)
	assert.Equal(t, Overview, s.Mode)
	assert.Equal(t, before.Position, s.Position)
}

func TestConfig_ValidateFor(t *testing.T) {
	m := morph.DefaultConfig()

	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateFor(&m))

	cfg.FocusRate = 4
	err := cfg.ValidateFor(&m)
	assert.True(t, errors.Is(err, ErrFocusTooSlow), "got %v", err)

	cfg = DefaultConfig()
	cfg.IdlePositionRate = 0
	assert.Error(t, cfg.Validate())

	for name, preset := range Presets() {
		assert.NoError(t, preset.ValidateFor(&m), name)
	}
}

func TestController_SetConfig(t *testing.T) {
	c := NewController(DefaultConfig())
	bad := DefaultConfig()
	bad.FocusRate = 0
	assert.Error(t, c.SetConfig(bad))

	good := SnappyConfig()
	require.NoError(t, c.SetConfig(good))
	assert.Equal(t, good, c.Config())
}

func TestModeMarshalText(t *testing.T) {
	b, err := Focus.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "focus", string(b))
}

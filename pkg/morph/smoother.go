package morph

import "math"

// Smoother exponentially approaches a target: v += (target - v) * min(1, dt*speed).
// With dt*speed clamped to [0,1] it never overshoots.
type Smoother struct {
	Value float64
}

// NewSmoother creates a smoother starting at v.
func NewSmoother(v float64) Smoother {
	return Smoother{Value: v}
}

// Advance steps toward target and returns the new value. Negative or NaN
// dt is a dropped frame and leaves the value untouched.
func (s *Smoother) Advance(target, speed, dt float64) float64 {
	if !validStep(dt) || math.IsNaN(speed) || speed < 0 {
		return s.Value
	}
	s.Value += (target - s.Value) * StepFactor(speed, dt)
	return s.Value
}

// StepFactor returns the fraction of the remaining distance covered in one
// step: min(1, dt*speed).
func StepFactor(speed, dt float64) float64 {
	k := dt * speed
	if k > 1 {
		return 1
	}
	if k < 0 {
		return 0
	}
	return k
}

func validStep(dt float64) bool {
	return dt >= 0 && !math.IsNaN(dt) && !math.IsInf(dt, 0)
}

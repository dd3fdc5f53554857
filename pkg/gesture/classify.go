package gesture

import "fmt"

// minHandScale is the smallest wrist-to-knuckle distance treated as a real hand.
const minHandScale = 1e-9

// Signal is the discrete control output derived from one frame of hands.
type Signal struct {
	ExplodeRequested bool    `json:"explode_requested"`
	FocusRequested   bool    `json:"focus_requested"`
	RotationInput    float64 `json:"rotation_input"` // -1..1, only meaningful in overview
}

// Config holds the classifier thresholds.
type Config struct {
	// OpenThreshold: a logical-left pinch ratio above this is an open hand.
	OpenThreshold float64 `yaml:"open_threshold" json:"open_threshold"`

	// PinchThreshold: a logical-right pinch ratio below this is a pinch.
	PinchThreshold float64 `yaml:"pinch_threshold" json:"pinch_threshold"`

	// MirrorInput inverts the detector's handedness once, mapping a
	// selfie-mirrored label to the user's actual hand.
	MirrorInput bool `yaml:"mirror_input" json:"mirror_input"`
}

// DefaultConfig returns the thresholds tuned for a front-facing webcam.
func DefaultConfig() Config {
	return Config{
		OpenThreshold:  0.5,
		PinchThreshold: 0.35,
		MirrorInput:    true,
	}
}

// Validate checks that the thresholds are usable.
func (c Config) Validate() error {
	if c.OpenThreshold <= 0 {
		return fmt.Errorf("open_threshold must be positive, got %v", c.OpenThreshold)
	}
	if c.PinchThreshold <= 0 {
		return fmt.Errorf("pinch_threshold must be positive, got %v", c.PinchThreshold)
	}
	return nil
}

// Classifier maps hand samples to a Signal. It is stateless; the zero value
// is not useful, use NewClassifier.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the thresholds in use.
func (c *Classifier) Config() Config {
	return c.cfg
}

// LogicalHand returns which of the user's hands a raw detector label refers to.
func (c *Classifier) LogicalHand(raw Handedness) Handedness {
	if c.cfg.MirrorInput {
		return raw.Opposite()
	}
	return raw
}

// Classify derives the frame's Signal. The logical left hand drives explosion
// (open hand), the logical right hand drives focus (pinch) and rotation.
// Hands are processed in detector order. Requests latch true if any hand of
// the side asks for them; the rotation of the last logical right hand wins.
func (c *Classifier) Classify(hands []HandSample) Signal {
	var sig Signal

	for i := range hands {
		hand := &hands[i]
		if !hand.Handedness.Valid() {
			continue
		}

		ratio, ok := hand.PinchRatio()
		if !ok {
			continue
		}

		switch c.LogicalHand(hand.Handedness) {
		case Left:
			if ratio > c.cfg.OpenThreshold {
				sig.ExplodeRequested = true
			}
		case Right:
			if ratio < c.cfg.PinchThreshold {
				sig.FocusRequested = true
			}
			sig.RotationInput = clamp((hand.Landmarks[MiddleMCP].X-0.5)*2, -1, 1)
		}
	}

	return sig
}

var defaultClassifier = NewClassifier(DefaultConfig())

// Classify runs the default classifier over one frame of hands.
func Classify(hands []HandSample) Signal {
	return defaultClassifier.Classify(hands)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

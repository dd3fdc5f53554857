package gesture

import (
	"math"
	"testing"
)

// makeHand builds a hand whose wrist→middle knuckle distance is 1/10 of the
// frame and whose thumb/index spread gives the requested pinch ratio.
func makeHand(raw Handedness, ratio, middleX float64) HandSample {
	var h HandSample
	h.Handedness = raw
	h.Score = 0.9

	h.Landmarks[MiddleMCP] = Point{X: middleX, Y: 0.5}
	h.Landmarks[Wrist] = Point{X: middleX, Y: 0.6}
	h.Landmarks[ThumbTip] = Point{X: 0.4, Y: 0.4}
	h.Landmarks[IndexTip] = Point{X: 0.4 + ratio*0.1, Y: 0.4}
	return h
}

func TestClassify_NoHands(t *testing.T) {
	sig := Classify(nil)
	if sig != (Signal{}) {
		t.Errorf("Classify(nil) = %+v, want zero signal", sig)
	}

	sig = Classify([]HandSample{})
	if sig != (Signal{}) {
		t.Errorf("Classify([]) = %+v, want zero signal", sig)
	}
}

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		hands       []HandSample
		wantExplode bool
		wantFocus   bool
		wantRot     float64
	}{
		{
			// raw Right is the user's left hand in a mirrored feed
			name:        "logical left open hand explodes",
			hands:       []HandSample{makeHand(Right, 0.6, 0.5)},
			wantExplode: true,
		},
		{
			name:  "logical left closed hand does nothing",
			hands: []HandSample{makeHand(Right, 0.3, 0.5)},
		},
		{
			name:      "logical right pinch focuses and rotates",
			hands:     []HandSample{makeHand(Left, 0.2, 0.75)},
			wantFocus: true,
			wantRot:   0.5,
		},
		{
			name:    "logical right open hand only rotates",
			hands:   []HandSample{makeHand(Left, 0.8, 0.25)},
			wantRot: -0.5,
		},
		{
			name:        "both hands",
			hands:       []HandSample{makeHand(Right, 0.9, 0.5), makeHand(Left, 0.1, 0.6)},
			wantExplode: true,
			wantFocus:   true,
			wantRot:     0.2,
		},
		{
			name:    "last right hand wins rotation",
			hands:   []HandSample{makeHand(Left, 0.8, 0.9), makeHand(Left, 0.8, 0.4)},
			wantRot: -0.2,
		},
		{
			name:    "rotation clamps",
			hands:   []HandSample{makeHand(Left, 0.8, 1.4)},
			wantRot: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Classify(tt.hands)
			if sig.ExplodeRequested != tt.wantExplode {
				t.Errorf("ExplodeRequested: got %v, want %v", sig.ExplodeRequested, tt.wantExplode)
			}
			if sig.FocusRequested != tt.wantFocus {
				t.Errorf("FocusRequested: got %v, want %v", sig.FocusRequested, tt.wantFocus)
			}
			if math.Abs(sig.RotationInput-tt.wantRot) > 1e-9 {
				t.Errorf("RotationInput: got %v, want %v", sig.RotationInput, tt.wantRot)
			}
		})
	}
}

func TestClassify_DegenerateHandSkipped(t *testing.T) {
	h := makeHand(Left, 0.1, 0.75)
	h.Landmarks[Wrist] = h.Landmarks[MiddleMCP]

	sig := Classify([]HandSample{h})
	if sig != (Signal{}) {
		t.Errorf("degenerate hand should be skipped, got %+v", sig)
	}
}

func TestClassify_UnknownHandednessSkipped(t *testing.T) {
	h := makeHand("Unknown", 0.9, 0.75)

	sig := Classify([]HandSample{h})
	if sig != (Signal{}) {
		t.Errorf("unknown handedness should be skipped, got %+v", sig)
	}
}

func TestClassifier_NoMirror(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MirrorInput = false
	c := NewClassifier(cfg)

	sig := c.Classify([]HandSample{makeHand(Left, 0.6, 0.5)})
	if !sig.ExplodeRequested {
		t.Error("without mirroring a raw Left open hand should explode")
	}
}

func TestClassify_Deterministic(t *testing.T) {
	hands := []HandSample{makeHand(Right, 0.7, 0.3), makeHand(Left, 0.2, 0.8)}
	first := Classify(hands)
	for i := 0; i < 10; i++ {
		if got := Classify(hands); got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestHandSample_PinchRatio(t *testing.T) {
	h := makeHand(Left, 0.42, 0.5)
	ratio, ok := h.PinchRatio()
	if !ok {
		t.Fatal("expected a valid ratio")
	}
	if math.Abs(ratio-0.42) > 1e-9 {
		t.Errorf("PinchRatio: got %v, want 0.42", ratio)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg := DefaultConfig()
	cfg.PinchThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero pinch threshold")
	}
}

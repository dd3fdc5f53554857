// Package gesture turns per-frame hand landmarks into discrete control signals.
//
// The landmark layout follows the MediaPipe hand model: 21 points per hand in
// normalized image space, plus a left/right label from the detector.
package gesture

import "math"

// Hand landmark indices following the MediaPipe convention.
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness is the left/right label reported by the detector.
type Handedness string

const (
	Left  Handedness = "Left"
	Right Handedness = "Right"
)

// Opposite returns the other hand. Unknown labels are returned unchanged.
func (h Handedness) Opposite() Handedness {
	switch h {
	case Left:
		return Right
	case Right:
		return Left
	default:
		return h
	}
}

// Valid reports whether h is Left or Right.
func (h Handedness) Valid() bool {
	return h == Left || h == Right
}

// Point is a 2-D landmark in normalized [0,1] image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// HandSample is one detected hand in one video frame.
type HandSample struct {
	Landmarks  [NumLandmarks]Point `json:"landmarks"`
	Handedness Handedness          `json:"handedness"` // raw detector label
	Score      float64             `json:"score"`
}

// Scale returns the wrist to middle-finger knuckle distance, used as the
// hand-size reference for all ratios.
func (h *HandSample) Scale() float64 {
	return Distance(h.Landmarks[Wrist], h.Landmarks[MiddleMCP])
}

// PinchRatio returns the thumb-tip to index-tip distance relative to hand
// scale. ok is false for degenerate samples whose scale is ~0.
func (h *HandSample) PinchRatio() (ratio float64, ok bool) {
	scale := h.Scale()
	if scale < minHandScale {
		return 0, false
	}
	return Distance(h.Landmarks[ThumbTip], h.Landmarks[IndexTip]) / scale, true
}

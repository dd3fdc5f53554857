package morph

import "fmt"

// LayerID identifies an independently smoothed group of entities.
type LayerID int

const (
	LayerFoliage LayerID = iota
	LayerEffects
	LayerOrnaments
	LayerStar
	LayerPhotos
	numLayers
)

var layerNames = [...]string{"foliage", "effects", "ornaments", "star", "photos"}

func (l LayerID) String() string {
	if l >= 0 && int(l) < len(layerNames) {
		return layerNames[l]
	}
	return "unknown"
}

// Layers lists every layer in render order.
func Layers() []LayerID {
	return []LayerID{LayerFoliage, LayerEffects, LayerOrnaments, LayerStar, LayerPhotos}
}

// LayerConfig holds one layer's smoothing rates.
type LayerConfig struct {
	Speed       float64 `yaml:"speed" json:"speed"`               // explosion rate constant (1/s)
	FocusSpeed  float64 `yaml:"focus_speed" json:"focus_speed"`   // rate while focus is sticky, 0 = Speed
	FadeOnFocus bool    `yaml:"fade_on_focus" json:"fade_on_focus"` // dim while another entity is focused
}

func (l LayerConfig) speed(focused bool) float64 {
	if focused && l.FocusSpeed > 0 {
		return l.FocusSpeed
	}
	return l.Speed
}

// TreeConfig is the cone the assembled form is built on.
type TreeConfig struct {
	Height float32 `yaml:"height" json:"height"`
	Radius float32 `yaml:"radius" json:"radius"`
}

// CountConfig sets how many procedural entities are generated per kind.
type CountConfig struct {
	Foliage int `yaml:"foliage" json:"foliage"`
	Dust    int `yaml:"dust" json:"dust"`
	Ribbon  int `yaml:"ribbon" json:"ribbon"`
	Boxes   int `yaml:"boxes" json:"boxes"`
	Spheres int `yaml:"spheres" json:"spheres"`
}

// PhotoConfig controls golden-angle photo placement.
type PhotoConfig struct {
	SurfaceOffset float32 `yaml:"surface_offset" json:"surface_offset"` // distance above the foliage surface
	EdgeMargin    float32 `yaml:"edge_margin" json:"edge_margin"`       // height kept free at top and bottom
	AngleJitter   float64 `yaml:"angle_jitter" json:"angle_jitter"`     // extra U(0,jitter) radians per photo
	ScatterMin    float32 `yaml:"scatter_min" json:"scatter_min"`
	ScatterRange  float32 `yaml:"scatter_range" json:"scatter_range"`
	ScatterJitter float32 `yaml:"scatter_jitter" json:"scatter_jitter"` // vertical spread of scatter targets
}

// Config holds all morph tuning.
type Config struct {
	Tree   TreeConfig  `yaml:"tree" json:"tree"`
	Counts CountConfig `yaml:"counts" json:"counts"`
	Photos PhotoConfig `yaml:"photos" json:"photos"`

	Foliage   LayerConfig `yaml:"foliage" json:"foliage"`
	Effects   LayerConfig `yaml:"effects" json:"effects"`
	Ornaments LayerConfig `yaml:"ornaments" json:"ornaments"`
	Star      LayerConfig `yaml:"star" json:"star"`
	Photo     LayerConfig `yaml:"photo" json:"photo"`

	// Opacity
	OpacitySpeed float64 `yaml:"opacity_speed" json:"opacity_speed"`
	FocusOpacity float64 `yaml:"focus_opacity" json:"focus_opacity"`

	// Orientation
	StructuralEpsilon float64 `yaml:"structural_epsilon" json:"structural_epsilon"` // below this the tree counts as assembled
	SwayRate          float32 `yaml:"sway_rate" json:"sway_rate"`
	SwayAmplitude     float32 `yaml:"sway_amplitude" json:"sway_amplitude"`
	SpinRateY         float32 `yaml:"spin_rate_y" json:"spin_rate_y"`
	SpinRateZ         float32 `yaml:"spin_rate_z" json:"spin_rate_z"`

	// Liveliness of the assembled form
	BreathRate      float32 `yaml:"breath_rate" json:"breath_rate"`
	BreathAmplitude float32 `yaml:"breath_amplitude" json:"breath_amplitude"`
	RibbonSpeed     float32 `yaml:"ribbon_speed" json:"ribbon_speed"`
	RibbonTurns     float32 `yaml:"ribbon_turns" json:"ribbon_turns"`
	RibbonClearance float32 `yaml:"ribbon_clearance" json:"ribbon_clearance"`

	// Star
	StarHeight float32 `yaml:"star_height" json:"star_height"` // above the tree top
	StarLift   float32 `yaml:"star_lift" json:"star_lift"`
	StarTilt   float32 `yaml:"star_tilt" json:"star_tilt"`
}

// DefaultConfig returns the tuning of the full-size tree.
func DefaultConfig() Config {
	return Config{
		Tree: TreeConfig{Height: 30, Radius: 12},
		Counts: CountConfig{
			Foliage: 18000,
			Dust:    3000,
			Ribbon:  2000,
			Boxes:   400,
			Spheres: 600,
		},
		Photos: PhotoConfig{
			SurfaceOffset: 0.6,
			EdgeMargin:    3,
			AngleJitter:   0,
			ScatterMin:    25,
			ScatterRange:  15,
			ScatterJitter: 10,
		},

		Foliage:   LayerConfig{Speed: 3.0, FadeOnFocus: true},
		Effects:   LayerConfig{Speed: 3.0, FadeOnFocus: true},
		Ornaments: LayerConfig{Speed: 3.0, FadeOnFocus: true},
		Star:      LayerConfig{Speed: 2.0, FadeOnFocus: true},
		Photo:     LayerConfig{Speed: 2.0, FocusSpeed: 4.0}, // fast snap into focus, gentle settle

		OpacitySpeed: 4.0,
		FocusOpacity: 0.05,

		StructuralEpsilon: 0.01,
		SwayRate:          1.5,
		SwayAmplitude:     0.05,
		SpinRateY:         0.5,
		SpinRateZ:         0.2,

		BreathRate:      2.0,
		BreathAmplitude: 0.05,
		RibbonSpeed:     2.0,
		RibbonTurns:     4,
		RibbonClearance: 3.5,

		StarHeight: 1.5,
		StarLift:   10,
		StarTilt:   0.5,
	}
}

// SmallConfig returns a sparse tree for tests and low-power renderers.
func SmallConfig() Config {
	cfg := DefaultConfig()
	cfg.Counts = CountConfig{
		Foliage: 300,
		Dust:    60,
		Ribbon:  40,
		Boxes:   20,
		Spheres: 30,
	}
	return cfg
}

// Layer returns the config of one layer.
func (c *Config) Layer(id LayerID) LayerConfig {
	switch id {
	case LayerFoliage:
		return c.Foliage
	case LayerEffects:
		return c.Effects
	case LayerOrnaments:
		return c.Ornaments
	case LayerStar:
		return c.Star
	default:
		return c.Photo
	}
}

// MaxSpeed returns the fastest explosion rate of any layer. Anything chasing
// a morphing entity must be faster than this.
func (c *Config) MaxSpeed() float64 {
	maxSpeed := 0.0
	for _, id := range Layers() {
		l := c.Layer(id)
		maxSpeed = max(maxSpeed, l.Speed, l.FocusSpeed)
	}
	return maxSpeed
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Tree.Height <= 0 || c.Tree.Radius <= 0 {
		return fmt.Errorf("tree height and radius must be positive, got %v/%v", c.Tree.Height, c.Tree.Radius)
	}
	if c.Photos.EdgeMargin*2 >= c.Tree.Height {
		return fmt.Errorf("photo edge_margin %v leaves no room on a tree of height %v", c.Photos.EdgeMargin, c.Tree.Height)
	}
	counts := []int{c.Counts.Foliage, c.Counts.Dust, c.Counts.Ribbon, c.Counts.Boxes, c.Counts.Spheres}
	for _, n := range counts {
		if n < 0 {
			return fmt.Errorf("entity counts must not be negative, got %v", c.Counts)
		}
	}
	for _, id := range Layers() {
		l := c.Layer(id)
		if l.Speed <= 0 || l.FocusSpeed < 0 {
			return fmt.Errorf("layer %s: speed must be positive, got %v/%v", id, l.Speed, l.FocusSpeed)
		}
	}
	if c.OpacitySpeed <= 0 {
		return fmt.Errorf("opacity_speed must be positive, got %v", c.OpacitySpeed)
	}
	if c.FocusOpacity < 0 || c.FocusOpacity > 1 {
		return fmt.Errorf("focus_opacity must be in [0,1], got %v", c.FocusOpacity)
	}
	if c.Photos.AngleJitter < 0 || c.Photos.ScatterRange < 0 {
		return fmt.Errorf("photo jitter and scatter range must not be negative")
	}
	return nil
}

// Package audio derives a smoothed beat level from frequency spectra and keeps
// track of the music the scene is playing.
package audio

import "fmt"

// Analyzer supplies the latest byte frequency spectrum. ok is false when no
// source is playing.
type Analyzer interface {
	FrequencyBins() (bins []byte, ok bool)
}

// Config holds the envelope follower tuning.
type Config struct {
	BassBins int     `yaml:"bass_bins" json:"bass_bins"` // lowest bins averaged
	Attack   float64 `yaml:"attack" json:"attack"`       // step fraction while rising
	Decay    float64 `yaml:"decay" json:"decay"`         // step fraction while falling
}

// DefaultConfig returns a fast-attack, slow-decay follower over the lowest 8 bins.
func DefaultConfig() Config {
	return Config{
		BassBins: 8,
		Attack:   0.3,
		Decay:    0.05,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.BassBins <= 0 {
		return fmt.Errorf("bass_bins must be positive, got %d", c.BassBins)
	}
	if c.Attack <= 0 || c.Attack > 1 || c.Decay <= 0 || c.Decay > 1 {
		return fmt.Errorf("attack and decay must be in (0,1], got %v/%v", c.Attack, c.Decay)
	}
	return nil
}

// Follower is an asymmetric envelope follower. Not safe for concurrent use.
type Follower struct {
	cfg   Config
	level float64
}

// NewFollower creates a follower at rest.
func NewFollower(cfg Config) *Follower {
	return &Follower{cfg: cfg}
}

// Level returns the current beat level in [0,1].
func (f *Follower) Level() float64 {
	return f.level
}

// Reset drops the level to zero.
func (f *Follower) Reset() {
	f.level = 0
}

// Update folds one spectrum into the level and returns it. Spectra shorter
// than BassBins are averaged over what is there; an empty spectrum means the
// source is gone and resets the level.
func (f *Follower) Update(bins []byte) float64 {
	n := min(f.cfg.BassBins, len(bins))
	if n == 0 {
		f.level = 0
		return 0
	}

	sum := 0
	for _, b := range bins[:n] {
		sum += int(b)
	}
	target := float64(sum) / float64(n) / 255

	step := f.cfg.Decay
	if target > f.level {
		step = f.cfg.Attack
	}
	f.level += (target - f.level) * step
	return f.level
}

// Poll reads the analyzer and updates the level.
func (f *Follower) Poll(a Analyzer) float64 {
	if a == nil {
		return f.Update(nil)
	}
	bins, ok := a.FrequencyBins()
	if !ok {
		return f.Update(nil)
	}
	return f.Update(bins)
}

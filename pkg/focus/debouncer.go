// Package focus turns the raw per-frame pinch signal into a sticky focus
// state that survives momentary gesture loss.
package focus

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/teslashibe/go-treeform/internal/log"
	"github.com/teslashibe/go-treeform/pkg/morph"
)

// DefaultReleaseDelay is how long focus outlives the pinch.
const DefaultReleaseDelay = 800 * time.Millisecond

// Phase is the debouncer's state.
type Phase int

const (
	Released Phase = iota
	Held
	Releasing
)

func (p Phase) String() string {
	switch p {
	case Released:
		return "released"
	case Held:
		return "held"
	case Releasing:
		return "releasing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config holds debouncer tuning.
type Config struct {
	ReleaseDelay time.Duration `yaml:"release_delay" json:"release_delay"`
}

// DefaultConfig returns the standard 800ms release delay.
func DefaultConfig() Config {
	return Config{ReleaseDelay: DefaultReleaseDelay}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.ReleaseDelay < 0 {
		return fmt.Errorf("release_delay must not be negative, got %v", c.ReleaseDelay)
	}
	return nil
}

// State is the debouncer output for one tick.
type State struct {
	Sticky          bool           `json:"sticky"`
	Phase           Phase          `json:"-"`
	ActiveEntity    morph.EntityID `json:"active_entity"`
	HasActive       bool           `json:"has_active"`
	ReleaseDeadline time.Time      `json:"release_deadline,omitzero"` // set only while Releasing
}

// Releasing reports whether a release deadline is pending.
func (s State) Releasing() bool {
	return s.Phase == Releasing
}

// Rand picks the focused entity. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Debouncer is the focus state machine. It is not safe for concurrent use;
// the frame loop owns it.
type Debouncer struct {
	cfg    Config
	rng    Rand
	logger *slog.Logger

	state       State
	transitions uint64
}

// New creates a debouncer in the Released state.
func New(cfg Config, rng Rand) *Debouncer {
	return &Debouncer{
		cfg:    cfg,
		rng:    rng,
		logger: log.Component("focus"),
	}
}

// State returns the state after the last Update.
func (d *Debouncer) State() State {
	return d.state
}

// Transitions returns how many phase changes have happened.
func (d *Debouncer) Transitions() uint64 {
	return d.transitions
}

// Reset returns to Released, dropping any selection.
func (d *Debouncer) Reset() {
	if d.state.Phase != Released {
		d.transitions++
	}
	d.state = State{}
}

// Update advances the state machine. raw is this frame's pinch signal, now is
// the tick timestamp and candidates are the entities focus may select. An
// empty candidate list keeps a Released debouncer released.
func (d *Debouncer) Update(raw bool, now time.Time, candidates []morph.EntityID) State {
	hasCandidates := len(candidates) > 0

	switch d.state.Phase {
	case Released:
		if raw && hasCandidates {
			d.enter(Held)
			d.state.ReleaseDeadline = time.Time{}
		}

	case Held:
		if !raw {
			d.enter(Releasing)
			d.state.ReleaseDeadline = now.Add(d.cfg.ReleaseDelay)
		}

	case Releasing:
		if raw {
			d.enter(Held)
			d.state.ReleaseDeadline = time.Time{}
		}
	}

	// An elapsed deadline releases, including one set this tick by a zero delay.
	if d.state.Phase == Releasing && !now.Before(d.state.ReleaseDeadline) {
		d.enter(Released)
		d.state = State{}
	}

	if d.state.Phase != Released {
		d.state.Sticky = true
		d.selectEntity(candidates)
	}
	return d.state
}

func (d *Debouncer) enter(p Phase) {
	if d.state.Phase == p {
		return
	}
	d.logger.Debug("focus transition", "from", d.state.Phase, "to", p)
	d.state.Phase = p
	d.transitions++
}

// selectEntity keeps the current selection while it is still a candidate and
// otherwise draws a new one uniformly at random.
func (d *Debouncer) selectEntity(candidates []morph.EntityID) {
	if d.state.HasActive && slices.Contains(candidates, d.state.ActiveEntity) {
		return
	}
	if len(candidates) == 0 {
		d.state.ActiveEntity, d.state.HasActive = 0, false
		return
	}
	d.state.ActiveEntity = candidates[d.rng.IntN(len(candidates))]
	d.state.HasActive = true
}

package morph

import (
	"fmt"
	"math"
	"sync"

	"cogentcore.org/core/math32"
)

// Input is everything the engine needs for one tick.
type Input struct {
	Exploding  bool // explode requested this tick
	Focused    bool // sticky focus
	FocusedID  EntityID
	HasFocused bool

	GroupYaw float32 // ambient rotation of the tree group
	Time     float64 // seconds since the scene started
	DT       float64
}

// LayerState is the smoothed state of one layer.
type LayerState struct {
	Layer     LayerID `json:"-"`
	Name      string  `json:"name"`
	Explosion float64 `json:"explosion"`
	Opacity   float64 `json:"opacity"`
}

// Transform is an entity pose in the tree group's local frame.
type Transform struct {
	ID          EntityID       `json:"id"`
	Kind        Kind           `json:"kind"`
	Position    math32.Vector3 `json:"position"`
	Orientation math32.Quat    `json:"orientation"`
	Scale       float32        `json:"scale"`
	Opacity     float64        `json:"opacity"`
	Explosion   float64        `json:"explosion"`
}

// spinState is the free rotation a photo accumulated while scattered.
type spinState struct {
	y, z float32
}

// Engine advances the per-layer explosion and opacity smoothers and derives
// entity poses from them. Advance and the pose methods are meant to be
// called from the frame goroutine; the arena may grow concurrently.
type Engine struct {
	cfg   Config
	arena *Arena

	mu        sync.RWMutex
	explosion [numLayers]Smoother
	opacity   [numLayers]Smoother
	spins     map[EntityID]spinState
	last      Input
}

// NewEngine creates an engine over arena. All layers start assembled and opaque.
func NewEngine(cfg Config, arena *Arena) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("morph: %w", err)
	}
	e := &Engine{
		cfg:   cfg,
		arena: arena,
		spins: make(map[EntityID]spinState),
	}
	for i := range e.opacity {
		e.opacity[i] = NewSmoother(1)
	}
	return e, nil
}

// Config returns the engine tuning.
func (e *Engine) Config() Config {
	return e.cfg
}

// Arena returns the entity store the engine reads.
func (e *Engine) Arena() *Arena {
	return e.arena
}

// Advance steps every layer toward its target. Frames with an invalid dt
// only record the input.
func (e *Engine) Advance(in Input) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.last = in
	if !validStep(in.DT) {
		return
	}

	target := 0.0
	if in.Exploding || in.Focused {
		target = 1
	}

	for _, id := range Layers() {
		lc := e.cfg.Layer(id)
		e.explosion[id].Advance(target, lc.speed(in.Focused), in.DT)

		opacity := 1.0
		if in.Focused && lc.FadeOnFocus {
			opacity = e.cfg.FocusOpacity
		}
		e.opacity[id].Advance(opacity, e.cfg.OpacitySpeed, in.DT)
	}

	if e.explosion[LayerPhotos].Value > e.cfg.StructuralEpsilon {
		dy := e.cfg.SpinRateY * float32(in.DT)
		dz := e.cfg.SpinRateZ * float32(in.DT)
		for _, id := range e.arena.IDs(KindPhoto) {
			s := e.spins[id]
			s.y += dy
			s.z += dz
			e.spins[id] = s
		}
	} else if len(e.spins) > 0 {
		clear(e.spins)
	}
}

// Reset returns every layer to the assembled, opaque state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.explosion {
		e.explosion[i] = NewSmoother(0)
		e.opacity[i] = NewSmoother(1)
	}
	clear(e.spins)
	e.last = Input{}
}

// Explosion returns the current explosion scalar of a layer.
func (e *Engine) Explosion(id LayerID) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.explosion[id].Value
}

// Layers returns the state of every layer.
func (e *Engine) Layers() []LayerState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]LayerState, 0, numLayers)
	for _, id := range Layers() {
		out = append(out, LayerState{
			Layer:     id,
			Name:      id.String(),
			Explosion: e.explosion[id].Value,
			Opacity:   e.opacity[id].Value,
		})
	}
	return out
}

// Pose returns the transform of one entity at the current tick, seen from a
// camera at the given world position.
func (e *Engine) Pose(id EntityID, camera math32.Vector3) (Transform, error) {
	ent, ok := e.arena.Get(id)
	if !ok {
		return Transform{}, ErrUnknownEntity
	}
	if ent.Removed {
		return Transform{}, ErrEntityRemoved
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pose(&ent, camera), nil
}

// Transforms appends the transforms of every live entity accepted by keep
// to buf and returns it. A nil keep accepts everything.
func (e *Engine) Transforms(camera math32.Vector3, keep func(Kind) bool, buf []Transform) []Transform {
	snap := e.arena.Snapshot()

	e.mu.RLock()
	defer e.mu.RUnlock()

	for i := range snap {
		ent := &snap[i]
		if ent.Removed || (keep != nil && !keep(ent.Kind)) {
			continue
		}
		buf = append(buf, e.pose(ent, camera))
	}
	return buf
}

// LocalPosition returns the group-local position of an entity at the
// current tick.
func (e *Engine) LocalPosition(id EntityID) (math32.Vector3, error) {
	ent, ok := e.arena.Get(id)
	if !ok {
		return math32.Vector3{}, ErrUnknownEntity
	}
	if ent.Removed {
		return math32.Vector3{}, ErrEntityRemoved
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position(&ent, float32(e.last.Time)), nil
}

// WorldPosition returns the world-space position of an entity, including the
// ambient group rotation.
func (e *Engine) WorldPosition(id EntityID, groupYaw float32) (math32.Vector3, error) {
	p, err := e.LocalPosition(id)
	if err != nil {
		return p, err
	}
	return ToWorld(p, groupYaw), nil
}

func (e *Engine) position(ent *Entity, t float32) math32.Vector3 {
	s := float32(e.explosion[ent.Kind.Layer()].Value)
	structural := ent.Structural

	switch ent.Kind {
	case KindRibbon:
		structural = ribbonPoint(&e.cfg, ent.Offset, t)
	case KindFoliage:
		structural = breathe(structural, t, e.cfg.BreathRate, ent.Offset, e.cfg.BreathAmplitude)
	}
	return Mix(structural, ent.Scatter, s)
}

// pose derives one transform from the last advanced input. camera is the
// camera world position used for billboarding.
func (e *Engine) pose(ent *Entity, camera math32.Vector3) Transform {
	in := &e.last
	layer := ent.Kind.Layer()
	s := e.explosion[layer].Value
	t := float32(in.Time)

	tr := Transform{
		ID:          ent.ID,
		Kind:        ent.Kind,
		Position:    e.position(ent, t),
		Orientation: ent.Basis,
		Scale:       ent.Scale,
		Opacity:     e.opacity[layer].Value,
		Explosion:   s,
	}

	switch ent.Kind {
	case KindPhoto:
		switch {
		case in.Focused && in.HasFocused && in.FocusedID == ent.ID:
			world := ToWorld(tr.Position, in.GroupYaw)
			tr.Orientation = billboard(camera, world, in.GroupYaw)
		case s > e.cfg.StructuralEpsilon:
			sp := e.spins[ent.ID]
			tr.Orientation = spin(ent.Basis, sp.y, sp.z)
		default:
			angle := float32(math.Sin(float64(t*e.cfg.SwayRate+ent.Offset))) * e.cfg.SwayAmplitude
			tr.Orientation = sway(ent.Basis, angle)
		}
	case KindStar:
		tr.Orientation = tilt(e.cfg.StarTilt * float32(s))
	}
	return tr
}

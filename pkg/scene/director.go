package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-treeform/internal/log"
	"github.com/teslashibe/go-treeform/pkg/audio"
	"github.com/teslashibe/go-treeform/pkg/camera"
	"github.com/teslashibe/go-treeform/pkg/focus"
	"github.com/teslashibe/go-treeform/pkg/gesture"
	"github.com/teslashibe/go-treeform/pkg/morph"
)

var (
	// ErrTooManyPhotos is returned when an upload would exceed MaxPhotos.
	ErrTooManyPhotos = errors.New("photo limit reached")

	// ErrNoPhotos is returned for an empty upload.
	ErrNoPhotos = errors.New("no photos in upload")
)

// Options gathers the tuning of every subsystem the director owns.
type Options struct {
	Scene   Config
	Gesture gesture.Config
	Focus   focus.Config
	Morph   morph.Config
	Camera  camera.Config
	Audio   audio.Config
	Logger  *slog.Logger
}

// DefaultOptions returns the full-size scene.
func DefaultOptions() Options {
	return Options{
		Scene:   DefaultConfig(),
		Gesture: gesture.DefaultConfig(),
		Focus:   focus.DefaultConfig(),
		Morph:   morph.DefaultConfig(),
		Camera:  camera.DefaultConfig(),
		Audio:   audio.DefaultConfig(),
	}
}

// Validate checks every subsystem and the camera/morph rate relationship.
func (o *Options) Validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"scene", o.Scene.Validate()},
		{"gesture", o.Gesture.Validate()},
		{"focus", o.Focus.Validate()},
		{"morph", o.Morph.Validate()},
		{"camera", o.Camera.ValidateFor(&o.Morph)},
		{"audio", o.Audio.Validate()},
	}
	for _, c := range checks {
		if c.err != nil {
			return fmt.Errorf("%s: %w", c.name, c.err)
		}
	}
	return nil
}

// Frame is everything a renderer needs for one tick.
type Frame struct {
	Seq        uint64             `json:"seq"`
	At         time.Time          `json:"at"`
	Time       float64            `json:"time"` // seconds since the scene started
	Signal     gesture.Signal     `json:"signal"`
	Focus      focus.State        `json:"focus"`
	Camera     camera.State       `json:"camera"`
	GroupYaw   float32            `json:"group_yaw"`
	Layers     []morph.LayerState `json:"layers"`
	Beat       float64            `json:"beat"`
	Detector   DetectorStatus     `json:"detector"`
	Transforms []morph.Transform  `json:"transforms"`
}

// DetectorStatus is how the director last saw the hand detector.
type DetectorStatus struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
	Hands int    `json:"hands"`
	Stale bool   `json:"stale"` // last reading older than the signal timeout
}

// Director owns every piece of per-frame state and advances it in Tick.
// Tick and Run must be driven from a single goroutine; the Submit, Set and
// Upload methods may be called from anywhere.
type Director struct {
	cfg    Config
	logger *slog.Logger
	keep   func(morph.Kind) bool

	classifier *gesture.Classifier
	latest     gesture.Latest
	readiness  gesture.Readiness

	arena    *morph.Arena
	placer   *morph.Placer
	engine   *morph.Engine
	debounce *focus.Debouncer
	camera   *camera.Controller
	cameras  *camera.Manager
	follower *audio.Follower
	tracks   *audio.Tracks

	bins     atomic.Pointer[[]byte]
	viewport atomic.Int64
	last     atomic.Pointer[Frame]
	uploadMu sync.Mutex

	// frame goroutine only
	detector DetectorStatus
	groupYaw float32
	elapsed  float64
	seq      uint64
	streamed int
	onFrame  func(Frame)
}

// New builds the scene: the procedural tree is generated immediately,
// photos arrive later through UploadPhotos.
func New(opts Options) (*Director, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	keep, _ := opts.Scene.kindFilter()

	logger := opts.Logger
	if logger == nil {
		logger = log.Component("scene")
	}

	seed := opts.Scene.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	placeRand := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
	focusRand := rand.New(rand.NewPCG(seed, 0xbf58476d1ce4e5b9))

	arena := morph.NewArena()
	placer := morph.NewPlacer(opts.Morph, placeRand)
	arena.Add(placer.Tree()...)

	engine, err := morph.NewEngine(opts.Morph, arena)
	if err != nil {
		return nil, err
	}

	d := &Director{
		cfg:        opts.Scene,
		logger:     logger,
		keep:       keep,
		classifier: gesture.NewClassifier(opts.Gesture),
		arena:      arena,
		placer:     placer,
		engine:     engine,
		debounce:   focus.New(opts.Focus, focusRand),
		camera:     camera.NewController(opts.Camera),
		cameras:    camera.NewManager(opts.Camera, opts.Morph),
		follower:   audio.NewFollower(opts.Audio),
		tracks:     audio.NewTracks(opts.Scene.MaxMusicBytes),
	}
	d.cameras.OnConfigChange = d.camera.SetConfig

	logger.Info("scene built",
		"entities", arena.Len(),
		"seed", seed,
		"start_angle", placer.StartAngle())
	return d, nil
}

// OnFrame registers the consumer of frames produced by Run. It must be set
// before Run starts.
func (d *Director) OnFrame(fn func(Frame)) {
	d.onFrame = fn
}

// Readiness is resolved by whoever owns the hand detector.
func (d *Director) Readiness() *gesture.Readiness {
	return &d.readiness
}

// Arena returns the entity store.
func (d *Director) Arena() *morph.Arena {
	return d.arena
}

// Engine returns the morph engine.
func (d *Director) Engine() *morph.Engine {
	return d.engine
}

// Cameras returns the runtime camera tuning manager.
func (d *Director) Cameras() *camera.Manager {
	return d.cameras
}

// Tracks returns the music registry.
func (d *Director) Tracks() *audio.Tracks {
	return d.tracks
}

// LastFrame returns the most recent frame, if any.
func (d *Director) LastFrame() (Frame, bool) {
	f := d.last.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// SubmitHands classifies one detector result and makes it the current signal.
func (d *Director) SubmitHands(hands []gesture.HandSample, at time.Time) gesture.Signal {
	sig := d.classifier.Classify(hands)
	d.latest.Store(gesture.Reading{Signal: sig, Hands: len(hands), At: at})
	return sig
}

// SubmitBins replaces the latest frequency spectrum. nil means the source stopped.
func (d *Director) SubmitBins(bins []byte) {
	if bins == nil {
		d.bins.Store(nil)
		return
	}
	cp := append([]byte(nil), bins...)
	d.bins.Store(&cp)
}

// FrequencyBins implements audio.Analyzer over the submitted spectrum.
func (d *Director) FrequencyBins() ([]byte, bool) {
	b := d.bins.Load()
	if b == nil {
		return nil, false
	}
	return *b, true
}

// SetViewport records the renderer's viewport width in pixels.
func (d *Director) SetViewport(width int) {
	d.viewport.Store(int64(width))
}

// UploadPhotos places new photos on the tree and returns them with their IDs.
func (d *Director) UploadPhotos(names []string) ([]morph.Entity, error) {
	if len(names) == 0 {
		return nil, ErrNoPhotos
	}

	d.uploadMu.Lock()
	defer d.uploadMu.Unlock()

	if limit := d.cfg.MaxPhotos; limit > 0 {
		if have := len(d.arena.IDs(morph.KindPhoto)); have+len(names) > limit {
			return nil, fmt.Errorf("%w: %d + %d > %d", ErrTooManyPhotos, have, len(names), limit)
		}
	}

	ents := d.placer.Photos(len(names), names)
	ids := d.arena.Add(ents...)
	for i := range ents {
		ents[i].ID = ids[i]
	}
	d.logger.Info("photos uploaded", "count", len(ents), "total", len(d.arena.IDs(morph.KindPhoto)))
	return ents, nil
}

// RemovePhoto takes a photo off the tree.
func (d *Director) RemovePhoto(uploadID uuid.UUID) error {
	d.uploadMu.Lock()
	defer d.uploadMu.Unlock()

	e, ok := d.arena.FindUpload(uploadID)
	if !ok {
		return morph.ErrUnknownEntity
	}
	if err := d.arena.Remove(e.ID); err != nil {
		return err
	}
	d.logger.Info("photo removed", "id", e.ID, "upload", uploadID)
	return nil
}

// Photos returns the live photos.
func (d *Director) Photos() []morph.Entity {
	var out []morph.Entity
	for _, e := range d.arena.Snapshot() {
		if e.Kind == morph.KindPhoto && !e.Removed {
			out = append(out, e)
		}
	}
	return out
}

// UploadMusic registers and selects a new track.
func (d *Director) UploadMusic(name, contentType string, data []byte) (audio.Track, error) {
	t, err := d.tracks.Upload(name, contentType, data)
	if err != nil {
		return t, err
	}
	d.logger.Info("music uploaded", "name", name, "bytes", len(data))
	return t, nil
}

// Tick advances every subsystem by dt seconds at time now and returns the
// resulting frame. Frames with an invalid dt still report state but move
// nothing.
func (d *Director) Tick(now time.Time, dt float64) Frame {
	valid := dt >= 0 && !math.IsNaN(dt) && !math.IsInf(dt, 0)
	if !valid {
		d.logger.Debug("dropping invalid frame delta", "dt", dt)
	} else {
		d.elapsed += dt
	}

	d.observeDetector()
	sig := d.signal(now)

	fs := d.debounce.Update(sig.FocusRequested, now, d.arena.IDs(morph.KindPhoto))
	exploding := sig.ExplodeRequested

	// the tree only idles round while nothing is asking for attention
	if valid && !exploding && !fs.Sticky {
		d.groupYaw = float32(math.Mod(float64(d.groupYaw)+dt*d.cfg.AmbientRate, 2*math.Pi))
	}

	d.engine.Advance(morph.Input{
		Exploding:  exploding,
		Focused:    fs.Sticky,
		FocusedID:  fs.ActiveEntity,
		HasFocused: fs.HasActive,
		GroupYaw:   d.groupYaw,
		Time:       d.elapsed,
		DT:         dt,
	})

	camIn := camera.Input{
		Signal:        sig,
		Sticky:        fs.Sticky,
		ViewportWidth: int(d.viewport.Load()),
	}
	if fs.HasActive {
		if p, err := d.engine.WorldPosition(fs.ActiveEntity, d.groupYaw); err == nil {
			camIn.Focused, camIn.HasFocused = p, true
		}
	}
	cam := d.camera.Update(camIn, dt)

	// frames are shared with every subscriber, so each gets its own slice
	transforms := d.engine.Transforms(cam.Position, d.keep, make([]morph.Transform, 0, d.streamed))
	d.streamed = len(transforms)

	d.seq++
	f := Frame{
		Seq:        d.seq,
		At:         now,
		Time:       d.elapsed,
		Signal:     sig,
		Focus:      fs,
		Camera:     cam,
		GroupYaw:   d.groupYaw,
		Layers:     d.engine.Layers(),
		Beat:       d.follower.Poll(d),
		Detector:   d.detector,
		Transforms: transforms,
	}
	d.last.Store(&f)
	return f
}

// observeDetector picks up the readiness transition once.
func (d *Director) observeDetector() {
	if d.detector.Ready || d.detector.Error != "" {
		return
	}
	select {
	case <-d.readiness.Done():
		if err := d.readiness.Err(); err != nil {
			d.detector.Error = err.Error()
			d.logger.Error("hand detector failed", "error", err)
			return
		}
		d.detector.Ready = true
		d.logger.Info("hand detector ready")
	default:
	}
}

// signal returns the current gesture signal, treating a stale reading as an
// empty frame so a vanished detector cannot hold the tree open.
func (d *Director) signal(now time.Time) gesture.Signal {
	r, ok := d.latest.Load()
	if !ok {
		d.detector.Hands, d.detector.Stale = 0, false
		return gesture.Signal{}
	}
	d.detector.Hands = r.Hands
	d.detector.Stale = d.cfg.SignalTimeout > 0 && now.Sub(r.At) > d.cfg.SignalTimeout
	if d.detector.Stale {
		return gesture.Signal{}
	}
	return r.Signal
}

// Run ticks at the configured interval until ctx is cancelled, handing
// every frame to the OnFrame consumer.
func (d *Director) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	d.logger.Info("scene loop started", "interval", d.cfg.TickInterval)
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("scene loop stopped", "frames", d.seq)
			return nil

		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			f := d.Tick(now, dt)
			if d.onFrame != nil {
				d.onFrame(f)
			}
		}
	}
}

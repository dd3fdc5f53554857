// Package capture pumps frames from a local camera into the scene: detected
// hands go to the director, JPEG previews go to whoever is watching.
//
// The camera itself lives behind Source; pkg/capture/webcam provides the
// OpenCV implementation.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-treeform/internal/log"
	"github.com/teslashibe/go-treeform/pkg/gesture"
)

// ErrCameraUnavailable is returned when the source keeps failing.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Config holds local capture settings.
type Config struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Device       int           `yaml:"device" json:"device"`
	Width        int           `yaml:"width" json:"width"`
	Height       int           `yaml:"height" json:"height"`
	FPS          float64       `yaml:"fps" json:"fps"`
	Mirror       bool          `yaml:"mirror" json:"mirror"`               // selfie view, matches the classifier's MirrorInput
	JPEGQuality  int           `yaml:"jpeg_quality" json:"jpeg_quality"`   // 1-100
	PreviewEvery int           `yaml:"preview_every" json:"preview_every"` // encode one preview per N frames, 0 = never
	MaxFailures  int           `yaml:"max_failures" json:"max_failures"`   // consecutive read failures before giving up
	RetryDelay   time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// DefaultConfig returns a mirrored 640x480 webcam at 30 fps with a preview
// every other frame.
func DefaultConfig() Config {
	return Config{
		Device:       0,
		Width:        640,
		Height:       480,
		FPS:          30,
		Mirror:       true,
		JPEGQuality:  70,
		PreviewEvery: 2,
		MaxFailures:  30,
		RetryDelay:   100 * time.Millisecond,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be in [1,100], got %d", c.JPEGQuality)
	}
	if c.PreviewEvery < 0 || c.MaxFailures < 1 || c.RetryDelay < 0 {
		return fmt.Errorf("preview_every, max_failures or retry_delay out of range")
	}
	return nil
}

// Frame is what a source produced for one camera frame.
type Frame struct {
	At time.Time

	// Detected is set when a detector ran on the frame. Hands may then be
	// empty, which means no hands were visible.
	Detected  bool
	Hands     []gesture.HandSample
	DetectErr error

	// Preview is an encoded JPEG, nil on frames without one.
	Preview []byte
}

// Source produces camera frames. Next blocks until a frame is available.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Sink receives detected hands. *scene.Director implements it.
type Sink interface {
	SubmitHands(hands []gesture.HandSample, at time.Time) gesture.Signal
}

// Pump moves frames from a Source to the scene.
type Pump struct {
	cfg     Config
	src     Source
	sink    Sink
	ready   *gesture.Readiness
	logger  *slog.Logger
	preview func(jpeg []byte)

	frames   atomic.Uint64
	resolved bool
}

// NewPump creates a pump. ready, if non-nil, is resolved by the first
// detector result.
func NewPump(cfg Config, src Source, sink Sink, ready *gesture.Readiness) *Pump {
	return &Pump{
		cfg:    cfg,
		src:    src,
		sink:   sink,
		ready:  ready,
		logger: log.Component("capture"),
	}
}

// OnPreview registers the consumer of JPEG previews. Set before Run.
func (p *Pump) OnPreview(fn func(jpeg []byte)) {
	p.preview = fn
}

// Frames returns the number of frames read so far.
func (p *Pump) Frames() uint64 {
	return p.frames.Load()
}

// Run reads frames until ctx is cancelled or the source fails MaxFailures
// times in a row. The source is closed on return.
func (p *Pump) Run(ctx context.Context) error {
	defer p.src.Close()
	p.logger.Info("capture started", "device", p.cfg.Device)

	failures := 0
	for {
		if ctx.Err() != nil {
			p.logger.Info("capture stopped", "frames", p.frames.Load())
			return nil
		}

		f, err := p.src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			failures++
			p.logger.Warn("camera read failed", "error", err, "failures", failures)
			if failures >= p.cfg.MaxFailures {
				err = fmt.Errorf("%w: %d consecutive failures: %w", ErrCameraUnavailable, failures, err)
				p.resolve(err)
				return err
			}
			select {
			case <-time.After(p.cfg.RetryDelay):
			case <-ctx.Done():
			}
			continue
		}
		failures = 0
		p.frames.Add(1)
		p.handle(&f)
	}
}

func (p *Pump) handle(f *Frame) {
	if f.Detected {
		if f.DetectErr != nil {
			if !p.resolved {
				p.logger.Error("hand detector failed", "error", f.DetectErr)
			} else {
				p.logger.Debug("detection failed", "error", f.DetectErr)
			}
			p.resolve(f.DetectErr)
		} else {
			p.resolve(nil)
			p.sink.SubmitHands(f.Hands, f.At)
		}
	}
	if f.Preview != nil && p.preview != nil {
		p.preview(f.Preview)
	}
}

func (p *Pump) resolve(err error) {
	if p.resolved || p.ready == nil {
		p.resolved = true
		return
	}
	p.resolved = true
	p.ready.Resolve(err)
}

// Package webcam reads a local camera through OpenCV and turns each frame
// into a capture.Frame: mirrored, optionally run through a hand detector and
// periodically encoded as a JPEG preview.
package webcam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-treeform/pkg/capture"
	"github.com/teslashibe/go-treeform/pkg/gesture"
)

// ErrReadFailed is returned when the camera delivers no frame.
var ErrReadFailed = errors.New("camera read failed")

// Detector finds hand landmarks in a frame. Landmarks are normalized to
// [0,1] image coordinates of the frame it was given.
type Detector interface {
	Detect(frame *gocv.Mat) ([]gesture.HandSample, error)
	Close() error
}

// Webcam is a capture.Source backed by gocv.VideoCapture.
type Webcam struct {
	cfg capture.Config
	cam *gocv.VideoCapture
	det Detector

	mu      sync.Mutex // protects the mats
	raw     gocv.Mat
	flipped gocv.Mat
	seq     uint64
}

// Open opens the configured device. det may be nil when hands are detected
// elsewhere (the browser); the webcam then only produces previews.
func Open(cfg capture.Config, det Detector) (*Webcam, error) {
	cam, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}
	if !cam.IsOpened() {
		cam.Close()
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, capture.ErrCameraUnavailable)
	}

	cam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	if cfg.FPS > 0 {
		cam.Set(gocv.VideoCaptureFPS, cfg.FPS)
	}

	return &Webcam{
		cfg:     cfg,
		cam:     cam,
		det:     det,
		raw:     gocv.NewMat(),
		flipped: gocv.NewMat(),
	}, nil
}

// Next grabs one frame. VideoCapture.Read blocks for the next frame from
// the driver, so ctx is only checked between frames.
func (w *Webcam) Next(ctx context.Context) (capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return capture.Frame{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if ok := w.cam.Read(&w.raw); !ok || w.raw.Empty() {
		return capture.Frame{}, ErrReadFailed
	}
	f := capture.Frame{At: time.Now()}
	w.seq++

	img := &w.raw
	if w.cfg.Mirror {
		// 1 = around the vertical axis
		gocv.Flip(w.raw, &w.flipped, 1)
		img = &w.flipped
	}

	if w.det != nil {
		f.Detected = true
		f.Hands, f.DetectErr = w.det.Detect(img)
	}

	if w.cfg.PreviewEvery > 0 && w.seq%uint64(w.cfg.PreviewEvery) == 0 {
		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *img, []int{gocv.IMWriteJpegQuality, w.cfg.JPEGQuality})
		if err != nil {
			return f, nil
		}
		// the native buffer is freed on Close, so keep a Go copy
		f.Preview = append([]byte(nil), buf.GetBytes()...)
		buf.Close()
	}
	return f, nil
}

// Close releases the camera, the detector and the frame buffers.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if w.det != nil {
		errs = append(errs, w.det.Close())
	}
	errs = append(errs, w.cam.Close(), w.raw.Close(), w.flipped.Close())
	return errors.Join(errs...)
}

// Package photodir watches a directory and hangs every image dropped into it
// on the tree.
package photodir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teslashibe/go-treeform/internal/log"
)

// ErrNoDir is returned by Validate when the watcher is enabled without a directory.
var ErrNoDir = errors.New("photo directory not set")

// Config holds watcher settings. An empty Dir disables the watcher.
type Config struct {
	Dir            string        `yaml:"dir" json:"dir"`
	Debounce       time.Duration `yaml:"debounce" json:"debounce"`               // quiet period before a file is read
	Extensions     []string      `yaml:"extensions" json:"extensions"`           // lower case, with the dot
	ImportExisting bool          `yaml:"import_existing" json:"import_existing"` // upload what is already there on start
	MaxBytes       int64         `yaml:"max_bytes" json:"max_bytes"`             // larger files are skipped
}

// DefaultConfig returns a disabled watcher with the usual phone photo formats.
func DefaultConfig() Config {
	return Config{
		Debounce:       500 * time.Millisecond,
		Extensions:     []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
		ImportExisting: true,
		MaxBytes:       32 << 20,
	}
}

// Enabled reports whether a directory is configured.
func (c Config) Enabled() bool { return c.Dir != "" }

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %v", c.Debounce)
	}
	if c.MaxBytes <= 0 {
		return fmt.Errorf("max_bytes must be positive, got %d", c.MaxBytes)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	return nil
}

// File is one image read from the directory.
type File struct {
	Path        string
	Name        string
	ContentType string
	Data        []byte
}

// Sink receives a settled batch of new files.
type Sink func(files []File) error

// Stats tracks watcher activity.
type Stats struct {
	Events   int
	Imported int
	Skipped  int
	Errors   int
}

// Watcher uploads new images from Config.Dir.
type Watcher struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	seen    map[string]bool
	stats   Stats
}

// New creates a watcher. Nothing is watched until Run.
func New(cfg Config, sink Sink) (*Watcher, error) {
	if !cfg.Enabled() {
		return nil, ErrNoDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Watcher{
		cfg:     cfg,
		sink:    sink,
		logger:  log.Component("photodir").With("dir", cfg.Dir),
		pending: make(map[string]time.Time),
		seen:    make(map[string]bool),
	}, nil
}

// Stats returns a copy of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run watches the directory until ctx is cancelled. The directory is
// created if missing.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create photo dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.logger.Info("watching for photos")

	if w.cfg.ImportExisting {
		w.importExisting()
	}

	tick := w.cfg.Debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("photo watcher stopped", "imported", w.Stats().Imported)
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(time.Now())
		}
	}
}

func (w *Watcher) wanted(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return slices.Contains(w.cfg.Extensions, strings.ToLower(filepath.Ext(base)))
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !w.wanted(ev.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Events++

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if w.seen[ev.Name] {
			return
		}
		w.pending[ev.Name] = time.Now()
		w.logger.Debug("photo event", "op", ev.Op.String(), "path", ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// a file dropped again under the same name is a new photo
		delete(w.pending, ev.Name)
		delete(w.seen, ev.Name)
	}
}

func (w *Watcher) importExisting() {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Error("list photo dir", "error", err)
		return
	}
	var paths []string
	for _, e := range entries {
		p := filepath.Join(w.cfg.Dir, e.Name())
		if e.Type().IsRegular() && w.wanted(p) {
			paths = append(paths, p)
		}
	}
	w.upload(paths)
}

// flush uploads every pending file that has been quiet for Debounce.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for p, at := range w.pending {
		if now.Sub(at) >= w.cfg.Debounce {
			ready = append(ready, p)
			delete(w.pending, p)
		}
	}
	w.mu.Unlock()

	if len(ready) > 0 {
		w.upload(ready)
	}
}

func (w *Watcher) upload(paths []string) {
	sort.Strings(paths)

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := w.read(p)
		if err != nil {
			w.logger.Warn("skipping photo", "path", p, "error", err)
			w.mu.Lock()
			w.stats.Skipped++
			w.mu.Unlock()
			continue
		}
		files = append(files, f)
	}

	w.mu.Lock()
	for _, p := range paths {
		w.seen[p] = true
	}
	w.mu.Unlock()

	if len(files) == 0 {
		return
	}
	if err := w.sink(files); err != nil {
		w.logger.Error("photo upload failed", "count", len(files), "error", err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.Imported += len(files)
	w.mu.Unlock()
	w.logger.Info("photos imported", "count", len(files))
}

func (w *Watcher) read(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.Size() > w.cfg.MaxBytes {
		return File{}, fmt.Errorf("%d bytes exceeds max_bytes", info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return File{}, fmt.Errorf("not an image (%s)", ct)
	}
	return File{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: ct,
		Data:        data,
	}, nil
}

package audio

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Built-in tracks. The fallback is tried once when the default fails to play.
const (
	DefaultTrackURL  = "https://upload.wikimedia.org/wikipedia/commons/e/e6/Kevin_MacLeod_-_Jingle_Bells.ogg"
	FallbackTrackURL = "https://actions.google.com/sounds/v1/holidays/jingle_bells.ogg"
)

var (
	// ErrNotAudio is returned for uploads whose content type is not audio/*.
	ErrNotAudio = errors.New("not an audio file")

	// ErrTooLarge is returned for uploads over the configured limit.
	ErrTooLarge = errors.New("audio file too large")

	// ErrUnknownTrack is returned for an unknown track ID.
	ErrUnknownTrack = errors.New("unknown track")
)

// Track is a piece of music the renderer can play.
type Track struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url,omitempty"` // remote tracks
	ContentType string    `json:"content_type,omitempty"`
	Size        int       `json:"size"`
	AddedAt     time.Time `json:"added_at"`
	Uploaded    bool      `json:"uploaded"`

	data []byte
}

// Data returns the bytes of an uploaded track.
func (t *Track) Data() []byte {
	return t.data
}

// Tracks is the registry of known music and the current selection. Safe for
// concurrent use.
type Tracks struct {
	mu       sync.RWMutex
	maxBytes int
	tracks   map[uuid.UUID]*Track
	current  *Track
	fallback *Track
	playing  bool
}

// NewTracks creates a registry holding the built-in default and fallback.
// maxBytes limits uploads; 0 means unlimited.
func NewTracks(maxBytes int) *Tracks {
	now := time.Now()
	def := &Track{ID: uuid.New(), Name: "Jingle Bells", URL: DefaultTrackURL, AddedAt: now}
	fb := &Track{ID: uuid.New(), Name: "Jingle Bells (fallback)", URL: FallbackTrackURL, AddedAt: now}
	return &Tracks{
		maxBytes: maxBytes,
		tracks:   map[uuid.UUID]*Track{def.ID: def, fb.ID: fb},
		current:  def,
		fallback: fb,
		playing:  true,
	}
}

// Upload registers an uploaded file and selects it.
func (r *Tracks) Upload(name, contentType string, data []byte) (Track, error) {
	if !strings.HasPrefix(contentType, "audio/") {
		return Track{}, fmt.Errorf("%w: %q", ErrNotAudio, contentType)
	}
	if r.maxBytes > 0 && len(data) > r.maxBytes {
		return Track{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	t := &Track{
		ID:          uuid.New(),
		Name:        name,
		ContentType: contentType,
		Size:        len(data),
		AddedAt:     time.Now(),
		Uploaded:    true,
		data:        data,
	}

	r.mu.Lock()
	r.tracks[t.ID] = t
	r.current = t
	r.playing = true
	r.mu.Unlock()

	return *t, nil
}

// Current returns the selected track and whether it is expected to play.
func (r *Tracks) Current() (Track, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.current, r.playing
}

// Get returns a track by ID.
func (r *Tracks) Get(id uuid.UUID) (Track, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tracks[id]
	if !ok {
		return Track{}, ErrUnknownTrack
	}
	return *t, nil
}

// Select makes a known track current.
func (r *Tracks) Select(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tracks[id]
	if !ok {
		return ErrUnknownTrack
	}
	r.current = t
	r.playing = true
	return nil
}

// Failed reports that the renderer could not play the track. The default
// falls back once to the alternate host; any other failure stops playback.
// It returns the track to play next and whether there is one.
func (r *Tracks) Failed(id uuid.UUID) (Track, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current.ID != id {
		// stale report about a track no longer selected
		return *r.current, r.playing
	}
	if r.current.URL == DefaultTrackURL {
		r.current = r.fallback
		return *r.current, true
	}
	r.playing = false
	return *r.current, false
}

// List returns every known track, oldest first.
func (r *Tracks) List() []Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Track, 0, len(r.tracks))
	for _, t := range r.tracks {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Track) int {
		if c := a.AddedAt.Compare(b.AddedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

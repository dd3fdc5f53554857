// Package morph places scene entities and interpolates them between the
// assembled tree form and the exploded scatter form.
package morph

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
)

var (
	// ErrUnknownEntity is returned when an EntityID is not in the arena.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrEntityRemoved is returned when operating on a removed entity.
	ErrEntityRemoved = errors.New("entity removed")
)

// EntityID is a stable arena index. IDs are never reused.
type EntityID uint32

// Kind identifies what an entity is and which layer animates it.
type Kind uint8

const (
	KindFoliage Kind = iota
	KindDust
	KindRibbon
	KindOrnamentBox
	KindOrnamentSphere
	KindStar
	KindPhoto
)

var kindNames = [...]string{
	KindFoliage:        "foliage",
	KindDust:           "dust",
	KindRibbon:         "ribbon",
	KindOrnamentBox:    "box",
	KindOrnamentSphere: "sphere",
	KindStar:           "star",
	KindPhoto:          "photo",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	v, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown entity kind %q", b)
	}
	*k = v
	return nil
}

// Particle reports whether the kind is a point sprite animated wholesale by
// the renderer from its layer scalar.
func (k Kind) Particle() bool {
	return k == KindFoliage || k == KindDust || k == KindRibbon
}

// Layer returns the smoothing layer the kind belongs to.
func (k Kind) Layer() LayerID {
	switch k {
	case KindFoliage:
		return LayerFoliage
	case KindDust, KindRibbon:
		return LayerEffects
	case KindOrnamentBox, KindOrnamentSphere:
		return LayerOrnaments
	case KindStar:
		return LayerStar
	default:
		return LayerPhotos
	}
}

// Entity is anything placed in the scene. Structural and Scatter are fixed at
// creation; only the owning layer's explosion scalar changes per frame.
type Entity struct {
	ID         EntityID
	Kind       Kind
	Structural math32.Vector3 // assembled form
	Scatter    math32.Vector3 // exploded form
	Basis      math32.Quat    // orientation in the assembled form
	Offset     float32        // per-entity phase for sway, breathing and ribbon travel
	Scale      float32
	Color      [3]float32

	// Photos only
	UploadID uuid.UUID
	Name     string

	Removed bool
}

// Arena stores entities indexed by EntityID. Growth is append-only and reads
// go through immutable snapshots, so the frame loop can iterate while uploads
// add entities from other goroutines.
type Arena struct {
	mu       sync.Mutex // serializes writers
	entities atomic.Pointer[[]Entity]
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	a := &Arena{}
	empty := make([]Entity, 0, 64)
	a.entities.Store(&empty)
	return a
}

// Snapshot returns the entities at this instant. The slice must not be modified.
func (a *Arena) Snapshot() []Entity {
	return *a.entities.Load()
}

// Len returns the number of entities ever added, removed ones included.
func (a *Arena) Len() int {
	return len(a.Snapshot())
}

// Add appends entities, assigning their IDs, and returns the assigned IDs.
func (a *Arena) Add(batch ...Entity) []EntityID {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := *a.entities.Load()
	ids := make([]EntityID, len(batch))

	// Appending past len never touches the indices visible to existing
	// snapshots, so in-place growth is safe for readers.
	next := cur
	for i := range batch {
		e := batch[i]
		e.ID = EntityID(len(next))
		ids[i] = e.ID
		next = append(next, e)
	}
	a.entities.Store(&next)
	return ids
}

// Get returns the entity with the given ID.
func (a *Arena) Get(id EntityID) (Entity, bool) {
	snap := a.Snapshot()
	if int(id) >= len(snap) {
		return Entity{}, false
	}
	return snap[id], true
}

// Remove tombstones an entity. Existing snapshots keep seeing it alive.
func (a *Arena) Remove(id EntityID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := *a.entities.Load()
	if int(id) >= len(cur) {
		return ErrUnknownEntity
	}
	if cur[id].Removed {
		return ErrEntityRemoved
	}

	// Copy on write: readers may be iterating cur right now.
	next := make([]Entity, len(cur), cap(cur))
	copy(next, cur)
	next[id].Removed = true
	a.entities.Store(&next)
	return nil
}

// IDs returns the live IDs of the given kind, in insertion order.
func (a *Arena) IDs(kind Kind) []EntityID {
	var ids []EntityID
	for _, e := range a.Snapshot() {
		if e.Kind == kind && !e.Removed {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// FindUpload returns the live photo with the given upload ID.
func (a *Arena) FindUpload(uploadID uuid.UUID) (Entity, bool) {
	for _, e := range a.Snapshot() {
		if e.Kind == KindPhoto && !e.Removed && e.UploadID == uploadID {
			return e, true
		}
	}
	return Entity{}, false
}

// Count returns the number of live entities per kind.
func (a *Arena) Count() map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range a.Snapshot() {
		if !e.Removed {
			counts[e.Kind]++
		}
	}
	return counts
}

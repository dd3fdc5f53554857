package gesture

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrDetectorNotReady is returned by Readiness.Err before resolution.
var ErrDetectorNotReady = errors.New("hand detector not ready")

// Reading is a classified frame together with when it was produced.
type Reading struct {
	Signal Signal
	Hands  int       // number of hands in the frame
	At     time.Time // when the detector result arrived
}

// Latest holds the most recent Reading. It is the only gesture state that
// crosses from the detector callback into the frame loop: writes replace,
// nothing is queued, so a reader never sees a stale signal after a newer one.
type Latest struct {
	v       atomic.Pointer[Reading]
	updates atomic.Uint64
}

// Store replaces the current reading.
func (l *Latest) Store(r Reading) {
	l.v.Store(&r)
	l.updates.Add(1)
}

// Load returns the current reading. ok is false until the first Store.
func (l *Latest) Load() (Reading, bool) {
	r := l.v.Load()
	if r == nil {
		return Reading{}, false
	}
	return *r, true
}

// Signal returns the current signal, or the zero Signal if none was stored.
func (l *Latest) Signal() Signal {
	r, _ := l.Load()
	return r.Signal
}

// Updates returns how many readings have been stored.
func (l *Latest) Updates() uint64 {
	return l.updates.Load()
}

// Readiness is resolved exactly once when the external detector is usable
// (or has failed to start). Observers wait on Done instead of polling.
type Readiness struct {
	once sync.Once
	done chan struct{}
	mu   sync.RWMutex
	err  error
	init sync.Once
}

func (r *Readiness) lazyInit() {
	r.init.Do(func() {
		r.done = make(chan struct{})
	})
}

// Resolve marks the detector ready (err == nil) or failed. Later calls are ignored.
func (r *Readiness) Resolve(err error) {
	r.lazyInit()
	r.once.Do(func() {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		close(r.done)
	})
}

// Done is closed once Resolve has been called.
func (r *Readiness) Done() <-chan struct{} {
	r.lazyInit()
	return r.done
}

// Err returns ErrDetectorNotReady before resolution, then the resolution error.
func (r *Readiness) Err() error {
	select {
	case <-r.Done():
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.err
	default:
		return ErrDetectorNotReady
	}
}

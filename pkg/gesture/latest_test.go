package gesture

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLatest_EmptyLoad(t *testing.T) {
	var l Latest
	if _, ok := l.Load(); ok {
		t.Error("Load on empty cell should report !ok")
	}
	if l.Signal() != (Signal{}) {
		t.Error("Signal on empty cell should be zero")
	}
}

func TestLatest_LastWriteWins(t *testing.T) {
	var l Latest
	now := time.Now()

	l.Store(Reading{Signal: Signal{ExplodeRequested: true}, At: now})
	l.Store(Reading{Signal: Signal{FocusRequested: true, RotationInput: 0.3}, At: now.Add(time.Millisecond)})

	r, ok := l.Load()
	if !ok {
		t.Fatal("expected a reading")
	}
	if r.Signal.ExplodeRequested || !r.Signal.FocusRequested {
		t.Errorf("expected the second reading, got %+v", r.Signal)
	}
	if l.Updates() != 2 {
		t.Errorf("Updates: got %d, want 2", l.Updates())
	}
}

func TestLatest_ConcurrentWriters(t *testing.T) {
	var l Latest
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Store(Reading{Hands: i})
				_ = l.Signal()
			}
		}(i)
	}
	wg.Wait()

	if l.Updates() != 800 {
		t.Errorf("Updates: got %d, want 800", l.Updates())
	}
}

func TestReadiness(t *testing.T) {
	var r Readiness

	if !errors.Is(r.Err(), ErrDetectorNotReady) {
		t.Errorf("Err before resolve: got %v", r.Err())
	}

	select {
	case <-r.Done():
		t.Fatal("Done closed before resolve")
	default:
	}

	r.Resolve(nil)
	r.Resolve(errors.New("late failure")) // ignored

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after resolve")
	}

	if r.Err() != nil {
		t.Errorf("Err after successful resolve: got %v", r.Err())
	}
}

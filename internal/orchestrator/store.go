package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/poems/internal/models"
)

// Applicability tells whether an asynchronous completion was applied to the state.
type Applicability int

const (
	// Stale: the completion belongs to a superseded epoch (or its state no longer holds) and was dropped.
	Stale Applicability = iota
	// Applicable: the completion was applied and broadcast.
	Applicable
)

// Store is the single state container for a session. All writes go through update or
// applyAt; every accepted write is broadcast to subscribers.
type Store struct {
	mu      sync.Mutex
	snap    models.Snapshot
	subs    map[int]chan models.Snapshot
	nextSub int
	now     func() time.Time
}

func newStore(sessionID uuid.UUID) *Store {
	s := &Store{
		subs: make(map[int]chan models.Snapshot),
		now:  time.Now,
	}
	s.snap = models.Snapshot{
		SessionID:  sessionID,
		Generation: models.GenerationState{Phase: models.PhaseIdle},
		Narration:  models.NarrationState{Phase: models.NarrationNotRequested},
		UpdatedAt:  s.now(),
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Subscribe returns a channel that receives the current state immediately and then the
// latest state after every transition. A slow reader only misses intermediate states,
// never the most recent one. Call the returned func to unsubscribe.
func (s *Store) Subscribe() (<-chan models.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan models.Snapshot, 1)
	ch <- s.snap.Clone()
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// update runs fn on the current state. fn returns false to leave the state untouched.
func (s *Store) update(fn func(*models.Snapshot) bool) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn(&s.snap) {
		s.commitLocked()
	}
	return s.snap.Clone()
}

// applyAt runs fn only if epoch is still the current epoch and returns Applicable when fn
// accepted the change.
func (s *Store) applyAt(epoch uint64, fn func(*models.Snapshot) bool) (models.Snapshot, Applicability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Epoch != epoch || !fn(&s.snap) {
		return s.snap.Clone(), Stale
	}
	s.commitLocked()
	return s.snap.Clone(), Applicable
}

func (s *Store) commitLocked() {
	s.snap.UpdatedAt = s.now()
	for _, ch := range s.subs {
		out := s.snap.Clone()
		select {
		case ch <- out:
		default:
			// drop the stale pending value, keep the latest
			select {
			case <-ch:
			default:
			}
			ch <- out
		}
	}
}

// closeSubscribers closes every subscriber channel.
func (s *Store) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

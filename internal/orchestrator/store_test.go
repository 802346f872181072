package orchestrator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/snappy-loop/poems/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InitialState(t *testing.T) {
	id := uuid.New()
	s := newStore(id)

	snap := s.Snapshot()
	assert.Equal(t, id, snap.SessionID)
	assert.Equal(t, uint64(0), snap.Epoch)
	assert.Equal(t, models.PhaseIdle, snap.Generation.Phase)
	assert.Equal(t, models.NarrationNotRequested, snap.Narration.Phase)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestStore_ApplyAt(t *testing.T) {
	s := newStore(uuid.New())
	s.update(func(snap *models.Snapshot) bool {
		snap.Epoch = 3
		return true
	})

	_, applied := s.applyAt(2, func(snap *models.Snapshot) bool {
		snap.Generation.Phase = models.PhaseReady
		return true
	})
	assert.Equal(t, Stale, applied)
	assert.Equal(t, models.PhaseIdle, s.Snapshot().Generation.Phase)

	_, applied = s.applyAt(3, func(*models.Snapshot) bool { return false })
	assert.Equal(t, Stale, applied, "a rejected change is stale")

	snap, applied := s.applyAt(3, func(snap *models.Snapshot) bool {
		snap.Generation.Phase = models.PhaseFailed
		return true
	})
	assert.Equal(t, Applicable, applied)
	assert.Equal(t, models.PhaseFailed, snap.Generation.Phase)
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := newStore(uuid.New())
	s.update(func(snap *models.Snapshot) bool {
		snap.Generation.Result = &models.PoemResult{Title: "a"}
		return true
	})

	snap := s.Snapshot()
	snap.Generation.Result.Title = "changed"
	assert.Equal(t, "a", s.Snapshot().Generation.Result.Title)
}

func TestStore_SubscriberGetsLatest(t *testing.T) {
	s := newStore(uuid.New())
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	for i := 1; i <= 3; i++ {
		s.update(func(snap *models.Snapshot) bool {
			snap.Epoch = uint64(i)
			return true
		})
	}

	got := <-ch
	assert.Equal(t, uint64(3), got.Epoch)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected pending snapshot at epoch %d", extra.Epoch)
	default:
	}
}

func TestStore_RejectedUpdateNotBroadcast(t *testing.T) {
	s := newStore(uuid.New())
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()
	<-ch

	s.update(func(*models.Snapshot) bool { return false })
	select {
	case <-ch:
		t.Fatal("rejected update was broadcast")
	default:
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := newStore(uuid.New())
	ch, unsubscribe := s.Subscribe()
	<-ch

	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	require.False(t, ok)

	s.update(func(snap *models.Snapshot) bool {
		snap.Epoch++
		return true
	})
	s.closeSubscribers()
}

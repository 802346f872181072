// Package playback tracks the single live narration handle. Audio is played by the
// presentation layer; the deck is the source of truth for which handle is live and in
// what state, so stale audio can never be resumed over a new poem.
package playback

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poems/internal/models"
)

// ErrNoHandle is returned when a playback command arrives with no live handle.
var ErrNoHandle = errors.New("no audio loaded")

// Handle is one loaded narration.
type Handle struct {
	id       uuid.UUID
	uri      string
	status   models.PlaybackStatus
	plays    int
	released bool
}

// Deck owns at most one handle at a time.
type Deck struct {
	mu      sync.Mutex
	current *Handle
}

// NewDeck returns an empty deck.
func NewDeck() *Deck {
	return &Deck{}
}

// Load releases any live handle, then loads uri and starts playing it.
func (d *Deck) Load(uri string) models.AudioHandleView {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseLocked()
	d.current = &Handle{id: uuid.New(), uri: uri, status: models.PlaybackPlaying, plays: 1}
	log.Debug().Str("handle_id", d.current.id.String()).Int("uri_length", len(uri)).Msg("Audio handle loaded")
	return d.viewLocked()
}

// Play resumes a paused handle, or restarts one that ended. Playing stays playing.
func (d *Deck) Play() (models.AudioHandleView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		return models.AudioHandleView{}, ErrNoHandle
	}
	if d.current.status != models.PlaybackPlaying {
		d.current.status = models.PlaybackPlaying
		d.current.plays++
	}
	return d.viewLocked(), nil
}

// Pause pauses a playing handle.
func (d *Deck) Pause() (models.AudioHandleView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		return models.AudioHandleView{}, ErrNoHandle
	}
	if d.current.status == models.PlaybackPlaying {
		d.current.status = models.PlaybackPaused
	}
	return d.viewLocked(), nil
}

// Ended records that playback reached the end. id guards against a late notification
// for a handle that was already replaced.
func (d *Deck) Ended(id uuid.UUID) (models.AudioHandleView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil || d.current.id != id {
		return models.AudioHandleView{}, ErrNoHandle
	}
	d.current.status = models.PlaybackEnded
	return d.viewLocked(), nil
}

// Release halts and disposes the live handle, if any.
func (d *Deck) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseLocked()
}

func (d *Deck) releaseLocked() {
	if d.current == nil {
		return
	}
	d.current.released = true
	log.Debug().Str("handle_id", d.current.id.String()).Msg("Audio handle released")
	d.current = nil
}

func (d *Deck) viewLocked() models.AudioHandleView {
	return models.AudioHandleView{
		ID:     d.current.id,
		URI:    d.current.uri,
		Status: d.current.status,
		Plays:  d.current.plays,
	}
}

package playback

import (
	"testing"

	"github.com/google/uuid"
	"github.com/snappy-loop/poems/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeck_EmptyCommands(t *testing.T) {
	d := NewDeck()

	_, err := d.Play()
	assert.ErrorIs(t, err, ErrNoHandle)
	_, err = d.Pause()
	assert.ErrorIs(t, err, ErrNoHandle)
	_, err = d.Ended(uuid.New())
	assert.ErrorIs(t, err, ErrNoHandle)
	assert.Nil(t, d.current)

	d.Release() // no-op
}

func TestDeck_LoadPlaysImmediately(t *testing.T) {
	d := NewDeck()

	v := d.Load("data:audio/wav;base64,AA==")
	assert.Equal(t, models.PlaybackPlaying, v.Status)
	assert.Equal(t, 1, v.Plays)
	require.NotNil(t, d.current)
	assert.Equal(t, v.ID, d.current.id)
}

func TestDeck_PauseResume(t *testing.T) {
	d := NewDeck()
	d.Load("a")

	v, err := d.Pause()
	require.NoError(t, err)
	assert.Equal(t, models.PlaybackPaused, v.Status)

	v, err = d.Play()
	require.NoError(t, err)
	assert.Equal(t, models.PlaybackPlaying, v.Status)
	assert.Equal(t, 2, v.Plays)

	// Play while playing is idempotent.
	v, err = d.Play()
	require.NoError(t, err)
	assert.Equal(t, 2, v.Plays)
}

func TestDeck_EndedThenReplay(t *testing.T) {
	d := NewDeck()
	first := d.Load("a")

	v, err := d.Ended(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlaybackEnded, v.Status)

	v, err = d.Play()
	require.NoError(t, err)
	assert.Equal(t, models.PlaybackPlaying, v.Status)
	assert.Equal(t, 2, v.Plays)
}

func TestDeck_LoadReleasesPrevious(t *testing.T) {
	d := NewDeck()
	first := d.Load("a")
	old := d.current

	second := d.Load("b")
	assert.True(t, old.released, "previous handle must be released before a new one is loaded")
	assert.NotEqual(t, first.ID, second.ID)

	// A late end notification for the old handle is ignored.
	_, err := d.Ended(first.ID)
	assert.ErrorIs(t, err, ErrNoHandle)
	assert.Equal(t, models.PlaybackPlaying, d.current.status)
}

func TestDeck_Release(t *testing.T) {
	d := NewDeck()
	d.Load("a")
	h := d.current

	d.Release()
	assert.True(t, h.released)
	assert.Nil(t, d.current)
}

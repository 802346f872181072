package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poems/internal/llm"
	"github.com/snappy-loop/poems/internal/models"
	"github.com/snappy-loop/poems/internal/prompt"
)

// RequestNarration plays narration for the current poem. Audio that already exists for
// this poem is resumed (or replayed after it ended) without another synthesis call.
// A request while synthesis is pending is a no-op.
func (o *Orchestrator) RequestNarration() (models.Snapshot, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return o.store.Snapshot(), ErrClosed
	}

	var (
		reqErr  error
		resumed bool
		start   bool
		body    string
		epoch   uint64
	)
	snap := o.store.update(func(s *models.Snapshot) bool {
		if !s.Generation.HasResult() {
			reqErr = ErrNoPoem
			return false
		}
		switch s.Narration.Phase {
		case models.NarrationSynthesizing:
			return false
		case models.NarrationAvailable:
			if v, err := o.deck.Play(); err == nil {
				s.Narration.Audio = &v
				resumed = true
				return true
			}
		}
		s.Narration = models.NarrationState{Phase: models.NarrationSynthesizing}
		body, epoch, start = s.Generation.Result.Body, s.Epoch, true
		o.queue(models.Event{Type: models.EventNarrationRequested, Epoch: epoch})
		return true
	})

	if start {
		ctx := o.epochCtx
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.runNarration(ctx, epoch, body)
		}()
	}
	o.mu.Unlock()

	switch {
	case reqErr != nil:
		return snap, reqErr
	case resumed:
		log.Debug().Uint64("epoch", snap.Epoch).Msg("Narration resumed")
	case start:
		log.Info().Uint64("epoch", epoch).Msg("Narration requested")
	}
	return snap, nil
}

// runNarration synthesizes speech for one epoch's poem and loads it into the deck.
func (o *Orchestrator) runNarration(ctx context.Context, epoch uint64, body string) {
	logger := log.With().Uint64("epoch", epoch).Logger()

	audio, err := o.gen.SynthesizeSpeech(ctx, prompt.Narration(body))
	if err == nil && (audio == nil || len(audio.Data) == 0) {
		err = &llm.Error{Op: "SynthesizeSpeech", Kind: llm.KindNoMedia}
	}
	if err != nil {
		if _, applied := o.store.applyAt(epoch, func(s *models.Snapshot) bool {
			if s.Narration.Phase != models.NarrationSynthesizing {
				return false
			}
			s.Narration = models.NarrationState{Phase: models.NarrationFailed}
			o.queue(models.Event{Type: models.EventNarrationFailed, Epoch: epoch, Error: err.Error()})
			return true
		}); applied == Stale {
			logger.Debug().Err(err).Msg("Dropping stale narration failure")
			return
		}
		logger.Warn().Err(err).Str("kind", string(llm.KindOf(err))).Msg("Narration unavailable")
		return
	}

	uri := audio.DataURI()
	if _, applied := o.store.applyAt(epoch, func(s *models.Snapshot) bool {
		if s.Narration.Phase != models.NarrationSynthesizing || s.Generation.Result == nil {
			return false
		}
		v := o.deck.Load(uri)
		s.Narration = models.NarrationState{Phase: models.NarrationAvailable, Audio: &v}
		s.Generation.Result.NarrationURI = uri
		o.queue(models.Event{Type: models.EventNarrationAvailable, Epoch: epoch})
		return true
	}); applied == Stale {
		logger.Debug().Msg("Dropping stale narration audio")
		return
	}
	logger.Info().Str("model", audio.Model).Int("audio_size_bytes", len(audio.Data)).Msg("Narration available, playing")
}

// PauseNarration pauses the live narration.
func (o *Orchestrator) PauseNarration() (models.Snapshot, error) {
	return o.playbackCommand(func(s *models.Snapshot) error {
		v, err := o.deck.Pause()
		if err != nil {
			return err
		}
		s.Narration.Audio = &v
		return nil
	})
}

// NarrationEnded records that the presenter reached the end of handle id.
// A notification for a replaced handle is rejected.
func (o *Orchestrator) NarrationEnded(id uuid.UUID) (models.Snapshot, error) {
	return o.playbackCommand(func(s *models.Snapshot) error {
		v, err := o.deck.Ended(id)
		if err != nil {
			return err
		}
		s.Narration.Audio = &v
		return nil
	})
}

func (o *Orchestrator) playbackCommand(fn func(*models.Snapshot) error) (models.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var cmdErr error
	snap := o.store.update(func(s *models.Snapshot) bool {
		if s.Narration.Phase != models.NarrationAvailable {
			cmdErr = ErrNoNarration
			return false
		}
		if err := fn(s); err != nil {
			cmdErr = ErrNoNarration
			return false
		}
		return true
	})
	return snap, cmdErr
}

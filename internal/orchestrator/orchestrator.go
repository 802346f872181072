// Package orchestrator turns a poem request into a populated result: poem text first,
// then the illustration, with narration as an independent side machine. Each submission
// starts a new epoch; completions from an older epoch are dropped, so the last submission
// always wins.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poems/internal/llm"
	"github.com/snappy-loop/poems/internal/models"
	"github.com/snappy-loop/poems/internal/playback"
	"github.com/snappy-loop/poems/internal/prompt"
)

var (
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoPoem is returned when narration is requested before any poem exists.
	ErrNoPoem = errors.New("no poem to narrate")
	// ErrNoNarration is returned for playback commands without live narration.
	ErrNoNarration = errors.New("no narration available")
	// ErrNotReady is returned by Export until the current cycle is ready.
	ErrNotReady = errors.New("poem is not ready")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("orchestrator closed")
)

// Generator is the remote generation provider. Implemented by *llm.Client.
type Generator interface {
	GeneratePoem(ctx context.Context, instruction string) (*llm.Poem, error)
	GenerateImage(ctx context.Context, instruction string) (*llm.Image, error)
	SynthesizeSpeech(ctx context.Context, instruction string) (*llm.Audio, error)
}

// EventPublisher publishes lifecycle events (e.g. to Kafka). May be nil to skip publishing.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev models.Event) error
}

// Ticket identifies an accepted submission. Done is closed once its cycle has settled
// (ready, failed or superseded).
type Ticket struct {
	Epoch uint64
	Done  <-chan struct{}
}

// Orchestrator owns the session state. Commands (Submit, RequestNarration, ...) are
// serialized by mu; remote completions are applied through the store's epoch check.
type Orchestrator struct {
	gen           Generator
	sessionID     uuid.UUID
	store         *Store
	deck          *playback.Deck
	maxIdeaLength int

	events        EventPublisher
	eventCh       chan models.Event
	eventsDone    chan struct{}
	eventTimeout  time.Duration
	publishCtx    context.Context
	publishCancel context.CancelFunc

	mu          sync.Mutex
	baseCtx     context.Context
	baseCancel  context.CancelFunc
	epochCtx    context.Context
	epochCancel context.CancelFunc
	closed      bool
	wg          sync.WaitGroup
}

// New creates an orchestrator for one session. events may be nil.
func New(gen Generator, events EventPublisher, maxIdeaLength int) *Orchestrator {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	sessionID := uuid.New()
	publishCtx, publishCancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		gen:           gen,
		sessionID:     sessionID,
		store:         newStore(sessionID),
		deck:          playback.NewDeck(),
		maxIdeaLength: maxIdeaLength,
		events:        events,
		eventTimeout:  5 * time.Second,
		publishCtx:    publishCtx,
		publishCancel: publishCancel,
		baseCtx:       baseCtx,
		baseCancel:    baseCancel,
		epochCtx:      baseCtx,
		epochCancel:   func() {},
	}
	if events != nil {
		o.eventCh = make(chan models.Event, eventBuffer)
		o.eventsDone = make(chan struct{})
		go o.publishEvents()
	}
	log.Info().Str("session_id", sessionID.String()).Bool("events", events != nil).Msg("Orchestrator initialized")
	return o
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() models.Snapshot {
	return o.store.Snapshot()
}

// Subscribe streams state after every transition; see Store.Subscribe.
func (o *Orchestrator) Subscribe() (<-chan models.Snapshot, func()) {
	return o.store.Subscribe()
}

// Submit starts a new cycle. Any previous result, narration and audio are discarded at
// once; the previous cycle's pending calls are cancelled and their results ignored.
func (o *Orchestrator) Submit(req models.GenerationRequest) (Ticket, models.Snapshot, error) {
	if err := req.Validate(o.maxIdeaLength); err != nil {
		return Ticket{}, o.store.Snapshot(), fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Ticket{}, o.store.Snapshot(), ErrClosed
	}
	o.epochCancel()
	ctx, cancel := context.WithCancel(o.baseCtx)
	o.epochCtx, o.epochCancel = ctx, cancel

	snap := o.store.update(func(s *models.Snapshot) bool {
		s.Epoch++
		s.Generation = models.GenerationState{Phase: models.PhaseInFlight, Stage: models.StageText}
		s.Narration = models.NarrationState{Phase: models.NarrationNotRequested}
		o.deck.Release()
		o.queue(models.Event{Type: models.EventGenerationStarted, Epoch: s.Epoch, Theme: req.Theme, AgeGroup: req.AgeGroup})
		return true
	})
	epoch := snap.Epoch

	done := make(chan struct{})
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(done)
		o.runCycle(ctx, epoch, req)
	}()
	o.mu.Unlock()

	log.Info().
		Uint64("epoch", epoch).
		Str("theme", req.Theme).
		Str("age_group", string(req.AgeGroup)).
		Bool("has_idea", req.HasIdea()).
		Msg("Poem generation submitted")

	return Ticket{Epoch: epoch, Done: done}, snap, nil
}

// runCycle runs text then image for one epoch.
func (o *Orchestrator) runCycle(ctx context.Context, epoch uint64, req models.GenerationRequest) {
	logger := log.With().Uint64("epoch", epoch).Logger()

	poem, err := o.gen.GeneratePoem(ctx, prompt.Poem(req))
	if err == nil {
		err = checkPoem(poem)
	}
	if err != nil {
		_, applied := o.store.applyAt(epoch, func(s *models.Snapshot) bool {
			s.Generation = models.GenerationState{Phase: models.PhaseFailed}
			o.queue(models.Event{Type: models.EventGenerationFailed, Epoch: epoch, Theme: req.Theme, AgeGroup: req.AgeGroup, Error: err.Error()})
			return true
		})
		if applied == Stale {
			logger.Debug().Err(err).Msg("Dropping stale poem failure")
			return
		}
		logger.Error().Err(err).Str("kind", string(llm.KindOf(err))).Msg("Poem generation failed")
		return
	}

	title := strings.TrimSpace(poem.Title)
	if title == "" {
		title = llm.DefaultPoemTitle
	}
	partial := models.PoemResult{Title: title, Body: poem.Body}
	if _, applied := o.store.applyAt(epoch, func(s *models.Snapshot) bool {
		r := partial
		s.Generation = models.GenerationState{Phase: models.PhaseInFlight, Stage: models.StageImage, Result: &r}
		o.queue(models.Event{Type: models.EventGenerationPartial, Epoch: epoch, Theme: req.Theme, AgeGroup: req.AgeGroup, Title: title, Degraded: poem.Degraded})
		return true
	}); applied == Stale {
		logger.Debug().Msg("Dropping stale poem text")
		return
	}
	logger.Info().Str("title", title).Str("model", poem.Model).Bool("degraded", poem.Degraded).Msg("Poem text ready, generating illustration")

	var illustration string
	img, err := o.gen.GenerateImage(ctx, prompt.Illustration(partial.Body))
	switch {
	case err != nil:
		logger.Warn().Err(err).Str("kind", string(llm.KindOf(err))).Msg("Illustration unavailable")
	case img == nil || len(img.Data) == 0:
		logger.Warn().Msg("Illustration unavailable: empty image")
	default:
		illustration = img.DataURI()
		logger.Debug().Str("model", img.Model).Int("image_size_bytes", len(img.Data)).Msg("Illustration generated")
	}

	if _, applied := o.store.applyAt(epoch, func(s *models.Snapshot) bool {
		if s.Generation.Result == nil {
			return false
		}
		s.Generation.Phase = models.PhaseReady
		s.Generation.Stage = ""
		s.Generation.Result.IllustrationURI = illustration
		o.queue(models.Event{Type: models.EventGenerationReady, Epoch: epoch, Theme: req.Theme, AgeGroup: req.AgeGroup, Title: title, Degraded: poem.Degraded, HasImage: illustration != ""})
		return true
	}); applied == Stale {
		logger.Debug().Msg("Dropping stale illustration")
		return
	}
	logger.Info().Bool("has_image", illustration != "").Msg("Poem ready")
}

// checkPoem rejects a missing poem or one with a blank body.
func checkPoem(p *llm.Poem) error {
	if p == nil || strings.TrimSpace(p.Body) == "" {
		return &llm.Error{Op: "GeneratePoem", Kind: llm.KindEmptyResponse}
	}
	return nil
}

// Export returns a copy of the current result and its epoch once the cycle is ready.
func (o *Orchestrator) Export() (models.PoemResult, uint64, error) {
	snap := o.store.Snapshot()
	if snap.Generation.Phase != models.PhaseReady || snap.Generation.Result == nil {
		return models.PoemResult{}, snap.Epoch, ErrNotReady
	}
	return *snap.Generation.Result, snap.Epoch, nil
}

// SessionID identifies this orchestrator's session.
func (o *Orchestrator) SessionID() uuid.UUID {
	return o.sessionID
}

// Close cancels pending calls and releases audio. It then waits for background work,
// flushes queued events and closes subscribers.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.epochCancel()
	o.baseCancel()
	o.store.update(func(*models.Snapshot) bool {
		o.deck.Release()
		return false
	})
	o.mu.Unlock()

	o.wg.Wait()
	o.drainEvents()
	o.store.closeSubscribers()
	log.Info().Msg("Orchestrator closed")
}

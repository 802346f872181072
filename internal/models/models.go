package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationRequest is what the user submits from the form. Immutable once submitted.
type GenerationRequest struct {
	Theme      string   `json:"theme"`
	AgeGroup   AgeGroup `json:"age_group"`
	CustomIdea string   `json:"custom_idea,omitempty"`
}

// PoemResult is the poem currently shown to the user. Title and Body are always set once a
// result exists; the media URIs fill in later and may stay empty.
type PoemResult struct {
	Title           string `json:"title"`
	Body            string `json:"content"`
	IllustrationURI string `json:"image_url,omitempty"`
	NarrationURI    string `json:"audio_url,omitempty"`
}

// GenerationPhase is the top-level phase of a submission cycle.
type GenerationPhase string

const (
	PhaseIdle     GenerationPhase = "idle"
	PhaseInFlight GenerationPhase = "in_flight"
	PhaseReady    GenerationPhase = "ready"
	PhaseFailed   GenerationPhase = "failed"
)

// GenerationStage is the pending remote call while in flight.
type GenerationStage string

const (
	StageText  GenerationStage = "text"
	StageImage GenerationStage = "image"
)

// GenerationState describes the current submission cycle.
type GenerationState struct {
	Phase  GenerationPhase `json:"phase"`
	Stage  GenerationStage `json:"stage,omitempty"`  // in_flight only
	Result *PoemResult     `json:"result,omitempty"` // partial (in_flight/image) or ready
}

// HasResult reports whether a poem (partial or complete) is available.
func (s GenerationState) HasResult() bool {
	return s.Result != nil
}

// NarrationPhase is the phase of the narration side machine.
type NarrationPhase string

const (
	NarrationNotRequested NarrationPhase = "not_requested"
	NarrationSynthesizing NarrationPhase = "synthesizing"
	NarrationAvailable    NarrationPhase = "available"
	NarrationFailed       NarrationPhase = "failed"
)

// PlaybackStatus is the status of the live audio handle.
type PlaybackStatus string

const (
	PlaybackPlaying PlaybackStatus = "playing"
	PlaybackPaused  PlaybackStatus = "paused"
	PlaybackEnded   PlaybackStatus = "ended"
)

// AudioHandleView is the observable part of the live audio handle.
type AudioHandleView struct {
	ID     uuid.UUID      `json:"id"`
	URI    string         `json:"uri"`
	Status PlaybackStatus `json:"status"`
	// Plays counts Play commands issued on the handle; the presenter restarts or resumes on change.
	Plays int `json:"plays"`
}

// NarrationState describes narration for the current result.
type NarrationState struct {
	Phase NarrationPhase   `json:"phase"`
	Audio *AudioHandleView `json:"audio,omitempty"` // available only
}

// Snapshot is what observers see after every transition.
type Snapshot struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Epoch      uint64          `json:"epoch"`
	Generation GenerationState `json:"generation"`
	Narration  NarrationState  `json:"narration"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Generation.Result != nil {
		r := *s.Generation.Result
		out.Generation.Result = &r
	}
	if s.Narration.Audio != nil {
		a := *s.Narration.Audio
		out.Narration.Audio = &a
	}
	return out
}

// SubmitResponse is returned by POST /v1/poems
type SubmitResponse struct {
	Epoch    uint64   `json:"epoch"`
	Snapshot Snapshot `json:"snapshot"`
}

// ExportResponse is returned when an exported card is published
type ExportResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Event is a lifecycle event published for each applicable transition
type Event struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	Epoch     uint64    `json:"epoch"`
	Theme     string    `json:"theme,omitempty"`
	AgeGroup  AgeGroup  `json:"age_group,omitempty"`
	Title     string    `json:"title,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
	HasImage  bool      `json:"has_image,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Event types
const (
	EventGenerationStarted  = "generation.started"
	EventGenerationPartial  = "generation.partial"
	EventGenerationReady    = "generation.ready"
	EventGenerationFailed   = "generation.failed"
	EventNarrationRequested = "narration.synthesizing"
	EventNarrationAvailable = "narration.available"
	EventNarrationFailed    = "narration.failed"
)

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poems/internal/markup"
	"github.com/snappy-loop/poems/internal/models"
	"github.com/snappy-loop/poems/internal/orchestrator"
	"github.com/snappy-loop/poems/internal/storage"
)

const maxRequestBody = 64 << 10

// poemService is the orchestrator surface the handlers drive.
type poemService interface {
	Snapshot() models.Snapshot
	Subscribe() (<-chan models.Snapshot, func())
	Submit(req models.GenerationRequest) (orchestrator.Ticket, models.Snapshot, error)
	RequestNarration() (models.Snapshot, error)
	PauseNarration() (models.Snapshot, error)
	NarrationEnded(id uuid.UUID) (models.Snapshot, error)
	Export() (models.PoemResult, uint64, error)
	SessionID() uuid.UUID
}

// cardPublisher uploads exported cards. Implemented by *storage.Client.
type cardPublisher interface {
	Publish(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	poems poemService
	cards cardPublisher
}

// NewHandler creates a new handler. cards may be nil when no bucket is configured.
func NewHandler(poems poemService, cards cardPublisher) *Handler {
	return &Handler{
		poems: poems,
		cards: cards,
	}
}

// Healthz handles GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Catalog handles GET /v1/catalog
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.DefaultCatalog())
}

// SubmitPoem handles POST /v1/poems
func (h *Handler) SubmitPoem(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tk, snap, err := h.poems.Submit(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, models.SubmitResponse{Epoch: tk.Epoch, Snapshot: snap})
}

// CurrentPoem handles GET /v1/poems/current
func (h *Handler) CurrentPoem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.poems.Snapshot())
}

// RequestNarration handles POST /v1/poems/current/narration
func (h *Handler) RequestNarration(w http.ResponseWriter, r *http.Request) {
	snap, err := h.poems.RequestNarration()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// PauseNarration handles POST /v1/poems/current/narration/pause
func (h *Handler) PauseNarration(w http.ResponseWriter, r *http.Request) {
	snap, err := h.poems.PauseNarration()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type narrationEndedRequest struct {
	AudioID string `json:"audio_id"`
}

// NarrationEnded handles POST /v1/poems/current/narration/ended
func (h *Handler) NarrationEnded(w http.ResponseWriter, r *http.Request) {
	var req narrationEndedRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := uuid.Parse(req.AudioID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid audio_id")
		return
	}

	snap, err := h.poems.NarrationEnded(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ExportCard handles GET /v1/poems/current/export: the card as an HTML download named after the title.
func (h *Handler) ExportCard(w http.ResponseWriter, r *http.Request) {
	result, _, err := h.poems.Export()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	page, err := renderCard(result)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render poem card")
		writeJSONError(w, http.StatusInternalServerError, "failed to render card")
		return
	}

	filename := markup.Filename(result.Title, ".html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(page)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		log.Debug().Err(err).Msg("Card download interrupted")
	}
}

// PublishCard handles POST /v1/poems/current/export: uploads the card and returns its URL.
func (h *Handler) PublishCard(w http.ResponseWriter, r *http.Request) {
	if h.cards == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "card storage not configured")
		return
	}
	result, epoch, err := h.poems.Export()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	page, err := renderCard(result)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render poem card")
		writeJSONError(w, http.StatusInternalServerError, "failed to render card")
		return
	}

	key := storage.CardKey(h.poems.SessionID(), epoch, markup.Filename(result.Title, ".html"))
	url, err := h.cards.Publish(r.Context(), key, page, "text/html; charset=utf-8")
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to publish poem card")
		writeJSONError(w, http.StatusBadGateway, "failed to publish card")
		return
	}

	log.Info().Uint64("epoch", epoch).Str("key", key).Msg("Poem card published")
	writeJSON(w, http.StatusOK, models.ExportResponse{URL: url, Key: key})
}

func renderCard(result models.PoemResult) ([]byte, error) {
	card, err := markup.NewCard(result)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := executeTemplate(&buf, "card", card); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeServiceError maps orchestrator errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrNoPoem),
		errors.Is(err, orchestrator.ErrNoNarration),
		errors.Is(err, orchestrator.ErrNotReady):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orchestrator.ErrClosed):
		writeJSONError(w, http.StatusServiceUnavailable, "shutting down")
	default:
		log.Error().Err(err).Msg("Unexpected service error")
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

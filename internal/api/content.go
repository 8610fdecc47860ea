package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tahcohcat/starpath-web/internal/audio"
	"github.com/tahcohcat/starpath-web/internal/logger"
)

type SpeakRequest struct {
	Text  string `json:"text"`
	Mood  string `json:"mood"`
	Voice string `json:"voice"`
}

// GET /api/v1/lessons?subject=
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lessons": h.catalog.BySubject(r.URL.Query().Get("subject")),
	})
}

// GET /api/v1/lessons/search?q=&limit=
func (h *Handler) SearchLessons(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a number")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lessons": h.catalog.Search(r.URL.Query().Get("q"), limit),
	})
}

// GET /api/v1/credits
func (h *Handler) Credits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"credits": h.catalog.Credits()})
}

// POST /api/v1/audio/speak streams MP3 narration.
func (h *Handler) Speak(w http.ResponseWriter, r *http.Request) {
	if h.audio == nil {
		writeError(w, http.StatusServiceUnavailable, "narration is disabled")
		return
	}

	var req SpeakRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	data, err := h.audio.Speak(ctx, req.Text, req.Mood, req.Voice)
	switch {
	case errors.Is(err, audio.ErrEmptyText), errors.Is(err, audio.ErrTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, audio.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "failed to generate narration")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		logger.New().WithError(err).Warn("failed to stream narration")
	}
}

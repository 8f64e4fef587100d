// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/kjellman/albumrotor/internal/album"
	"github.com/kjellman/albumrotor/internal/logging"
)

// Handler serves the album session over HTTP.
type Handler struct {
	session  *album.Session
	validate *validator.Validate
}

// NewHandler creates a Handler around the session.
func NewHandler(session *album.Session) *Handler {
	return &Handler{
		session:  session,
		validate: validator.New(),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Items returns the active virtual album, rebuilding it lazily if it
// has never been populated. Draining large source albums can take
// multiple seconds on first call.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.session.Items(r.Context())
	if err != nil {
		logging.Err(err).Msg("Album items request failed")
		writeError(w, http.StatusBadGateway, "album rebuild failed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Rebuild re-samples the virtual album from its source albums.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Rebuild(r.Context()); err != nil {
		logging.Err(err).Msg("Album rebuild request failed")
		writeError(w, http.StatusBadGateway, "album rebuild failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

// displayedRequest reports the URL a display is currently showing.
type displayedRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Displayed resolves a displayed image URL back to its album item and
// records the view.
func (h *Handler) Displayed(w http.ResponseWriter, r *http.Request) {
	var req displayedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := h.session.ResolveDisplayedImage(r.Context(), req.URL); err != nil {
		if errors.Is(err, album.ErrLookupMiss) {
			writeError(w, http.StatusNotFound, "image not in active album")
			return
		}
		logging.Err(err).Msg("Displayed image request failed")
		writeError(w, http.StatusInternalServerError, "failed to resolve displayed image")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Err(err).Msg("Response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

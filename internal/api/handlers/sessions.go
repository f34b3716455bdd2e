package handlers

import (
	"net/http"
	"strconv"

	"github.com/onnwee/redpull/internal/apierr"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/middleware"
	"github.com/onnwee/redpull/internal/session"
)

// SessionHandler serves the browse session endpoints.
type SessionHandler struct {
	store SessionStore
}

func NewSessionHandler(store SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// Create starts an idle session.
// POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Create()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "session created", "session_id", s.ID(), "active", h.store.Count())
	writeJSON(w, http.StatusCreated, s.State())
}

// Get returns the session state.
// GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// Delete ends a session.
// DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	s.Clear(r.Context())
	h.store.Delete(s.ID())
	w.WriteHeader(http.StatusNoContent)
}

// Load resets the session onto a new target and returns the first page.
// POST /api/sessions/{id}/load
func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	var req session.LoadRequest
	if !decode(w, r, &req) {
		return
	}
	req.Input = middleware.SanitizeString(req.Input, maxInputLength)
	if req.Input == "" {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("input"))
		return
	}
	batch, err := s.Load(r.Context(), req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// moreRequest carries the optional scroll position. Without one the next
// page is fetched unconditionally.
type moreRequest struct {
	Viewport *session.Viewport `json:"viewport,omitempty"`
}

// More fetches the next page when the viewport is near the bottom.
// POST /api/sessions/{id}/more
func (h *SessionHandler) More(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	var req moreRequest
	if !decode(w, r, &req) {
		return
	}
	batch, err := s.More(r.Context(), req.Viewport)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// Clear drops the loaded target and its tiles.
// POST /api/sessions/{id}/clear
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	s.Clear(r.Context())
	writeJSON(w, http.StatusOK, s.State())
}

type tilesResponse struct {
	Offset     int            `json:"offset"`
	Generation uint64         `json:"generation"`
	Tiles      []session.Tile `json:"tiles"`
}

// Tiles lists rendered tiles from offset on, for a page reload.
// GET /api/sessions/{id}/tiles?offset=N
func (h *SessionHandler) Tiles(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("offset", "'offset' must be a non-negative integer"))
			return
		}
		offset = n
	}
	st := s.State()
	writeJSON(w, http.StatusOK, tilesResponse{Offset: offset, Generation: st.Generation, Tiles: s.Tiles(offset)})
}

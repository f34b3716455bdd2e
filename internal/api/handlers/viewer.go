package handlers

import (
	"errors"
	"net/http"

	"github.com/onnwee/redpull/internal/apierr"
	"github.com/onnwee/redpull/internal/session"
)

// ViewerHandler serves the enlarge overlay endpoints.
type ViewerHandler struct {
	store SessionStore
}

func NewViewerHandler(store SessionStore) *ViewerHandler {
	return &ViewerHandler{store: store}
}

type viewerResponse struct {
	Open    bool                 `json:"open"`
	Handled bool                 `json:"handled"`
	Viewer  *session.ViewerState `json:"viewer,omitempty"`
}

func respondViewer(w http.ResponseWriter, st *session.ViewerState, handled bool) {
	writeJSON(w, http.StatusOK, viewerResponse{Open: st != nil, Handled: handled, Viewer: st})
}

func viewerErr(w http.ResponseWriter, r *http.Request, err error, tileID string, index int) {
	switch {
	case errors.Is(err, session.ErrTileNotFound):
		apierr.WriteErrorWithContext(w, r, apierr.ViewerTileNotFound(tileID))
	case errors.Is(err, session.ErrInvalidIndex):
		apierr.WriteErrorWithContext(w, r, apierr.ViewerInvalidIndex(index))
	default:
		writeErr(w, r, err)
	}
}

type openRequest struct {
	TileID string `json:"tile_id"`
	Index  int    `json:"index"`
}

// Open enlarges a tile, replacing any open viewer.
// POST /api/sessions/{id}/viewer
func (h *ViewerHandler) Open(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	var req openRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TileID == "" {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("tile_id"))
		return
	}
	st, err := s.OpenViewer(r.Context(), req.TileID, req.Index)
	if err != nil {
		viewerErr(w, r, err, req.TileID, req.Index)
		return
	}
	respondViewer(w, st, true)
}

type navigateRequest struct {
	Step int `json:"step"`
}

// Navigate moves within the open gallery, wrapping at either end.
// POST /api/sessions/{id}/viewer/navigate
func (h *ViewerHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	var req navigateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Step == 0 {
		req.Step = 1
	}
	st, err := s.Navigate(r.Context(), req.Step)
	if err != nil {
		viewerErr(w, r, err, "", 0)
		return
	}
	respondViewer(w, st, true)
}

type keyRequest struct {
	Key string `json:"key"`
}

// Key applies a keyboard shortcut. Unbound keys report handled=false so the
// page can let the browser act on them.
// POST /api/sessions/{id}/viewer/key
func (h *ViewerHandler) Key(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	var req keyRequest
	if !decode(w, r, &req) {
		return
	}
	st, handled, err := s.HandleKey(r.Context(), req.Key)
	if err != nil {
		viewerErr(w, r, err, "", 0)
		return
	}
	respondViewer(w, st, handled)
}

// Activate handles a click or tap on a tile.
// POST /api/sessions/{id}/viewer/activate
func (h *ViewerHandler) Activate(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	var ev session.PointerEvent
	if !decode(w, r, &ev) {
		return
	}
	if ev.TileID == "" {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("tile_id"))
		return
	}
	st, opened, err := s.Activate(r.Context(), ev)
	if err != nil {
		viewerErr(w, r, err, ev.TileID, ev.Index)
		return
	}
	respondViewer(w, st, opened)
}

// Close dismisses the viewer.
// DELETE /api/sessions/{id}/viewer
func (h *ViewerHandler) Close(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}
	s.CloseViewer(r.Context())
	respondViewer(w, nil, true)
}

package handlers

import (
	"net/http"

	"github.com/onnwee/redpull/internal/apierr"
	"github.com/onnwee/redpull/internal/middleware"
	"github.com/onnwee/redpull/internal/session"
	"github.com/onnwee/redpull/internal/target"
)

type resolveResponse struct {
	Input  string        `json:"input"`
	Mode   target.Mode   `json:"mode"`
	Target target.Target `json:"target"`
	Path   string        `json:"path"`
}

// Resolve parses user input into a target without loading anything. An
// auto mode falls back to the configured default, as Load does.
// GET /api/resolve?input=...&mode=auto|user|subreddit
func Resolve(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		input := middleware.SanitizeString(q.Get("input"), maxInputLength)
		if input == "" {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("input"))
			return
		}
		mode := target.ParseMode(q.Get("mode"))
		if mode == target.ModeAuto {
			mode = store.Settings().DefaultMode
		}
		t, err := target.Resolve(input, mode)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resolveResponse{Input: input, Mode: mode, Target: t, Path: t.Path()})
	}
}

type configResponse struct {
	ScrollThresholdPx float64         `json:"scroll_threshold_px"`
	ViewerActiveZone  float64         `json:"viewer_active_zone"`
	ViewerKeyboard    bool            `json:"viewer_keyboard"`
	DefaultMode       target.Mode     `json:"default_mode"`
	DefaultFilters    session.Filters `json:"default_filters"`
}

// Config exposes the knobs the page needs to drive a session.
// GET /api/config
func Config(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := store.Settings()
		writeJSON(w, http.StatusOK, configResponse{
			ScrollThresholdPx: st.ScrollThresholdPx,
			ViewerActiveZone:  st.ViewerActiveZone,
			ViewerKeyboard:    st.ViewerKeyboard,
			DefaultMode:       st.DefaultMode,
			DefaultFilters:    session.DefaultFilters(),
		})
	}
}

package handlers

import (
	"net/http"
)

// Health returns a simple JSON payload to indicate the API is alive.
func Health(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": store.Count()})
	}
}

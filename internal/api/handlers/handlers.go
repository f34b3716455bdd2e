package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"

	"github.com/onnwee/redpull/internal/apierr"
	"github.com/onnwee/redpull/internal/errorreporting"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/middleware"
	"github.com/onnwee/redpull/internal/redditapi"
	"github.com/onnwee/redpull/internal/session"
	"github.com/onnwee/redpull/internal/target"
)

// SessionStore is the part of session.Manager the handlers use.
type SessionStore interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
	Delete(id string) bool
	Count() int
	Settings() session.Settings
}

const maxInputLength = 512

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

// writeErr maps domain errors onto the API error envelope.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	apierr.WriteErrorWithContext(w, r, toAPIError(r, err))
}

func toAPIError(r *http.Request, err error) *apierr.Error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var resolveErr *target.ResolveError
	if errors.As(err, &resolveErr) {
		return apierr.ResolveInvalidInput(resolveErr.Input)
	}
	if fe, ok := redditapi.AsFetchError(err); ok {
		level := sentry.LevelError
		if fe.Temporary() {
			level = sentry.LevelWarning
		}
		errorreporting.AddBreadcrumb("fetch", fe.Error(), level)
		switch fe.Kind {
		case redditapi.HTTPError:
			return apierr.FetchHTTP(fe.StatusCode, fe.Reason, fe.Message)
		case redditapi.MalformedResponse:
			return apierr.FetchMalformed("")
		default:
			return apierr.FetchNetwork("")
		}
	}
	switch {
	case errors.Is(err, target.ErrInvalidInput):
		return apierr.ResolveInvalidInput("")
	case errors.Is(err, session.ErrNotFound):
		return apierr.SessionNotFound(mux.Vars(r)["id"])
	case errors.Is(err, session.ErrLimit):
		return apierr.SessionLimit()
	case errors.Is(err, session.ErrTileNotFound):
		return apierr.ViewerTileNotFound("")
	case errors.Is(err, session.ErrViewerNotOpen):
		return apierr.ViewerNotOpen()
	case errors.Is(err, session.ErrInvalidIndex):
		return apierr.ViewerInvalidIndex(-1)
	}
	logger.ErrorContext(r.Context(), "unhandled API error", "path", r.URL.Path, "error", err)
	errorreporting.CaptureErrorWithContext(err, map[string]string{"path": r.URL.Path}, nil)
	return apierr.SystemInternal("")
}

// lookup resolves the {id} route variable to a live session.
func lookup(store SessionStore, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := mux.Vars(r)["id"]
	s, err := store.Get(id)
	if err != nil {
		writeErr(w, r, err)
		return nil, false
	}
	return s, true
}

// decode reads an optional JSON body into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := middleware.DecodeJSON(r, dst); err != nil {
		apierr.WriteErrorWithContext(w, r, err)
		return false
	}
	return true
}

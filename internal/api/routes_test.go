package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onnwee/redpull/internal/api/handlers"
	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/media"
	"github.com/onnwee/redpull/internal/redditapi"
	"github.com/onnwee/redpull/internal/session"
	"github.com/onnwee/redpull/internal/target"
)

type emptyFetcher struct{}

func (emptyFetcher) FetchPage(context.Context, target.Target, string) (*redditapi.Page, error) {
	return &redditapi.Page{}, nil
}

func testDeps() Deps {
	config.ResetForTest()
	cfg := config.Load()
	hub := handlers.NewHub()
	store := session.NewManager(cfg, session.Deps{Fetcher: emptyFetcher{}, Classifier: media.New(media.Options{}), Sink: hub})
	return Deps{Config: cfg, Sessions: store, Hub: hub}
}

// TestRoutesRegistered only checks that each route reaches a handler; the
// handlers package covers behaviour.
func TestRoutesRegistered(t *testing.T) {
	router := NewRouter(testDeps())
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/static/app.js"},
		{http.MethodGet, "/health"},
		{http.MethodGet, "/metrics"},
		{http.MethodGet, "/api/config"},
		{http.MethodGet, "/api/status"},
		{http.MethodGet, "/api/resolve?input=u/x"},
		{http.MethodPost, "/api/sessions"},
		{http.MethodGet, "/api/sessions/abc"},
		{http.MethodDelete, "/api/sessions/abc"},
		{http.MethodPost, "/api/sessions/abc/load"},
		{http.MethodPost, "/api/sessions/abc/more"},
		{http.MethodPost, "/api/sessions/abc/clear"},
		{http.MethodGet, "/api/sessions/abc/tiles"},
		{http.MethodPost, "/api/sessions/abc/viewer"},
		{http.MethodDelete, "/api/sessions/abc/viewer"},
		{http.MethodPost, "/api/sessions/abc/viewer/navigate"},
		{http.MethodPost, "/api/sessions/abc/viewer/key"},
		{http.MethodPost, "/api/sessions/abc/viewer/activate"},
		{http.MethodGet, "/api/sessions/abc/ws"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(rt.method, rt.path, nil))
			if rr.Code == http.StatusMethodNotAllowed {
				t.Errorf("method not allowed")
			}
			// Unknown sessions answer 404 with a JSON envelope; unregistered
			// routes answer mux's plain-text 404.
			if rr.Code == http.StatusNotFound && !strings.Contains(rr.Body.String(), "SESSION_NOT_FOUND") {
				t.Errorf("route not registered: %s", rr.Body.String())
			}
		})
	}
}

func TestHandlerChain(t *testing.T) {
	h := Handler(testDeps())

	tests := []struct {
		name           string
		acceptEncoding string
		wantEncoding   string
	}{
		{"with brotli support", "br", "br"},
		{"with gzip support", "gzip", "gzip"},
		{"without compression", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := rr.Header().Get("Content-Encoding"); got != tt.wantEncoding {
				t.Errorf("Content-Encoding = %q, want %q", got, tt.wantEncoding)
			}
			if !strings.Contains(rr.Header().Get("Vary"), "Accept-Encoding") {
				t.Error("missing Vary: Accept-Encoding")
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
			if rr.Header().Get("Content-Security-Policy") == "" {
				t.Error("missing security headers")
			}
		})
	}
}

func TestHandlerRejectsOversizedBody(t *testing.T) {
	d := testDeps()
	cfg := *d.Config
	cfg.MaxRequestBodyBytes = 32
	d.Config = &cfg
	h := Handler(d)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d", rr.Code)
	}
	id := rr.Body.String()
	id = id[strings.Index(id, `"id":"`)+6:]
	id = id[:strings.Index(id, `"`)]

	body := `{"input":"` + strings.Repeat("x", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/load", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (%s)", rr.Code, rr.Body.String())
	}
}

func TestStaticETag(t *testing.T) {
	h := Handler(testDeps())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag on static asset")
	}
	req := httptest.NewRequest(http.MethodGet, "/static/app.css", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotModified {
		t.Errorf("conditional GET status = %d, want 304", rr.Code)
	}
}

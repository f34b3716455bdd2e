package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestETag(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`.tile{display:block}`))
	})

	first := httptest.NewRecorder()
	ETag(testHandler).ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	etag := first.Header().Get("ETag")
	if first.Code != http.StatusOK || etag == "" || first.Body.String() != `.tile{display:block}` {
		t.Fatalf("first response: %d %q %q", first.Code, etag, first.Body.String())
	}

	tests := []struct {
		name        string
		ifNoneMatch string
		wantStatus  int
	}{
		{"non-matching", `"different-etag"`, http.StatusOK},
		{"matching", etag, http.StatusNotModified},
		{"weak matching", "W/" + etag, http.StatusNotModified},
		{"list", `"other", ` + etag, http.StatusNotModified},
		{"wildcard", "*", http.StatusNotModified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/static/app.css", nil)
			req.Header.Set("If-None-Match", tt.ifNoneMatch)
			rr := httptest.NewRecorder()
			ETag(testHandler).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if rr.Header().Get("ETag") != etag {
				t.Errorf("ETag changed: %q", rr.Header().Get("ETag"))
			}
			if tt.wantStatus == http.StatusNotModified && rr.Body.Len() != 0 {
				t.Error("304 carried a body")
			}
			if rr.Header().Get("Cache-Control") == "" {
				t.Error("missing Cache-Control")
			}
		})
	}
}

func TestETagSkipsErrorsAndWrites(t *testing.T) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	rr := httptest.NewRecorder()
	ETag(notFound).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))
	if rr.Code != http.StatusNotFound || rr.Header().Get("ETag") != "" {
		t.Fatalf("404 response: %d, etag %q", rr.Code, rr.Header().Get("ETag"))
	}

	called := false
	post := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})
	rr = httptest.NewRecorder()
	ETag(post).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if !called || rr.Code != http.StatusCreated || rr.Header().Get("ETag") != "" {
		t.Fatalf("POST response: %d, etag %q", rr.Code, rr.Header().Get("ETag"))
	}
}

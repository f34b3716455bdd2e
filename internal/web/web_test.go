package web

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEmbeddedAssets(t *testing.T) {
	for _, name := range []string{"index.html", "app.js", "app.css"} {
		if _, err := fs.Stat(Static(), name); err != nil {
			t.Errorf("missing embedded %s: %v", name, err)
		}
	}
}

func TestIndex(t *testing.T) {
	rr := httptest.NewRecorder()
	Index()(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "/static/app.js") {
		t.Error("index does not reference app.js")
	}
}

func TestAssets(t *testing.T) {
	tests := []struct {
		path     string
		wantCode int
	}{
		{"/static/app.js", http.StatusOK},
		{"/static/app.css", http.StatusOK},
		{"/static/nope.js", http.StatusNotFound},
	}
	h := Assets()
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rr.Code != tt.wantCode {
			t.Errorf("%s: status = %d, want %d", tt.path, rr.Code, tt.wantCode)
		}
	}
}

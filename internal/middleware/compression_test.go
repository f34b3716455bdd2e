package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestCompress(t *testing.T) {
	payload := strings.Repeat(`{"kind":"image","source_url":"https://i.redd.it/abc.jpg"},`, 200)
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(payload))
	})

	tests := []struct {
		name           string
		acceptEncoding string
		wantEncoding   string
	}{
		{"gzip only", "gzip", "gzip"},
		{"gzip and deflate", "gzip, deflate", "gzip"},
		{"brotli preferred", "gzip, deflate, br", "br"},
		{"brotli refused", "br;q=0, gzip", "gzip"},
		{"wildcard", "*", "br"},
		{"none", "", ""},
		{"deflate only", "deflate", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions/x/tiles", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rr := httptest.NewRecorder()
			Compress(testHandler).ServeHTTP(rr, req)

			if got := rr.Header().Get("Content-Encoding"); got != tt.wantEncoding {
				t.Fatalf("Content-Encoding = %q, want %q", got, tt.wantEncoding)
			}
			if rr.Header().Get("Vary") != "Accept-Encoding" {
				t.Errorf("Vary = %q", rr.Header().Get("Vary"))
			}

			var body io.Reader = rr.Body
			switch tt.wantEncoding {
			case "gzip":
				gr, err := gzip.NewReader(rr.Body)
				if err != nil {
					t.Fatalf("gzip reader: %v", err)
				}
				defer gr.Close()
				body = gr
			case "br":
				body = brotli.NewReader(rr.Body)
			}
			got, err := io.ReadAll(body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(got) != payload {
				t.Fatalf("body mismatch: got %d bytes, want %d", len(got), len(payload))
			}
			if tt.wantEncoding != "" && rr.Body.Len() >= len(payload) {
				t.Errorf("compressed body (%d) not smaller than payload (%d)", rr.Body.Len(), len(payload))
			}
		})
	}
}

func TestCompressSkipsBodilessAndUpgrades(t *testing.T) {
	noContent := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/x", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	Compress(noContent).ServeHTTP(rr, req)
	if rr.Header().Get("Content-Encoding") != "" || rr.Body.Len() != 0 {
		t.Fatalf("204 was encoded: %q, %d bytes", rr.Header().Get("Content-Encoding"), rr.Body.Len())
	}

	plain := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("upgrade"))
	})
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/x/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rr = httptest.NewRecorder()
	Compress(plain).ServeHTTP(rr, req)
	if rr.Header().Get("Content-Encoding") != "" || rr.Body.String() != "upgrade" {
		t.Fatal("websocket upgrade should not be compressed")
	}
}

func TestNegotiateEncoding(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"identity":         "",
		"GZIP":             "gzip",
		"x-gzip":           "gzip",
		"br":               "br",
		"gzip;q=1.0, br":   "br",
		"br; q=0, gzip;q=0": "",
	}
	for in, want := range tests {
		if got := negotiateEncoding(in); got != want {
			t.Errorf("negotiateEncoding(%q) = %q, want %q", in, got, want)
		}
	}
}

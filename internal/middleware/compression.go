package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

type compressWriter interface {
	io.WriteCloser
	Reset(w io.Writer)
}

// compressResponseWriter wraps http.ResponseWriter and encodes the body.
// Bodiless responses are passed through untouched.
type compressResponseWriter struct {
	http.ResponseWriter
	enc         compressWriter
	encoding    string
	wroteHeader bool
	active      bool
}

func (w *compressResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	h := w.Header()
	if status != http.StatusNoContent && status != http.StatusNotModified && h.Get("Content-Encoding") == "" {
		h.Set("Content-Encoding", w.encoding)
		h.Del("Content-Length") // length changes after compression
		w.active = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if !w.active {
		return w.ResponseWriter.Write(b)
	}
	return w.enc.Write(b)
}

// Flush pushes buffered compressed bytes to the client.
func (w *compressResponseWriter) Flush() {
	if f, ok := w.enc.(interface{ Flush() error }); ok && w.active {
		_ = f.Flush()
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compress encodes responses with brotli or gzip, preferring brotli when the
// client accepts both. Websocket upgrades and HEAD requests are skipped.
func Compress(next http.Handler) http.Handler {
	pools := map[string]*sync.Pool{
		"br": {New: func() any { return brotli.NewWriterLevel(io.Discard, brotli.DefaultCompression) }},
		"gzip": {New: func() any {
			gz, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			return gz
		}},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")
		encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" || r.Method == http.MethodHead || isUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		pool := pools[encoding]
		enc := pool.Get().(compressWriter)
		enc.Reset(w)
		cw := &compressResponseWriter{ResponseWriter: w, enc: enc, encoding: encoding}
		defer func() {
			if cw.active {
				_ = enc.Close()
			}
			pool.Put(enc)
		}()

		next.ServeHTTP(cw, r)
	})
}

// negotiateEncoding picks br or gzip from an Accept-Encoding header. Codings
// with q=0 are refused.
func negotiateEncoding(header string) string {
	var br, gz bool
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		name := strings.ToLower(strings.TrimSpace(fields[0]))
		refused := false
		for _, p := range fields[1:] {
			p = strings.ReplaceAll(strings.TrimSpace(p), " ", "")
			if p == "q=0" || p == "q=0.0" || p == "q=0.00" || p == "q=0.000" {
				refused = true
			}
		}
		if refused {
			continue
		}
		switch name {
		case "br":
			br = true
		case "gzip", "x-gzip":
			gz = true
		case "*":
			br, gz = true, true
		}
	}
	switch {
	case br:
		return "br"
	case gz:
		return "gzip"
	}
	return ""
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") ||
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

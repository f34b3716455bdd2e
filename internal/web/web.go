// Package web serves the embedded browser page. The page only paints tiles
// and forwards gestures; every decision is made by the JSON API.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var content embed.FS

// Static returns the embedded asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Index serves index.html.
func Index() http.HandlerFunc {
	assets := Static()
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fs.ReadFile(assets, "index.html")
		if err != nil {
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
}

// Assets serves the files under /static/.
func Assets() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(Static())))
}

package handlers

import (
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

// RelayPage serves the embedded bridge relay page. Paths that match no file
// get index.html so the page can be opened from any URL.
func RelayPage(staticFS fs.FS) http.HandlerFunc {
	fileServer := http.FileServer(http.FS(staticFS))

	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/bridge/") {
			http.NotFound(w, r)
			return
		}

		// The relay script must never be cached across upgrades.
		w.Header().Set("Cache-Control", "no-cache")

		cleanPath := strings.TrimPrefix(path, "/")
		if cleanPath != "" && cleanPath != "index.html" {
			if f, err := staticFS.Open(cleanPath); err == nil {
				f.Close()
				fileServer.ServeHTTP(w, r)
				return
			}
			slog.Debug("relay page fallback", "path", path)
		}

		indexFile, err := staticFS.Open("index.html")
		if err != nil {
			slog.Error("failed to open relay index.html", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer indexFile.Close()

		stat, err := indexFile.Stat()
		if err != nil {
			slog.Error("failed to stat relay index.html", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		rs, ok := indexFile.(io.ReadSeeker)
		if !ok {
			slog.Error("relay index.html is not seekable")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, "index.html", stat.ModTime(), rs)
	}
}

package handlers

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Fantasim/btcconnect/web"
)

func TestRelayPage(t *testing.T) {
	staticFS := fstest.MapFS{
		"index.html": {Data: []byte("<html>relay</html>")},
		"relay.js":   {Data: []byte("// relay")},
	}
	handler := RelayPage(staticFS)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "<html>relay</html>"},
		{"/relay.js", http.StatusOK, "// relay"},
		{"/some/deep/link", http.StatusOK, "<html>relay</html>"},
		{"/api/unknown", http.StatusNotFound, ""},
		{"/bridge/other", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusOK && rec.Header().Get("Cache-Control") != "no-cache" {
				t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestRelayPage_EmbeddedAssets(t *testing.T) {
	sub, err := fs.Sub(web.RelayFiles, "relay")
	if err != nil {
		t.Fatal(err)
	}
	handler := RelayPage(sub)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/relay.js", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/bridge/ws") {
		t.Errorf("embedded relay.js not served: %d", rec.Code)
	}
}

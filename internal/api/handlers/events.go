package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/events"
	"github.com/Fantasim/btcconnect/internal/facade"
)

// Events handles GET /api/events, a Server-Sent Events stream. The current
// snapshot is sent first so a client can render without a separate fetch.
func Events(hub *events.Hub, f *facade.Facade, keepAliveEvery time.Duration) http.HandlerFunc {
	if keepAliveEvery <= 0 {
		keepAliveEvery = config.SSEKeepAliveInterval
	}

	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			slog.Error("SSE not supported: response writer does not implement http.Flusher")
			httputil.Error(w, http.StatusInternalServerError, config.ErrorInternal, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ch := hub.Subscribe()
		defer func() {
			hub.Unsubscribe(ch)
			slog.Info("SSE client disconnected", "remoteAddr", r.RemoteAddr)
		}()

		slog.Info("SSE client connected",
			"remoteAddr", r.RemoteAddr,
			"totalClients", hub.ClientCount(),
		)

		writeEvent(w, events.Event{Type: events.TypeState, Data: f.State()})
		flusher.Flush()

		keepAlive := time.NewTicker(keepAliveEvery)
		defer keepAlive.Stop()

		for {
			select {
			case event, ok := <-ch:
				if !ok {
					slog.Info("SSE channel closed, ending stream", "remoteAddr", r.RemoteAddr)
					return
				}
				writeEvent(w, event)
				flusher.Flush()

			case <-keepAlive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()

			case <-r.Context().Done():
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event events.Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		slog.Error("failed to marshal SSE event data", "type", event.Type, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/facade"
)

// BridgeStatus reports whether a relay page is attached.
type BridgeStatus interface {
	Connected() bool
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Network string `json:"network"`
	Bridge  bool   `json:"bridge"`
	Wallet  string `json:"wallet,omitempty"`
	DB      string `json:"db"`
}

// Health handles GET /api/health. A missing relay page is reported, not
// treated as unhealthy; a failing database is.
func Health(cfg *config.Config, version string, bridge BridgeStatus, store Pinger, f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("health check requested", "remoteAddr", r.RemoteAddr)

		resp := healthResponse{
			Status:  "ok",
			Version: version,
			Network: cfg.Network,
			Bridge:  bridge.Connected(),
			DB:      "ok",
		}
		if wt, ok := f.Active(); ok {
			resp.Wallet = string(wt)
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			slog.Error("health check database ping failed", "error", err)
			resp.Status = "degraded"
			resp.DB = err.Error()
			httputil.JSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		httputil.JSON(w, http.StatusOK, resp)
	}
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/models"
)

// ListWallets handles GET /api/wallets.
func ListWallets(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallets := f.DetectWallets()
		slog.Debug("wallets detected", "count", len(wallets))
		httputil.JSON(w, http.StatusOK, wallets)
	}
}

type capabilitiesResponse struct {
	Wallet     models.WalletType `json:"wallet"`
	Name       string            `json:"name"`
	Operations map[string]bool   `json:"operations"`
	Enabled    []string          `json:"enabled"`
}

// GetCapabilities handles GET /api/capabilities. With ?wallet= it returns one
// wallet's matrix, otherwise every wallet's.
func GetCapabilities(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("wallet"); name != "" {
			wt := models.WalletType(name)
			d, err := f.Capabilities(wt)
			if err != nil {
				httputil.ErrorFrom(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, describe(wt, d))
			return
		}

		out := make([]capabilitiesResponse, 0, len(models.AllWallets))
		for _, wt := range models.AllWallets {
			out = append(out, describe(wt, capability.For(wt)))
		}
		httputil.JSON(w, http.StatusOK, out)
	}
}

func describe(wt models.WalletType, d capability.Descriptor) capabilitiesResponse {
	enabled := d.Enabled()
	if enabled == nil {
		enabled = []string{}
	}
	return capabilitiesResponse{
		Wallet:     wt,
		Name:       connector.DisplayName(wt),
		Operations: d.Matrix(),
		Enabled:    enabled,
	}
}

// BridgePaths handles GET /api/bridge/paths: the globals the relay page
// should look up on window.
func BridgePaths() http.HandlerFunc {
	paths := connector.GlobalPaths()
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, paths)
	}
}

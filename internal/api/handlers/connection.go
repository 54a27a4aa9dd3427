package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/models"
)

type connectRequest struct {
	Wallet models.WalletType `json:"wallet" validate:"required,wallet"`
}

// Connect handles POST /api/connect.
func Connect(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}

		slog.Info("connect requested", "wallet", req.Wallet, "remoteAddr", r.RemoteAddr)

		snap, err := f.Connect(r.Context(), req.Wallet)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, snap)
	}
}

// Disconnect handles POST /api/disconnect. It succeeds with no wallet connected.
func Disconnect(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f.Disconnect(r.Context()); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, f.State())
	}
}

// GetState handles GET /api/state.
func GetState(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, f.State())
	}
}

type accountsResponse struct {
	Address   string           `json:"address"`
	PublicKey string           `json:"publicKey"`
	Accounts  []models.Account `json:"accounts"`
}

// GetAccounts handles GET /api/accounts.
func GetAccounts(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := f.Accounts()
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		addr, _ := f.Address()
		// A wallet without getPublicKey still has accounts.
		pub, _ := f.PublicKey()
		httputil.JSON(w, http.StatusOK, accountsResponse{Address: addr, PublicKey: pub, Accounts: accounts})
	}
}

// GetBalance handles GET /api/balance.
func GetBalance(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bal, err := f.Balance(r.Context())
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, bal)
	}
}

// GetNetwork handles GET /api/network.
func GetNetwork(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := f.Network(r.Context())
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]models.Network{"network": n})
	}
}

type switchNetworkRequest struct {
	Network models.Network `json:"network" validate:"required,network"`
}

// SwitchNetwork handles POST /api/network.
func SwitchNetwork(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req switchNetworkRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		if err := f.SwitchNetwork(r.Context(), req.Network); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]models.Network{"network": req.Network})
	}
}

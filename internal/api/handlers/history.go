package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/db"
	"github.com/Fantasim/btcconnect/internal/models"
)

// HistoryStore is the read side of the activity journal.
type HistoryStore interface {
	ListActivity(ctx context.Context, f db.ActivityFilter) ([]models.Activity, error)
	ActivityByTxID(ctx context.Context, txid string) ([]models.Activity, error)
	GetAllSettings(ctx context.Context) (map[string]string, error)
}

type historyQuery struct {
	Wallet    string `validate:"omitempty,wallet"`
	Operation string `validate:"omitempty,max=64"`
	Status    string `validate:"omitempty,oneof=ok error"`
	Limit     int    `validate:"min=0"`
}

// History handles GET /api/history?wallet=&operation=&status=&limit=&txid=.
func History(store HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if txid := q.Get("txid"); txid != "" {
			rows, err := store.ActivityByTxID(r.Context(), txid)
			if err != nil {
				httputil.ErrorFrom(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, rows)
			return
		}

		limit, err := queryInt(r, "limit", config.HistoryLimit)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		hq := historyQuery{
			Wallet:    q.Get("wallet"),
			Operation: q.Get("operation"),
			Status:    q.Get("status"),
			Limit:     limit,
		}
		if err := httputil.Validate(hq); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}

		rows, err := store.ListActivity(r.Context(), db.ActivityFilter{
			Wallet:    models.WalletType(hq.Wallet),
			Operation: hq.Operation,
			Status:    hq.Status,
			Limit:     hq.Limit,
		})
		if err != nil {
			slog.Error("failed to list activity", "error", err)
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, rows)
	}
}

// GetSettings handles GET /api/settings. The values are informational; the
// last wallet is never used to reconnect.
func GetSettings(store HistoryStore, network string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := store.GetAllSettings(r.Context())
		if err != nil {
			slog.Error("failed to get settings", "error", err)
			httputil.Error(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to get settings")
			return
		}
		settings["network"] = network
		httputil.JSON(w, http.StatusOK, settings)
	}
}

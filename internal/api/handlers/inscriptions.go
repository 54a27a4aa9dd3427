package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/facade"
)

// ListInscriptions handles GET /api/inscriptions?offset=&limit=.
func ListInscriptions(f *facade.Facade, defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		limit, err := queryInt(r, "limit", defaultLimit)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		if offset < 0 || limit < 1 {
			httputil.ErrorFrom(w, fmt.Errorf("%w: offset must be >= 0 and limit >= 1", config.ErrInvalidRequest))
			return
		}

		page, err := f.Inscriptions(r.Context(), offset, limit)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, page)
	}
}

// AllInscriptions handles GET /api/inscriptions/all. The walk stops at the
// page cap; the response says so via truncated.
func AllInscriptions(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := f.AllInscriptions(r.Context())
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, all)
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", config.ErrInvalidRequest, key, s)
	}
	return n, nil
}

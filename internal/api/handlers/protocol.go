package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/models"
)

type sendInscriptionRequest struct {
	To            string `json:"to" validate:"required"`
	InscriptionID string `json:"inscriptionId" validate:"required"`
	FeeRate       int64  `json:"feeRate,omitempty" validate:"omitempty,min=1"`
}

type brc20TransferRequest struct {
	Ticker string `json:"ticker" validate:"required"`
	Amount string `json:"amount" validate:"required,numeric"`
}

type sendRunesRequest struct {
	To      string `json:"to" validate:"required"`
	RuneID  string `json:"runeId" validate:"required"`
	Amount  string `json:"amount" validate:"required,numeric"`
	FeeRate int64  `json:"feeRate,omitempty" validate:"omitempty,min=1"`
}

type sendAtomicalsRequest struct {
	To         string `json:"to" validate:"required"`
	AtomicalID string `json:"atomicalId" validate:"required"`
	Amount     int64  `json:"amount" validate:"required,min=1"`
	FeeRate    int64  `json:"feeRate,omitempty" validate:"omitempty,min=1"`
}

type emptyRequest struct{}

// Protocol handles POST /api/protocol/{op} for the inscription, BRC-20, rune
// and atomical operations. op is the capability path, e.g. "runes.etch".
func Protocol(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := chi.URLParam(r, "op")
		slog.Debug("protocol operation requested", "op", op)

		result, err := runProtocol(w, r, f, op)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, result)
	}
}

func runProtocol(w http.ResponseWriter, r *http.Request, f *facade.Facade, op string) (any, error) {
	ctx := r.Context()

	switch op {
	case capability.OpSendInscription:
		var req sendInscriptionRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			return nil, err
		}
		txid, err := f.SendInscription(ctx, req.To, req.InscriptionID, req.FeeRate)
		return txidResponse{TxID: txid}, err

	case capability.OpCreateInscription:
		var req models.InscriptionRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			return nil, err
		}
		return f.CreateInscription(ctx, req)

	case capability.OpBRC20Transfer:
		var req brc20TransferRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			return nil, err
		}
		return f.InscribeTransfer(ctx, req.Ticker, req.Amount)

	case capability.OpRunesBalance:
		if err := httputil.Decode(w, r, &emptyRequest{}); err != nil {
			return nil, err
		}
		return f.RunesBalance(ctx)

	case capability.OpRunesTransfer:
		var req sendRunesRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			return nil, err
		}
		return f.SendRunes(ctx, req.To, req.RuneID, req.Amount, req.FeeRate)

	case capability.OpRunesEtch:
		var req models.EtchRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			return nil, err
		}
		return f.EtchRunes(ctx, req)

	case capability.OpRunesMint:
		var req models.MintRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			return nil, err
		}
		return f.MintRunes(ctx, req)

	case capability.OpAtomicalsBalance:
		if err := httputil.Decode(w, r, &emptyRequest{}); err != nil {
			return nil, err
		}
		return f.AtomicalsBalance(ctx)

	case capability.OpAtomicalsTransfer:
		var req sendAtomicalsRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			return nil, err
		}
		txid, err := f.SendAtomicals(ctx, req.To, req.AtomicalID, req.Amount, req.FeeRate)
		return txidResponse{TxID: txid}, err
	}

	return nil, fmt.Errorf("%w: unknown protocol operation %q", config.ErrInvalidRequest, op)
}

package handlers

import (
	"net/http"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/models"
)

type signMessageRequest struct {
	Message  string                 `json:"message" validate:"required"`
	Protocol models.MessageProtocol `json:"protocol,omitempty" validate:"omitempty,oneof=ecdsa bip322-simple"`
}

type signatureResponse struct {
	Signature string `json:"signature"`
}

// SignMessage handles POST /api/sign-message.
func SignMessage(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signMessageRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		sig, err := f.SignMessage(r.Context(), req.Message, req.Protocol)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, signatureResponse{Signature: sig})
	}
}

type signPsbtRequest struct {
	Psbt    string                 `json:"psbt" validate:"required,hexadecimal"`
	Options models.SignPsbtOptions `json:"options"`
}

// SignPsbt handles POST /api/sign-psbt.
func SignPsbt(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signPsbtRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		signed, err := f.SignPsbt(r.Context(), req.Psbt, req.Options)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, signed)
	}
}

type signPsbtsRequest struct {
	Psbts   []string                 `json:"psbts" validate:"required,min=1,dive,required,hexadecimal"`
	Options []models.SignPsbtOptions `json:"options,omitempty" validate:"omitempty,dive"`
}

// SignPsbts handles POST /api/sign-psbts.
func SignPsbts(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signPsbtsRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		signed, err := f.SignPsbts(r.Context(), req.Psbts, req.Options)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, signed)
	}
}

type sendBitcoinRequest struct {
	To      string `json:"to" validate:"required"`
	Amount  int64  `json:"amount" validate:"required,min=1"` // satoshis
	FeeRate int64  `json:"feeRate,omitempty" validate:"omitempty,min=1"`
}

type txidResponse struct {
	TxID string `json:"txid"`
}

// SendBitcoin handles POST /api/send-bitcoin.
func SendBitcoin(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendBitcoinRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		txid, err := f.SendBitcoin(r.Context(), req.To, req.Amount, req.FeeRate)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, txidResponse{TxID: txid})
	}
}

type pushPsbtRequest struct {
	Psbt string `json:"psbt" validate:"required,hexadecimal"`
}

// PushPsbt handles POST /api/push-psbt.
func PushPsbt(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pushPsbtRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		txid, err := f.PushPsbt(r.Context(), req.Psbt)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, txidResponse{TxID: txid})
	}
}

type pushTxRequest struct {
	RawTx string `json:"rawTx" validate:"required,hexadecimal"`
}

// PushTx handles POST /api/push-tx.
func PushTx(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pushTxRequest
		if err := httputil.Decode(w, r, &req); err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		txid, err := f.PushTx(r.Context(), req.RawTx)
		if err != nil {
			httputil.ErrorFrom(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, txidResponse{TxID: txid})
	}
}

package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Fantasim/btcconnect/internal/config"
)

// successResponse wraps data in the standard {"data": ...} envelope.
type successResponse struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	WalletCode int    `json:"walletCode,omitempty"`
}

// JSON writes a success response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(successResponse{Data: data}); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// Error writes an error response with the given status code, error code, and message.
func Error(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, errorBody{Code: code, Message: message})
}

// ErrorFrom maps err to its error code and HTTP status and writes it. The
// wallet's own numeric code travels along when there is one.
func ErrorFrom(w http.ResponseWriter, err error) {
	body := errorBody{Code: config.ErrorCode(err), Message: err.Error()}
	if we, ok := config.AsWalletError(err); ok {
		body.WalletCode = we.Code
	}
	status := StatusFor(body.Code)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", body.Code, "error", err)
	}
	writeError(w, status, body)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: body}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// StatusFor returns the HTTP status for an API error code.
func StatusFor(code string) int {
	switch code {
	case config.ErrorInvalidRequest, config.ErrorInvalidPsbt, config.ErrorInvalidTx,
		config.ErrorInvalidAddress, config.ErrorUnknownWallet:
		return http.StatusBadRequest
	case config.ErrorNotInstalled:
		return http.StatusNotFound
	case config.ErrorUserRejected:
		return http.StatusForbidden
	case config.ErrorNoWalletConnected, config.ErrorNotConnected,
		config.ErrorWalletConflict, config.ErrorConnectSuperseded:
		return http.StatusConflict
	case config.ErrorRateLimited:
		return http.StatusTooManyRequests
	case config.ErrorUnsupportedOperation:
		return http.StatusNotImplemented
	case config.ErrorProviderError, config.ErrorMalformedResponse:
		return http.StatusBadGateway
	case config.ErrorBridgeClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err maps to a 4xx status.
func IsClientError(err error) bool {
	s := StatusFor(config.ErrorCode(err))
	return s >= 400 && s < 500
}

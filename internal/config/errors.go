package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every error surfaced by the provider layer matches
// exactly one of these via errors.Is.
var (
	ErrNotInstalled         = errors.New("wallet not installed")
	ErrNotConnected         = errors.New("wallet not connected")
	ErrUnsupportedOperation = errors.New("operation not supported by wallet")
	ErrNoWalletConnected    = errors.New("no wallet connected")
	ErrUserRejected         = errors.New("user rejected the request")
	ErrProviderError        = errors.New("wallet provider error")
	ErrMalformedResponse    = errors.New("malformed wallet response")

	ErrWalletConflict    = errors.New("conflicting wallet extension detected")
	ErrConnectSuperseded = errors.New("connect superseded by a newer connect")
	ErrUnknownWallet     = errors.New("unknown wallet type")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidPsbt       = errors.New("invalid PSBT")
	ErrInvalidTx         = errors.New("invalid raw transaction")
	ErrInvalidAddress    = errors.New("invalid bitcoin address")
	ErrBridgeClosed      = errors.New("wallet bridge closed")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrRateLimited       = errors.New("too many wallet prompts")
	ErrDatabase          = errors.New("database error")
)

// WalletError carries the wallet and operation an error kind was raised for,
// plus whatever code and message the wallet itself reported.
type WalletError struct {
	Wallet  string
	Op      string
	Kind    error
	Code    int
	Message string
}

func (e *WalletError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Wallet, e.Op, e.Kind.Error())
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	return msg
}

func (e *WalletError) Unwrap() error { return e.Kind }

// NewWalletError builds a WalletError of the given kind.
func NewWalletError(wallet, op string, kind error, message string) error {
	return &WalletError{Wallet: wallet, Op: op, Kind: kind, Message: message}
}

// Unsupported returns the guard error for an operation the wallet does not declare.
func Unsupported(wallet, op string) error {
	return &WalletError{Wallet: wallet, Op: op, Kind: ErrUnsupportedOperation}
}

// AsWalletError extracts a *WalletError from err, if present.
func AsWalletError(err error) (*WalletError, bool) {
	var we *WalletError
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}

// IsGuardError reports whether err was raised by a pre-flight guard, i.e.
// before any call reached the wallet.
func IsGuardError(err error) bool {
	return errors.Is(err, ErrNotInstalled) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrUnsupportedOperation) ||
		errors.Is(err, ErrNoWalletConnected)
}

// Error codes shared with API clients in error responses.
const (
	ErrorNotInstalled         = "ERROR_NOT_INSTALLED"
	ErrorNotConnected         = "ERROR_NOT_CONNECTED"
	ErrorUnsupportedOperation = "ERROR_UNSUPPORTED_OPERATION"
	ErrorNoWalletConnected    = "ERROR_NO_WALLET_CONNECTED"
	ErrorUserRejected         = "ERROR_USER_REJECTED"
	ErrorProviderError        = "ERROR_PROVIDER"
	ErrorMalformedResponse    = "ERROR_MALFORMED_RESPONSE"
	ErrorWalletConflict       = "ERROR_WALLET_CONFLICT"
	ErrorConnectSuperseded    = "ERROR_CONNECT_SUPERSEDED"
	ErrorUnknownWallet        = "ERROR_UNKNOWN_WALLET"
	ErrorInvalidRequest       = "ERROR_INVALID_REQUEST"
	ErrorInvalidPsbt          = "ERROR_INVALID_PSBT"
	ErrorInvalidTx            = "ERROR_INVALID_TX"
	ErrorInvalidAddress       = "ERROR_INVALID_ADDRESS"
	ErrorRateLimited          = "ERROR_RATE_LIMITED"
	ErrorBridgeClosed         = "ERROR_BRIDGE_CLOSED"
	ErrorDatabase             = "ERROR_DATABASE"
	ErrorInternal             = "ERROR_INTERNAL"
)

// ErrorCode maps an error to its API error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotInstalled):
		return ErrorNotInstalled
	case errors.Is(err, ErrNotConnected):
		return ErrorNotConnected
	case errors.Is(err, ErrUnsupportedOperation):
		return ErrorUnsupportedOperation
	case errors.Is(err, ErrNoWalletConnected):
		return ErrorNoWalletConnected
	case errors.Is(err, ErrUserRejected):
		return ErrorUserRejected
	case errors.Is(err, ErrMalformedResponse):
		return ErrorMalformedResponse
	case errors.Is(err, ErrWalletConflict):
		return ErrorWalletConflict
	case errors.Is(err, ErrConnectSuperseded):
		return ErrorConnectSuperseded
	case errors.Is(err, ErrUnknownWallet):
		return ErrorUnknownWallet
	case errors.Is(err, ErrInvalidPsbt):
		return ErrorInvalidPsbt
	case errors.Is(err, ErrInvalidTx):
		return ErrorInvalidTx
	case errors.Is(err, ErrInvalidAddress):
		return ErrorInvalidAddress
	case errors.Is(err, ErrBridgeClosed):
		return ErrorBridgeClosed
	case errors.Is(err, ErrInvalidRequest):
		return ErrorInvalidRequest
	case errors.Is(err, ErrRateLimited):
		return ErrorRateLimited
	case errors.Is(err, ErrDatabase):
		return ErrorDatabase
	case errors.Is(err, ErrProviderError):
		return ErrorProviderError
	default:
		return ErrorInternal
	}
}

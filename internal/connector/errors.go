package connector

import (
	"context"
	"errors"
	"strings"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

// CodeUserRejected is the EIP-1193 style rejection code most wallets reuse.
const CodeUserRejected = 4001

var rejectionPhrases = []string{"user rejected", "rejected by user", "cancel", "denied", "declined"}

// IsRejection reports whether a wallet code/message pair means the user
// dismissed the prompt.
func IsRejection(code int, message string) bool {
	if code == CodeUserRejected {
		return true
	}
	m := strings.ToLower(message)
	for _, p := range rejectionPhrases {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}

// Translate maps an error returned by an injected object into the error
// taxonomy. Wallet codes and messages are preserved on the WalletError.
// Errors already in the taxonomy, bridge closure and context errors pass
// through untouched.
func Translate(wallet models.WalletType, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := config.AsWalletError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, config.ErrBridgeClosed) || errors.Is(err, config.ErrNotInstalled) {
		return err
	}

	var ce *bridge.CallError
	if errors.As(err, &ce) {
		kind := config.ErrProviderError
		if IsRejection(ce.Code, ce.Message) {
			kind = config.ErrUserRejected
		}
		return &config.WalletError{Wallet: string(wallet), Op: op, Kind: kind, Code: ce.Code, Message: ce.Message}
	}

	kind := config.ErrProviderError
	if IsRejection(0, err.Error()) {
		kind = config.ErrUserRejected
	}
	return &config.WalletError{Wallet: string(wallet), Op: op, Kind: kind, Message: err.Error()}
}

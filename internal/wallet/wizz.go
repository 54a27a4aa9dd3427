package wallet

import (
	"context"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/normalize"
)

// Wizz is a Unisat fork with Atomicals support: ARC-20 balances come from
// getAssets and transfers go through sendARC20.
type Wizz struct {
	*Base
}

var _ Provider = (*Wizz)(nil)

var wizzMethods = []string{"requestAccounts", "getBalance", "signMessage", "signPsbt"}

// NewWizz builds the Wizz adapter.
func NewWizz(obj bridge.Object, opts Options) (*Wizz, error) {
	if err := checkShape(models.WalletWizz, obj, wizzMethods...); err != nil {
		return nil, err
	}
	return &Wizz{Base: NewBase(models.WalletWizz, obj, connector.TransportDirect, opts)}, nil
}

// AtomicalsBalance implements Provider.
func (w *Wizz) AtomicalsBalance(ctx context.Context) ([]models.AtomicalBalance, error) {
	if err := w.GuardConnected(capability.OpAtomicalsBalance); err != nil {
		return nil, err
	}
	raw, err := w.conn.Call(ctx, capability.OpAtomicalsBalance, "getAssets")
	if err != nil {
		return nil, err
	}
	return normalize.AtomicalBalances(raw, w.wallet)
}

// SendAtomicals implements Provider. The atomical is addressed by its ticker.
func (w *Wizz) SendAtomicals(ctx context.Context, to, atomicalID string, amount int64, feeRate int64) (string, error) {
	if err := w.GuardConnected(capability.OpAtomicalsTransfer); err != nil {
		return "", err
	}
	if err := validateTransfer(to, amount); err != nil {
		return "", err
	}
	raw, err := w.conn.Call(ctx, capability.OpAtomicalsTransfer, "sendARC20", to, atomicalID, amount, feeOptions(feeRate))
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, w.wallet)
}

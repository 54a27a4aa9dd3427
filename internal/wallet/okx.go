package wallet

import (
	"context"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/normalize"
)

// OKX lives at okxwallet.bitcoin. Its connect() returns the address and
// public key in one object, and pushTx takes the raw hex directly.
type OKX struct {
	*Base
}

var _ Provider = (*OKX)(nil)

var okxMethods = []string{"connect", "getBalance", "signMessage", "signPsbt"}

// NewOKX builds the OKX adapter.
func NewOKX(obj bridge.Object, opts Options) (*OKX, error) {
	if err := checkShape(models.WalletOKX, obj, okxMethods...); err != nil {
		return nil, err
	}
	return &OKX{Base: NewBase(models.WalletOKX, obj, connector.TransportDirect, opts)}, nil
}

// Connect implements Provider.
func (o *OKX) Connect(ctx context.Context) ([]models.Account, error) {
	if err := o.BeginConnect(); err != nil {
		return nil, err
	}
	raw, err := o.conn.Call(ctx, capability.OpConnect, "connect")
	if err != nil {
		return nil, o.FailConnect(err)
	}
	accounts, err := normalize.Accounts(raw, o.wallet)
	if err != nil {
		return nil, o.FailConnect(err)
	}
	return o.Establish(accounts, "")
}

// PushTx implements Provider.
func (o *OKX) PushTx(ctx context.Context, rawTxHex string) (string, error) {
	if err := o.GuardConnected(capability.OpPushTx); err != nil {
		return "", err
	}
	if err := normalize.ValidateRawTx(rawTxHex); err != nil {
		return "", err
	}
	raw, err := o.conn.Call(ctx, capability.OpPushTx, "pushTx", rawTxHex)
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, o.wallet)
}

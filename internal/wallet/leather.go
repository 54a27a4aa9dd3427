package wallet

import (
	"context"
	"strconv"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/normalize"
)

// Leather speaks JSON-RPC through request(). getAddresses also returns the
// Stacks account, which is kept as a secondary account.
type Leather struct {
	*Base
}

var _ Provider = (*Leather)(nil)

// NewLeather builds the Leather adapter.
func NewLeather(obj bridge.Object, opts Options) (*Leather, error) {
	if err := checkShape(models.WalletLeather, obj, "request"); err != nil {
		return nil, err
	}
	return &Leather{Base: NewBase(models.WalletLeather, obj, connector.TransportRequest, opts)}, nil
}

// Connect implements Provider.
func (l *Leather) Connect(ctx context.Context) ([]models.Account, error) {
	if err := l.BeginConnect(); err != nil {
		return nil, err
	}
	raw, err := l.conn.Request(ctx, capability.OpConnect, "getAddresses", nil)
	if err != nil {
		return nil, l.FailConnect(err)
	}
	accounts, err := normalize.Accounts(raw, l.wallet)
	if err != nil {
		return nil, l.FailConnect(err)
	}
	return l.Establish(accounts, "")
}

// StacksAddress returns the Stacks account captured at connect, if any.
func (l *Leather) StacksAddress() string {
	for _, a := range l.Accounts() {
		if a.Purpose == models.PurposeStacks {
			return a.Address
		}
	}
	return ""
}

// SignMessage implements Provider. ECDSA signs with the native segwit key,
// everything else with the taproot key.
func (l *Leather) SignMessage(ctx context.Context, message string, protocol models.MessageProtocol) (string, error) {
	if err := l.GuardConnected(capability.OpSignMessage); err != nil {
		return "", err
	}
	paymentType := "p2tr"
	if protocol == models.MessageECDSA {
		paymentType = "p2wpkh"
	}
	raw, err := l.conn.Request(ctx, capability.OpSignMessage, "signMessage", map[string]any{
		"message":     message,
		"paymentType": paymentType,
	})
	if err != nil {
		return "", err
	}
	return normalize.Signature(raw, l.wallet)
}

// SignPsbt implements Provider.
func (l *Leather) SignPsbt(ctx context.Context, psbtHex string, opts models.SignPsbtOptions) (models.SignedPsbt, error) {
	if err := l.GuardConnected(capability.OpSignPsbt); err != nil {
		return models.SignedPsbt{}, err
	}
	h, err := normalize.PsbtToHex(psbtHex)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	params := normalize.PsbtOptions(opts, l.wallet, l.Address())
	params["hex"] = h

	raw, err := l.conn.Request(ctx, capability.OpSignPsbt, "signPsbt", params)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	return normalize.PsbtResult(raw, l.wallet)
}

// SendBitcoin implements Provider. Leather takes the amount as a string.
func (l *Leather) SendBitcoin(ctx context.Context, to string, sats int64, feeRate int64) (string, error) {
	if err := l.GuardConnected(capability.OpSendBitcoin); err != nil {
		return "", err
	}
	if err := validateTransfer(to, sats); err != nil {
		return "", err
	}
	raw, err := l.conn.Request(ctx, capability.OpSendBitcoin, "sendTransfer", map[string]any{
		"recipients": []map[string]any{{"address": to, "amount": strconv.FormatInt(sats, 10)}},
	})
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, l.wallet)
}

package wallet

import (
	"context"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/normalize"
)

// OYL takes a single options object per call and returns addresses keyed by
// script type.
type OYL struct {
	*Base
}

var _ Provider = (*OYL)(nil)

var oylMethods = []string{"getAddresses", "signMessage", "signPsbt"}

// NewOYL builds the OYL adapter.
func NewOYL(obj bridge.Object, opts Options) (*OYL, error) {
	if err := checkShape(models.WalletOYL, obj, oylMethods...); err != nil {
		return nil, err
	}
	return &OYL{Base: NewBase(models.WalletOYL, obj, connector.TransportDirect, opts)}, nil
}

// Connect implements Provider.
func (o *OYL) Connect(ctx context.Context) ([]models.Account, error) {
	if err := o.BeginConnect(); err != nil {
		return nil, err
	}
	raw, err := o.conn.Call(ctx, capability.OpConnect, "getAddresses")
	if err != nil {
		return nil, o.FailConnect(err)
	}
	accounts, err := normalize.Accounts(raw, o.wallet)
	if err != nil {
		return nil, o.FailConnect(err)
	}
	return o.Establish(accounts, "")
}

// SignMessage implements Provider.
func (o *OYL) SignMessage(ctx context.Context, message string, protocol models.MessageProtocol) (string, error) {
	if err := o.GuardConnected(capability.OpSignMessage); err != nil {
		return "", err
	}
	address := o.Address()
	if protocol == models.MessageECDSA {
		address = o.PaymentAddress()
	}
	params := map[string]any{"address": address, "message": message}
	if protocol != models.MessageDefault {
		params["protocol"] = string(protocol)
	}
	raw, err := o.conn.Call(ctx, capability.OpSignMessage, "signMessage", params)
	if err != nil {
		return "", err
	}
	return normalize.Signature(raw, o.wallet)
}

// SignPsbt implements Provider. OYL can broadcast as part of signing.
func (o *OYL) SignPsbt(ctx context.Context, psbtHex string, opts models.SignPsbtOptions) (models.SignedPsbt, error) {
	if err := o.GuardConnected(capability.OpSignPsbt); err != nil {
		return models.SignedPsbt{}, err
	}
	h, err := normalize.PsbtToHex(psbtHex)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	params := normalize.PsbtOptions(opts, o.wallet, o.Address())
	params["psbt"] = h

	raw, err := o.conn.Call(ctx, capability.OpSignPsbt, "signPsbt", params)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	return normalize.PsbtResult(raw, o.wallet)
}

// PushPsbt implements Provider.
func (o *OYL) PushPsbt(ctx context.Context, psbtHex string) (string, error) {
	if err := o.GuardConnected(capability.OpPushPsbt); err != nil {
		return "", err
	}
	h, err := normalize.PsbtToHex(psbtHex)
	if err != nil {
		return "", err
	}
	raw, err := o.conn.Call(ctx, capability.OpPushPsbt, "pushPsbt", map[string]string{"psbt": h})
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, o.wallet)
}

package wallet

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/normalize"
)

// Phantom lives at phantom.bitcoin and exchanges messages and PSBTs as
// Uint8Arrays. Other extensions are known to overwrite phantom.bitcoin, so
// the object's identity flag is checked before connecting.
type Phantom struct {
	*Base
}

var _ Provider = (*Phantom)(nil)

var phantomMethods = []string{"requestAccounts", "signMessage", "signPSBT"}

// Identity flags set by extensions that shadow phantom.bitcoin.
var phantomImpostors = []struct {
	flag string
	name string
}{
	{"isMagicEden", "Magic Eden"},
	{"isXverse", "Xverse"},
	{"isOkxWallet", "OKX Wallet"},
	{"isUnisat", "Unisat"},
	{"isLeather", "Leather"},
	{"isBraveWallet", "Brave Wallet"},
}

// NewPhantom builds the Phantom adapter.
func NewPhantom(obj bridge.Object, opts Options) (*Phantom, error) {
	if err := checkShape(models.WalletPhantom, obj, phantomMethods...); err != nil {
		return nil, err
	}
	return &Phantom{Base: NewBase(models.WalletPhantom, obj, connector.TransportDirect, opts)}, nil
}

// CheckConflict returns ErrWalletConflict when the object at phantom.bitcoin
// does not identify itself as Phantom, naming the extension to disable when
// it can be told.
func (p *Phantom) CheckConflict() error {
	obj := p.conn.Object()
	if obj == nil || bridge.PropBool(obj, "isPhantom") {
		return nil
	}
	culprit := "another wallet extension"
	for _, imp := range phantomImpostors {
		if bridge.PropBool(obj, imp.flag) {
			culprit = imp.name
			break
		}
	}
	return config.NewWalletError(string(p.wallet), capability.OpConnect, config.ErrWalletConflict,
		fmt.Sprintf("phantom.bitcoin is provided by %s; disable it to use Phantom", culprit))
}

// Connect implements Provider.
func (p *Phantom) Connect(ctx context.Context) ([]models.Account, error) {
	if err := p.Guard(capability.OpConnect); err != nil {
		return nil, err
	}
	if err := p.CheckConflict(); err != nil {
		return nil, err
	}
	if err := p.BeginConnect(); err != nil {
		return nil, err
	}
	raw, err := p.conn.Call(ctx, capability.OpConnect, "requestAccounts")
	if err != nil {
		return nil, p.FailConnect(err)
	}
	accounts, err := normalize.Accounts(raw, p.wallet)
	if err != nil {
		return nil, p.FailConnect(err)
	}
	return p.Establish(accounts, "")
}

// SignMessage implements Provider. The signature comes back as bytes and is
// returned base64 encoded.
func (p *Phantom) SignMessage(ctx context.Context, message string, protocol models.MessageProtocol) (string, error) {
	if err := p.GuardConnected(capability.OpSignMessage); err != nil {
		return "", err
	}
	address := p.Address()
	if protocol == models.MessageECDSA {
		address = p.PaymentAddress()
	}
	raw, err := p.conn.Call(ctx, capability.OpSignMessage, "signMessage", address, bridge.Bytes(message))
	if err != nil {
		return "", err
	}

	var res struct {
		Signature bridge.Bytes `json:"signature"`
	}
	if err := json.Unmarshal(raw, &res); err != nil || len(res.Signature) == 0 {
		return "", config.NewWalletError(string(p.wallet), capability.OpSignMessage, config.ErrMalformedResponse, "signature is not a byte array")
	}
	return base64.StdEncoding.EncodeToString(res.Signature), nil
}

// SignPsbt implements Provider.
func (p *Phantom) SignPsbt(ctx context.Context, psbtHex string, opts models.SignPsbtOptions) (models.SignedPsbt, error) {
	if err := p.GuardConnected(capability.OpSignPsbt); err != nil {
		return models.SignedPsbt{}, err
	}
	psbt, err := normalize.PsbtBytes(psbtHex)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	raw, err := p.conn.Call(ctx, capability.OpSignPsbt, "signPSBT", bridge.Bytes(psbt), normalize.PsbtOptions(opts, p.wallet, p.Address()))
	if err != nil {
		return models.SignedPsbt{}, err
	}

	var signed bridge.Bytes
	if err := json.Unmarshal(raw, &signed); err != nil {
		return models.SignedPsbt{}, config.NewWalletError(string(p.wallet), capability.OpSignPsbt, config.ErrMalformedResponse, "signed psbt is not a byte array")
	}
	h, err := normalize.PsbtToHex(hex.EncodeToString(signed))
	if err != nil {
		return models.SignedPsbt{}, config.NewWalletError(string(p.wallet), capability.OpSignPsbt, config.ErrMalformedResponse, err.Error())
	}
	return models.SignedPsbt{PsbtHex: h}, nil
}

package wallet

import (
	"context"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
)

// MagicEden passes every argument as an unsecured token.
type MagicEden struct {
	*Base
}

var _ Provider = (*MagicEden)(nil)

var magicEdenMethods = []string{"connect", "signMessage", "signTransaction", "sendBtcTransaction"}

// NewMagicEden builds the Magic Eden adapter.
func NewMagicEden(obj bridge.Object, opts Options) (*MagicEden, error) {
	if err := checkShape(models.WalletMagicEden, obj, magicEdenMethods...); err != nil {
		return nil, err
	}
	return &MagicEden{Base: NewBase(models.WalletMagicEden, obj, connector.TransportToken, opts)}, nil
}

// Connect implements Provider.
func (m *MagicEden) Connect(ctx context.Context) ([]models.Account, error) {
	return tokenConnect(ctx, m.Base)
}

// SignMessage implements Provider.
func (m *MagicEden) SignMessage(ctx context.Context, message string, protocol models.MessageProtocol) (string, error) {
	return tokenSignMessage(ctx, m.Base, message, protocol)
}

// SignPsbt implements Provider.
func (m *MagicEden) SignPsbt(ctx context.Context, psbtHex string, opts models.SignPsbtOptions) (models.SignedPsbt, error) {
	return tokenSignPsbt(ctx, m.Base, psbtHex, opts)
}

// SendBitcoin implements Provider.
func (m *MagicEden) SendBitcoin(ctx context.Context, to string, sats int64, feeRate int64) (string, error) {
	return tokenSendBitcoin(ctx, m.Base, to, sats)
}

package wallet

import (
	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
)

// Unisat follows the default conventions exactly: window.unisat exposes
// same-named methods returning bare values.
type Unisat struct {
	*Base
}

var _ Provider = (*Unisat)(nil)

var unisatMethods = []string{"requestAccounts", "getBalance", "signMessage", "signPsbt"}

// NewUnisat builds the Unisat adapter.
func NewUnisat(obj bridge.Object, opts Options) (*Unisat, error) {
	if err := checkShape(models.WalletUnisat, obj, unisatMethods...); err != nil {
		return nil, err
	}
	return &Unisat{Base: NewBase(models.WalletUnisat, obj, connector.TransportDirect, opts)}, nil
}

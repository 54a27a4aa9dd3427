// Package wallet implements the unified Provider contract over the supported
// browser wallets. Base carries the default behaviour; each adapter embeds it
// and overrides only the operations its wallet does differently.
package wallet

import (
	"fmt"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
)

// Factory builds the adapter for a wallet type.
type Factory func(g bridge.Globals, wallet models.WalletType) (Provider, error)

// NewFactory returns a Factory that resolves injected objects from g using
// the connector's discovery order.
func NewFactory(opts Options) Factory {
	return func(g bridge.Globals, wallet models.WalletType) (Provider, error) {
		return New(g, wallet, opts)
	}
}

// New builds the adapter for wallet. When the wallet is not installed the
// adapter is still returned (its operations fail with ErrNotInstalled). An
// object that is present but lacks the wallet's required methods is treated
// as not installed.
func New(g bridge.Globals, wallet models.WalletType, opts Options) (Provider, error) {
	if !connector.Known(wallet) {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownWallet, wallet)
	}

	var obj bridge.Object
	if c, ok := connector.Find(g, wallet); ok {
		obj = c.Object
	}

	var (
		p   Provider
		err error
	)
	switch wallet {
	case models.WalletUnisat:
		p, err = NewUnisat(obj, opts)
	case models.WalletXverse:
		p, err = NewXverse(obj, opts)
	case models.WalletOKX:
		p, err = NewOKX(obj, opts)
	case models.WalletLeather:
		p, err = NewLeather(obj, opts)
	case models.WalletPhantom:
		p, err = NewPhantom(obj, opts)
	case models.WalletMagicEden:
		p, err = NewMagicEden(obj, opts)
	case models.WalletOYL:
		p, err = NewOYL(obj, opts)
	case models.WalletWizz:
		p, err = NewWizz(obj, opts)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownWallet, wallet)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// checkShape validates obj against the wallet's required methods. A nil obj
// passes: the adapter reports itself as not installed instead.
func checkShape(wallet models.WalletType, obj bridge.Object, methods ...string) error {
	if obj == nil {
		return nil
	}
	if err := bridge.RequireMethods(obj, methods...); err != nil {
		return fmt.Errorf("%s: %w", wallet, err)
	}
	return nil
}

// SharesSession reports whether a and b are the same wallet driving the same
// injected object, so disconnecting one would end the other's session.
func SharesSession(a, b Provider) bool {
	if a == nil || b == nil || a.Name() != b.Name() {
		return false
	}
	ca, ok := a.(interface{ Conn() *connector.Conn })
	if !ok || ca.Conn() == nil {
		return false
	}
	cb, ok := b.(interface{ Conn() *connector.Conn })
	if !ok || cb.Conn() == nil {
		return false
	}
	return bridge.SameObject(ca.Conn().Object(), cb.Conn().Object())
}

// Release drops p's local connection state without calling the wallet.
// Providers that keep no local state are left alone.
func Release(p Provider) {
	if r, ok := p.(interface{ Release() }); ok {
		r.Release()
	}
}

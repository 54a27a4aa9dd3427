package facade

import (
	"context"
	"time"

	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/wallet"
)

// dispatch resolves the active provider, checks the capability descriptor
// and only then invokes fn. Guard failures never reach the wallet.
func dispatch[T any](ctx context.Context, f *Facade, op string, fn func(wallet.Provider) (T, error)) (T, error) {
	var zero T
	p, err := f.active(op)
	if err != nil {
		return zero, err
	}
	if err := p.Capabilities().Guard(op); err != nil {
		return zero, err
	}

	start := time.Now()
	v, err := fn(p)
	f.observe(ctx, p, op, txidOf(v), err, start)
	if err != nil {
		return zero, err
	}
	return v, nil
}

func txidOf(v any) string {
	switch r := v.(type) {
	case broadcast:
		return string(r)
	case models.SignedPsbt:
		return r.TxID
	case models.ProtocolResult:
		return r.TxID
	}
	return ""
}

// broadcast tags a string result as a transaction id.
type broadcast string

func broadcastCall(fn func() (string, error)) (broadcast, error) {
	txid, err := fn()
	return broadcast(txid), err
}

// Address returns the primary address of the active wallet.
func (f *Facade) Address() (string, error) {
	p, err := f.active(capability.OpGetAccounts)
	if err != nil {
		return "", err
	}
	if err := p.Capabilities().Guard(capability.OpGetAccounts); err != nil {
		return "", err
	}
	return p.Address(), nil
}

// Accounts returns every address the active wallet exposed at connect.
func (f *Facade) Accounts() ([]models.Account, error) {
	p, err := f.active(capability.OpGetAccounts)
	if err != nil {
		return nil, err
	}
	if err := p.Capabilities().Guard(capability.OpGetAccounts); err != nil {
		return nil, err
	}
	return p.Accounts(), nil
}

// PublicKey returns the primary public key of the active wallet.
func (f *Facade) PublicKey() (string, error) {
	p, err := f.active(capability.OpGetPublicKey)
	if err != nil {
		return "", err
	}
	if err := p.Capabilities().Guard(capability.OpGetPublicKey); err != nil {
		return "", err
	}
	return p.PublicKey(), nil
}

// Balance fetches the balance and stores it in the snapshot.
func (f *Facade) Balance(ctx context.Context) (models.Balance, error) {
	var from wallet.Provider
	bal, err := dispatch(ctx, f, capability.OpGetBalance, func(p wallet.Provider) (models.Balance, error) {
		from = p
		return p.Balance(ctx)
	})
	if err != nil {
		return models.Balance{}, err
	}

	f.mu.Lock()
	updated := f.snap.Provider == from
	if updated {
		b := bal
		f.snap.Balance = &b
	}
	f.mu.Unlock()
	if updated {
		f.notify()
	}
	return bal, nil
}

// Network returns the network the active wallet is on.
func (f *Facade) Network(ctx context.Context) (models.Network, error) {
	return dispatch(ctx, f, capability.OpGetNetwork, func(p wallet.Provider) (models.Network, error) {
		return p.Network(ctx)
	})
}

// SwitchNetwork asks the active wallet to change network.
func (f *Facade) SwitchNetwork(ctx context.Context, network models.Network) error {
	_, err := dispatch(ctx, f, capability.OpSwitchNetwork, func(p wallet.Provider) (struct{}, error) {
		return struct{}{}, p.SwitchNetwork(ctx, network)
	})
	return err
}

// SignMessage signs message with the active wallet.
func (f *Facade) SignMessage(ctx context.Context, message string, protocol models.MessageProtocol) (string, error) {
	return dispatch(ctx, f, capability.OpSignMessage, func(p wallet.Provider) (string, error) {
		return p.SignMessage(ctx, message, protocol)
	})
}

// SignPsbt signs one PSBT (hex or base64).
func (f *Facade) SignPsbt(ctx context.Context, psbt string, opts models.SignPsbtOptions) (models.SignedPsbt, error) {
	return dispatch(ctx, f, capability.OpSignPsbt, func(p wallet.Provider) (models.SignedPsbt, error) {
		return p.SignPsbt(ctx, psbt, opts)
	})
}

// SignPsbts signs several PSBTs in one prompt.
func (f *Facade) SignPsbts(ctx context.Context, psbts []string, opts []models.SignPsbtOptions) ([]models.SignedPsbt, error) {
	return dispatch(ctx, f, capability.OpSignPsbts, func(p wallet.Provider) ([]models.SignedPsbt, error) {
		return p.SignPsbts(ctx, psbts, opts)
	})
}

// SendBitcoin sends sats to an address and returns the txid.
func (f *Facade) SendBitcoin(ctx context.Context, to string, sats, feeRate int64) (string, error) {
	txid, err := dispatch(ctx, f, capability.OpSendBitcoin, func(p wallet.Provider) (broadcast, error) {
		return broadcastCall(func() (string, error) { return p.SendBitcoin(ctx, to, sats, feeRate) })
	})
	return string(txid), err
}

// PushPsbt broadcasts a signed PSBT.
func (f *Facade) PushPsbt(ctx context.Context, psbt string) (string, error) {
	txid, err := dispatch(ctx, f, capability.OpPushPsbt, func(p wallet.Provider) (broadcast, error) {
		return broadcastCall(func() (string, error) { return p.PushPsbt(ctx, psbt) })
	})
	return string(txid), err
}

// PushTx broadcasts a raw transaction.
func (f *Facade) PushTx(ctx context.Context, rawTxHex string) (string, error) {
	txid, err := dispatch(ctx, f, capability.OpPushTx, func(p wallet.Provider) (broadcast, error) {
		return broadcastCall(func() (string, error) { return p.PushTx(ctx, rawTxHex) })
	})
	return string(txid), err
}

// Inscriptions returns one page of inscriptions.
func (f *Facade) Inscriptions(ctx context.Context, offset, limit int) (models.InscriptionPage, error) {
	return dispatch(ctx, f, capability.OpListInscriptions, func(p wallet.Provider) (models.InscriptionPage, error) {
		return p.Inscriptions(ctx, offset, limit)
	})
}

// AllInscriptions pages through every inscription up to the page cap.
func (f *Facade) AllInscriptions(ctx context.Context) (models.InscriptionCollection, error) {
	return dispatch(ctx, f, capability.OpListInscriptions, func(p wallet.Provider) (models.InscriptionCollection, error) {
		return p.AllInscriptions(ctx)
	})
}

// SendInscription transfers an inscription.
func (f *Facade) SendInscription(ctx context.Context, to, inscriptionID string, feeRate int64) (string, error) {
	txid, err := dispatch(ctx, f, capability.OpSendInscription, func(p wallet.Provider) (broadcast, error) {
		return broadcastCall(func() (string, error) { return p.SendInscription(ctx, to, inscriptionID, feeRate) })
	})
	return string(txid), err
}

// InscribeTransfer inscribes a BRC-20 transfer.
func (f *Facade) InscribeTransfer(ctx context.Context, ticker, amount string) (models.ProtocolResult, error) {
	return dispatch(ctx, f, capability.OpBRC20Transfer, func(p wallet.Provider) (models.ProtocolResult, error) {
		return p.InscribeTransfer(ctx, ticker, amount)
	})
}

// CreateInscription creates a new inscription.
func (f *Facade) CreateInscription(ctx context.Context, req models.InscriptionRequest) (models.ProtocolResult, error) {
	return dispatch(ctx, f, capability.OpCreateInscription, func(p wallet.Provider) (models.ProtocolResult, error) {
		return p.CreateInscription(ctx, req)
	})
}

// RunesBalance lists rune balances.
func (f *Facade) RunesBalance(ctx context.Context) ([]models.RuneBalance, error) {
	return dispatch(ctx, f, capability.OpRunesBalance, func(p wallet.Provider) ([]models.RuneBalance, error) {
		return p.RunesBalance(ctx)
	})
}

// SendRunes transfers runes.
func (f *Facade) SendRunes(ctx context.Context, to, runeID, amount string, feeRate int64) (models.ProtocolResult, error) {
	return dispatch(ctx, f, capability.OpRunesTransfer, func(p wallet.Provider) (models.ProtocolResult, error) {
		return p.SendRunes(ctx, to, runeID, amount, feeRate)
	})
}

// EtchRunes etches a new rune.
func (f *Facade) EtchRunes(ctx context.Context, req models.EtchRequest) (models.ProtocolResult, error) {
	return dispatch(ctx, f, capability.OpRunesEtch, func(p wallet.Provider) (models.ProtocolResult, error) {
		return p.EtchRunes(ctx, req)
	})
}

// MintRunes mints an existing rune.
func (f *Facade) MintRunes(ctx context.Context, req models.MintRequest) (models.ProtocolResult, error) {
	return dispatch(ctx, f, capability.OpRunesMint, func(p wallet.Provider) (models.ProtocolResult, error) {
		return p.MintRunes(ctx, req)
	})
}

// AtomicalsBalance lists ARC-20 holdings.
func (f *Facade) AtomicalsBalance(ctx context.Context) ([]models.AtomicalBalance, error) {
	return dispatch(ctx, f, capability.OpAtomicalsBalance, func(p wallet.Provider) ([]models.AtomicalBalance, error) {
		return p.AtomicalsBalance(ctx)
	})
}

// SendAtomicals transfers an ARC-20 amount.
func (f *Facade) SendAtomicals(ctx context.Context, to, atomicalID string, amount, feeRate int64) (string, error) {
	txid, err := dispatch(ctx, f, capability.OpAtomicalsTransfer, func(p wallet.Provider) (broadcast, error) {
		return broadcastCall(func() (string, error) { return p.SendAtomicals(ctx, to, atomicalID, amount, feeRate) })
	})
	return string(txid), err
}

// Active reports whether a wallet is connected, without any I/O.
func (f *Facade) Active() (models.WalletType, bool) {
	p, err := f.active("")
	if err != nil {
		return "", false
	}
	return p.Name(), true
}

package wallet

import (
	"context"

	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/models"
)

// Provider is the unified wallet surface. Every adapter implements it; the
// ones that lack a feature return config.ErrUnsupportedOperation through the
// capability guard without touching the injected object.
type Provider interface {
	// Name returns the wallet type.
	Name() models.WalletType

	// Capabilities returns the wallet's static capability descriptor.
	Capabilities() capability.Descriptor

	// Installed reports whether an injected object was found.
	Installed() bool

	// State returns the current connection state.
	State() models.ConnectionState

	// Address returns the primary address, empty when not connected.
	Address() string

	// PublicKey returns the primary public key, empty when unknown.
	PublicKey() string

	// Accounts returns the addresses captured at connect time.
	Accounts() []models.Account

	Connect(ctx context.Context) ([]models.Account, error)
	Disconnect(ctx context.Context) error

	Balance(ctx context.Context) (models.Balance, error)
	Network(ctx context.Context) (models.Network, error)
	SwitchNetwork(ctx context.Context, network models.Network) error

	SignMessage(ctx context.Context, message string, protocol models.MessageProtocol) (string, error)
	SignPsbt(ctx context.Context, psbtHex string, opts models.SignPsbtOptions) (models.SignedPsbt, error)
	SignPsbts(ctx context.Context, psbtHexes []string, opts []models.SignPsbtOptions) ([]models.SignedPsbt, error)

	SendBitcoin(ctx context.Context, to string, sats int64, feeRate int64) (string, error)
	PushPsbt(ctx context.Context, psbtHex string) (string, error)
	PushTx(ctx context.Context, rawTxHex string) (string, error)

	Inscriptions(ctx context.Context, offset, limit int) (models.InscriptionPage, error)
	AllInscriptions(ctx context.Context) (models.InscriptionCollection, error)
	SendInscription(ctx context.Context, to, inscriptionID string, feeRate int64) (string, error)
	InscribeTransfer(ctx context.Context, ticker, amount string) (models.ProtocolResult, error)
	CreateInscription(ctx context.Context, req models.InscriptionRequest) (models.ProtocolResult, error)

	RunesBalance(ctx context.Context) ([]models.RuneBalance, error)
	SendRunes(ctx context.Context, to, runeID, amount string, feeRate int64) (models.ProtocolResult, error)
	EtchRunes(ctx context.Context, req models.EtchRequest) (models.ProtocolResult, error)
	MintRunes(ctx context.Context, req models.MintRequest) (models.ProtocolResult, error)

	AtomicalsBalance(ctx context.Context) ([]models.AtomicalBalance, error)
	SendAtomicals(ctx context.Context, to, atomicalID string, amount int64, feeRate int64) (string, error)
}

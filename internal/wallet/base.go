package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/normalize"
)

// Options tunes adapter behaviour that is not wallet specific.
type Options struct {
	PageSize int
	MaxPages int
}

// DefaultOptions returns the package defaults.
func DefaultOptions() Options {
	return Options{PageSize: config.InscriptionPageSize, MaxPages: config.MaxInscriptionPages}
}

// Base is the default Provider behaviour shared by every adapter. It assumes
// the most common convention: same-named methods on the injected object
// returning a primitive or an object holding the value under an obvious key.
// Adapters embed it and override what diverges.
type Base struct {
	wallet models.WalletType
	conn   *connector.Conn
	caps   capability.Descriptor
	opts   Options

	mu       sync.RWMutex
	state    models.ConnectionState
	accounts []models.Account
	address  string
	pubKey   string
}

// NewBase builds the shared state for an adapter. obj may be nil when the
// wallet is not installed.
func NewBase(wallet models.WalletType, obj bridge.Object, transport connector.Transport, opts Options) *Base {
	if opts.PageSize <= 0 {
		opts.PageSize = config.InscriptionPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = config.MaxInscriptionPages
	}
	return &Base{
		wallet: wallet,
		conn:   connector.NewConn(wallet, obj, transport),
		caps:   capability.For(wallet),
		opts:   opts,
		state:  models.StateDisconnected,
	}
}

// Name implements Provider.
func (b *Base) Name() models.WalletType { return b.wallet }

// Capabilities implements Provider.
func (b *Base) Capabilities() capability.Descriptor { return b.caps }

// Installed implements Provider.
func (b *Base) Installed() bool { return b.conn.Installed() }

// Conn returns the adapter's connection to its injected object.
func (b *Base) Conn() *connector.Conn { return b.conn }

// State implements Provider.
func (b *Base) State() models.ConnectionState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Address implements Provider.
func (b *Base) Address() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.address
}

// PublicKey implements Provider.
func (b *Base) PublicKey() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pubKey
}

// Accounts implements Provider.
func (b *Base) Accounts() []models.Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Account, len(b.accounts))
	copy(out, b.accounts)
	return out
}

// PaymentAddress returns the address used to fund transactions.
func (b *Base) PaymentAddress() string {
	if a, ok := normalize.PaymentAccount(b.Accounts()); ok {
		return a.Address
	}
	return b.Address()
}

// RequireInstalled fails with ErrNotInstalled when there is no injected object.
func (b *Base) RequireInstalled(op string) error {
	if !b.conn.Installed() {
		return config.NewWalletError(string(b.wallet), op, config.ErrNotInstalled, "")
	}
	return nil
}

// RequireConnected fails with ErrNotConnected unless the state is connected
// and a primary address is set.
func (b *Base) RequireConnected(op string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state != models.StateConnected || b.address == "" {
		return config.NewWalletError(string(b.wallet), op, config.ErrNotConnected, "")
	}
	return nil
}

// Guard runs the capability check then the installed check.
func (b *Base) Guard(op string) error {
	if err := b.caps.Guard(op); err != nil {
		return err
	}
	return b.RequireInstalled(op)
}

// GuardConnected runs Guard then the connected check.
func (b *Base) GuardConnected(op string) error {
	if err := b.Guard(op); err != nil {
		return err
	}
	return b.RequireConnected(op)
}

// BeginConnect moves the provider to connecting after the connect guards pass.
func (b *Base) BeginConnect() error {
	if err := b.Guard(capability.OpConnect); err != nil {
		return err
	}
	b.mu.Lock()
	b.state = models.StateConnecting
	b.mu.Unlock()
	return nil
}

// FailConnect resets to disconnected and returns err.
func (b *Base) FailConnect(err error) error {
	b.reset()
	return err
}

// Establish records the accounts returned by a handshake and marks the
// provider connected. A handshake that yields no usable address fails with
// ErrMalformedResponse and leaves the provider disconnected.
func (b *Base) Establish(accounts []models.Account, pubKey string) ([]models.Account, error) {
	primary, ok := normalize.PrimaryAccount(accounts)
	if !ok || primary.Address == "" {
		return nil, b.FailConnect(config.NewWalletError(string(b.wallet), capability.OpConnect, config.ErrMalformedResponse, "no bitcoin address returned"))
	}
	if pubKey == "" {
		pubKey = primary.PublicKey
	}

	b.mu.Lock()
	b.accounts = append([]models.Account(nil), accounts...)
	b.address = primary.Address
	b.pubKey = pubKey
	b.state = models.StateConnected
	b.mu.Unlock()

	slog.Info("wallet connected",
		"wallet", b.wallet,
		"address", primary.Address,
		"addressType", primary.AddressType,
		"accounts", len(accounts),
	)
	return b.Accounts(), nil
}

func (b *Base) reset() {
	b.mu.Lock()
	b.state = models.StateDisconnected
	b.accounts = nil
	b.address = ""
	b.pubKey = ""
	b.mu.Unlock()
}

// Release clears local connection state without calling the wallet.
func (b *Base) Release() { b.reset() }

// Connect implements Provider: requestAccounts, then getPublicKey when the
// wallet exposes it. A public key failure is not fatal.
func (b *Base) Connect(ctx context.Context) ([]models.Account, error) {
	if err := b.BeginConnect(); err != nil {
		return nil, err
	}

	raw, err := b.conn.Call(ctx, capability.OpConnect, "requestAccounts")
	if err != nil {
		return nil, b.FailConnect(err)
	}
	accounts, err := normalize.Accounts(raw, b.wallet)
	if err != nil {
		return nil, b.FailConnect(err)
	}

	return b.Establish(accounts, b.fetchPublicKey(ctx))
}

// fetchPublicKey asks the wallet for its public key, degrading to "".
func (b *Base) fetchPublicKey(ctx context.Context) string {
	if !b.caps.Supports(capability.OpGetPublicKey) || !b.conn.Has("getPublicKey") {
		return ""
	}
	raw, err := b.conn.Call(ctx, capability.OpGetPublicKey, "getPublicKey")
	if err != nil {
		slog.Warn("public key fetch failed", "wallet", b.wallet, "error", err)
		return ""
	}
	pk, err := normalize.PublicKey(raw, b.wallet)
	if err != nil {
		slog.Warn("public key malformed", "wallet", b.wallet, "error", err)
		return ""
	}
	return pk
}

// Disconnect implements Provider. Local state is always cleared; the
// wallet's own disconnect is called when it has one.
func (b *Base) Disconnect(ctx context.Context) error {
	defer b.reset()
	if !b.caps.Supports(capability.OpDisconnect) || !b.conn.Has("disconnect") {
		return nil
	}
	_, err := b.conn.Call(ctx, capability.OpDisconnect, "disconnect")
	return err
}

// Balance implements Provider.
func (b *Base) Balance(ctx context.Context) (models.Balance, error) {
	if err := b.GuardConnected(capability.OpGetBalance); err != nil {
		return models.Balance{}, err
	}
	raw, err := b.conn.Call(ctx, capability.OpGetBalance, "getBalance")
	if err != nil {
		return models.Balance{}, err
	}
	return normalize.Balance(raw, b.wallet)
}

// Network implements Provider.
func (b *Base) Network(ctx context.Context) (models.Network, error) {
	if err := b.GuardConnected(capability.OpGetNetwork); err != nil {
		return "", err
	}
	raw, err := b.conn.Call(ctx, capability.OpGetNetwork, "getNetwork")
	if err != nil {
		return "", err
	}
	return normalize.NetworkValue(raw, b.wallet)
}

// SwitchNetwork implements Provider.
func (b *Base) SwitchNetwork(ctx context.Context, network models.Network) error {
	if err := b.GuardConnected(capability.OpSwitchNetwork); err != nil {
		return err
	}
	_, err := b.conn.Call(ctx, capability.OpSwitchNetwork, "switchNetwork", string(network))
	return err
}

// SignMessage implements Provider.
func (b *Base) SignMessage(ctx context.Context, message string, protocol models.MessageProtocol) (string, error) {
	if err := b.GuardConnected(capability.OpSignMessage); err != nil {
		return "", err
	}
	args := []any{message}
	if protocol != models.MessageDefault {
		args = append(args, string(protocol))
	}
	raw, err := b.conn.Call(ctx, capability.OpSignMessage, "signMessage", args...)
	if err != nil {
		return "", err
	}
	return normalize.Signature(raw, b.wallet)
}

// SignPsbt implements Provider. When Broadcast is requested and the wallet
// did not broadcast itself, the signed PSBT is pushed through PushPsbt.
func (b *Base) SignPsbt(ctx context.Context, psbtHex string, opts models.SignPsbtOptions) (models.SignedPsbt, error) {
	if err := b.GuardConnected(capability.OpSignPsbt); err != nil {
		return models.SignedPsbt{}, err
	}
	h, err := normalize.PsbtToHex(psbtHex)
	if err != nil {
		return models.SignedPsbt{}, err
	}

	raw, err := b.conn.Call(ctx, capability.OpSignPsbt, "signPsbt", h, normalize.PsbtOptions(opts, b.wallet, b.Address()))
	if err != nil {
		return models.SignedPsbt{}, err
	}
	signed, err := normalize.PsbtResult(raw, b.wallet)
	if err != nil {
		return models.SignedPsbt{}, err
	}

	if opts.Broadcast && signed.TxID == "" {
		txid, err := b.PushPsbt(ctx, signed.PsbtHex)
		if err != nil {
			return signed, err
		}
		signed.TxID = txid
	}
	return signed, nil
}

// SignPsbts implements Provider. opts may be empty or carry one entry per PSBT.
func (b *Base) SignPsbts(ctx context.Context, psbtHexes []string, opts []models.SignPsbtOptions) ([]models.SignedPsbt, error) {
	if err := b.GuardConnected(capability.OpSignPsbts); err != nil {
		return nil, err
	}
	if len(opts) != 0 && len(opts) != len(psbtHexes) {
		return nil, fmt.Errorf("%w: %d options for %d psbts", config.ErrInvalidPsbt, len(opts), len(psbtHexes))
	}

	hexes := make([]string, len(psbtHexes))
	walletOpts := make([]map[string]any, len(psbtHexes))
	for i, p := range psbtHexes {
		h, err := normalize.PsbtToHex(p)
		if err != nil {
			return nil, fmt.Errorf("psbt %d: %w", i, err)
		}
		hexes[i] = h
		var o models.SignPsbtOptions
		if len(opts) > 0 {
			o = opts[i]
		}
		walletOpts[i] = normalize.PsbtOptions(o, b.wallet, b.Address())
	}

	raw, err := b.conn.Call(ctx, capability.OpSignPsbts, "signPsbts", hexes, walletOpts)
	if err != nil {
		return nil, err
	}
	return normalize.PsbtResults(raw, b.wallet)
}

// SendBitcoin implements Provider.
func (b *Base) SendBitcoin(ctx context.Context, to string, sats int64, feeRate int64) (string, error) {
	if err := b.GuardConnected(capability.OpSendBitcoin); err != nil {
		return "", err
	}
	if err := validateTransfer(to, sats); err != nil {
		return "", err
	}
	raw, err := b.conn.Call(ctx, capability.OpSendBitcoin, "sendBitcoin", to, sats, feeOptions(feeRate))
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, b.wallet)
}

// PushPsbt implements Provider. Broadcasts are never retried.
func (b *Base) PushPsbt(ctx context.Context, psbtHex string) (string, error) {
	if err := b.GuardConnected(capability.OpPushPsbt); err != nil {
		return "", err
	}
	h, err := normalize.PsbtToHex(psbtHex)
	if err != nil {
		return "", err
	}
	raw, err := b.conn.Call(ctx, capability.OpPushPsbt, "pushPsbt", h)
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, b.wallet)
}

// PushTx implements Provider. Broadcasts are never retried.
func (b *Base) PushTx(ctx context.Context, rawTxHex string) (string, error) {
	if err := b.GuardConnected(capability.OpPushTx); err != nil {
		return "", err
	}
	if err := normalize.ValidateRawTx(rawTxHex); err != nil {
		return "", err
	}
	raw, err := b.conn.Call(ctx, capability.OpPushTx, "pushTx", map[string]string{"rawtx": rawTxHex})
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, b.wallet)
}

// Inscriptions implements Provider.
func (b *Base) Inscriptions(ctx context.Context, offset, limit int) (models.InscriptionPage, error) {
	if err := b.GuardConnected(capability.OpListInscriptions); err != nil {
		return models.InscriptionPage{}, err
	}
	raw, err := b.conn.Call(ctx, capability.OpListInscriptions, "getInscriptions", offset, limit)
	if err != nil {
		return models.InscriptionPage{}, err
	}
	return normalize.InscriptionPage(raw, b.wallet)
}

// AllInscriptions implements Provider by paging through Inscriptions.
func (b *Base) AllInscriptions(ctx context.Context) (models.InscriptionCollection, error) {
	return b.collect(ctx, b.Inscriptions)
}

// collect pages through fetch with the adapter's page size and cap.
func (b *Base) collect(ctx context.Context, fetch PageFunc) (models.InscriptionCollection, error) {
	if err := b.GuardConnected(capability.OpListInscriptions); err != nil {
		return models.InscriptionCollection{}, err
	}
	return Paginate(ctx, b.wallet, fetch, b.opts.PageSize, b.opts.MaxPages)
}

// SendInscription implements Provider.
func (b *Base) SendInscription(ctx context.Context, to, inscriptionID string, feeRate int64) (string, error) {
	if err := b.GuardConnected(capability.OpSendInscription); err != nil {
		return "", err
	}
	if err := validateTransfer(to, 1); err != nil {
		return "", err
	}
	raw, err := b.conn.Call(ctx, capability.OpSendInscription, "sendInscription", to, inscriptionID, feeOptions(feeRate))
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, b.wallet)
}

// InscribeTransfer implements Provider (BRC-20 transfer inscription).
func (b *Base) InscribeTransfer(ctx context.Context, ticker, amount string) (models.ProtocolResult, error) {
	if err := b.GuardConnected(capability.OpBRC20Transfer); err != nil {
		return models.ProtocolResult{}, err
	}
	raw, err := b.conn.Call(ctx, capability.OpBRC20Transfer, "inscribeTransfer", ticker, amount)
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, b.wallet)
}

// CreateInscription implements Provider.
func (b *Base) CreateInscription(ctx context.Context, req models.InscriptionRequest) (models.ProtocolResult, error) {
	if err := b.GuardConnected(capability.OpCreateInscription); err != nil {
		return models.ProtocolResult{}, err
	}
	raw, err := b.conn.Call(ctx, capability.OpCreateInscription, "createInscription", req)
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, b.wallet)
}

// RunesBalance implements Provider.
func (b *Base) RunesBalance(ctx context.Context) ([]models.RuneBalance, error) {
	if err := b.GuardConnected(capability.OpRunesBalance); err != nil {
		return nil, err
	}
	raw, err := b.conn.Call(ctx, capability.OpRunesBalance, "getRunesBalance")
	if err != nil {
		return nil, err
	}
	return normalize.RuneBalances(raw, b.wallet)
}

// SendRunes implements Provider.
func (b *Base) SendRunes(ctx context.Context, to, runeID, amount string, feeRate int64) (models.ProtocolResult, error) {
	if err := b.GuardConnected(capability.OpRunesTransfer); err != nil {
		return models.ProtocolResult{}, err
	}
	if err := validateTransfer(to, 1); err != nil {
		return models.ProtocolResult{}, err
	}
	raw, err := b.conn.Call(ctx, capability.OpRunesTransfer, "sendRunes", to, runeID, amount, feeOptions(feeRate))
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, b.wallet)
}

// EtchRunes implements Provider.
func (b *Base) EtchRunes(ctx context.Context, req models.EtchRequest) (models.ProtocolResult, error) {
	if err := b.GuardConnected(capability.OpRunesEtch); err != nil {
		return models.ProtocolResult{}, err
	}
	raw, err := b.conn.Call(ctx, capability.OpRunesEtch, "etchRunes", req)
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, b.wallet)
}

// MintRunes implements Provider.
func (b *Base) MintRunes(ctx context.Context, req models.MintRequest) (models.ProtocolResult, error) {
	if err := b.GuardConnected(capability.OpRunesMint); err != nil {
		return models.ProtocolResult{}, err
	}
	raw, err := b.conn.Call(ctx, capability.OpRunesMint, "mintRunes", req)
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, b.wallet)
}

// AtomicalsBalance implements Provider.
func (b *Base) AtomicalsBalance(ctx context.Context) ([]models.AtomicalBalance, error) {
	if err := b.GuardConnected(capability.OpAtomicalsBalance); err != nil {
		return nil, err
	}
	raw, err := b.conn.Call(ctx, capability.OpAtomicalsBalance, "getAtomicalsBalance")
	if err != nil {
		return nil, err
	}
	return normalize.AtomicalBalances(raw, b.wallet)
}

// SendAtomicals implements Provider.
func (b *Base) SendAtomicals(ctx context.Context, to, atomicalID string, amount int64, feeRate int64) (string, error) {
	if err := b.GuardConnected(capability.OpAtomicalsTransfer); err != nil {
		return "", err
	}
	if err := validateTransfer(to, amount); err != nil {
		return "", err
	}
	raw, err := b.conn.Call(ctx, capability.OpAtomicalsTransfer, "sendAtomicals", to, atomicalID, amount, feeOptions(feeRate))
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, b.wallet)
}

func feeOptions(feeRate int64) map[string]any {
	if feeRate <= 0 {
		return map[string]any{}
	}
	return map[string]any{"feeRate": feeRate}
}

// validateTransfer checks a recipient decodes as a Bitcoin address and the
// amount is positive, before any prompt is opened.
func validateTransfer(to string, amount int64) error {
	if normalize.ClassifyAddress(to) == models.AddressUnknown {
		return fmt.Errorf("%w: %q", config.ErrInvalidAddress, to)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", config.ErrInvalidRequest, amount)
	}
	return nil
}

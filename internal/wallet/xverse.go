package wallet

import (
	"context"
	"log/slog"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/normalize"
)

// Xverse routes everything through request(method, params) and answers with
// JSON-RPC envelopes. Builds that only inject the legacy BitcoinProvider fall
// back to the token protocol for the operations it covers. Inscription
// creation always uses a token.
type Xverse struct {
	*Base
}

var _ Provider = (*Xverse)(nil)

// NewXverse builds the Xverse adapter.
func NewXverse(obj bridge.Object, opts Options) (*Xverse, error) {
	transport := connector.TransportRequest
	if obj != nil && !obj.Has("request") {
		if err := checkShape(models.WalletXverse, obj, tokenMethods...); err != nil {
			return nil, err
		}
		transport = connector.TransportToken
	}
	if opts.PageSize <= 0 || opts.PageSize > config.XverseMaxPageSize {
		opts.PageSize = min(config.InscriptionPageSize, config.XverseMaxPageSize)
	}
	return &Xverse{Base: NewBase(models.WalletXverse, obj, transport, opts)}, nil
}

// Connect implements Provider.
func (x *Xverse) Connect(ctx context.Context) ([]models.Account, error) {
	if tokenConn(x.conn) {
		return tokenConnect(ctx, x.Base)
	}
	if err := x.BeginConnect(); err != nil {
		return nil, err
	}
	raw, err := x.conn.Request(ctx, capability.OpConnect, "getAccounts", map[string]any{
		"purposes": connectPurposes,
		"message":  "Address for receiving Ordinals and payments",
	})
	if err != nil {
		return nil, x.FailConnect(err)
	}
	accounts, err := normalize.Accounts(raw, x.wallet)
	if err != nil {
		return nil, x.FailConnect(err)
	}
	return x.Establish(accounts, "")
}

// Disconnect implements Provider.
func (x *Xverse) Disconnect(ctx context.Context) error {
	defer x.reset()
	if tokenConn(x.conn) || !x.conn.Has("request") {
		return nil
	}
	_, err := x.conn.Request(ctx, capability.OpDisconnect, "wallet_renouncePermissions", nil)
	if err != nil {
		slog.Debug("xverse renounce permissions failed", "error", err)
	}
	return err
}

// Balance implements Provider.
func (x *Xverse) Balance(ctx context.Context) (models.Balance, error) {
	if err := x.requestGuard(capability.OpGetBalance); err != nil {
		return models.Balance{}, err
	}
	raw, err := x.conn.Request(ctx, capability.OpGetBalance, "getBalance", nil)
	if err != nil {
		return models.Balance{}, err
	}
	return normalize.Balance(raw, x.wallet)
}

// Network implements Provider.
func (x *Xverse) Network(ctx context.Context) (models.Network, error) {
	if err := x.requestGuard(capability.OpGetNetwork); err != nil {
		return "", err
	}
	raw, err := x.conn.Request(ctx, capability.OpGetNetwork, "wallet_getNetwork", nil)
	if err != nil {
		return "", err
	}
	return normalize.NetworkValue(raw, x.wallet)
}

// SignMessage implements Provider.
func (x *Xverse) SignMessage(ctx context.Context, message string, protocol models.MessageProtocol) (string, error) {
	if tokenConn(x.conn) {
		return tokenSignMessage(ctx, x.Base, message, protocol)
	}
	if err := x.GuardConnected(capability.OpSignMessage); err != nil {
		return "", err
	}
	address := x.Address()
	if protocol == models.MessageECDSA {
		address = x.PaymentAddress()
	}
	params := map[string]any{"address": address, "message": message}
	if protocol != models.MessageDefault {
		params["protocol"] = messageProtocolName(protocol)
	}
	raw, err := x.conn.Request(ctx, capability.OpSignMessage, "signMessage", params)
	if err != nil {
		return "", err
	}
	return normalize.Signature(raw, x.wallet)
}

// SignPsbt implements Provider. Xverse takes and returns base64.
func (x *Xverse) SignPsbt(ctx context.Context, psbtHex string, opts models.SignPsbtOptions) (models.SignedPsbt, error) {
	if tokenConn(x.conn) {
		return tokenSignPsbt(ctx, x.Base, psbtHex, opts)
	}
	if err := x.GuardConnected(capability.OpSignPsbt); err != nil {
		return models.SignedPsbt{}, err
	}
	b64, err := normalize.PsbtToBase64(psbtHex)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	params := normalize.PsbtOptions(opts, x.wallet, x.Address())
	params["psbt"] = b64

	raw, err := x.conn.Request(ctx, capability.OpSignPsbt, "signPsbt", params)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	return normalize.PsbtResult(raw, x.wallet)
}

// SendBitcoin implements Provider.
func (x *Xverse) SendBitcoin(ctx context.Context, to string, sats int64, feeRate int64) (string, error) {
	if tokenConn(x.conn) {
		return tokenSendBitcoin(ctx, x.Base, to, sats)
	}
	if err := x.GuardConnected(capability.OpSendBitcoin); err != nil {
		return "", err
	}
	if err := validateTransfer(to, sats); err != nil {
		return "", err
	}
	raw, err := x.conn.Request(ctx, capability.OpSendBitcoin, "sendTransfer", map[string]any{
		"recipients": []map[string]any{{"address": to, "amount": sats}},
	})
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, x.wallet)
}

// Inscriptions implements Provider. Xverse caps the page size.
func (x *Xverse) Inscriptions(ctx context.Context, offset, limit int) (models.InscriptionPage, error) {
	if err := x.requestGuard(capability.OpListInscriptions); err != nil {
		return models.InscriptionPage{}, err
	}
	if limit <= 0 || limit > config.XverseMaxPageSize {
		limit = config.XverseMaxPageSize
	}
	raw, err := x.conn.Request(ctx, capability.OpListInscriptions, "ord_getInscriptions", map[string]any{
		"offset": offset,
		"limit":  limit,
	})
	if err != nil {
		return models.InscriptionPage{}, err
	}
	return normalize.InscriptionPage(raw, x.wallet)
}

// AllInscriptions implements Provider.
func (x *Xverse) AllInscriptions(ctx context.Context) (models.InscriptionCollection, error) {
	return x.collect(ctx, x.Inscriptions)
}

// CreateInscription implements Provider.
func (x *Xverse) CreateInscription(ctx context.Context, req models.InscriptionRequest) (models.ProtocolResult, error) {
	if err := x.GuardConnected(capability.OpCreateInscription); err != nil {
		return models.ProtocolResult{}, err
	}
	payloadType := req.PayloadType
	if payloadType == "" {
		payloadType = "PLAIN_TEXT"
	}
	payload := map[string]any{
		"contentType": req.ContentType,
		"content":     req.Content,
		"payloadType": payloadType,
	}
	if req.FeeRate > 0 {
		payload["suggestedMinerFeeRate"] = req.FeeRate
	}
	if req.Recipient != "" {
		payload["recipientAddress"] = req.Recipient
	}
	raw, err := x.conn.Token(ctx, capability.OpCreateInscription, "createInscription", payload)
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, x.wallet)
}

// RunesBalance implements Provider.
func (x *Xverse) RunesBalance(ctx context.Context) ([]models.RuneBalance, error) {
	if err := x.requestGuard(capability.OpRunesBalance); err != nil {
		return nil, err
	}
	raw, err := x.conn.Request(ctx, capability.OpRunesBalance, "runes_getBalance", nil)
	if err != nil {
		return nil, err
	}
	return normalize.RuneBalances(raw, x.wallet)
}

// SendRunes implements Provider. runeID may be the spaced rune name.
func (x *Xverse) SendRunes(ctx context.Context, to, runeID, amount string, feeRate int64) (models.ProtocolResult, error) {
	if err := x.requestGuard(capability.OpRunesTransfer); err != nil {
		return models.ProtocolResult{}, err
	}
	if err := validateTransfer(to, 1); err != nil {
		return models.ProtocolResult{}, err
	}
	raw, err := x.conn.Request(ctx, capability.OpRunesTransfer, "runes_transfer", map[string]any{
		"recipients": []map[string]any{{"runeName": runeID, "amount": amount, "address": to}},
	})
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, x.wallet)
}

// EtchRunes implements Provider.
func (x *Xverse) EtchRunes(ctx context.Context, req models.EtchRequest) (models.ProtocolResult, error) {
	if err := x.requestGuard(capability.OpRunesEtch); err != nil {
		return models.ProtocolResult{}, err
	}
	params := map[string]any{
		"runeName":           req.RuneName,
		"divisibility":       req.Divisibility,
		"symbol":             req.Symbol,
		"premine":            req.Premine,
		"isMintable":         req.Amount != "" && req.Cap != "",
		"destinationAddress": x.Address(),
		"refundAddress":      x.PaymentAddress(),
		"feeRate":            req.FeeRate,
	}
	if req.Amount != "" && req.Cap != "" {
		params["terms"] = map[string]any{"amount": req.Amount, "cap": req.Cap}
	}
	raw, err := x.conn.Request(ctx, capability.OpRunesEtch, "runes_etch", params)
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, x.wallet)
}

// MintRunes implements Provider.
func (x *Xverse) MintRunes(ctx context.Context, req models.MintRequest) (models.ProtocolResult, error) {
	if err := x.requestGuard(capability.OpRunesMint); err != nil {
		return models.ProtocolResult{}, err
	}
	dest := req.Destination
	if dest == "" {
		dest = x.Address()
	}
	raw, err := x.conn.Request(ctx, capability.OpRunesMint, "runes_mint", map[string]any{
		"runeName":           req.RuneName,
		"repeats":            req.Repeats,
		"destinationAddress": dest,
		"refundAddress":      x.PaymentAddress(),
		"feeRate":            req.FeeRate,
	})
	if err != nil {
		return models.ProtocolResult{}, err
	}
	return normalize.ProtocolResult(raw, x.wallet)
}

// requestGuard is GuardConnected plus a check that the request gateway is
// available; legacy token builds do not expose these operations.
func (x *Xverse) requestGuard(op string) error {
	if err := x.GuardConnected(op); err != nil {
		return err
	}
	if tokenConn(x.conn) {
		return config.Unsupported(string(x.wallet), op)
	}
	return nil
}

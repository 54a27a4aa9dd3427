package wallet

import (
	"context"

	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/normalize"
)

// The legacy token protocol: every method takes a single unsecured-token
// string. Magic Eden speaks only this; older Xverse builds injected at
// window.BitcoinProvider speak it too.

var tokenMethods = []string{"connect", "signMessage", "signTransaction"}

var connectPurposes = []string{"ordinals", "payment"}

func tokenConnect(ctx context.Context, b *Base) ([]models.Account, error) {
	if err := b.BeginConnect(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"purposes": connectPurposes,
		"message":  "Address for receiving Ordinals and payments",
	}
	raw, err := b.conn.Token(ctx, capability.OpConnect, "connect", payload)
	if err != nil {
		return nil, b.FailConnect(err)
	}
	accounts, err := normalize.Accounts(raw, b.wallet)
	if err != nil {
		return nil, b.FailConnect(err)
	}
	return b.Establish(accounts, "")
}

func tokenSignMessage(ctx context.Context, b *Base, message string, protocol models.MessageProtocol) (string, error) {
	if err := b.GuardConnected(capability.OpSignMessage); err != nil {
		return "", err
	}
	address := b.Address()
	if protocol == models.MessageECDSA {
		address = b.PaymentAddress()
	}
	payload := map[string]any{"address": address, "message": message}
	if protocol != models.MessageDefault {
		payload["protocol"] = messageProtocolName(protocol)
	}
	raw, err := b.conn.Token(ctx, capability.OpSignMessage, "signMessage", payload)
	if err != nil {
		return "", err
	}
	return normalize.Signature(raw, b.wallet)
}

func tokenSignPsbt(ctx context.Context, b *Base, psbtHex string, opts models.SignPsbtOptions) (models.SignedPsbt, error) {
	if err := b.GuardConnected(capability.OpSignPsbt); err != nil {
		return models.SignedPsbt{}, err
	}
	b64, err := normalize.PsbtToBase64(psbtHex)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	payload := normalize.PsbtOptions(opts, models.WalletMagicEden, b.Address())
	payload["psbtBase64"] = b64
	payload["message"] = "Sign transaction"

	raw, err := b.conn.Token(ctx, capability.OpSignPsbt, "signTransaction", payload)
	if err != nil {
		return models.SignedPsbt{}, err
	}
	return normalize.PsbtResult(raw, b.wallet)
}

func tokenSendBitcoin(ctx context.Context, b *Base, to string, sats int64) (string, error) {
	if err := b.GuardConnected(capability.OpSendBitcoin); err != nil {
		return "", err
	}
	if err := validateTransfer(to, sats); err != nil {
		return "", err
	}
	payload := map[string]any{
		"recipients":    []map[string]any{{"address": to, "amountSats": sats}},
		"senderAddress": b.PaymentAddress(),
	}
	raw, err := b.conn.Token(ctx, capability.OpSendBitcoin, "sendBtcTransaction", payload)
	if err != nil {
		return "", err
	}
	return normalize.TxID(raw, b.wallet)
}

func messageProtocolName(p models.MessageProtocol) string {
	if p == models.MessageECDSA {
		return "ECDSA"
	}
	return "BIP322"
}

// tokenConn reports whether c must use the legacy token protocol.
func tokenConn(c *connector.Conn) bool {
	return c.Transport() == connector.TransportToken
}

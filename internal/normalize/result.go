package normalize

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

// TxID extracts a transaction id from a bare string or an object carrying
// txid, txId, txHash or id, and checks it is a valid 32-byte hash.
func TxID(raw json.RawMessage, wallet models.WalletType) (string, error) {
	s, ok := parseString(raw)
	if !ok {
		m, isObj := object(raw)
		if !isObj {
			return "", malformed(string(wallet), "txid", raw)
		}
		s = stringField(m, "txid", "txId", "txHash", "id")
	}
	s = strings.TrimSpace(s)
	if _, err := chainhash.NewHashFromStr(s); err != nil || len(s) != chainhash.MaxHashStringSize {
		return "", malformed(string(wallet), "txid", raw)
	}
	return strings.ToLower(s), nil
}

// Signature extracts a message signature from a string or {signature}.
func Signature(raw json.RawMessage, wallet models.WalletType) (string, error) {
	if s, ok := parseString(raw); ok && s != "" {
		return s, nil
	}
	if m, ok := object(raw); ok {
		if s := stringField(m, "signature", "sig"); s != "" {
			return s, nil
		}
	}
	return "", malformed(string(wallet), "signMessage", raw)
}

// PsbtResult normalizes a signing result to hex. Wallets return a bare hex or
// base64 string, or an object with the PSBT under one of several keys and an
// optional txid when they also broadcast.
func PsbtResult(raw json.RawMessage, wallet models.WalletType) (models.SignedPsbt, error) {
	var out models.SignedPsbt

	psbt, ok := parseString(raw)
	if !ok {
		m, isObj := object(raw)
		if !isObj {
			return out, malformed(string(wallet), "signPsbt", raw)
		}
		psbt = stringField(m, "psbtHex", "signedPsbtHex", "hex", "psbt", "psbtBase64", "signedPsbtBase64", "signedPsbt")
		if v, has := first(m, "txid", "txId"); has {
			if id, err := TxID(v, wallet); err == nil {
				out.TxID = id
			}
		}
	}

	h, err := PsbtToHex(psbt)
	if err != nil {
		return models.SignedPsbt{}, malformed(string(wallet), "signPsbt", raw)
	}
	out.PsbtHex = h
	return out, nil
}

// PsbtResults normalizes a batch signing result: an array of results or
// {psbts: [...]}.
func PsbtResults(raw json.RawMessage, wallet models.WalletType) ([]models.SignedPsbt, error) {
	items, ok := array(raw)
	if !ok {
		m, isObj := object(raw)
		if !isObj {
			return nil, malformed(string(wallet), "signPsbts", raw)
		}
		v, has := first(m, "psbts", "results")
		if !has {
			return nil, malformed(string(wallet), "signPsbts", raw)
		}
		if items, ok = array(v); !ok {
			return nil, malformed(string(wallet), "signPsbts", raw)
		}
	}
	out := make([]models.SignedPsbt, 0, len(items))
	for _, it := range items {
		p, err := PsbtResult(it, wallet)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// PublicKey extracts a public key from a string or {publicKey} and validates it.
func PublicKey(raw json.RawMessage, wallet models.WalletType) (string, error) {
	s, ok := parseString(raw)
	if !ok {
		m, isObj := object(raw)
		if !isObj {
			return "", malformed(string(wallet), "getPublicKey", raw)
		}
		s = stringField(m, "publicKey", "pubkey")
	}
	if err := ValidatePublicKey(s); err != nil {
		return "", malformed(string(wallet), "getPublicKey", raw)
	}
	return strings.ToLower(s), nil
}

// ValidatePublicKey accepts compressed or uncompressed secp256k1 keys and
// 32-byte x-only taproot keys, hex encoded.
func ValidatePublicKey(pub string) error {
	b, err := hex.DecodeString(strings.TrimSpace(pub))
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	if len(b) == schnorr.PubKeyBytesLen {
		_, err = schnorr.ParsePubKey(b)
	} else {
		_, err = btcec.ParsePubKey(b)
	}
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	return nil
}

// ValidateRawTx checks that rawHex decodes to a transaction with at least one
// input and one output.
func ValidateRawTx(rawHex string) error {
	b, err := hex.DecodeString(strings.TrimSpace(rawHex))
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidTx, err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(b)); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidTx, err)
	}
	if len(tx.TxIn) == 0 || len(tx.TxOut) == 0 {
		return fmt.Errorf("%w: transaction has no inputs or outputs", config.ErrInvalidTx)
	}
	return nil
}

// RuneBalances normalizes a runes balance list: a bare array or
// {balances|list|runes: [...]}.
func RuneBalances(raw json.RawMessage, wallet models.WalletType) ([]models.RuneBalance, error) {
	items, err := listOf(raw, wallet, "runes.balance", "balances", "list", "runes", "detail")
	if err != nil {
		return nil, err
	}
	out := make([]models.RuneBalance, 0, len(items))
	for _, it := range items {
		m, ok := object(it)
		if !ok {
			return nil, malformed(string(wallet), "runes.balance", raw)
		}
		rb := models.RuneBalance{
			RuneID:   stringField(m, "runeid", "runeId", "id"),
			RuneName: stringField(m, "spacedRune", "runeName", "rune", "name"),
			Amount:   stringField(m, "amount", "balance"),
			Symbol:   stringField(m, "symbol"),
		}
		if d := intField(m, "divisibility"); d != nil {
			rb.Divisibility = int(*d)
		}
		if rb.RuneName == "" {
			return nil, malformed(string(wallet), "runes.balance", raw)
		}
		out = append(out, rb)
	}
	return out, nil
}

// AtomicalBalances normalizes Wizz-style atomicals balances.
func AtomicalBalances(raw json.RawMessage, wallet models.WalletType) ([]models.AtomicalBalance, error) {
	items, err := listOf(raw, wallet, "atomicals.balance", "atomicals", "list", "balances")
	if err != nil {
		return nil, err
	}
	out := make([]models.AtomicalBalance, 0, len(items))
	for _, it := range items {
		m, ok := object(it)
		if !ok {
			return nil, malformed(string(wallet), "atomicals.balance", raw)
		}
		ab := models.AtomicalBalance{
			AtomicalID: stringField(m, "atomicalId", "atomical_id", "id"),
			Ticker:     stringField(m, "ticker", "tick"),
			Type:       stringField(m, "type"),
		}
		if v, ok := amountField(m, "amount", "confirmed", "value"); ok {
			ab.Amount = v
		}
		out = append(out, ab)
	}
	return out, nil
}

// ProtocolResult wraps an opaque protocol response. Strings are taken as a
// txid when they look like one; objects keep their fields and contribute a
// txid when one is present.
func ProtocolResult(raw json.RawMessage, wallet models.WalletType) (models.ProtocolResult, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.ProtocolResult{}, nil
	}
	if _, isObj := object(raw); isObj {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return models.ProtocolResult{}, malformed(string(wallet), "protocol", raw)
		}
		res := models.ProtocolResult{Fields: fields}
		if id, err := TxID(raw, wallet); err == nil {
			res.TxID = id
		}
		return res, nil
	}
	if id, err := TxID(raw, wallet); err == nil {
		return models.ProtocolResult{TxID: id}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return models.ProtocolResult{}, malformed(string(wallet), "protocol", raw)
	}
	return models.ProtocolResult{Fields: map[string]any{"value": v}}, nil
}

func listOf(raw json.RawMessage, wallet models.WalletType, op string, keys ...string) ([]json.RawMessage, error) {
	if a, ok := array(raw); ok {
		return a, nil
	}
	m, ok := object(raw)
	if !ok {
		return nil, malformed(string(wallet), op, raw)
	}
	v, ok := first(m, keys...)
	if !ok {
		return nil, malformed(string(wallet), op, raw)
	}
	a, ok := array(v)
	if !ok {
		return nil, malformed(string(wallet), op, raw)
	}
	return a, nil
}

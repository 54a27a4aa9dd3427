// Package normalize turns the wallet-specific shapes returned by injected
// wallet objects into the canonical models. Every function is pure: no I/O,
// no wallet state, and wallet-specific behaviour is keyed only on the wallet
// name argument.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/btcconnect/internal/config"
)

var satsPerBTC = decimal.NewFromInt(config.SatoshisPerBTC)

// Satoshis converts an amount to satoshis. Whole numbers are taken as
// satoshis already; anything with a fractional part is read as BTC.
func Satoshis(d decimal.Decimal) int64 {
	if d.Equal(d.Truncate(0)) {
		return d.IntPart()
	}
	return d.Mul(satsPerBTC).Round(0).IntPart()
}

// BTCToSatoshis parses a decimal BTC string such as "0.0001".
func BTCToSatoshis(btc string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(btc))
	if err != nil {
		return 0, fmt.Errorf("parse BTC amount %q: %w", btc, err)
	}
	return d.Mul(satsPerBTC).Round(0).IntPart(), nil
}

// SatoshisToBTC formats satoshis as a BTC decimal string with 8 places.
func SatoshisToBTC(sats int64) string {
	return decimal.NewFromInt(sats).Div(satsPerBTC).StringFixed(8)
}

// parseDecimal reads a JSON number or numeric string.
func parseDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, false
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.Zero, false
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseInt reads a JSON integer or numeric string; fractional values are truncated.
func parseInt(raw json.RawMessage) (*int64, bool) {
	d, ok := parseDecimal(raw)
	if !ok {
		return nil, false
	}
	v := d.IntPart()
	return &v, true
}

// parseString reads a JSON string; numbers are rendered as text.
func parseString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	if d, ok := parseDecimal(raw); ok {
		return d.String(), true
	}
	return "", false
}

// object decodes raw into a field map, or returns false when raw is not a JSON object.
func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// array decodes raw into its elements, or returns false when raw is not a JSON array.
func array(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var a []json.RawMessage
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, false
	}
	return a, true
}

// first returns the first present, non-null field among keys.
func first(m map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if t := bytes.TrimSpace(v); len(t) == 0 || bytes.Equal(t, []byte("null")) {
			continue
		}
		return v, true
	}
	return nil, false
}

func malformed(wallet, what string, raw json.RawMessage) error {
	snippet := string(raw)
	if len(snippet) > 120 {
		snippet = snippet[:120] + "..."
	}
	return config.NewWalletError(wallet, what, config.ErrMalformedResponse, snippet)
}

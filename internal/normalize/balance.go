package normalize

import (
	"encoding/json"

	"github.com/Fantasim/btcconnect/internal/models"
)

var (
	confirmedKeys   = []string{"confirmed", "confirm", "amount"}
	unconfirmedKeys = []string{"unconfirmed", "pending"}
)

// Balance normalizes a wallet balance.
//
// A bare number (or numeric string) is taken as the total with nothing
// unconfirmed. Objects may use any of the confirmed/confirm/amount and
// unconfirmed/pending spellings; missing fields are 0 and the total is
// recomputed rather than trusted. When confirmed is missing but a total is
// present, confirmed is whatever the total leaves after unconfirmed.
func Balance(raw json.RawMessage, wallet models.WalletType) (models.Balance, error) {
	if d, ok := parseDecimal(raw); ok {
		n := Satoshis(d)
		return models.Balance{Confirmed: n, Unconfirmed: 0, Total: n}, nil
	}

	m, ok := object(raw)
	if !ok {
		return models.Balance{}, malformed(string(wallet), "getBalance", raw)
	}

	confirmed, hasConfirmed := amountField(m, confirmedKeys...)
	unconfirmed, hasUnconfirmed := amountField(m, unconfirmedKeys...)
	total, hasTotal := amountField(m, "total")

	if !hasConfirmed && !hasUnconfirmed && !hasTotal {
		if nested, ok := first(m, "balance", "result"); ok {
			return Balance(nested, wallet)
		}
	}
	if !hasConfirmed && hasTotal {
		confirmed = max(total-unconfirmed, 0)
	}

	return models.Balance{
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
		Total:       confirmed + unconfirmed,
	}, nil
}

func amountField(m map[string]json.RawMessage, keys ...string) (int64, bool) {
	v, ok := first(m, keys...)
	if !ok {
		return 0, false
	}
	d, ok := parseDecimal(v)
	if !ok {
		return 0, false
	}
	return Satoshis(d), true
}

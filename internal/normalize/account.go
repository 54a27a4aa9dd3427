package normalize

import (
	"encoding/json"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Fantasim/btcconnect/internal/models"
)

// Networks tried when classifying an address without knowing its network.
var classifyParams = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.SigNetParams,
	&chaincfg.RegressionNetParams,
}

// ClassifyAddress returns the script type of a Bitcoin address, or
// AddressUnknown when it does not decode on any known network.
func ClassifyAddress(addr string) models.AddressType {
	for _, params := range classifyParams {
		decoded, err := btcutil.DecodeAddress(addr, params)
		if err != nil || !decoded.IsForNet(params) {
			continue
		}
		switch decoded.(type) {
		case *btcutil.AddressTaproot:
			return models.AddressP2TR
		case *btcutil.AddressWitnessPubKeyHash:
			return models.AddressP2WPKH
		case *btcutil.AddressWitnessScriptHash:
			return models.AddressP2WSH
		case *btcutil.AddressScriptHash:
			return models.AddressP2SH
		case *btcutil.AddressPubKeyHash:
			return models.AddressP2PKH
		}
	}
	return models.AddressUnknown
}

// AddressNetwork reports which network an address belongs to. Signet and
// testnet share an encoding, so signet addresses report testnet.
func AddressNetwork(addr string) (models.Network, bool) {
	if d, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams); err == nil && d.IsForNet(&chaincfg.MainNetParams) {
		return models.NetworkLivenet, true
	}
	if d, err := btcutil.DecodeAddress(addr, &chaincfg.TestNet3Params); err == nil && d.IsForNet(&chaincfg.TestNet3Params) {
		return models.NetworkTestnet, true
	}
	return "", false
}

// Address extracts a single address from a bare string, an {address} object,
// or the first element of an array of either.
func Address(raw json.RawMessage, wallet models.WalletType) (string, error) {
	if a, ok := array(raw); ok {
		if len(a) == 0 {
			return "", malformed(string(wallet), "getAddress", raw)
		}
		return Address(a[0], wallet)
	}
	if m, ok := object(raw); ok {
		if v, ok := first(m, "address"); ok {
			if s, ok := parseString(v); ok && s != "" {
				return s, nil
			}
		}
		return "", malformed(string(wallet), "getAddress", raw)
	}
	if s, ok := parseString(raw); ok && s != "" {
		return s, nil
	}
	return "", malformed(string(wallet), "getAddress", raw)
}

// oylAddressKeys maps OYL's keyed address object to script types.
var oylAddressKeys = []struct {
	key   string
	typ   models.AddressType
	purps models.AddressPurpose
}{
	{"taproot", models.AddressP2TR, models.PurposeOrdinals},
	{"nativeSegwit", models.AddressP2WPKH, models.PurposePayment},
	{"nestedSegwit", models.AddressP2SH, models.PurposePayment},
	{"legacy", models.AddressP2PKH, models.PurposePayment},
}

// Accounts normalizes an address list. Accepted shapes: an array of strings,
// an array of account objects, {addresses: [...]}, a single {address} object,
// and OYL's {taproot: {...}, nativeSegwit: {...}} keyed object.
func Accounts(raw json.RawMessage, wallet models.WalletType) ([]models.Account, error) {
	if a, ok := array(raw); ok {
		out := make([]models.Account, 0, len(a))
		for _, item := range a {
			acc, ok := account(item)
			if !ok {
				return nil, malformed(string(wallet), "getAccounts", raw)
			}
			out = append(out, acc)
		}
		return out, nil
	}

	m, ok := object(raw)
	if !ok {
		if s, ok := parseString(raw); ok && s != "" {
			return []models.Account{withDefaults(models.Account{Address: s})}, nil
		}
		return nil, malformed(string(wallet), "getAccounts", raw)
	}

	if list, ok := first(m, "addresses", "accounts"); ok {
		return Accounts(list, wallet)
	}

	if _, ok := first(m, "address"); ok {
		acc, ok := account(raw)
		if !ok {
			return nil, malformed(string(wallet), "getAccounts", raw)
		}
		return []models.Account{acc}, nil
	}

	var out []models.Account
	for _, k := range oylAddressKeys {
		v, ok := first(m, k.key)
		if !ok {
			continue
		}
		acc, ok := account(v)
		if !ok {
			continue
		}
		acc.AddressType = k.typ
		acc.Purpose = k.purps
		out = append(out, acc)
	}
	if len(out) == 0 {
		return nil, malformed(string(wallet), "getAccounts", raw)
	}
	return out, nil
}

func account(raw json.RawMessage) (models.Account, bool) {
	if s, ok := parseString(raw); ok {
		if s == "" {
			return models.Account{}, false
		}
		return withDefaults(models.Account{Address: s}), true
	}

	m, ok := object(raw)
	if !ok {
		return models.Account{}, false
	}
	addr := stringField(m, "address")
	if addr == "" {
		return models.Account{}, false
	}

	acc := models.Account{
		Address:     addr,
		PublicKey:   stringField(m, "publicKey", "pubkey"),
		Purpose:     models.AddressPurpose(strings.ToLower(stringField(m, "purpose"))),
		AddressType: models.AddressType(strings.ToLower(stringField(m, "addressType", "type"))),
	}
	if strings.EqualFold(stringField(m, "symbol"), "STX") {
		acc.Purpose = models.PurposeStacks
		acc.AddressType = models.AddressStacks
	}
	return withDefaults(acc), true
}

// withDefaults fills the script type from the address and infers a purpose
// when the wallet did not tag one.
func withDefaults(acc models.Account) models.Account {
	if acc.AddressType == models.AddressUnknown {
		acc.AddressType = ClassifyAddress(acc.Address)
	}
	if acc.Purpose == "" {
		switch acc.AddressType {
		case models.AddressStacks:
			acc.Purpose = models.PurposeStacks
		case models.AddressP2TR:
			acc.Purpose = models.PurposeOrdinals
		default:
			acc.Purpose = models.PurposePayment
		}
	}
	return acc
}

// PrimaryAccount picks the primary address: ordinals/taproot when present,
// else payment/native segwit, else the first non-Stacks account.
func PrimaryAccount(accounts []models.Account) (models.Account, bool) {
	pick := func(match func(models.Account) bool) (models.Account, bool) {
		for _, a := range accounts {
			if match(a) {
				return a, true
			}
		}
		return models.Account{}, false
	}

	if a, ok := pick(func(a models.Account) bool { return a.Purpose == models.PurposeOrdinals }); ok {
		return a, true
	}
	if a, ok := pick(func(a models.Account) bool { return a.AddressType == models.AddressP2TR }); ok {
		return a, true
	}
	if a, ok := pick(func(a models.Account) bool { return a.Purpose == models.PurposePayment }); ok {
		return a, true
	}
	if a, ok := pick(func(a models.Account) bool { return a.AddressType == models.AddressP2WPKH }); ok {
		return a, true
	}
	return pick(func(a models.Account) bool { return a.Purpose != models.PurposeStacks })
}

// PaymentAccount picks the account used to fund transactions.
func PaymentAccount(accounts []models.Account) (models.Account, bool) {
	for _, a := range accounts {
		if a.Purpose == models.PurposePayment {
			return a, true
		}
	}
	return PrimaryAccount(accounts)
}

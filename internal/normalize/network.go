package normalize

import (
	"encoding/json"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Fantasim/btcconnect/internal/models"
)

// Network classifies a wallet-reported network name. Anything containing
// "main" or "live" is livenet, anything containing "test" is testnet, and
// everything else (including empty) falls back to livenet.
func Network(name string) models.Network {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "main"), strings.Contains(n, "live"):
		return models.NetworkLivenet
	case strings.Contains(n, "test"):
		return models.NetworkTestnet
	default:
		return models.NetworkLivenet
	}
}

// NetworkValue extracts a network name from a wallet response: a bare string,
// {network}, or the Xverse {bitcoin: {name}} shape.
func NetworkValue(raw json.RawMessage, wallet models.WalletType) (models.Network, error) {
	if s, ok := parseString(raw); ok {
		return Network(s), nil
	}

	m, ok := object(raw)
	if !ok {
		return "", malformed(string(wallet), "getNetwork", raw)
	}
	if v, ok := first(m, "network", "name"); ok {
		s, _ := parseString(v)
		return Network(s), nil
	}
	if btc, ok := first(m, "bitcoin"); ok {
		if bm, ok := object(btc); ok {
			if v, ok := first(bm, "name", "network"); ok {
				s, _ := parseString(v)
				return Network(s), nil
			}
		}
	}
	return "", malformed(string(wallet), "getNetwork", raw)
}

// ChainParams maps a canonical network to btcd chain parameters.
func ChainParams(n models.Network) *chaincfg.Params {
	switch n {
	case models.NetworkTestnet:
		return &chaincfg.TestNet3Params
	case models.NetworkSignet:
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

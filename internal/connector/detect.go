// Package connector is the gateway between wallet adapters and injected wallet
// objects: it finds the objects, invokes them over the transport each wallet
// expects, strips response envelopes and translates wallet errors.
package connector

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

// Sources an object can be discovered from.
const (
	SourceRegistry = "registry"
	SourceGlobal   = "global"
	SourceGeneric  = "generic"
)

// walletSpec describes where a wallet injects itself.
type walletSpec struct {
	name string
	// globals are dotted paths tried in order.
	globals []string
	// registryKeys match registry entry ids or names, case-insensitively.
	registryKeys []string
	// generic allows the legacy window.BitcoinProvider fallback.
	generic bool
}

var walletSpecs = map[models.WalletType]walletSpec{
	models.WalletUnisat: {
		name:         "Unisat",
		globals:      []string{"unisat"},
		registryKeys: []string{"unisat"},
	},
	models.WalletXverse: {
		name:         "Xverse",
		globals:      []string{"XverseProviders.BitcoinProvider"},
		registryKeys: []string{"xverse"},
		generic:      true,
	},
	models.WalletOKX: {
		name:         "OKX Wallet",
		globals:      []string{"okxwallet.bitcoin"},
		registryKeys: []string{"okx"},
	},
	models.WalletLeather: {
		name:         "Leather",
		globals:      []string{"LeatherProvider", "HiroWalletProvider"},
		registryKeys: []string{"leather"},
	},
	models.WalletPhantom: {
		name:         "Phantom",
		globals:      []string{"phantom.bitcoin"},
		registryKeys: []string{"phantom"},
	},
	models.WalletMagicEden: {
		name:         "Magic Eden",
		globals:      []string{"magicEden.bitcoin"},
		registryKeys: []string{"magiceden", "magic eden"},
	},
	models.WalletOYL: {
		name:         "OYL",
		globals:      []string{"oyl"},
		registryKeys: []string{"oyl"},
	},
	models.WalletWizz: {
		name:         "Wizz",
		globals:      []string{"wizz"},
		registryKeys: []string{"wizz"},
	},
}

// Candidate is an injected object found for a wallet.
type Candidate struct {
	Wallet models.WalletType
	Object bridge.Object
	Source string
	Path   string
}

// DisplayName returns the human-readable wallet name.
func DisplayName(w models.WalletType) string {
	if s, ok := walletSpecs[w]; ok {
		return s.name
	}
	return string(w)
}

// Known reports whether w is a supported wallet.
func Known(w models.WalletType) bool {
	_, ok := walletSpecs[w]
	return ok
}

// GlobalPaths lists every global path a supported wallet may inject at,
// registry excluded, sorted and without duplicates.
func GlobalPaths() []string {
	seen := map[string]bool{config.GenericProviderGlobal: true}
	out := []string{config.GenericProviderGlobal}
	for _, w := range models.AllWallets {
		for _, p := range walletSpecs[w].globals {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Find locates the injected object for wallet. The multi-wallet registry is
// consulted first, then the wallet's own globals, then the generic
// BitcoinProvider for wallets that used to inject there.
func Find(g bridge.Globals, wallet models.WalletType) (Candidate, bool) {
	spec, ok := walletSpecs[wallet]
	if !ok || g == nil {
		return Candidate{}, false
	}

	for _, entry := range g.Registry() {
		if entry.Object == nil || !matchesRegistry(entry, spec.registryKeys) {
			continue
		}
		return Candidate{Wallet: wallet, Object: entry.Object, Source: SourceRegistry, Path: config.RegistryGlobal + ":" + entry.ID}, true
	}

	for _, path := range spec.globals {
		if obj, ok := g.Lookup(path); ok && obj != nil {
			return Candidate{Wallet: wallet, Object: obj, Source: SourceGlobal, Path: path}, true
		}
	}

	if spec.generic {
		if obj, ok := g.Lookup(config.GenericProviderGlobal); ok && obj != nil {
			return Candidate{Wallet: wallet, Object: obj, Source: SourceGeneric, Path: config.GenericProviderGlobal}, true
		}
	}

	return Candidate{}, false
}

func matchesRegistry(entry bridge.RegistryEntry, keys []string) bool {
	id := strings.ToLower(entry.ID)
	name := strings.ToLower(entry.Name)
	for _, k := range keys {
		if strings.Contains(id, k) || strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// Detect reports every supported wallet in display order, installed or not.
func Detect(g bridge.Globals) []models.WalletInfo {
	out := make([]models.WalletInfo, 0, len(models.AllWallets))
	for _, w := range models.AllWallets {
		info := models.WalletInfo{Type: w, Name: DisplayName(w)}
		if c, ok := Find(g, w); ok {
			info.Installed = true
			info.Source = c.Path
		}
		out = append(out, info)
	}

	installed := 0
	for _, i := range out {
		if i.Installed {
			installed++
		}
	}
	slog.Debug("wallet detection complete", "installed", installed, "known", len(out))

	return out
}

// Installed lists only the installed wallets.
func Installed(g bridge.Globals) []models.WalletInfo {
	out := []models.WalletInfo{}
	for _, i := range Detect(g) {
		if i.Installed {
			out = append(out, i)
		}
	}
	return out
}

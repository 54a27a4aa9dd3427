// Package capability holds the static per-wallet capability descriptors and
// the pre-flight guard built on them.
package capability

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

// Operation paths. Nested flags use dotted paths.
const (
	OpConnect           = "connect"
	OpDisconnect        = "disconnect"
	OpGetAccounts       = "getAccounts"
	OpGetPublicKey      = "getPublicKey"
	OpGetBalance        = "getBalance"
	OpGetNetwork        = "getNetwork"
	OpSwitchNetwork     = "switchNetwork"
	OpSignMessage       = "signMessage"
	OpSignPsbt          = "signPsbt"
	OpSignPsbts         = "signPsbts"
	OpSendBitcoin       = "sendBitcoin"
	OpPushPsbt          = "pushPsbt"
	OpPushTx            = "pushTx"
	OpListInscriptions  = "inscriptions.list"
	OpSendInscription   = "inscriptions.send"
	OpCreateInscription = "inscriptions.create"
	OpBRC20Transfer     = "brc20.inscribeTransfer"
	OpRunesBalance      = "runes.balance"
	OpRunesTransfer     = "runes.transfer"
	OpRunesEtch         = "runes.etch"
	OpRunesMint         = "runes.mint"
	OpAtomicalsBalance  = "atomicals.balance"
	OpAtomicalsTransfer = "atomicals.transfer"
)

// AllOperations lists every operation path in display order.
var AllOperations = []string{
	OpConnect, OpDisconnect, OpGetAccounts, OpGetPublicKey, OpGetBalance,
	OpGetNetwork, OpSwitchNetwork, OpSignMessage, OpSignPsbt, OpSignPsbts,
	OpSendBitcoin, OpPushPsbt, OpPushTx, OpListInscriptions, OpSendInscription,
	OpCreateInscription, OpBRC20Transfer, OpRunesBalance, OpRunesTransfer,
	OpRunesEtch, OpRunesMint, OpAtomicalsBalance, OpAtomicalsTransfer,
}

//go:embed capabilities.yaml
var descriptorsYAML []byte

var descriptors map[models.WalletType]Descriptor

func init() {
	parsed, err := Parse(descriptorsYAML)
	if err != nil {
		panic(fmt.Sprintf("capability: embedded descriptors: %v", err))
	}
	descriptors = parsed
}

// Descriptor is an immutable capability map for one wallet.
type Descriptor struct {
	wallet string
	flags  map[string]any
}

// Parse decodes a YAML document mapping wallet names to capability trees.
func Parse(data []byte) (map[models.WalletType]Descriptor, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse capability yaml: %w", err)
	}

	out := make(map[models.WalletType]Descriptor, len(raw))
	for name, flags := range raw {
		if flags == nil {
			flags = map[string]any{}
		}
		out[models.WalletType(name)] = Descriptor{wallet: name, flags: flags}
	}
	return out, nil
}

// NewDescriptor builds a descriptor from an in-memory tree.
func NewDescriptor(wallet string, flags map[string]any) Descriptor {
	return Descriptor{wallet: wallet, flags: flags}
}

// For returns the descriptor declared for wallet. Unknown wallets get an
// empty descriptor that supports nothing.
func For(wallet models.WalletType) Descriptor {
	if d, ok := descriptors[wallet]; ok {
		return d
	}
	return Descriptor{wallet: string(wallet)}
}

// Wallet returns the wallet name the descriptor belongs to.
func (d Descriptor) Wallet() string { return d.wallet }

// Supports resolves a dotted operation path. The walk stops at the first
// node that is not a map and reports whether that node is literally true.
func (d Descriptor) Supports(path string) bool {
	if path == "" || d.flags == nil {
		return false
	}

	var node any = d.flags
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			break
		}
		next, ok := m[part]
		if !ok {
			return false
		}
		node = next
	}

	v, ok := node.(bool)
	return ok && v
}

// Guard returns an UnsupportedOperation error naming the wallet and path
// unless the path resolves to true.
func (d Descriptor) Guard(path string) error {
	if d.Supports(path) {
		return nil
	}
	return config.Unsupported(d.wallet, path)
}

// Matrix reports Supports for every known operation.
func (d Descriptor) Matrix() map[string]bool {
	out := make(map[string]bool, len(AllOperations))
	for _, op := range AllOperations {
		out[op] = d.Supports(op)
	}
	return out
}

// Enabled lists the operations that resolve to true, sorted.
func (d Descriptor) Enabled() []string {
	var out []string
	for _, op := range AllOperations {
		if d.Supports(op) {
			out = append(out, op)
		}
	}
	sort.Strings(out)
	return out
}

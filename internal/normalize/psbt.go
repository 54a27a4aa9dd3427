package normalize

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

// AutoFinalized reports the effective finalize flag: true unless explicitly false.
func AutoFinalized(opts models.SignPsbtOptions) bool {
	return opts.AutoFinalized == nil || *opts.AutoFinalized
}

// signInputs resolves the caller's input selection into address descriptors.
// Explicit Inputs win; bare InputIndexes are attributed to defaultAddress.
func signInputs(opts models.SignPsbtOptions, defaultAddress string) []models.SignInput {
	if len(opts.Inputs) > 0 {
		return opts.Inputs
	}
	if len(opts.InputIndexes) == 0 {
		return nil
	}
	idx := make([]int, len(opts.InputIndexes))
	copy(idx, opts.InputIndexes)
	return []models.SignInput{{Address: defaultAddress, SigningIndexes: idx}}
}

// PsbtOptions converts caller options into the options object the wallet's
// signing call expects. The PSBT itself is not included.
func PsbtOptions(opts models.SignPsbtOptions, wallet models.WalletType, defaultAddress string) map[string]any {
	inputs := signInputs(opts, defaultAddress)
	finalize := AutoFinalized(opts)

	switch wallet {
	case models.WalletUnisat, models.WalletOKX, models.WalletWizz:
		out := map[string]any{"autoFinalized": finalize}
		if len(inputs) > 0 {
			out["toSignInputs"] = toSignInputs(inputs)
		}
		return out

	case models.WalletOYL:
		out := map[string]any{"finalize": finalize, "broadcast": opts.Broadcast}
		if len(inputs) > 0 {
			out["toSignInputs"] = toSignInputs(inputs)
		}
		return out

	case models.WalletPhantom:
		return map[string]any{"inputsToSign": inputsToSign(inputs), "finalize": finalize}

	case models.WalletMagicEden:
		return map[string]any{"inputsToSign": inputsToSign(inputs), "broadcast": opts.Broadcast}

	case models.WalletXverse:
		byAddr := make(map[string][]int, len(inputs))
		for _, in := range inputs {
			byAddr[in.Address] = append(byAddr[in.Address], in.SigningIndexes...)
		}
		return map[string]any{"signInputs": byAddr, "broadcast": opts.Broadcast}

	case models.WalletLeather:
		var at []int
		for _, in := range inputs {
			at = append(at, in.SigningIndexes...)
		}
		out := map[string]any{"broadcast": opts.Broadcast}
		if len(at) > 0 {
			out["signAtIndex"] = at
		}
		return out
	}

	return map[string]any{"autoFinalized": finalize}
}

func inputsToSign(inputs []models.SignInput) []map[string]any {
	list := make([]map[string]any, 0, len(inputs))
	for _, in := range inputs {
		entry := map[string]any{"address": in.Address, "signingIndexes": in.SigningIndexes}
		if len(in.SighashTypes) > 0 {
			entry["sigHash"] = in.SighashTypes[0]
		}
		list = append(list, entry)
	}
	return list
}

func toSignInputs(inputs []models.SignInput) []map[string]any {
	var out []map[string]any
	for _, in := range inputs {
		for i, idx := range in.SigningIndexes {
			entry := map[string]any{"index": idx}
			if in.Address != "" {
				entry["address"] = in.Address
			}
			if in.PublicKey != "" {
				entry["publicKey"] = in.PublicKey
			}
			if i < len(in.SighashTypes) {
				entry["sighashTypes"] = []int{in.SighashTypes[i]}
			}
			out = append(out, entry)
		}
	}
	return out
}

// ParsePsbt decodes a PSBT given as hex or base64 and checks it is a
// well-formed BIP-174 packet with an unsigned transaction.
func ParsePsbt(encoded string) (*psbt.Packet, error) {
	s := strings.TrimSpace(encoded)

	var (
		r   io.Reader
		b64 bool
	)
	switch {
	case strings.HasPrefix(strings.ToLower(s), config.PsbtMagicHex):
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidPsbt, err)
		}
		r = bytes.NewReader(b)
	case strings.HasPrefix(s, config.PsbtMagicBase64):
		r, b64 = strings.NewReader(s), true
	default:
		return nil, fmt.Errorf("%w: missing psbt magic", config.ErrInvalidPsbt)
	}

	packet, err := psbt.NewFromRawBytes(r, b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidPsbt, err)
	}
	return packet, nil
}

// PsbtBytes returns the binary serialization of a hex or base64 PSBT.
func PsbtBytes(encoded string) ([]byte, error) {
	packet, err := ParsePsbt(encoded)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidPsbt, err)
	}
	return buf.Bytes(), nil
}

// PsbtToHex returns the PSBT as lowercase hex whichever encoding it came in.
func PsbtToHex(encoded string) (string, error) {
	b, err := PsbtBytes(encoded)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// PsbtToBase64 returns the PSBT as standard base64.
func PsbtToBase64(encoded string) (string, error) {
	packet, err := ParsePsbt(encoded)
	if err != nil {
		return "", err
	}
	out, err := packet.B64Encode()
	if err != nil {
		return "", fmt.Errorf("%w: %v", config.ErrInvalidPsbt, err)
	}
	return out, nil
}

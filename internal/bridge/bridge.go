// Package bridge defines the boundary between the provider layer and wallet
// objects injected into a browser page's global scope.
//
// Everything that crosses the boundary is JSON. Values coming back are treated
// as untrusted input: callers validate shape before use.
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Fantasim/btcconnect/internal/config"
)

// Object is a wallet object found in the page's global scope.
type Object interface {
	// Has reports whether the object exposes a callable member named method.
	Has(method string) bool

	// Call invokes method with JSON-encodable args and returns the JSON result.
	// Promise results are awaited. A rejected call returns a *CallError.
	Call(ctx context.Context, method string, args ...any) (json.RawMessage, error)

	// Prop returns a non-function property value, such as an isPhantom flag.
	Prop(name string) (json.RawMessage, bool)

	// Child returns a nested object, such as okxwallet.bitcoin.
	Child(name string) (Object, bool)
}

// Globals resolves objects from the page's global scope.
type Globals interface {
	// Lookup resolves a dotted path such as "okxwallet.bitcoin".
	Lookup(path string) (Object, bool)

	// Registry returns the entries of the multi-wallet registry array.
	Registry() []RegistryEntry
}

// Identifiable is implemented by Objects whose wrappers are rebuilt on every
// lookup, so pointer equality says nothing about the underlying object.
type Identifiable interface {
	SameAs(other Object) bool
}

// SameObject reports whether a and b refer to the same injected object.
func SameObject(a, b Object) bool {
	if a == nil || b == nil {
		return false
	}
	if id, ok := a.(Identifiable); ok {
		return id.SameAs(b)
	}
	return a == b
}

// RegistryEntry is one wallet announced through the registry array.
type RegistryEntry struct {
	ID     string
	Name   string
	Object Object
}

// CallError is an error thrown or rejected by the wallet object.
type CallError struct {
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *CallError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
	}
	return "wallet error: " + e.Message
}

// Bytes is a byte slice passed to or returned from the page as a Uint8Array.
// On the wire it is {"$bytes": "<base64>"}.
type Bytes []byte

type bytesWire struct {
	Bytes string `json:"$bytes"`
}

// MarshalJSON implements json.Marshaler.
func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(bytesWire{Bytes: base64.StdEncoding.EncodeToString(b)})
}

// UnmarshalJSON accepts the tagged form, a base64 string, or a numeric array
// (what JSON.stringify produces for a plain Array of bytes).
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var w bytesWire
	if err := json.Unmarshal(data, &w); err == nil && w.Bytes != "" {
		out, err := base64.StdEncoding.DecodeString(w.Bytes)
		if err != nil {
			return fmt.Errorf("decode $bytes: %w", err)
		}
		*b = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		out, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("decode base64 bytes: %w", err)
		}
		*b = out
		return nil
	}

	var nums []int
	if err := json.Unmarshal(data, &nums); err == nil {
		out := make([]byte, len(nums))
		for i, n := range nums {
			if n < 0 || n > 255 {
				return fmt.Errorf("byte %d out of range: %d", i, n)
			}
			out[i] = byte(n)
		}
		*b = out
		return nil
	}

	// Uint8Array through JSON.stringify becomes {"0":1,"1":2,...}.
	var indexed map[string]int
	if err := json.Unmarshal(data, &indexed); err == nil {
		out := make([]byte, len(indexed))
		for i := range out {
			n, ok := indexed[fmt.Sprint(i)]
			if !ok || n < 0 || n > 255 {
				return fmt.Errorf("invalid indexed byte object at %d", i)
			}
			out[i] = byte(n)
		}
		*b = out
		return nil
	}

	return fmt.Errorf("unrecognised bytes encoding")
}

// RequireMethods checks that obj exposes every method. It returns an error
// wrapping config.ErrNotInstalled listing the missing ones.
func RequireMethods(obj Object, methods ...string) error {
	if obj == nil {
		return config.ErrNotInstalled
	}
	var missing []string
	for _, m := range methods {
		if !obj.Has(m) {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing methods %s", config.ErrNotInstalled, strings.Join(missing, ", "))
	}
	return nil
}

// PropBool reads a boolean property, false when absent or not a boolean.
func PropBool(obj Object, name string) bool {
	if obj == nil {
		return false
	}
	raw, ok := obj.Prop(name)
	if !ok {
		return false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v
}

// SplitPath splits a dotted global path.
func SplitPath(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

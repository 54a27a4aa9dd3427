package relay

import (
	"encoding/json"

	"github.com/Fantasim/btcconnect/internal/bridge"
)

// Frame types exchanged with the relay page.
const (
	FrameHello  = "hello"  // page → server: the wallet objects present on window
	FrameReady  = "ready"  // server → page: hello accepted
	FrameCall   = "call"   // server → page: invoke a method
	FrameResult = "result" // page → server: call outcome
)

// ObjectInfo describes one object the page found, addressed by its dotted
// global path. Registry entries are announced as objects too, under the path
// the page assigns them (e.g. "btc_providers.0").
type ObjectInfo struct {
	Path    string                     `json:"path"`
	Methods []string                   `json:"methods"`
	Props   map[string]json.RawMessage `json:"props,omitempty"`
}

// RegistryInfo is one entry of the multi-wallet registry array.
type RegistryInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Frame is the single wire message type. Fields are populated per Type.
type Frame struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// hello
	Objects  []ObjectInfo   `json:"objects,omitempty"`
	Registry []RegistryInfo `json:"registry,omitempty"`

	// call
	Path   string            `json:"path,omitempty"`
	Method string            `json:"method,omitempty"`
	Args   []json.RawMessage `json:"args,omitempty"`

	// result
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *bridge.CallError `json:"error,omitempty"`
}

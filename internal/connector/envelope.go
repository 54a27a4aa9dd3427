package connector

import (
	"bytes"
	"encoding/json"

	"github.com/Fantasim/btcconnect/internal/bridge"
)

// rpcEnvelope covers both {jsonrpc, result, error, id} and
// {status, result, error} responses.
type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Unwrap strips a response envelope. It returns the inner result, or the
// wallet error carried by the envelope. Responses that are not envelopes are
// returned unchanged.
func Unwrap(raw json.RawMessage) (json.RawMessage, *bridge.CallError) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return raw, nil
	}
	_, hasRPC := keys["jsonrpc"]
	_, hasStatus := keys["status"]
	_, hasResult := keys["result"]
	_, hasError := keys["error"]
	if !hasRPC && !(hasStatus && (hasResult || hasError)) {
		return raw, nil
	}

	var env rpcEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return raw, nil
	}

	if isPresent(env.Error) || env.Status == "error" {
		return nil, envelopeError(env.Error)
	}
	return env.Result, nil
}

func envelopeError(raw json.RawMessage) *bridge.CallError {
	ce := &bridge.CallError{}
	if !isPresent(raw) {
		ce.Message = "wallet returned an error status"
		return ce
	}
	if err := json.Unmarshal(raw, ce); err == nil && ce.Message != "" {
		return ce
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return &bridge.CallError{Message: msg}
	}
	return &bridge.CallError{Message: string(raw), Data: raw}
}

func isPresent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

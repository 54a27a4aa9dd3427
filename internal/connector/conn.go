package connector

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

// Transport is how a wallet expects to be invoked.
type Transport int

const (
	// TransportDirect calls same-named methods on the object.
	TransportDirect Transport = iota
	// TransportRequest routes every call through request(method, params).
	TransportRequest
	// TransportToken passes one unsecured-token string argument.
	TransportToken
)

func (t Transport) String() string {
	switch t {
	case TransportDirect:
		return "direct"
	case TransportRequest:
		return "request"
	case TransportToken:
		return "token"
	default:
		return "unknown"
	}
}

// Conn is an adapter's handle on its injected object. The transport is
// fixed at construction.
type Conn struct {
	wallet    models.WalletType
	obj       bridge.Object
	transport Transport
}

// NewConn returns a Conn. obj may be nil when the wallet is not installed.
func NewConn(wallet models.WalletType, obj bridge.Object, transport Transport) *Conn {
	return &Conn{wallet: wallet, obj: obj, transport: transport}
}

// Wallet returns the wallet the connection belongs to.
func (c *Conn) Wallet() models.WalletType { return c.wallet }

// Object returns the underlying object, nil when not installed.
func (c *Conn) Object() bridge.Object { return c.obj }

// Transport returns the default transport.
func (c *Conn) Transport() Transport { return c.transport }

// Installed reports whether there is an object behind the connection.
func (c *Conn) Installed() bool { return c != nil && c.obj != nil }

// Has reports whether the object exposes method.
func (c *Conn) Has(method string) bool { return c.Installed() && c.obj.Has(method) }

// Do invokes method over the connection's transport. For the direct
// transport params is spread as positional arguments when it is a []any.
func (c *Conn) Do(ctx context.Context, op, method string, params any) (json.RawMessage, error) {
	switch c.transport {
	case TransportRequest:
		return c.Request(ctx, op, method, params)
	case TransportToken:
		return c.Token(ctx, op, method, params)
	default:
		if args, ok := params.([]any); ok {
			return c.Call(ctx, op, method, args...)
		}
		if params == nil {
			return c.Call(ctx, op, method)
		}
		return c.Call(ctx, op, method, params)
	}
}

// Call invokes a same-named method directly.
func (c *Conn) Call(ctx context.Context, op, method string, args ...any) (json.RawMessage, error) {
	return c.invoke(ctx, op, method, TransportDirect, args...)
}

// Request invokes request(method, params) and unwraps the JSON-RPC envelope.
func (c *Conn) Request(ctx context.Context, op, method string, params any) (json.RawMessage, error) {
	if params == nil {
		return c.invoke(ctx, op, "request", TransportRequest, method)
	}
	return c.invoke(ctx, op, "request", TransportRequest, method, params)
}

// Token invokes method with payload wrapped in an unsecured token.
func (c *Conn) Token(ctx context.Context, op, method string, payload any) (json.RawMessage, error) {
	token, err := CreateUnsecuredToken(payload)
	if err != nil {
		return nil, config.NewWalletError(string(c.wallet), op, config.ErrProviderError, err.Error())
	}
	return c.invoke(ctx, op, method, TransportToken, token)
}

func (c *Conn) invoke(ctx context.Context, op, method string, transport Transport, args ...any) (json.RawMessage, error) {
	if !c.Installed() {
		return nil, config.NewWalletError(string(c.wallet), op, config.ErrNotInstalled, "")
	}
	if !c.obj.Has(method) {
		return nil, config.NewWalletError(string(c.wallet), op, config.ErrNotInstalled, "missing method "+method)
	}

	start := time.Now()
	slog.Debug("wallet call",
		"wallet", c.wallet,
		"op", op,
		"method", method,
		"transport", transport.String(),
	)

	raw, err := c.obj.Call(ctx, method, args...)
	if err != nil {
		translated := Translate(c.wallet, op, err)
		slog.Debug("wallet call failed",
			"wallet", c.wallet,
			"op", op,
			"error", translated,
			"duration", time.Since(start),
		)
		return nil, translated
	}

	result, callErr := Unwrap(raw)
	if callErr != nil {
		return nil, Translate(c.wallet, op, callErr)
	}

	slog.Debug("wallet call complete",
		"wallet", c.wallet,
		"op", op,
		"bytes", len(result),
		"duration", time.Since(start),
	)
	return result, nil
}

//go:build js && wasm

// Command wasm runs the wallet facade inside the page and publishes it on
// globalThis.btcconnect. Every method returns a Promise; results are plain
// JS objects, failures reject with {code, message, wallet}.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"syscall/js"

	"github.com/Fantasim/btcconnect/internal/bridge/jsbridge"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/logging"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/wallet"
)

var version = "dev"

func main() {
	slog.SetDefault(slog.New(logging.NewHandler(os.Stdout, slog.LevelInfo)))

	f := facade.New(jsbridge.New(), wallet.NewFactory(wallet.DefaultOptions()))

	api := map[string]any{
		"version": version,
		"detect": js.FuncOf(func(js.Value, []js.Value) any {
			return toJS(f.DetectWallets())
		}),
		"state": js.FuncOf(func(js.Value, []js.Value) any {
			return toJS(f.State())
		}),
		"supports": js.FuncOf(func(_ js.Value, args []js.Value) any {
			return f.Supports(arg(args, 0))
		}),
		"subscribe": js.FuncOf(func(_ js.Value, args []js.Value) any {
			if len(args) == 0 || args[0].Type() != js.TypeFunction {
				return js.Undefined()
			}
			cb := args[0]
			unsubscribe := f.Subscribe(func(s facade.Snapshot) {
				cb.Invoke(toJS(s))
			})
			var release js.Func
			release = js.FuncOf(func(js.Value, []js.Value) any {
				unsubscribe()
				release.Release()
				return nil
			})
			return release
		}),
		"connect": promise(func(ctx context.Context, args []js.Value) (any, error) {
			return f.Connect(ctx, models.WalletType(arg(args, 0)))
		}),
		"disconnect": promise(func(ctx context.Context, _ []js.Value) (any, error) {
			return nil, f.Disconnect(ctx)
		}),
		"getBalance": promise(func(ctx context.Context, _ []js.Value) (any, error) {
			return f.Balance(ctx)
		}),
		"getNetwork": promise(func(ctx context.Context, _ []js.Value) (any, error) {
			return f.Network(ctx)
		}),
		"switchNetwork": promise(func(ctx context.Context, args []js.Value) (any, error) {
			return nil, f.SwitchNetwork(ctx, models.Network(arg(args, 0)))
		}),
		"signMessage": promise(func(ctx context.Context, args []js.Value) (any, error) {
			return f.SignMessage(ctx, arg(args, 0), models.MessageProtocol(arg(args, 1)))
		}),
		"signPsbt": promise(func(ctx context.Context, args []js.Value) (any, error) {
			var opts models.SignPsbtOptions
			if err := fromJS(args, 1, &opts); err != nil {
				return nil, err
			}
			return f.SignPsbt(ctx, arg(args, 0), opts)
		}),
		"sendBitcoin": promise(func(ctx context.Context, args []js.Value) (any, error) {
			return f.SendBitcoin(ctx, arg(args, 0), int64(argInt(args, 1)), int64(argInt(args, 2)))
		}),
		"pushPsbt": promise(func(ctx context.Context, args []js.Value) (any, error) {
			return f.PushPsbt(ctx, arg(args, 0))
		}),
		"pushTx": promise(func(ctx context.Context, args []js.Value) (any, error) {
			return f.PushTx(ctx, arg(args, 0))
		}),
		"getInscriptions": promise(func(ctx context.Context, args []js.Value) (any, error) {
			return f.Inscriptions(ctx, argInt(args, 0), argInt(args, 1))
		}),
		"getAllInscriptions": promise(func(ctx context.Context, _ []js.Value) (any, error) {
			return f.AllInscriptions(ctx)
		}),
	}
	js.Global().Set("btcconnect", js.ValueOf(api))

	slog.Info("btcconnect ready", "version", version, "wallets", len(f.DetectWallets()))
	select {}
}

// promise adapts a blocking facade call to a JS Promise. The call runs on
// its own goroutine so the event loop keeps delivering wallet callbacks.
func promise(fn func(ctx context.Context, args []js.Value) (any, error)) js.Func {
	return js.FuncOf(func(_ js.Value, args []js.Value) any {
		handler := js.FuncOf(func(_ js.Value, p []js.Value) any {
			resolve, reject := p[0], p[1]
			go func() {
				v, err := fn(context.Background(), args)
				if err != nil {
					reject.Invoke(toJS(rejection(err)))
					return
				}
				resolve.Invoke(toJS(v))
			}()
			return nil
		})
		defer handler.Release()
		return js.Global().Get("Promise").New(handler)
	})
}

type jsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Wallet  string `json:"wallet,omitempty"`
}

func rejection(err error) jsError {
	e := jsError{Code: config.ErrorCode(err), Message: err.Error()}
	if we, ok := config.AsWalletError(err); ok {
		e.Wallet = we.Wallet
		if we.Message != "" {
			e.Message = we.Message
		}
	}
	return e
}

func toJS(v any) js.Value {
	if v == nil {
		return js.Undefined()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return js.Global().Get("JSON").Call("parse", string(raw))
}

func fromJS(args []js.Value, i int, dst any) error {
	if i >= len(args) || args[i].IsUndefined() || args[i].IsNull() {
		return nil
	}
	s := js.Global().Get("JSON").Call("stringify", args[i]).String()
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return config.NewWalletError("", "decode", config.ErrInvalidRequest, err.Error())
	}
	return nil
}

func arg(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func argInt(args []js.Value, i int) int {
	if i >= len(args) || args[i].Type() != js.TypeNumber {
		return 0
	}
	return args[i].Int()
}

//go:build js && wasm

// Package jsbridge binds bridge.Globals to the page's window object when the
// module runs as WebAssembly inside the browser.
package jsbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"syscall/js"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/config"
)

// Globals resolves objects from window.
type Globals struct {
	window js.Value
}

var _ bridge.Globals = (*Globals)(nil)

// New returns Globals bound to the page's global object.
func New() *Globals {
	return &Globals{window: js.Global()}
}

// Lookup implements bridge.Globals.
func (g *Globals) Lookup(path string) (bridge.Object, bool) {
	v := g.window
	for _, part := range bridge.SplitPath(path) {
		if !isObject(v) {
			return nil, false
		}
		v = v.Get(part)
	}
	if !isObject(v) {
		return nil, false
	}
	return &Object{v: v}, true
}

// Registry implements bridge.Globals.
func (g *Globals) Registry() []bridge.RegistryEntry {
	arr := g.window.Get(config.RegistryGlobal)
	if arr.Type() != js.TypeObject || !js.Global().Get("Array").Call("isArray", arr).Bool() {
		return nil
	}
	var out []bridge.RegistryEntry
	for i := 0; i < arr.Length(); i++ {
		e := arr.Index(i)
		if !isObject(e) {
			continue
		}
		provider := e.Get("provider")
		if !isObject(provider) {
			provider = e
		}
		out = append(out, bridge.RegistryEntry{
			ID:     stringProp(e, "id"),
			Name:   stringProp(e, "name"),
			Object: &Object{v: provider},
		})
	}
	return out
}

// Object wraps a JavaScript object.
type Object struct {
	v js.Value
}

var _ bridge.Object = (*Object)(nil)

// SameAs implements bridge.Identifiable.
func (o *Object) SameAs(other bridge.Object) bool {
	x, ok := other.(*Object)
	return ok && x.v.Equal(o.v)
}

// Has implements bridge.Object.
func (o *Object) Has(method string) bool {
	return o.v.Get(method).Type() == js.TypeFunction
}

// Prop implements bridge.Object.
func (o *Object) Prop(name string) (json.RawMessage, bool) {
	p := o.v.Get(name)
	if p.IsUndefined() || p.Type() == js.TypeFunction {
		return nil, false
	}
	raw, err := toJSON(p)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Child implements bridge.Object.
func (o *Object) Child(name string) (bridge.Object, bool) {
	c := o.v.Get(name)
	if !isObject(c) {
		return nil, false
	}
	return &Object{v: c}, true
}

// Call implements bridge.Object. Thrown errors and rejected promises become
// *bridge.CallError.
func (o *Object) Call(ctx context.Context, method string, args ...any) (result json.RawMessage, err error) {
	if !o.Has(method) {
		return nil, &bridge.CallError{Message: method + " is not a function"}
	}

	jsArgs := make([]any, len(args))
	for i, a := range args {
		v, err := fromGo(a)
		if err != nil {
			return nil, fmt.Errorf("convert arg %d of %s: %w", i, method, err)
		}
		jsArgs[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, callError(r)
		}
	}()
	ret := o.v.Call(method, jsArgs...)

	if !isThenable(ret) {
		return toJSON(ret)
	}
	return await(ctx, ret)
}

// await blocks until the promise settles or ctx is done.
func await(ctx context.Context, promise js.Value) (json.RawMessage, error) {
	type settled struct {
		v   js.Value
		err error
	}
	ch := make(chan settled, 1)

	onResolve := js.FuncOf(func(_ js.Value, args []js.Value) any {
		v := js.Undefined()
		if len(args) > 0 {
			v = args[0]
		}
		ch <- settled{v: v}
		return nil
	})
	onReject := js.FuncOf(func(_ js.Value, args []js.Value) any {
		var reason js.Value
		if len(args) > 0 {
			reason = args[0]
		}
		ch <- settled{err: rejection(reason)}
		return nil
	})
	release := func() {
		onResolve.Release()
		onReject.Release()
	}

	promise.Call("then", onResolve, onReject)

	select {
	case s := <-ch:
		release()
		if s.err != nil {
			return nil, s.err
		}
		return toJSON(s.v)
	case <-ctx.Done():
		// The callbacks must outlive the abandoned promise.
		go func() {
			<-ch
			release()
		}()
		return nil, ctx.Err()
	}
}

func rejection(reason js.Value) error {
	if !isObject(reason) {
		if reason.Type() == js.TypeString {
			return &bridge.CallError{Message: reason.String()}
		}
		return &bridge.CallError{Message: "promise rejected"}
	}
	ce := &bridge.CallError{Message: stringProp(reason, "message")}
	if c := reason.Get("code"); c.Type() == js.TypeNumber {
		ce.Code = c.Int()
	}
	if d := reason.Get("data"); !d.IsUndefined() {
		if raw, err := toJSON(d); err == nil {
			ce.Data = raw
		}
	}
	if ce.Message == "" {
		ce.Message = reason.Call("toString").String()
	}
	return ce
}

func callError(r any) error {
	if jsErr, ok := r.(js.Error); ok {
		return rejection(jsErr.Value)
	}
	return &bridge.CallError{Message: fmt.Sprint(r)}
}

// fromGo converts a JSON-encodable Go value to a JS value. bridge.Bytes
// becomes a Uint8Array.
func fromGo(a any) (js.Value, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return js.Undefined(), err
	}
	return js.Global().Get("JSON").Call("parse", string(raw), reviver), nil
}

// toJSON serializes a JS value. Uint8Arrays are tagged the way bridge.Bytes
// expects.
func toJSON(v js.Value) (json.RawMessage, error) {
	if v.IsUndefined() || v.IsNull() {
		return json.RawMessage("null"), nil
	}
	s := js.Global().Get("JSON").Call("stringify", v, replacer)
	if s.IsUndefined() {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(s.String()), nil
}

var uint8Array = js.Global().Get("Uint8Array")

var reviver = js.FuncOf(func(_ js.Value, args []js.Value) any {
	v := args[1]
	if !isObject(v) {
		return v
	}
	b := v.Get("$bytes")
	if b.Type() != js.TypeString {
		return v
	}
	data, err := base64.StdEncoding.DecodeString(b.String())
	if err != nil {
		return v
	}
	arr := uint8Array.New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
})

var replacer = js.FuncOf(func(_ js.Value, args []js.Value) any {
	v := args[1]
	if !v.InstanceOf(uint8Array) {
		return v
	}
	data := make([]byte, v.Length())
	js.CopyBytesToGo(data, v)
	return map[string]any{"$bytes": base64.StdEncoding.EncodeToString(data)}
})

func isObject(v js.Value) bool {
	return v.Type() == js.TypeObject || v.Type() == js.TypeFunction
}

func isThenable(v js.Value) bool {
	return isObject(v) && v.Get("then").Type() == js.TypeFunction
}

func stringProp(v js.Value, name string) string {
	p := v.Get(name)
	switch p.Type() {
	case js.TypeString:
		return p.String()
	case js.TypeNumber:
		return strconv.FormatFloat(p.Float(), 'f', -1, 64)
	}
	return ""
}

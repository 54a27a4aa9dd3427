// Package bridgetest provides scripted in-memory wallet objects for tests.
package bridgetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Fantasim/btcconnect/internal/bridge"
)

// Handler answers a call. args are the JSON-encoded call arguments.
type Handler func(ctx context.Context, args []json.RawMessage) (any, error)

// Call records one invocation.
type Call struct {
	Method string
	Args   []json.RawMessage
}

// Object is a scripted bridge.Object.
type Object struct {
	mu       sync.Mutex
	methods  map[string]Handler
	props    map[string]json.RawMessage
	children map[string]*Object
	calls    []Call
}

var _ bridge.Object = (*Object)(nil)

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{
		methods:  make(map[string]Handler),
		props:    make(map[string]json.RawMessage),
		children: make(map[string]*Object),
	}
}

// On registers a handler for method.
func (o *Object) On(method string, h Handler) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.methods[method] = h
	return o
}

// Return makes method resolve with v.
func (o *Object) Return(method string, v any) *Object {
	return o.On(method, func(context.Context, []json.RawMessage) (any, error) {
		return v, nil
	})
}

// Fail makes method reject with a wallet error.
func (o *Object) Fail(method string, code int, message string) *Object {
	return o.On(method, func(context.Context, []json.RawMessage) (any, error) {
		return nil, &bridge.CallError{Code: code, Message: message}
	})
}

// SetProp sets a non-function property.
func (o *Object) SetProp(name string, v any) *Object {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("bridgetest: marshal prop %s: %v", name, err))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.props[name] = raw
	return o
}

// SetChild attaches a nested object.
func (o *Object) SetChild(name string, c *Object) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.children[name] = c
	return o
}

// Has implements bridge.Object.
func (o *Object) Has(method string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.methods[method]
	return ok
}

// Call implements bridge.Object. Arguments go through JSON like on a real bridge.
func (o *Object) Call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	encoded := make([]json.RawMessage, len(args))
	for i, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal arg %d: %w", i, err)
		}
		encoded[i] = raw
	}

	o.mu.Lock()
	h, ok := o.methods[method]
	o.calls = append(o.calls, Call{Method: method, Args: encoded})
	o.mu.Unlock()

	if !ok {
		return nil, &bridge.CallError{Message: method + " is not a function"}
	}

	v, err := h(ctx, encoded)
	if err != nil {
		return nil, err
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}

// Prop implements bridge.Object.
func (o *Object) Prop(name string) (json.RawMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.props[name]
	return v, ok
}

// Child implements bridge.Object.
func (o *Object) Child(name string) (bridge.Object, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.children[name]
	if !ok {
		return nil, false
	}
	return c, true
}

// Calls returns a copy of the recorded calls.
func (o *Object) Calls() []Call {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Call, len(o.calls))
	copy(out, o.calls)
	return out
}

// CallCount returns how many times method was invoked. An empty method
// counts every call.
func (o *Object) CallCount(method string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.calls {
		if method == "" || c.Method == method {
			n++
		}
	}
	return n
}

// LastArgs returns the arguments of the most recent call to method.
func (o *Object) LastArgs(method string) []json.RawMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.calls) - 1; i >= 0; i-- {
		if o.calls[i].Method == method {
			return o.calls[i].Args
		}
	}
	return nil
}

// Globals is a scripted bridge.Globals.
type Globals struct {
	mu       sync.Mutex
	objects  map[string]*Object
	registry []bridge.RegistryEntry
}

var _ bridge.Globals = (*Globals)(nil)

// NewGlobals returns an empty global scope.
func NewGlobals() *Globals {
	return &Globals{objects: make(map[string]*Object)}
}

// Set installs obj at a dotted path.
func (g *Globals) Set(path string, obj *Object) *Globals {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[path] = obj
	return g
}

// AddRegistry appends an entry to the registry array.
func (g *Globals) AddRegistry(id, name string, obj *Object) *Globals {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registry = append(g.registry, bridge.RegistryEntry{ID: id, Name: name, Object: obj})
	return g
}

// Lookup implements bridge.Globals. Exact paths win; otherwise the path is
// walked through Child from its longest installed prefix.
func (g *Globals) Lookup(path string) (bridge.Object, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if obj, ok := g.objects[path]; ok {
		return obj, true
	}

	parts := bridge.SplitPath(path)
	for i := len(parts) - 1; i > 0; i-- {
		root, ok := g.objects[strings.Join(parts[:i], ".")]
		if !ok {
			continue
		}
		var cur bridge.Object = root
		for _, p := range parts[i:] {
			next, ok := cur.Child(p)
			if !ok {
				return nil, false
			}
			cur = next
		}
		return cur, true
	}
	return nil, false
}

// Registry implements bridge.Globals.
func (g *Globals) Registry() []bridge.RegistryEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]bridge.RegistryEntry, len(g.registry))
	copy(out, g.registry)
	return out
}

// Paths lists installed paths, sorted.
func (g *Globals) Paths() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.objects))
	for p := range g.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

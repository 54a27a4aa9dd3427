// Package facade is the single entry point callers use: it owns the active
// wallet provider, publishes connection snapshots to subscribers and guards
// every pass-through operation.
package facade

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/wallet"
)

// Snapshot is a copy of the connection state published to subscribers.
type Snapshot struct {
	IsConnected bool              `json:"isConnected"`
	WalletType  models.WalletType `json:"walletType,omitempty"`
	Address     string            `json:"address,omitempty"`
	PublicKey   string            `json:"publicKey,omitempty"`
	Accounts    []models.Account  `json:"accounts,omitempty"`
	// Balance is nil when the eager fetch after connect failed or the wallet
	// cannot report one.
	Balance  *models.Balance `json:"balance"`
	Provider wallet.Provider `json:"-"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Balance != nil {
		b := *s.Balance
		out.Balance = &b
	}
	if s.Accounts != nil {
		out.Accounts = append([]models.Account(nil), s.Accounts...)
	}
	return out
}

// Listener receives a snapshot after every state change.
type Listener func(Snapshot)

// Operation describes one completed facade call.
type Operation struct {
	Wallet   models.WalletType
	Name     string
	Address  string
	TxID     string
	Err      error
	Duration time.Duration
}

// Observer is told about every operation that reached a provider.
type Observer interface {
	Observe(ctx context.Context, op Operation)
}

type listenerEntry struct {
	id int
	fn Listener
}

// Facade holds at most one active provider.
type Facade struct {
	globals   bridge.Globals
	factory   wallet.Factory
	observers []Observer

	mu         sync.Mutex
	snap       Snapshot
	generation uint64
	connecting map[uint64]wallet.Provider // in-flight handshakes by generation
	listeners  []listenerEntry
	nextID     int
}

// New builds a Facade resolving wallets from g.
func New(g bridge.Globals, factory wallet.Factory, observers ...Observer) *Facade {
	return &Facade{
		globals:    g,
		factory:    factory,
		observers:  observers,
		connecting: make(map[uint64]wallet.Provider),
	}
}

// DetectWallets lists the installed wallets in display order.
func (f *Facade) DetectWallets() []models.WalletInfo {
	return connector.Installed(f.globals)
}

// State returns a copy of the current snapshot.
func (f *Facade) State() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.clone()
}

// Subscribe registers fn and returns a func that removes it. Listeners run
// synchronously on the goroutine that changed the state.
func (f *Facade) Subscribe(fn Listener) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners = append(f.listeners, listenerEntry{id: id, fn: fn})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, l := range f.listeners {
				if l.id == id {
					f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Connect makes wallet the active provider. Any previous provider is torn
// down first. When another Connect or a Disconnect starts before this one
// finishes, the handshake is undone and ErrConnectSuperseded is returned.
func (f *Facade) Connect(ctx context.Context, w models.WalletType) (Snapshot, error) {
	f.mu.Lock()
	f.generation++
	gen := f.generation
	prev := f.snap.Provider
	changed := f.snap.IsConnected
	f.snap = Snapshot{}
	f.mu.Unlock()

	if prev != nil {
		f.teardown(ctx, prev)
	}
	if changed {
		f.notify()
	}

	p, err := f.factory(f.globals, w)
	if err != nil {
		return Snapshot{}, err
	}

	f.mu.Lock()
	f.connecting[gen] = p
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.connecting, gen)
		f.mu.Unlock()
	}()

	start := time.Now()
	accounts, err := p.Connect(ctx)
	f.observe(ctx, p, capability.OpConnect, "", err, start)
	if err != nil {
		slog.Warn("wallet connect failed", "wallet", w, "error", err)
		return Snapshot{}, err
	}

	snap := Snapshot{
		IsConnected: true,
		WalletType:  p.Name(),
		Address:     p.Address(),
		PublicKey:   p.PublicKey(),
		Accounts:    accounts,
		Balance:     f.eagerBalance(ctx, p),
		Provider:    p,
	}

	f.mu.Lock()
	if gen != f.generation {
		shared := f.sharedSessionLocked(gen, p)
		f.mu.Unlock()
		if shared {
			// A newer connect owns the same wallet session; only forget ours.
			slog.Warn("connect superseded by the same wallet", "wallet", w, "generation", gen)
			wallet.Release(p)
		} else {
			slog.Warn("connect superseded, disconnecting", "wallet", w, "generation", gen)
			f.teardown(ctx, p)
		}
		return Snapshot{}, config.NewWalletError(string(w), capability.OpConnect, config.ErrConnectSuperseded, "")
	}
	f.snap = snap
	out := f.snap.clone()
	f.mu.Unlock()

	slog.Info("facade connected",
		"wallet", w,
		"address", snap.Address,
		"hasBalance", snap.Balance != nil,
	)
	f.notify()
	return out, nil
}

// sharedSessionLocked reports whether the active provider or a newer in-flight
// connect drives the same injected object as p. f.mu must be held.
func (f *Facade) sharedSessionLocked(gen uint64, p wallet.Provider) bool {
	if wallet.SharesSession(p, f.snap.Provider) {
		return true
	}
	for g, q := range f.connecting {
		if g > gen && wallet.SharesSession(p, q) {
			return true
		}
	}
	return false
}

// eagerBalance fetches the balance right after connect. Failure is not fatal.
func (f *Facade) eagerBalance(ctx context.Context, p wallet.Provider) *models.Balance {
	if !p.Capabilities().Supports(capability.OpGetBalance) {
		return nil
	}
	bal, err := p.Balance(ctx)
	if err != nil {
		slog.Warn("balance fetch after connect failed", "wallet", p.Name(), "error", err)
		return nil
	}
	return &bal
}

// Disconnect drops the active provider. Without one it does nothing. It also
// cancels any connect still in flight.
func (f *Facade) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.generation++
	prev := f.snap.Provider
	f.snap = Snapshot{}
	f.mu.Unlock()

	if prev == nil {
		return nil
	}

	start := time.Now()
	err := prev.Disconnect(ctx)
	f.observe(ctx, prev, capability.OpDisconnect, "", err, start)
	if err != nil {
		slog.Warn("wallet disconnect failed", "wallet", prev.Name(), "error", err)
	}
	slog.Info("facade disconnected", "wallet", prev.Name())
	f.notify()
	return nil
}

// teardown disconnects p on a context that outlives the caller's.
func (f *Facade) teardown(ctx context.Context, p wallet.Provider) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.TeardownTimeout)
	defer cancel()
	if err := p.Disconnect(ctx); err != nil {
		slog.Warn("provider teardown failed", "wallet", p.Name(), "error", err)
	}
}

func (f *Facade) notify() {
	f.mu.Lock()
	snap := f.snap.clone()
	listeners := make([]Listener, len(f.listeners))
	for i, l := range f.listeners {
		listeners[i] = l.fn
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(snap.clone())
	}
}

// active returns the connected provider or ErrNoWalletConnected.
func (f *Facade) active(op string) (wallet.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap.Provider == nil {
		return nil, config.NewWalletError("", op, config.ErrNoWalletConnected, "")
	}
	return f.snap.Provider, nil
}

func (f *Facade) observe(ctx context.Context, p wallet.Provider, op, txid string, err error, start time.Time) {
	if len(f.observers) == 0 {
		return
	}
	rec := Operation{
		Wallet:   p.Name(),
		Name:     op,
		Address:  p.Address(),
		TxID:     txid,
		Err:      err,
		Duration: time.Since(start),
	}
	for _, o := range f.observers {
		o.Observe(ctx, rec)
	}
}

// Supports reports whether the active wallet supports op. Without an active
// wallet it reports false.
func (f *Facade) Supports(op string) bool {
	p, err := f.active(op)
	if err != nil {
		return false
	}
	return p.Capabilities().Supports(op)
}

// Capabilities returns the static descriptor of any supported wallet.
func (f *Facade) Capabilities(w models.WalletType) (capability.Descriptor, error) {
	if !connector.Known(w) {
		return capability.Descriptor{}, config.NewWalletError(string(w), "", config.ErrUnknownWallet, "")
	}
	return capability.For(w), nil
}

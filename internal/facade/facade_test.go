package facade

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Fantasim/btcconnect/internal/bridge/bridgetest"
	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/wallet"
)

const (
	taprootAddr = "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr"
	segwitAddr  = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	sampleTxID  = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	psbtHex     = "70736274ff01002001000000000100000000000000000d6a0b68656c6c6f20776f726c64000000000000"
)

func unisatObject() *bridgetest.Object {
	return bridgetest.NewObject().
		Return("requestAccounts", []string{taprootAddr}).
		Return("getBalance", map[string]int64{"confirmed": 3000, "unconfirmed": 690}).
		Return("signMessage", "sig").
		Return("signPsbt", psbtHex).
		Return("sendBitcoin", sampleTxID).
		Return("disconnect", nil)
}

func okxObject() *bridgetest.Object {
	return bridgetest.NewObject().
		Return("connect", map[string]string{"address": segwitAddr, "publicKey": "02ab"}).
		Return("getBalance", 10).
		Return("signMessage", "sig").
		Return("signPsbt", psbtHex)
}

func newFacade(g *bridgetest.Globals, observers ...Observer) *Facade {
	return New(g, wallet.NewFactory(wallet.DefaultOptions()), observers...)
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []Operation
}

func (r *recordingObserver) Observe(_ context.Context, op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *recordingObserver) last() Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[len(r.ops)-1]
}

func TestNoGlobals(t *testing.T) {
	f := newFacade(bridgetest.NewGlobals())

	if got := f.DetectWallets(); len(got) != 0 {
		t.Errorf("DetectWallets() = %v, want empty", got)
	}
	for _, w := range models.AllWallets {
		if _, err := f.Connect(context.Background(), w); !errors.Is(err, config.ErrNotInstalled) {
			t.Errorf("Connect(%s) error = %v, want ErrNotInstalled", w, err)
		}
	}
	if f.State().IsConnected {
		t.Error("facade connected without any wallet")
	}
}

func TestDetectWallets(t *testing.T) {
	g := bridgetest.NewGlobals().
		Set("unisat", unisatObject()).
		Set("okxwallet", bridgetest.NewObject().SetChild("bitcoin", okxObject()))
	f := newFacade(g)

	got := f.DetectWallets()
	if len(got) != 2 || got[0].Type != models.WalletUnisat || got[1].Type != models.WalletOKX {
		t.Fatalf("DetectWallets() = %+v", got)
	}
	if got[1].Source != "okxwallet.bitcoin" {
		t.Errorf("okx source = %q", got[1].Source)
	}
}

func TestDisconnect_NoWalletIsNoop(t *testing.T) {
	f := newFacade(bridgetest.NewGlobals())
	notified := 0
	f.Subscribe(func(Snapshot) { notified++ })

	if err := f.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if notified != 0 {
		t.Errorf("listeners notified %d times, want 0", notified)
	}
}

func TestPassThrough_NoWalletConnected(t *testing.T) {
	f := newFacade(bridgetest.NewGlobals())
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["balance"] = f.Balance(ctx)
	_, checks["signMessage"] = f.SignMessage(ctx, "hi", models.MessageDefault)
	_, checks["pushTx"] = f.PushTx(ctx, "00")
	_, checks["allInscriptions"] = f.AllInscriptions(ctx)
	_, checks["address"] = f.Address()
	checks["switchNetwork"] = f.SwitchNetwork(ctx, models.NetworkTestnet)

	for name, err := range checks {
		if !errors.Is(err, config.ErrNoWalletConnected) {
			t.Errorf("%s error = %v, want ErrNoWalletConnected", name, err)
		}
	}
	if f.Supports("signPsbt") {
		t.Error("Supports() true without a wallet")
	}
}

func TestConnect_PublishesSnapshot(t *testing.T) {
	f := newFacade(bridgetest.NewGlobals().Set("unisat", unisatObject()))

	var got []Snapshot
	unsubscribe := f.Subscribe(func(s Snapshot) { got = append(got, s) })

	snap, err := f.Connect(context.Background(), models.WalletUnisat)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !snap.IsConnected || snap.WalletType != models.WalletUnisat || snap.Address != taprootAddr {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Balance == nil || *snap.Balance != (models.Balance{Confirmed: 3000, Unconfirmed: 690, Total: 3690}) {
		t.Errorf("balance = %+v", snap.Balance)
	}
	if len(got) != 1 || got[0].Address != taprootAddr {
		t.Fatalf("listener got %+v", got)
	}

	// Listeners receive copies.
	got[0].Balance.Total = 0
	if f.State().Balance.Total != 3690 {
		t.Error("listener mutated the store")
	}

	unsubscribe()
	if err := f.Disconnect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("unsubscribed listener still notified")
	}
	if f.State().IsConnected {
		t.Error("still connected after Disconnect")
	}
}

func TestConnect_BalanceFailureDegrades(t *testing.T) {
	obj := unisatObject().Fail("getBalance", -1, "indexer unavailable")
	f := newFacade(bridgetest.NewGlobals().Set("unisat", obj))

	snap, err := f.Connect(context.Background(), models.WalletUnisat)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !snap.IsConnected || snap.Balance != nil {
		t.Errorf("snapshot = %+v, want connected with nil balance", snap)
	}
}

func TestConnect_ReplacesPrevious(t *testing.T) {
	uni := unisatObject()
	g := bridgetest.NewGlobals().
		Set("unisat", uni).
		Set("okxwallet", bridgetest.NewObject().SetChild("bitcoin", okxObject()))
	f := newFacade(g)
	ctx := context.Background()

	if _, err := f.Connect(ctx, models.WalletUnisat); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Connect(ctx, models.WalletOKX); err != nil {
		t.Fatal(err)
	}
	if uni.CallCount("disconnect") != 1 {
		t.Errorf("previous provider not torn down: %d disconnect calls", uni.CallCount("disconnect"))
	}
	if s := f.State(); s.WalletType != models.WalletOKX || s.Address != segwitAddr {
		t.Errorf("state = %+v", s)
	}
}

func TestConnect_RaceLastWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := unisatObject().On("requestAccounts", func(context.Context, []json.RawMessage) (any, error) {
		close(started)
		<-release
		return []string{taprootAddr}, nil
	})
	g := bridgetest.NewGlobals().
		Set("unisat", slow).
		Set("okxwallet", bridgetest.NewObject().SetChild("bitcoin", okxObject()))
	f := newFacade(g)
	ctx := context.Background()

	errA := make(chan error, 1)
	go func() {
		_, err := f.Connect(ctx, models.WalletUnisat)
		errA <- err
	}()

	<-started
	if _, err := f.Connect(ctx, models.WalletOKX); err != nil {
		t.Fatalf("Connect(okx) error = %v", err)
	}
	close(release)

	select {
	case err := <-errA:
		if !errors.Is(err, config.ErrConnectSuperseded) {
			t.Errorf("first connect error = %v, want ErrConnectSuperseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first connect never returned")
	}

	if s := f.State(); s.WalletType != models.WalletOKX {
		t.Errorf("final walletType = %s, want okx", s.WalletType)
	}
	if slow.CallCount("disconnect") != 1 {
		t.Errorf("superseded provider not disconnected")
	}
}

// blockFirstConnect makes the first requestAccounts call wait for release;
// later calls answer immediately.
func blockFirstConnect(obj *bridgetest.Object, started, release chan struct{}) *bridgetest.Object {
	var mu sync.Mutex
	calls := 0
	return obj.On("requestAccounts", func(context.Context, []json.RawMessage) (any, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return []string{taprootAddr}, nil
	})
}

func TestConnect_RaceSameWalletKeepsSession(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	obj := blockFirstConnect(unisatObject(), started, release)
	f := newFacade(bridgetest.NewGlobals().Set("unisat", obj))
	ctx := context.Background()

	errA := make(chan error, 1)
	go func() {
		_, err := f.Connect(ctx, models.WalletUnisat)
		errA <- err
	}()

	<-started
	if _, err := f.Connect(ctx, models.WalletUnisat); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	close(release)

	select {
	case err := <-errA:
		if !errors.Is(err, config.ErrConnectSuperseded) {
			t.Errorf("first connect error = %v, want ErrConnectSuperseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first connect never returned")
	}

	s := f.State()
	if !s.IsConnected || s.WalletType != models.WalletUnisat || s.Address != taprootAddr {
		t.Errorf("state = %+v, want connected unisat", s)
	}
	if n := obj.CallCount("disconnect"); n != 0 {
		t.Errorf("wallet disconnect called %d times, want 0", n)
	}
	if s.Provider.State() != models.StateConnected {
		t.Errorf("winning provider state = %s", s.Provider.State())
	}
}

func TestConnect_SupersededBeforeWinnerInstalls(t *testing.T) {
	startedA := make(chan struct{})
	releaseA := make(chan struct{})
	startedB := make(chan struct{})
	releaseB := make(chan struct{})

	var mu sync.Mutex
	calls := 0
	obj := unisatObject().On("requestAccounts", func(context.Context, []json.RawMessage) (any, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		switch n {
		case 1:
			close(startedA)
			<-releaseA
		case 2:
			close(startedB)
			<-releaseB
		}
		return []string{taprootAddr}, nil
	})
	f := newFacade(bridgetest.NewGlobals().Set("unisat", obj))
	ctx := context.Background()

	errA := make(chan error, 1)
	go func() {
		_, err := f.Connect(ctx, models.WalletUnisat)
		errA <- err
	}()
	<-startedA

	errB := make(chan error, 1)
	go func() {
		_, err := f.Connect(ctx, models.WalletUnisat)
		errB <- err
	}()
	<-startedB

	// A finishes while B is still waiting on the wallet.
	close(releaseA)
	if err := <-errA; !errors.Is(err, config.ErrConnectSuperseded) {
		t.Fatalf("first connect error = %v, want ErrConnectSuperseded", err)
	}
	close(releaseB)
	if err := <-errB; err != nil {
		t.Fatalf("second connect error = %v", err)
	}

	if !f.State().IsConnected {
		t.Error("second connect not installed")
	}
	if n := obj.CallCount("disconnect"); n != 0 {
		t.Errorf("wallet disconnect called %d times, want 0", n)
	}
}

func TestCapabilityFalse_NoWalletCalls(t *testing.T) {
	phantom := bridgetest.NewObject().
		SetProp("isPhantom", true).
		Return("requestAccounts", []map[string]string{{"address": taprootAddr, "purpose": "ordinals"}}).
		Return("signMessage", nil).
		Return("signPSBT", nil).
		Return("getBalance", 1)
	f := newFacade(bridgetest.NewGlobals().Set("phantom", bridgetest.NewObject().SetChild("bitcoin", phantom)))
	ctx := context.Background()

	snap, err := f.Connect(ctx, models.WalletPhantom)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if snap.Balance != nil {
		t.Errorf("phantom has no balance capability, got %+v", snap.Balance)
	}
	before := phantom.CallCount("")

	if _, err := f.Balance(ctx); !errors.Is(err, config.ErrUnsupportedOperation) {
		t.Errorf("Balance() error = %v", err)
	}
	if _, err := f.RunesBalance(ctx); !errors.Is(err, config.ErrUnsupportedOperation) {
		t.Errorf("RunesBalance() error = %v", err)
	}
	if _, err := f.SendBitcoin(ctx, segwitAddr, 1000, 0); !errors.Is(err, config.ErrUnsupportedOperation) {
		t.Errorf("SendBitcoin() error = %v", err)
	}
	if phantom.CallCount("") != before {
		t.Errorf("unsupported operations reached the wallet")
	}
	if f.Supports("sendBitcoin") || !f.Supports("signPsbt") {
		t.Error("Supports() disagrees with the descriptor")
	}
}

// connectedFixtures returns, per wallet, the global path and an injected
// object that is just enough to complete Connect.
func connectedFixtures() map[models.WalletType]func() (string, *bridgetest.Object) {
	rpc := func(result any) bridgetest.Handler {
		return func(context.Context, []json.RawMessage) (any, error) {
			return map[string]any{"jsonrpc": "2.0", "id": "1", "result": result}, nil
		}
	}
	paired := []map[string]string{
		{"address": taprootAddr, "purpose": "ordinals"},
		{"address": segwitAddr, "purpose": "payment"},
	}
	return map[models.WalletType]func() (string, *bridgetest.Object){
		models.WalletUnisat: func() (string, *bridgetest.Object) { return "unisat", unisatObject() },
		models.WalletXverse: func() (string, *bridgetest.Object) {
			return "XverseProviders.BitcoinProvider", bridgetest.NewObject().On("request", rpc(paired))
		},
		models.WalletOKX: func() (string, *bridgetest.Object) { return "okxwallet.bitcoin", okxObject() },
		models.WalletLeather: func() (string, *bridgetest.Object) {
			return "LeatherProvider", bridgetest.NewObject().On("request", rpc(map[string]any{"addresses": []map[string]string{
				{"symbol": "BTC", "type": "p2tr", "address": taprootAddr, "publicKey": "cc"},
			}}))
		},
		models.WalletPhantom: func() (string, *bridgetest.Object) {
			return "phantom.bitcoin", bridgetest.NewObject().
				SetProp("isPhantom", true).
				Return("requestAccounts", paired).
				Return("signMessage", nil).
				Return("signPSBT", nil)
		},
		models.WalletMagicEden: func() (string, *bridgetest.Object) {
			return "magicEden.bitcoin", bridgetest.NewObject().
				Return("connect", map[string]any{"addresses": paired}).
				Return("signMessage", "sig").
				Return("signTransaction", nil).
				Return("sendBtcTransaction", sampleTxID)
		},
		models.WalletOYL: func() (string, *bridgetest.Object) {
			return "oyl", bridgetest.NewObject().
				Return("getAddresses", map[string]any{"taproot": map[string]string{"address": taprootAddr, "publicKey": "aa"}}).
				Return("getBalance", 5).
				Return("signMessage", "sig").
				Return("signPsbt", nil)
		},
		models.WalletWizz: func() (string, *bridgetest.Object) {
			return "wizz", bridgetest.NewObject().
				Return("requestAccounts", []string{taprootAddr}).
				Return("getBalance", 0).
				Return("signMessage", "sig").
				Return("signPsbt", nil)
		},
	}
}

func TestUnsupportedOperations_NeverReachWallet(t *testing.T) {
	calls := map[string]func(context.Context, *Facade) error{
		capability.OpGetAccounts:  func(_ context.Context, f *Facade) error { _, err := f.Accounts(); return err },
		capability.OpGetPublicKey: func(_ context.Context, f *Facade) error { _, err := f.PublicKey(); return err },
		capability.OpGetBalance:   func(ctx context.Context, f *Facade) error { _, err := f.Balance(ctx); return err },
		capability.OpGetNetwork:   func(ctx context.Context, f *Facade) error { _, err := f.Network(ctx); return err },
		capability.OpSwitchNetwork: func(ctx context.Context, f *Facade) error {
			return f.SwitchNetwork(ctx, models.NetworkTestnet)
		},
		capability.OpSignMessage: func(ctx context.Context, f *Facade) error {
			_, err := f.SignMessage(ctx, "hello", models.MessageDefault)
			return err
		},
		capability.OpSignPsbt: func(ctx context.Context, f *Facade) error {
			_, err := f.SignPsbt(ctx, psbtHex, models.SignPsbtOptions{})
			return err
		},
		capability.OpSignPsbts: func(ctx context.Context, f *Facade) error {
			_, err := f.SignPsbts(ctx, []string{psbtHex}, nil)
			return err
		},
		capability.OpSendBitcoin: func(ctx context.Context, f *Facade) error {
			_, err := f.SendBitcoin(ctx, segwitAddr, 1000, 0)
			return err
		},
		capability.OpPushPsbt: func(ctx context.Context, f *Facade) error { _, err := f.PushPsbt(ctx, psbtHex); return err },
		capability.OpPushTx:   func(ctx context.Context, f *Facade) error { _, err := f.PushTx(ctx, "0100"); return err },
		capability.OpListInscriptions: func(ctx context.Context, f *Facade) error {
			if _, err := f.Inscriptions(ctx, 0, 10); err != nil {
				return err
			}
			_, err := f.AllInscriptions(ctx)
			return err
		},
		capability.OpSendInscription: func(ctx context.Context, f *Facade) error {
			_, err := f.SendInscription(ctx, segwitAddr, "i0", 0)
			return err
		},
		capability.OpCreateInscription: func(ctx context.Context, f *Facade) error {
			_, err := f.CreateInscription(ctx, models.InscriptionRequest{ContentType: "text/plain", Content: "gm"})
			return err
		},
		capability.OpBRC20Transfer: func(ctx context.Context, f *Facade) error {
			_, err := f.InscribeTransfer(ctx, "ordi", "1")
			return err
		},
		capability.OpRunesBalance: func(ctx context.Context, f *Facade) error { _, err := f.RunesBalance(ctx); return err },
		capability.OpRunesTransfer: func(ctx context.Context, f *Facade) error {
			_, err := f.SendRunes(ctx, segwitAddr, "840000:3", "1", 0)
			return err
		},
		capability.OpRunesEtch: func(ctx context.Context, f *Facade) error {
			_, err := f.EtchRunes(ctx, models.EtchRequest{})
			return err
		},
		capability.OpRunesMint: func(ctx context.Context, f *Facade) error {
			_, err := f.MintRunes(ctx, models.MintRequest{})
			return err
		},
		capability.OpAtomicalsBalance: func(ctx context.Context, f *Facade) error {
			_, err := f.AtomicalsBalance(ctx)
			return err
		},
		capability.OpAtomicalsTransfer: func(ctx context.Context, f *Facade) error {
			_, err := f.SendAtomicals(ctx, segwitAddr, "atom", 546, 0)
			return err
		},
	}
	fixtures := connectedFixtures()

	for _, w := range models.AllWallets {
		t.Run(string(w), func(t *testing.T) {
			fixture, ok := fixtures[w]
			if !ok {
				t.Fatalf("no fixture for %s", w)
			}
			path, obj := fixture()
			f := newFacade(bridgetest.NewGlobals().Set(path, obj))
			ctx := context.Background()
			if _, err := f.Connect(ctx, w); err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			desc := capability.For(w)
			before := obj.CallCount("")

			for _, op := range capability.AllOperations {
				if desc.Supports(op) || op == capability.OpConnect || op == capability.OpDisconnect {
					continue
				}
				call, ok := calls[op]
				if !ok {
					t.Fatalf("no call for operation %s", op)
				}
				if err := call(ctx, f); !errors.Is(err, config.ErrUnsupportedOperation) {
					t.Errorf("%s: error = %v, want ErrUnsupportedOperation", op, err)
				}
				if got := obj.CallCount(""); got != before {
					t.Errorf("%s reached the wallet: calls %d -> %d", op, before, got)
				}
			}

			// Without a disconnect capability only local state is cleared.
			if !desc.Supports(capability.OpDisconnect) {
				if err := f.Disconnect(ctx); err != nil {
					t.Errorf("Disconnect() error = %v", err)
				}
				if got := obj.CallCount(""); got != before {
					t.Errorf("disconnect reached the wallet: calls %d -> %d", before, got)
				}
			}
		})
	}
}

func TestObserver_RecordsBroadcast(t *testing.T) {
	rec := &recordingObserver{}
	f := newFacade(bridgetest.NewGlobals().Set("unisat", unisatObject()), rec)
	ctx := context.Background()

	if _, err := f.Connect(ctx, models.WalletUnisat); err != nil {
		t.Fatal(err)
	}
	txid, err := f.SendBitcoin(ctx, segwitAddr, 1000, 3)
	if err != nil || txid != sampleTxID {
		t.Fatalf("SendBitcoin() = %q, %v", txid, err)
	}

	op := rec.last()
	if op.Name != "sendBitcoin" || op.TxID != sampleTxID || op.Wallet != models.WalletUnisat || op.Err != nil {
		t.Errorf("recorded %+v", op)
	}

	if _, err := f.SignMessage(ctx, "hello", models.MessageDefault); err != nil {
		t.Fatal(err)
	}
	if op := rec.last(); op.Name != "signMessage" || op.TxID != "" {
		t.Errorf("signature recorded as txid: %+v", op)
	}
}

func TestBalance_UpdatesSnapshot(t *testing.T) {
	f := newFacade(bridgetest.NewGlobals().Set("unisat", unisatObject()))
	ctx := context.Background()
	if _, err := f.Connect(ctx, models.WalletUnisat); err != nil {
		t.Fatal(err)
	}

	notified := 0
	f.Subscribe(func(Snapshot) { notified++ })
	if _, err := f.Balance(ctx); err != nil {
		t.Fatal(err)
	}
	if notified != 1 {
		t.Errorf("notified %d times, want 1", notified)
	}
}

func TestCapabilities_UnknownWallet(t *testing.T) {
	f := newFacade(bridgetest.NewGlobals())
	if _, err := f.Capabilities("metamask"); !errors.Is(err, config.ErrUnknownWallet) {
		t.Errorf("error = %v, want ErrUnknownWallet", err)
	}
	d, err := f.Capabilities(models.WalletXverse)
	if err != nil || !d.Supports("runes.etch") {
		t.Errorf("xverse descriptor = %v, %v", d.Enabled(), err)
	}
	if _, err := f.Connect(context.Background(), "metamask"); !errors.Is(err, config.ErrUnknownWallet) {
		t.Errorf("Connect(unknown) error = %v", err)
	}
}

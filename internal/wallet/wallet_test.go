package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Fantasim/btcconnect/internal/bridge/bridgetest"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/connector"
	"github.com/Fantasim/btcconnect/internal/models"
)

const (
	taprootAddr = "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr"
	segwitAddr  = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	stacksAddr  = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"
	psbtHex     = "70736274ff01002001000000000100000000000000000d6a0b68656c6c6f20776f726c64000000000000"
	psbtBase64  = "cHNidP8BACABAAAAAAEAAAAAAAAAAA1qC2hlbGxvIHdvcmxkAAAAAAAA"
	sampleTxID  = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
)

// newUnisatObject returns a scripted window.unisat with the required methods.
func newUnisatObject() *bridgetest.Object {
	return bridgetest.NewObject().
		Return("requestAccounts", []string{taprootAddr}).
		Return("getBalance", map[string]int64{"confirmed": 1000, "unconfirmed": 50, "total": 1050}).
		Return("signMessage", "sig==").
		Return("signPsbt", psbtHex)
}

// connectedUnisat returns a connected Unisat adapter and its object.
func connectedUnisat(t *testing.T, opts Options) (*Unisat, *bridgetest.Object) {
	t.Helper()
	obj := newUnisatObject()
	u, err := NewUnisat(obj, opts)
	if err != nil {
		t.Fatalf("NewUnisat() error = %v", err)
	}
	if _, err := u.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return u, obj
}

// pagedInscriptions answers getInscriptions(offset, limit) from a fixed set.
func pagedInscriptions(total int) bridgetest.Handler {
	return func(_ context.Context, args []json.RawMessage) (any, error) {
		var offset, limit int
		if err := json.Unmarshal(args[0], &offset); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(args[1], &limit); err != nil {
			return nil, err
		}
		list := []map[string]any{}
		for i := offset; i < total && i < offset+limit; i++ {
			list = append(list, map[string]any{"inscriptionId": fmt.Sprintf("ins%di0", i)})
		}
		return map[string]any{"total": total, "list": list}, nil
	}
}

func TestUnisat_ConnectAndBalance(t *testing.T) {
	u, obj := connectedUnisat(t, DefaultOptions())

	if u.State() != models.StateConnected || u.Address() != taprootAddr {
		t.Fatalf("state=%s address=%s", u.State(), u.Address())
	}
	accs := u.Accounts()
	if len(accs) != 1 || accs[0].AddressType != models.AddressP2TR {
		t.Errorf("accounts = %+v", accs)
	}

	bal, err := u.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if bal != (models.Balance{Confirmed: 1000, Unconfirmed: 50, Total: 1050}) {
		t.Errorf("Balance() = %+v", bal)
	}
	if obj.CallCount("getBalance") != 1 {
		t.Errorf("getBalance calls = %d", obj.CallCount("getBalance"))
	}
}

func TestBase_NotInstalled(t *testing.T) {
	u, err := NewUnisat(nil, DefaultOptions())
	if err != nil {
		t.Fatalf("NewUnisat(nil) error = %v", err)
	}
	if u.Installed() {
		t.Error("expected not installed")
	}
	if _, err := u.Connect(context.Background()); !errors.Is(err, config.ErrNotInstalled) {
		t.Errorf("Connect() error = %v, want ErrNotInstalled", err)
	}
	if u.State() != models.StateDisconnected {
		t.Errorf("state = %s, want disconnected", u.State())
	}
}

func TestBase_NotConnectedMakesNoCalls(t *testing.T) {
	obj := newUnisatObject()
	u, err := NewUnisat(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := u.Balance(context.Background()); !errors.Is(err, config.ErrNotConnected) {
		t.Errorf("Balance() error = %v, want ErrNotConnected", err)
	}
	if _, err := u.SignPsbt(context.Background(), psbtHex, models.SignPsbtOptions{}); !errors.Is(err, config.ErrNotConnected) {
		t.Errorf("SignPsbt() error = %v, want ErrNotConnected", err)
	}
	if n := obj.CallCount(""); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestBase_CapabilityFalseMakesNoCalls(t *testing.T) {
	u, obj := connectedUnisat(t, DefaultOptions())
	before := obj.CallCount("")

	ctx := context.Background()
	checks := []struct {
		name string
		call func() error
	}{
		{"runes.etch", func() error { _, err := u.EtchRunes(ctx, models.EtchRequest{RuneName: "X"}); return err }},
		{"runes.mint", func() error { _, err := u.MintRunes(ctx, models.MintRequest{RuneName: "X", Repeats: 1}); return err }},
		{"inscriptions.create", func() error {
			_, err := u.CreateInscription(ctx, models.InscriptionRequest{ContentType: "text/plain", Content: "x"})
			return err
		}},
		{"atomicals.balance", func() error { _, err := u.AtomicalsBalance(ctx); return err }},
	}
	for _, c := range checks {
		err := c.call()
		if !errors.Is(err, config.ErrUnsupportedOperation) {
			t.Errorf("%s error = %v, want ErrUnsupportedOperation", c.name, err)
			continue
		}
		if we, ok := config.AsWalletError(err); !ok || we.Op != c.name || we.Wallet != "unisat" {
			t.Errorf("%s error detail = %+v", c.name, we)
		}
	}
	if after := obj.CallCount(""); after != before {
		t.Errorf("unsupported operations reached the wallet: %d calls", after-before)
	}
}

func TestNewUnisat_ShapeValidation(t *testing.T) {
	obj := bridgetest.NewObject().Return("requestAccounts", []string{taprootAddr})
	_, err := NewUnisat(obj, DefaultOptions())
	if !errors.Is(err, config.ErrNotInstalled) {
		t.Fatalf("error = %v, want ErrNotInstalled", err)
	}
	if !strings.Contains(err.Error(), "signPsbt") {
		t.Errorf("error should name missing methods: %v", err)
	}
}

func TestBase_SignPsbtRejected(t *testing.T) {
	u, obj := connectedUnisat(t, DefaultOptions())
	obj.Fail("signPsbt", 4001, "User rejected the request.")

	_, err := u.SignPsbt(context.Background(), psbtHex, models.SignPsbtOptions{InputIndexes: []int{0}})
	if !errors.Is(err, config.ErrUserRejected) {
		t.Fatalf("error = %v, want ErrUserRejected", err)
	}
	we, _ := config.AsWalletError(err)
	if we.Code != 4001 || we.Message != "User rejected the request." {
		t.Errorf("wallet detail lost: %+v", we)
	}
}

func TestBase_SignPsbtBroadcast(t *testing.T) {
	u, obj := connectedUnisat(t, DefaultOptions())
	obj.Return("pushPsbt", sampleTxID)

	signed, err := u.SignPsbt(context.Background(), psbtBase64, models.SignPsbtOptions{Broadcast: true})
	if err != nil {
		t.Fatalf("SignPsbt() error = %v", err)
	}
	if signed.TxID != sampleTxID || signed.PsbtHex != psbtHex {
		t.Errorf("SignPsbt() = %+v", signed)
	}
	if obj.CallCount("pushPsbt") != 1 {
		t.Errorf("pushPsbt calls = %d, want 1", obj.CallCount("pushPsbt"))
	}

	args := obj.LastArgs("signPsbt")
	var opts map[string]any
	if err := json.Unmarshal(args[1], &opts); err != nil {
		t.Fatal(err)
	}
	if opts["autoFinalized"] != true {
		t.Errorf("autoFinalized = %v, want true", opts["autoFinalized"])
	}
}

func TestBase_PushTxValidatesRawTx(t *testing.T) {
	u, obj := connectedUnisat(t, DefaultOptions())
	obj.Fail("pushTx", -25, "bad-txns-inputs-missingorspent")

	_, err := u.PushTx(context.Background(), "00")
	if !errors.Is(err, config.ErrInvalidTx) {
		t.Errorf("invalid raw tx error = %v", err)
	}
	if obj.CallCount("pushTx") != 0 {
		t.Error("invalid tx reached the wallet")
	}
}

func TestBase_SendBitcoinValidatesRecipient(t *testing.T) {
	u, obj := connectedUnisat(t, DefaultOptions())
	obj.Return("sendBitcoin", sampleTxID)

	if _, err := u.SendBitcoin(context.Background(), "nope", 1000, 0); !errors.Is(err, config.ErrInvalidAddress) {
		t.Errorf("error = %v, want ErrInvalidAddress", err)
	}
	if _, err := u.SendBitcoin(context.Background(), segwitAddr, 0, 0); !errors.Is(err, config.ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
	txid, err := u.SendBitcoin(context.Background(), segwitAddr, 1000, 5)
	if err != nil || txid != sampleTxID {
		t.Fatalf("SendBitcoin() = %q, %v", txid, err)
	}
	if obj.CallCount("sendBitcoin") != 1 {
		t.Errorf("sendBitcoin calls = %d", obj.CallCount("sendBitcoin"))
	}
}

func TestBase_Disconnect(t *testing.T) {
	u, obj := connectedUnisat(t, DefaultOptions())
	obj.Return("disconnect", nil)

	if err := u.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if u.State() != models.StateDisconnected || u.Address() != "" || len(u.Accounts()) != 0 {
		t.Errorf("state not reset: %s %q", u.State(), u.Address())
	}
	if obj.CallCount("disconnect") != 1 {
		t.Errorf("disconnect calls = %d", obj.CallCount("disconnect"))
	}
}

func TestAllInscriptions_PageCount(t *testing.T) {
	const pageSize = 5
	tests := []struct {
		total     int
		wantCalls int
	}{
		{0, 1},
		{3, 1},
		{5, 2},
		{13, 3},
		{15, 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("total=%d", tt.total), func(t *testing.T) {
			u, obj := connectedUnisat(t, Options{PageSize: pageSize, MaxPages: 100})
			obj.On("getInscriptions", pagedInscriptions(tt.total))

			got, err := u.AllInscriptions(context.Background())
			if err != nil {
				t.Fatalf("AllInscriptions() error = %v", err)
			}
			if len(got.List) != tt.total {
				t.Errorf("collected %d, want %d", len(got.List), tt.total)
			}
			if got.Truncated {
				t.Error("unexpected truncation")
			}
			if n := obj.CallCount("getInscriptions"); n != tt.wantCalls {
				t.Errorf("requests = %d, want %d", n, tt.wantCalls)
			}
			if got.Pages != tt.wantCalls {
				t.Errorf("pages = %d, want %d", got.Pages, tt.wantCalls)
			}
		})
	}
}

func TestAllInscriptions_SafetyCap(t *testing.T) {
	u, obj := connectedUnisat(t, Options{PageSize: 2, MaxPages: 3})
	obj.On("getInscriptions", pagedInscriptions(1_000_000))

	got, err := u.AllInscriptions(context.Background())
	if err != nil {
		t.Fatalf("AllInscriptions() error = %v", err)
	}
	if !got.Truncated {
		t.Error("expected Truncated")
	}
	if len(got.List) != 6 || got.Pages != 3 {
		t.Errorf("collected %d items over %d pages", len(got.List), got.Pages)
	}
	if n := obj.CallCount("getInscriptions"); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestAllInscriptions_ErrorAborts(t *testing.T) {
	u, obj := connectedUnisat(t, DefaultOptions())
	obj.Fail("getInscriptions", -1, "indexer down")

	if _, err := u.AllInscriptions(context.Background()); !errors.Is(err, config.ErrProviderError) {
		t.Errorf("error = %v, want ErrProviderError", err)
	}
}

func TestPaginate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	fetch := func(context.Context, int, int) (models.InscriptionPage, error) {
		calls++
		return models.InscriptionPage{}, nil
	}
	if _, err := Paginate(ctx, models.WalletUnisat, fetch, 10, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestFactory(t *testing.T) {
	g := bridgetest.NewGlobals().Set("unisat", newUnisatObject())
	factory := NewFactory(DefaultOptions())

	p, err := factory(g, models.WalletUnisat)
	if err != nil {
		t.Fatalf("factory(unisat) error = %v", err)
	}
	if !p.Installed() || p.Name() != models.WalletUnisat {
		t.Errorf("provider = %s installed=%v", p.Name(), p.Installed())
	}

	for _, w := range models.AllWallets {
		p, err := factory(bridgetest.NewGlobals(), w)
		if err != nil {
			t.Fatalf("factory(%s) with no globals error = %v", w, err)
		}
		if p.Installed() {
			t.Errorf("%s reported installed without globals", w)
		}
		if _, err := p.Connect(context.Background()); !errors.Is(err, config.ErrNotInstalled) {
			t.Errorf("%s Connect() error = %v, want ErrNotInstalled", w, err)
		}
	}

	if _, err := factory(g, "metamask"); !errors.Is(err, config.ErrUnknownWallet) {
		t.Errorf("unknown wallet error = %v", err)
	}
}

func TestXverse_RequestTransport(t *testing.T) {
	var lastParams map[string]any
	obj := bridgetest.NewObject().On("request", func(_ context.Context, args []json.RawMessage) (any, error) {
		var method string
		_ = json.Unmarshal(args[0], &method)
		lastParams = nil
		if len(args) > 1 {
			_ = json.Unmarshal(args[1], &lastParams)
		}
		switch method {
		case "getAccounts":
			return map[string]any{"jsonrpc": "2.0", "id": "1", "result": []map[string]any{
				{"address": segwitAddr, "publicKey": "02aa", "purpose": "payment", "addressType": "p2wpkh"},
				{"address": taprootAddr, "publicKey": "bb", "purpose": "ordinals", "addressType": "p2tr"},
			}}, nil
		case "getBalance":
			return map[string]any{"jsonrpc": "2.0", "id": "1", "result": map[string]string{"confirmed": "700", "unconfirmed": "0", "total": "700"}}, nil
		case "signPsbt":
			return map[string]any{"jsonrpc": "2.0", "id": "1", "result": map[string]string{"psbt": psbtBase64}}, nil
		case "ord_getInscriptions":
			return map[string]any{"jsonrpc": "2.0", "id": "1", "result": map[string]any{"total": 1, "inscriptions": []map[string]any{{"id": "i0", "postage": 546}}}}, nil
		}
		return map[string]any{"jsonrpc": "2.0", "id": "1", "error": map[string]any{"code": -32601, "message": "method not found"}}, nil
	})

	x, err := NewXverse(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if x.Conn().Transport() != connector.TransportRequest {
		t.Fatalf("transport = %s", x.Conn().Transport())
	}

	ctx := context.Background()
	if _, err := x.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if x.Address() != taprootAddr || x.PaymentAddress() != segwitAddr {
		t.Errorf("primary=%s payment=%s", x.Address(), x.PaymentAddress())
	}

	bal, err := x.Balance(ctx)
	if err != nil || bal.Total != 700 {
		t.Errorf("Balance() = %+v, %v", bal, err)
	}

	signed, err := x.SignPsbt(ctx, psbtHex, models.SignPsbtOptions{InputIndexes: []int{0}})
	if err != nil || signed.PsbtHex != psbtHex {
		t.Fatalf("SignPsbt() = %+v, %v", signed, err)
	}
	if lastParams["psbt"] != psbtBase64 {
		t.Errorf("psbt param = %v, want base64", lastParams["psbt"])
	}

	page, err := x.Inscriptions(ctx, 0, 500)
	if err != nil || len(page.List) != 1 || *page.List[0].OutputValue != 546 {
		t.Fatalf("Inscriptions() = %+v, %v", page, err)
	}
	if lastParams["limit"] != float64(config.XverseMaxPageSize) {
		t.Errorf("limit = %v, want %d", lastParams["limit"], config.XverseMaxPageSize)
	}

	if _, err := x.Network(ctx); !errors.Is(err, config.ErrProviderError) {
		t.Errorf("envelope error not translated: %v", err)
	}
}

func TestXverse_LegacyTokenFallback(t *testing.T) {
	obj := bridgetest.NewObject().
		On("connect", func(_ context.Context, args []json.RawMessage) (any, error) {
			var token string
			if err := json.Unmarshal(args[0], &token); err != nil {
				return nil, err
			}
			var payload map[string]any
			if err := connector.DecodeUnsecuredToken(token, &payload); err != nil {
				return nil, err
			}
			return map[string]any{"addresses": []map[string]any{
				{"address": taprootAddr, "purpose": "ordinals"},
				{"address": segwitAddr, "purpose": "payment"},
			}}, nil
		}).
		Return("signMessage", "legacy-sig").
		Return("signTransaction", map[string]string{"psbtBase64": psbtBase64})

	x, err := NewXverse(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if x.Conn().Transport() != connector.TransportToken {
		t.Fatalf("transport = %s", x.Conn().Transport())
	}
	ctx := context.Background()
	if _, err := x.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	sig, err := x.SignMessage(ctx, "hello", models.MessageBIP322)
	if err != nil || sig != "legacy-sig" {
		t.Errorf("SignMessage() = %q, %v", sig, err)
	}
	if _, err := x.RunesBalance(ctx); !errors.Is(err, config.ErrUnsupportedOperation) {
		t.Errorf("RunesBalance() on legacy = %v", err)
	}
}

func TestXverse_CreateInscriptionUsesToken(t *testing.T) {
	var payload map[string]any
	obj := bridgetest.NewObject().
		Return("request", map[string]any{"jsonrpc": "2.0", "id": "1", "result": []string{taprootAddr}}).
		On("createInscription", func(_ context.Context, args []json.RawMessage) (any, error) {
			var token string
			_ = json.Unmarshal(args[0], &token)
			if err := connector.DecodeUnsecuredToken(token, &payload); err != nil {
				return nil, err
			}
			return map[string]string{"txId": sampleTxID}, nil
		})

	x, err := NewXverse(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := x.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := x.CreateInscription(ctx, models.InscriptionRequest{ContentType: "text/plain", Content: "gm"})
	if err != nil {
		t.Fatalf("CreateInscription() error = %v", err)
	}
	if res.TxID != sampleTxID {
		t.Errorf("txid = %q", res.TxID)
	}
	if payload["payloadType"] != "PLAIN_TEXT" || payload["content"] != "gm" {
		t.Errorf("token payload = %v", payload)
	}
}

func TestOKX_Connect(t *testing.T) {
	obj := bridgetest.NewObject().
		Return("connect", map[string]string{"address": segwitAddr, "publicKey": "02ab", "compressedPublicKey": "02ab"}).
		Return("getBalance", 42).
		Return("signMessage", "s").
		Return("signPsbt", psbtHex).
		Return("pushTx", sampleTxID)

	o, err := NewOKX(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if o.Address() != segwitAddr || o.PublicKey() != "02ab" {
		t.Errorf("address=%s pubkey=%s", o.Address(), o.PublicKey())
	}
	if err := o.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if obj.CallCount("disconnect") != 0 {
		t.Error("okx has no disconnect and should not be called")
	}
}

func TestLeather_ConnectWithStacks(t *testing.T) {
	obj := bridgetest.NewObject().On("request", func(_ context.Context, args []json.RawMessage) (any, error) {
		return map[string]any{"jsonrpc": "2.0", "id": "x", "result": map[string]any{"addresses": []map[string]any{
			{"symbol": "BTC", "type": "p2wpkh", "address": segwitAddr, "publicKey": "02aa"},
			{"symbol": "BTC", "type": "p2tr", "address": taprootAddr, "publicKey": "cc"},
			{"symbol": "STX", "address": stacksAddr},
		}}}, nil
	})

	l, err := NewLeather(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if l.Address() != taprootAddr || l.PublicKey() != "cc" {
		t.Errorf("primary = %s / %s", l.Address(), l.PublicKey())
	}
	if l.StacksAddress() != stacksAddr {
		t.Errorf("stacks = %q", l.StacksAddress())
	}
	if _, err := l.Balance(context.Background()); !errors.Is(err, config.ErrUnsupportedOperation) {
		t.Errorf("Balance() error = %v", err)
	}
}

func TestPhantom_Conflict(t *testing.T) {
	obj := bridgetest.NewObject().
		SetProp("isMagicEden", true).
		Return("requestAccounts", []map[string]string{{"address": taprootAddr}}).
		Return("signMessage", nil).
		Return("signPSBT", nil)

	p, err := NewPhantom(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Connect(context.Background())
	if !errors.Is(err, config.ErrWalletConflict) {
		t.Fatalf("error = %v, want ErrWalletConflict", err)
	}
	if !strings.Contains(err.Error(), "Magic Eden") {
		t.Errorf("error should name the extension: %v", err)
	}
	if obj.CallCount("") != 0 {
		t.Error("conflicting object was called")
	}
}

func TestPhantom_SignsWithBytes(t *testing.T) {
	obj := bridgetest.NewObject().
		SetProp("isPhantom", true).
		Return("requestAccounts", []map[string]string{
			{"address": taprootAddr, "addressType": "p2tr", "purpose": "ordinals", "publicKey": "aa"},
			{"address": segwitAddr, "addressType": "p2wpkh", "purpose": "payment", "publicKey": "bb"},
		}).
		Return("signMessage", map[string]any{"signature": []int{1, 2, 3}}).
		Return("signPSBT", map[string]string{"$bytes": psbtBase64})

	p, err := NewPhantom(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := p.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	sig, err := p.SignMessage(ctx, "hi", models.MessageDefault)
	if err != nil || sig != "AQID" {
		t.Errorf("SignMessage() = %q, %v", sig, err)
	}
	args := obj.LastArgs("signMessage")
	if !strings.Contains(string(args[1]), `"$bytes":"aGk="`) {
		t.Errorf("message not sent as bytes: %s", args[1])
	}

	signed, err := p.SignPsbt(ctx, psbtHex, models.SignPsbtOptions{InputIndexes: []int{0}})
	if err != nil || signed.PsbtHex != psbtHex {
		t.Errorf("SignPsbt() = %+v, %v", signed, err)
	}
}

func TestMagicEden_TokenTransport(t *testing.T) {
	decode := func(raw json.RawMessage) map[string]any {
		var token string
		_ = json.Unmarshal(raw, &token)
		var payload map[string]any
		if err := connector.DecodeUnsecuredToken(token, &payload); err != nil {
			t.Fatalf("decode token: %v", err)
		}
		return payload
	}

	var sendPayload map[string]any
	obj := bridgetest.NewObject().
		Return("connect", map[string]any{"addresses": []map[string]string{
			{"address": taprootAddr, "purpose": "ordinals"},
			{"address": segwitAddr, "purpose": "payment"},
		}}).
		Return("signMessage", "me-sig").
		Return("signTransaction", map[string]string{"psbtBase64": psbtBase64, "txId": sampleTxID}).
		On("sendBtcTransaction", func(_ context.Context, args []json.RawMessage) (any, error) {
			sendPayload = decode(args[0])
			return sampleTxID, nil
		})

	m, err := NewMagicEden(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got := decode(obj.LastArgs("connect")[0]); got["purposes"] == nil {
		t.Errorf("connect payload = %v", got)
	}

	signed, err := m.SignPsbt(ctx, psbtHex, models.SignPsbtOptions{Broadcast: true})
	if err != nil || signed.TxID != sampleTxID {
		t.Fatalf("SignPsbt() = %+v, %v", signed, err)
	}

	txid, err := m.SendBitcoin(ctx, segwitAddr, 1500, 0)
	if err != nil || txid != sampleTxID {
		t.Fatalf("SendBitcoin() = %q, %v", txid, err)
	}
	if sendPayload["senderAddress"] != segwitAddr {
		t.Errorf("senderAddress = %v", sendPayload["senderAddress"])
	}
}

func TestOYL_ConnectAndSign(t *testing.T) {
	obj := bridgetest.NewObject().
		Return("getAddresses", map[string]any{
			"taproot":      map[string]string{"address": taprootAddr, "publicKey": "aa"},
			"nativeSegwit": map[string]string{"address": segwitAddr, "publicKey": "bb"},
		}).
		Return("signMessage", map[string]string{"signature": "oyl-sig"}).
		Return("signPsbt", map[string]string{"psbt": psbtHex, "txid": sampleTxID})

	o, err := NewOYL(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := o.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if o.Address() != taprootAddr {
		t.Errorf("primary = %s", o.Address())
	}

	signed, err := o.SignPsbt(ctx, psbtHex, models.SignPsbtOptions{Broadcast: true})
	if err != nil || signed.TxID != sampleTxID {
		t.Fatalf("SignPsbt() = %+v, %v", signed, err)
	}
	var params map[string]any
	_ = json.Unmarshal(obj.LastArgs("signPsbt")[0], &params)
	if params["psbt"] != psbtHex || params["broadcast"] != true || params["finalize"] != true {
		t.Errorf("signPsbt params = %v", params)
	}
}

func TestWizz_Atomicals(t *testing.T) {
	obj := bridgetest.NewObject().
		Return("requestAccounts", []string{taprootAddr}).
		Return("getBalance", 0).
		Return("signMessage", "s").
		Return("signPsbt", psbtHex).
		Return("getAssets", map[string]any{"atomicals": []map[string]any{{"atomicalId": "a1", "ticker": "atom", "amount": 1000}}}).
		Return("sendARC20", sampleTxID)

	w, err := NewWizz(obj, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := w.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	bals, err := w.AtomicalsBalance(ctx)
	if err != nil || len(bals) != 1 || bals[0].Amount != 1000 {
		t.Errorf("AtomicalsBalance() = %+v, %v", bals, err)
	}
	txid, err := w.SendAtomicals(ctx, segwitAddr, "atom", 546, 3)
	if err != nil || txid != sampleTxID {
		t.Errorf("SendAtomicals() = %q, %v", txid, err)
	}
}

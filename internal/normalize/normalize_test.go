package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

func TestBalance_Shapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.Balance
	}{
		{"bare integer", `3690`, models.Balance{Confirmed: 3690, Unconfirmed: 0, Total: 3690}},
		{"numeric string", `"3690"`, models.Balance{Confirmed: 3690, Total: 3690}},
		{"confirm/pending", `{"confirm":100,"pending":50}`, models.Balance{Confirmed: 100, Unconfirmed: 50, Total: 150}},
		{"confirmed/unconfirmed", `{"confirmed":"7","unconfirmed":"3","total":"999"}`, models.Balance{Confirmed: 7, Unconfirmed: 3, Total: 10}},
		{"amount only", `{"amount":42}`, models.Balance{Confirmed: 42, Total: 42}},
		{"total only", `{"total":500}`, models.Balance{Confirmed: 500, Total: 500}},
		{"total and unconfirmed", `{"total":150,"unconfirmed":50}`, models.Balance{Confirmed: 100, Unconfirmed: 50, Total: 150}},
		{"unconfirmed above total", `{"total":10,"pending":40}`, models.Balance{Confirmed: 0, Unconfirmed: 40, Total: 40}},
		{"nested balance", `{"balance":{"confirmed":1,"unconfirmed":2}}`, models.Balance{Confirmed: 1, Unconfirmed: 2, Total: 3}},
		{"btc fraction", `{"confirmed":0.0001}`, models.Balance{Confirmed: 10000, Total: 10000}},
		{"empty object", `{}`, models.Balance{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Balance(json.RawMessage(tt.raw), models.WalletUnisat)
			if err != nil {
				t.Fatalf("Balance() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Balance() = %+v, want %+v", got, tt.want)
			}
			if got.Total != got.Confirmed+got.Unconfirmed {
				t.Errorf("total %d != confirmed+unconfirmed", got.Total)
			}
		})
	}
}

func TestBalance_Idempotent(t *testing.T) {
	inputs := []string{`3690`, `{"confirm":100,"pending":50}`, `{"total":12}`, `{"confirmed":"0.5"}`}

	for _, in := range inputs {
		once, err := Balance(json.RawMessage(in), models.WalletOKX)
		if err != nil {
			t.Fatalf("Balance(%s) error = %v", in, err)
		}
		encoded, _ := json.Marshal(once)
		twice, err := Balance(encoded, models.WalletOKX)
		if err != nil {
			t.Fatalf("Balance(%s) error = %v", encoded, err)
		}
		if once != twice {
			t.Errorf("not idempotent for %s: %+v then %+v", in, once, twice)
		}
	}
}

func TestBalance_Malformed(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `true`, `"abc"`, `null`} {
		_, err := Balance(json.RawMessage(raw), models.WalletWizz)
		if !errors.Is(err, config.ErrMalformedResponse) {
			t.Errorf("Balance(%s) error = %v, want ErrMalformedResponse", raw, err)
		}
	}
}

func TestSatoshis(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1", 1},
		{"100000000", 100000000},
		{"0.00000001", 1},
		{"1.5", 150000000},
	}
	for _, tt := range tests {
		if got := Satoshis(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("Satoshis(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBTCToSatoshis_RoundTrip(t *testing.T) {
	sats, err := BTCToSatoshis("0.00012345")
	if err != nil {
		t.Fatalf("BTCToSatoshis() error = %v", err)
	}
	if sats != 12345 {
		t.Errorf("sats = %d, want 12345", sats)
	}
	if got := SatoshisToBTC(sats); got != "0.00012345" {
		t.Errorf("SatoshisToBTC() = %q", got)
	}
	if _, err := BTCToSatoshis("lots"); err == nil {
		t.Error("expected error for non-numeric input")
	}
}

func TestInscription_XverseRemap(t *testing.T) {
	raw := `{"id":"abc i0","number":7,"postage":546,"output":"deadbeef:1","offset":0,"collectionName":"x","content_type":"text/plain"}`
	ins, err := Inscription(json.RawMessage(raw), models.WalletXverse)
	if err != nil {
		t.Fatalf("Inscription() error = %v", err)
	}
	if ins.InscriptionID != "abc i0" {
		t.Errorf("id = %q", ins.InscriptionID)
	}
	if ins.OutputValue == nil || *ins.OutputValue != 546 {
		t.Errorf("outputValue = %v, want 546", ins.OutputValue)
	}
	if ins.Location != "deadbeef:1:0" {
		t.Errorf("location = %q", ins.Location)
	}
	if ins.ContentType != "text/plain" {
		t.Errorf("contentType = %q", ins.ContentType)
	}
	if ins.InscriptionNumber == nil || *ins.InscriptionNumber != 7 {
		t.Errorf("number = %v", ins.InscriptionNumber)
	}
}

func TestInscription_OKXOutputFromLocation(t *testing.T) {
	raw := `{"inscriptionId":"i1","outputValue":"546","location":"tx:2:100"}`
	ins, err := Inscription(json.RawMessage(raw), models.WalletOKX)
	if err != nil {
		t.Fatalf("Inscription() error = %v", err)
	}
	if ins.Output != "tx:2" {
		t.Errorf("output = %q, want tx:2", ins.Output)
	}
	if ins.OutputValue == nil || *ins.OutputValue != 546 {
		t.Errorf("outputValue = %v", ins.OutputValue)
	}
}

func TestInscription_AbsentFieldsStayUnset(t *testing.T) {
	ins, err := Inscription(json.RawMessage(`{"inscriptionId":"only"}`), models.WalletUnisat)
	if err != nil {
		t.Fatalf("Inscription() error = %v", err)
	}
	if ins.InscriptionNumber != nil || ins.OutputValue != nil || ins.Timestamp != nil || ins.Offset != nil {
		t.Errorf("expected nil optional fields, got %+v", ins)
	}
	if _, err := Inscription(json.RawMessage(`{"number":1}`), models.WalletUnisat); !errors.Is(err, config.ErrMalformedResponse) {
		t.Errorf("missing id error = %v", err)
	}
}

func TestInscriptionPage(t *testing.T) {
	page, err := InscriptionPage(json.RawMessage(`{"total":40,"list":[{"inscriptionId":"a"},{"inscriptionId":"b"}]}`), models.WalletUnisat)
	if err != nil {
		t.Fatalf("InscriptionPage() error = %v", err)
	}
	if page.Total != 40 || len(page.List) != 2 {
		t.Errorf("page = %+v", page)
	}

	page, err = InscriptionPage(json.RawMessage(`[{"id":"a"}]`), models.WalletXverse)
	if err != nil {
		t.Fatalf("InscriptionPage() error = %v", err)
	}
	if page.Total != 1 {
		t.Errorf("total = %d, want 1", page.Total)
	}

	if _, err := InscriptionPage(json.RawMessage(`{"foo":1}`), models.WalletOKX); !errors.Is(err, config.ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestNetwork(t *testing.T) {
	tests := []struct {
		in   string
		want models.Network
	}{
		{"livenet", models.NetworkLivenet},
		{"Mainnet", models.NetworkLivenet},
		{"testnet", models.NetworkTestnet},
		{"Testnet4", models.NetworkTestnet},
		{"signet", models.NetworkLivenet},
		{"", models.NetworkLivenet},
	}
	for _, tt := range tests {
		if got := Network(tt.in); got != tt.want {
			t.Errorf("Network(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNetworkValue(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Network
	}{
		{`"testnet"`, models.NetworkTestnet},
		{`{"network":"livenet"}`, models.NetworkLivenet},
		{`{"bitcoin":{"name":"Testnet"}}`, models.NetworkTestnet},
	}
	for _, tt := range tests {
		got, err := NetworkValue(json.RawMessage(tt.raw), models.WalletXverse)
		if err != nil {
			t.Fatalf("NetworkValue(%s) error = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("NetworkValue(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
	if _, err := NetworkValue(json.RawMessage(`[]`), models.WalletXverse); err == nil {
		t.Error("expected error for array")
	}
}

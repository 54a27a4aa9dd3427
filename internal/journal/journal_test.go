package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/db"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/models"
)

func setupJournal(t *testing.T) (*Journal, *db.DB) {
	t.Helper()
	d, err := db.New(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	if err := d.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return New(d), d
}

func TestActivity(t *testing.T) {
	tests := []struct {
		name       string
		op         facade.Operation
		wantStatus string
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "success",
			op:         facade.Operation{Wallet: models.WalletXverse, Name: "sendBitcoin", TxID: "ff00", Duration: 1500 * time.Millisecond},
			wantStatus: models.ActivityOK,
		},
		{
			name:       "wallet error keeps wallet message",
			op:         facade.Operation{Wallet: models.WalletUnisat, Name: "signPsbt", Err: config.NewWalletError("unisat", "signPsbt", config.ErrUserRejected, "User rejected the request.")},
			wantStatus: models.ActivityError,
			wantCode:   config.ErrorUserRejected,
			wantMsg:    "User rejected the request.",
		},
		{
			name:       "plain error",
			op:         facade.Operation{Wallet: models.WalletOKX, Name: "getBalance", Err: errors.New("boom")},
			wantStatus: models.ActivityError,
			wantCode:   config.ErrorInternal,
			wantMsg:    "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Activity(tt.op)
			if a.Status != tt.wantStatus || a.ErrorCode != tt.wantCode || a.Message != tt.wantMsg {
				t.Errorf("Activity() = %+v", a)
			}
			if a.DurationMs != tt.op.Duration.Milliseconds() {
				t.Errorf("DurationMs = %d", a.DurationMs)
			}
		})
	}
}

func TestObserve_WritesAndRemembersWallet(t *testing.T) {
	j, d := setupJournal(t)
	ctx := context.Background()

	j.Observe(ctx, facade.Operation{Wallet: models.WalletLeather, Name: "connect", Address: "bc1qexample"})
	j.Observe(ctx, facade.Operation{Wallet: models.WalletLeather, Name: "pushTx", TxID: "aa"})

	rows, err := d.ListActivity(ctx, db.ActivityFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Address != "bc1qexample" || rows[0].TxID != "aa" {
		t.Errorf("rows = %+v", rows)
	}

	last, _ := d.GetSetting(ctx, db.SettingLastWallet)
	if last != "leather" {
		t.Errorf("last wallet = %q, want leather", last)
	}

	j.Observe(ctx, facade.Operation{Wallet: models.WalletLeather, Name: "disconnect"})
	last, _ = d.GetSetting(ctx, db.SettingLastWallet)
	if last != "" {
		t.Errorf("last wallet after disconnect = %q", last)
	}
}

func TestObserve_SkipsGuardErrors(t *testing.T) {
	j, d := setupJournal(t)
	ctx := context.Background()

	j.Observe(ctx, facade.Operation{Wallet: models.WalletPhantom, Name: "runes.etch", Err: config.Unsupported("phantom", "runes.etch")})
	j.Observe(ctx, facade.Operation{Name: "getBalance", Err: config.ErrNoWalletConnected})

	rows, _ := d.ListActivity(ctx, db.ActivityFilter{})
	if len(rows) != 0 {
		t.Errorf("journaled %d guard failures", len(rows))
	}
}

func TestObserve_FailedConnectKeepsLastWallet(t *testing.T) {
	j, d := setupJournal(t)
	ctx := context.Background()

	j.Observe(ctx, facade.Operation{Wallet: models.WalletWizz, Name: "connect"})
	j.Observe(ctx, facade.Operation{Wallet: models.WalletOYL, Name: "connect", Err: config.NewWalletError("oyl", "connect", config.ErrUserRejected, "")})

	last, _ := d.GetSetting(ctx, db.SettingLastWallet)
	if last != "wizz" {
		t.Errorf("last wallet = %q, want wizz", last)
	}
}

func TestObserve_CancelledContextStillWrites(t *testing.T) {
	j, d := setupJournal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j.Observe(ctx, facade.Operation{Wallet: models.WalletMagicEden, Name: "signMessage"})

	rows, _ := d.ListActivity(context.Background(), db.ActivityFilter{})
	if len(rows) != 1 {
		t.Errorf("len = %d, want 1", len(rows))
	}
}

// Package journal records facade operations in the activity table.
package journal

import (
	"context"
	"log/slog"

	"github.com/Fantasim/btcconnect/internal/capability"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/db"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/models"
)

// Store is the subset of *db.DB the journal writes to.
type Store interface {
	InsertActivity(ctx context.Context, a models.Activity) (int64, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Journal implements facade.Observer.
type Journal struct {
	store Store
}

var _ facade.Observer = (*Journal)(nil)

// New returns a Journal writing to store.
func New(store Store) *Journal {
	return &Journal{store: store}
}

// Observe appends op to the activity log. Guard failures never reached a
// wallet and are not journaled. Write failures are logged, never returned.
func (j *Journal) Observe(ctx context.Context, op facade.Operation) {
	if op.Err != nil && config.IsGuardError(op.Err) {
		return
	}

	ctx = context.WithoutCancel(ctx)
	a := Activity(op)
	if _, err := j.store.InsertActivity(ctx, a); err != nil {
		slog.Error("journal write failed",
			"wallet", op.Wallet,
			"operation", op.Name,
			"error", err,
		)
		return
	}

	if op.Err != nil {
		return
	}
	switch op.Name {
	case capability.OpConnect:
		j.remember(ctx, string(op.Wallet))
	case capability.OpDisconnect:
		j.remember(ctx, "")
	}
}

func (j *Journal) remember(ctx context.Context, wallet string) {
	if err := j.store.SetSetting(ctx, db.SettingLastWallet, wallet); err != nil {
		slog.Warn("failed to persist last wallet", "wallet", wallet, "error", err)
	}
}

// Activity converts an observed operation to its journal row.
func Activity(op facade.Operation) models.Activity {
	a := models.Activity{
		Wallet:     op.Wallet,
		Operation:  op.Name,
		Status:     models.ActivityOK,
		TxID:       op.TxID,
		Address:    op.Address,
		DurationMs: op.Duration.Milliseconds(),
	}
	if op.Err != nil {
		a.Status = models.ActivityError
		a.ErrorCode = config.ErrorCode(op.Err)
		a.Message = op.Err.Error()
		if we, ok := config.AsWalletError(op.Err); ok && we.Message != "" {
			a.Message = we.Message
		}
	}
	return a
}

package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

// ActivityFilter narrows ListActivity. Zero values match everything.
type ActivityFilter struct {
	Wallet    models.WalletType
	Operation string
	Status    string
	Limit     int
}

// InsertActivity appends one journal row and returns its ID.
func (d *DB) InsertActivity(ctx context.Context, a models.Activity) (int64, error) {
	slog.Debug("inserting activity",
		"wallet", a.Wallet,
		"operation", a.Operation,
		"status", a.Status,
		"txid", a.TxID,
	)

	result, err := d.conn.ExecContext(ctx,
		`INSERT INTO activity (wallet, operation, status, txid, address, error_code, message, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.Wallet),
		a.Operation,
		a.Status,
		a.TxID,
		a.Address,
		a.ErrorCode,
		a.Message,
		a.DurationMs,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert activity: %v", config.ErrDatabase, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: get last insert id: %v", config.ErrDatabase, err)
	}
	return id, nil
}

// ListActivity returns journal rows newest first.
func (d *DB) ListActivity(ctx context.Context, f ActivityFilter) ([]models.Activity, error) {
	limit := f.Limit
	if limit <= 0 || limit > config.HistoryLimit {
		limit = config.HistoryLimit
	}

	var where []string
	var args []any
	if f.Wallet != "" {
		where = append(where, "wallet = ?")
		args = append(args, string(f.Wallet))
	}
	if f.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, f.Operation)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT id, wallet, operation, status, txid, address, error_code, message, duration_ms, created_at
	          FROM activity`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query activity: %v", config.ErrDatabase, err)
	}
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(
			&a.ID, &a.Wallet, &a.Operation, &a.Status, &a.TxID,
			&a.Address, &a.ErrorCode, &a.Message, &a.DurationMs, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan activity row: %v", config.ErrDatabase, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate activity rows: %v", config.ErrDatabase, err)
	}

	slog.Debug("activity listed", "count", len(out), "wallet", f.Wallet)
	return out, nil
}

// ActivityByTxID returns every journal row that produced txid.
func (d *DB) ActivityByTxID(ctx context.Context, txid string) ([]models.Activity, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, wallet, operation, status, txid, address, error_code, message, duration_ms, created_at
		 FROM activity WHERE txid = ? ORDER BY id`,
		txid,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query activity by txid: %v", config.ErrDatabase, err)
	}
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(
			&a.ID, &a.Wallet, &a.Operation, &a.Status, &a.TxID,
			&a.Address, &a.ErrorCode, &a.Message, &a.DurationMs, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan activity row: %v", config.ErrDatabase, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PruneActivity deletes rows older than the given number of days.
func (d *DB) PruneActivity(ctx context.Context, olderThanDays int) (int64, error) {
	res, err := d.conn.ExecContext(ctx,
		"DELETE FROM activity WHERE created_at < strftime('%Y-%m-%dT%H:%M:%fZ', 'now', ?)",
		fmt.Sprintf("-%d days", olderThanDays),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: prune activity: %v", config.ErrDatabase, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("activity pruned", "rows", n, "olderThanDays", olderThanDays)
	}
	return n, nil
}

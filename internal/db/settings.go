package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Setting keys.
const (
	SettingLastWallet = "last_wallet"
	SettingNetwork    = "network"
)

var defaultSettings = map[string]string{
	SettingLastWallet: "",
	SettingNetwork:    "livenet",
}

// GetSetting retrieves a single setting value by key, returning the default if not set.
func (d *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		if defVal, ok := defaultSettings[key]; ok {
			return defVal, nil
		}
	}
	return "", fmt.Errorf("get setting %q: %w", key, err)
}

// SetSetting upserts a setting key-value pair.
func (d *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}

	slog.Debug("setting updated", "key", key, "value", value)
	return nil
}

// GetAllSettings retrieves all settings, filling in defaults for missing keys.
func (d *DB) GetAllSettings(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string, len(defaultSettings))
	for k, v := range defaultSettings {
		result[k] = v
	}

	rows, err := d.conn.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setting rows: %w", err)
	}
	return result, nil
}

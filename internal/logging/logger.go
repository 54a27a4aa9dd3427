// Package logging configures the process-wide slog logger. Records are JSON,
// mirrored to stdout and to one file per day.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fantasim/btcconnect/internal/config"
)

const dayLayout = "2006-01-02"

// payloadKeys carry wallet payloads that can run to kilobytes. Only a prefix
// is logged.
var payloadKeys = map[string]bool{
	"psbt":      true,
	"psbtHex":   true,
	"rawTx":     true,
	"signature": true,
	"token":     true,
}

const payloadPreview = 16

// Setup makes a JSON logger at levelStr the default, writing to stdout and
// to today's file in logDir. Files older than config.LogMaxAgeDays are
// pruned. Close the returned io.Closer on shutdown.
func Setup(levelStr, logDir string) (io.Closer, error) {
	level, err := parseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", levelStr, err)
	}

	file, err := openDayFile(logDir, time.Now())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(NewHandler(io.MultiWriter(os.Stdout, file), level)))
	slog.Info("logging initialized", "level", level.String(), "file", file.Name())

	if n := CleanOldLogs(logDir, config.LogMaxAgeDays); n > 0 {
		slog.Info("pruned log files", "removed", n, "maxAgeDays", config.LogMaxAgeDays)
	}
	return file, nil
}

func openDayFile(dir string, day time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf(config.LogFilePattern, day.Format(dayLayout)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %q: %w", path, err)
	}
	return f, nil
}

// NewHandler is the JSON handler shared by the server and the wasm build.
// Durations print as "1.5s" and wallet payload attributes are clipped.
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch {
	case a.Value.Kind() == slog.KindDuration:
		return slog.String(a.Key, a.Value.Duration().String())
	case payloadKeys[a.Key] && a.Value.Kind() == slog.KindString:
		if s := a.Value.String(); len(s) > payloadPreview {
			return slog.String(a.Key, fmt.Sprintf("%s...(%d chars)", s[:payloadPreview], len(s)))
		}
	}
	return a
}

// CleanOldLogs removes daily log files whose date stamp is more than
// maxAgeDays in the past and reports how many went. Files that do not follow
// config.LogFilePattern are left alone.
func CleanOldLogs(logDir string, maxAgeDays int) int {
	prefix, suffix, _ := strings.Cut(config.LogFilePattern, "%s")
	matches, err := filepath.Glob(filepath.Join(logDir, prefix+"*"+suffix))
	if err != nil {
		slog.Warn("log cleanup glob failed", "logDir", logDir, "error", err)
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	removed := 0
	for _, path := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix), suffix)
		day, err := time.ParseInLocation(dayLayout, stamp, time.Local)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to remove old log file", "file", path, "error", err)
			continue
		}
		removed++
	}
	return removed
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	switch strings.ToLower(s) {
	case "warning":
		return slog.LevelWarn, nil
	case "debug", "info", "warn", "error":
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return slog.LevelInfo, err
		}
		return level, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

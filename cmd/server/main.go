package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/Fantasim/btcconnect/internal/api"
	"github.com/Fantasim/btcconnect/internal/bridge/relay"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/db"
	"github.com/Fantasim/btcconnect/internal/events"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/journal"
	"github.com/Fantasim/btcconnect/internal/logging"
	"github.com/Fantasim/btcconnect/internal/metrics"
	"github.com/Fantasim/btcconnect/internal/models"
	"github.com/Fantasim/btcconnect/internal/wallet"
	"github.com/Fantasim/btcconnect/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "history":
		if err := runHistory(); err != nil {
			slog.Error("history error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("btcconnect %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: btcconnect <command>

Commands:
  serve     Start the wallet gateway and relay page
  history   Print the wallet activity journal as JSON
  version   Print version information
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	api.Version = version

	slog.Info("starting btcconnect",
		"version", version,
		"network", cfg.Network,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
		"logLevel", cfg.LogLevel,
	)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	pruned, err := database.PruneActivity(context.Background(), config.LogMaxAgeDays)
	if err != nil {
		slog.Warn("failed to prune activity journal", "error", err)
	}
	slog.Info("database ready", "path", cfg.DBPath, "prunedActivity", pruned)

	hub := events.NewHub()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	rec := metrics.New()
	bridge := relay.New(cfg.RelayOrigins)
	defer bridge.Close()

	opts := wallet.Options{
		PageSize: cfg.InscriptionPageSize,
		MaxPages: cfg.MaxInscriptionPages,
	}
	f := facade.New(bridge, wallet.NewFactory(opts), journal.New(database), rec, hub)
	f.Subscribe(hub.OnState)
	f.Subscribe(rec.OnState)

	slog.Info("wallet facade initialized",
		"wallets", len(models.AllWallets),
		"inscriptionPageSize", opts.PageSize,
		"maxInscriptionPages", opts.MaxPages,
	)

	staticFS, err := fs.Sub(web.RelayFiles, "relay")
	if err != nil {
		return fmt.Errorf("failed to access embedded relay page: %w", err)
	}

	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Facade:  f,
		Hub:     hub,
		Store:   database,
		Bridge:  bridge,
		Metrics: rec,
		Static:  staticFS,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    config.ServerReadTimeout,
		WriteTimeout:   config.ServerWriteTimeout,
		IdleTimeout:    config.ServerIdleTimeout,
		MaxHeaderBytes: config.ServerMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", addr, "relayPage", "http://"+addr+"/")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	// Drop the wallet session while the page is still attached so the
	// provider's disconnect call can reach it.
	if err := f.Disconnect(ctx); err != nil {
		slog.Warn("disconnect on shutdown failed", "error", err)
	}

	hubCancel()
	bridge.Close()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func runHistory() error {
	flags := flag.NewFlagSet("history", flag.ExitOnError)
	dbPath := flags.String("db", "", "Database path (default: from BTCCONNECT_DB_PATH or ./data/btcconnect.sqlite)")
	walletName := flags.String("wallet", "", "Only show activity for this wallet")
	operation := flags.String("op", "", "Only show this operation (e.g. signPsbt, runes.transfer)")
	status := flags.String("status", "", "Only show ok or error rows")
	limit := flags.Int("limit", config.HistoryLimit, "Maximum number of rows")
	flags.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if *walletName != "" && !slices.Contains(models.AllWallets, models.WalletType(*walletName)) {
		return fmt.Errorf("%w: %q", config.ErrUnknownWallet, *walletName)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	rows, err := database.ListActivity(context.Background(), db.ActivityFilter{
		Wallet:    models.WalletType(*walletName),
		Operation: *operation,
		Status:    *status,
		Limit:     *limit,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

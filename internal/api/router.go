package api

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/btcconnect/internal/api/handlers"
	"github.com/Fantasim/btcconnect/internal/api/middleware"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/events"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/metrics"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Bridge is the relay endpoint the browser page attaches to.
type Bridge interface {
	http.Handler
	handlers.BridgeStatus
}

// Store is the journal database as the API sees it.
type Store interface {
	handlers.HistoryStore
	handlers.Pinger
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config  *config.Config
	Facade  *facade.Facade
	Hub     *events.Hub
	Store   Store
	Bridge  Bridge
	Metrics *metrics.Recorder
	Static  fs.FS // relay page assets
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)
	r.Use(middleware.HostCheck)
	r.Use(middleware.CORS(d.Config.RelayOrigins))
	r.Use(middleware.CSRF)

	slog.Info("router initialized",
		"middleware", []string{"requestLogging", "hostCheck", "cors", "csrf"},
	)

	var onThrottle func(string)
	if d.Metrics != nil {
		onThrottle = d.Metrics.Throttled
	}
	prompts := middleware.NewPromptLimiter(d.Config.PromptRateLimit, d.Config.PromptRateBurst, onThrottle)

	f := d.Facade
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health(d.Config, Version, d.Bridge, d.Store, f))
		r.Get("/wallets", handlers.ListWallets(f))
		r.Get("/capabilities", handlers.GetCapabilities(f))
		r.Get("/bridge/paths", handlers.BridgePaths())
		r.Get("/state", handlers.GetState(f))
		r.Get("/events", handlers.Events(d.Hub, f, config.SSEKeepAliveInterval))
		r.Get("/history", handlers.History(d.Store))
		r.Get("/settings", handlers.GetSettings(d.Store, d.Config.Network))

		r.Get("/accounts", handlers.GetAccounts(f))
		r.Get("/balance", handlers.GetBalance(f))
		r.Get("/network", handlers.GetNetwork(f))
		r.Get("/inscriptions", handlers.ListInscriptions(f, d.Config.InscriptionPageSize))
		r.Get("/inscriptions/all", handlers.AllInscriptions(f))
		r.Post("/disconnect", handlers.Disconnect(f))

		// Everything below can open a wallet popup.
		r.Group(func(r chi.Router) {
			r.Use(prompts.Limit)
			r.Post("/connect", handlers.Connect(f))
			r.Post("/network", handlers.SwitchNetwork(f))
			r.Post("/sign-message", handlers.SignMessage(f))
			r.Post("/sign-psbt", handlers.SignPsbt(f))
			r.Post("/sign-psbts", handlers.SignPsbts(f))
			r.Post("/send-bitcoin", handlers.SendBitcoin(f))
			r.Post("/push-psbt", handlers.PushPsbt(f))
			r.Post("/push-tx", handlers.PushTx(f))
			r.Post("/protocol/{op}", handlers.Protocol(f))
		})
	})

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	r.Handle("/bridge/ws", d.Bridge)

	if d.Static != nil {
		r.Get("/*", handlers.RelayPage(d.Static))
	}

	return r
}

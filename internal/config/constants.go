package config

import "time"

// Inscription pagination
const (
	InscriptionPageSize = 20
	MaxInscriptionPages = 100
	XverseMaxPageSize   = 60
)

// Wallet bridge
const (
	BridgeHelloTimeout    = 10 * time.Second
	BridgeWriteTimeout    = 10 * time.Second
	BridgePingInterval    = 30 * time.Second
	BridgePongWait        = 60 * time.Second
	BridgeMaxMessageBytes = 4 << 20
	BridgeSendBuffer      = 64
	RegistryGlobal        = "btc_providers"
	GenericProviderGlobal = "BitcoinProvider"
)

// Facade
const (
	// TeardownTimeout bounds the best-effort disconnect of a replaced provider.
	TeardownTimeout = 10 * time.Second
)

// Server
const (
	ServerPort           = 8080
	ServerReadTimeout    = 30 * time.Second
	ServerWriteTimeout   = 0 // SSE and wallet prompts hold responses open
	ServerIdleTimeout    = 120 * time.Second
	ServerMaxHeaderBytes = 1 << 20
	ShutdownTimeout      = 15 * time.Second
	SSEKeepAliveInterval = 15 * time.Second
	SSEHubChannelBuffer  = 16
	APIMaxBodyBytes      = 1 << 20
)

// Logging
const (
	LogDir         = "./logs"
	LogFilePattern = "btcconnect-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)

// Database
const (
	DBPath        = "./data/btcconnect.sqlite"
	DBBusyTimeout = 5000 // milliseconds
	HistoryLimit  = 100
)

// Bitcoin
const (
	SatoshisPerBTC  = 100_000_000
	PsbtMagicHex    = "70736274ff"
	PsbtMagicBase64 = "cHNidP"
)

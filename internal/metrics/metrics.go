// Package metrics exposes facade activity as Prometheus series.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/models"
)

const namespace = "btcconnect"

// Outcomes used for the outcome label.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder implements facade.Observer and tracks the connected wallet.
type Recorder struct {
	registry  *prometheus.Registry
	ops       *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	connected *prometheus.GaugeVec
	prompts   *prometheus.CounterVec
}

var _ facade.Observer = (*Recorder)(nil)

// New builds a Recorder on its own registry, which also carries the Go and
// process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Wallet operations by wallet, operation and outcome",
			},
			[]string{"wallet", "operation", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Wallet operation latency, prompts included",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"wallet", "operation"},
		),
		connected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "wallet_connected",
				Help:      "1 for the wallet currently connected, 0 otherwise",
			},
			[]string{"wallet"},
		),
		prompts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompts_throttled_total",
				Help:      "Prompting requests refused by the rate limiter",
			},
			[]string{"operation"},
		),
	}

	r.registry.MustRegister(
		r.ops, r.latency, r.connected, r.prompts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, w := range models.AllWallets {
		r.connected.WithLabelValues(string(w)).Set(0)
	}
	return r
}

// Observe implements facade.Observer.
func (r *Recorder) Observe(_ context.Context, op facade.Operation) {
	wallet := string(op.Wallet)
	r.ops.WithLabelValues(wallet, op.Name, Outcome(op.Err)).Inc()
	r.latency.WithLabelValues(wallet, op.Name).Observe(op.Duration.Seconds())
}

// OnState is a facade.Listener that keeps the connected gauge current.
func (r *Recorder) OnState(s facade.Snapshot) {
	for _, w := range models.AllWallets {
		v := 0.0
		if s.IsConnected && s.WalletType == w {
			v = 1
		}
		r.connected.WithLabelValues(string(w)).Set(v)
	}
}

// Throttled counts a prompt refused by the rate limiter.
func (r *Recorder) Throttled(op string) {
	r.prompts.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Outcome classifies err for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, config.ErrUserRejected):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

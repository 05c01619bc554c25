package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the portal's counters on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	BalanceReads    *prometheus.CounterVec
	BalanceRetries  *prometheus.CounterVec
	BalanceFailures *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	Transfers       *prometheus.CounterVec
	ConfirmDuration prometheus.Histogram
}

// New registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		BalanceReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gswap",
			Name:      "balance_reads_total",
			Help:      "Balance reads by chain and token kind.",
		}, []string{"chain", "kind"}),
		BalanceRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gswap",
			Name:      "balance_retries_total",
			Help:      "Contract balance reads retried after a failure.",
		}, []string{"chain"}),
		BalanceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gswap",
			Name:      "balance_failures_total",
			Help:      "Balance reads marked unavailable.",
		}, []string{"chain", "kind"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gswap",
			Name:      "balance_refresh_seconds",
			Help:      "Wall time of a full balance refresh.",
			Buckets:   prometheus.DefBuckets,
		}),
		Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gswap",
			Name:      "transfers_total",
			Help:      "Transfer attempts by outcome (rejected, failed, confirmed).",
		}, []string{"chain", "outcome"}),
		ConfirmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gswap",
			Name:      "transfer_confirm_seconds",
			Help:      "Time from broadcast to receipt.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	reg.MustRegister(
		m.BalanceReads,
		m.BalanceRetries,
		m.BalanceFailures,
		m.RefreshDuration,
		m.Transfers,
		m.ConfirmDuration,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

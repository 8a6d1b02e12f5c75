// Package metrics exposes journal figures to Prometheus while the dashboard
// runs in watch mode.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zellax/internal/journal"
)

// Metrics holds the collectors of one watch session on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Recomputes      *prometheus.CounterVec
	RecomputeTime   prometheus.Histogram
	Trades          *prometheus.GaugeVec
	TotalPnL        prometheus.Gauge
	WinRate         prometheus.Gauge
	ProfitFactor    prometheus.Gauge
	MaxDrawdown     prometheus.Gauge
	CurrentBalance  prometheus.Gauge
	LastRecomputeAt prometheus.Gauge
}

// New creates and registers the journal collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Recomputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zellax_dashboard_recomputes_total",
				Help: "Dashboard refreshes by result",
			},
			[]string{"result"}, // result: computed|cached|error
		),
		RecomputeTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zellax_dashboard_recompute_seconds",
				Help:    "Time spent building the dashboard",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		Trades: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "zellax_trades",
				Help: "Journaled trades by status",
			},
			[]string{"status"},
		),
		TotalPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zellax_total_pnl",
			Help: "Sum of realized pnl over closed trades",
		}),
		WinRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zellax_win_rate_percent",
			Help: "Winning closed trades as a percentage",
		}),
		ProfitFactor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zellax_profit_factor",
			Help: "Gross wins divided by gross losses",
		}),
		MaxDrawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zellax_max_drawdown",
			Help: "Lowest cumulative pnl reached in the window, zero or negative",
		}),
		CurrentBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zellax_current_balance",
			Help: "Starting balance plus realized pnl",
		}),
		LastRecomputeAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zellax_dashboard_last_recompute_timestamp",
			Help: "Unix timestamp of the last dashboard refresh",
		}),
	}

	m.registry.MustRegister(
		m.Recomputes,
		m.RecomputeTime,
		m.Trades,
		m.TotalPnL,
		m.WinRate,
		m.ProfitFactor,
		m.MaxDrawdown,
		m.CurrentBalance,
		m.LastRecomputeAt,
	)
	return m
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordDashboard publishes one refreshed dashboard.
func (m *Metrics) RecordDashboard(d journal.Dashboard, cached bool, duration time.Duration) {
	result := "computed"
	if cached {
		result = "cached"
	} else {
		m.RecomputeTime.Observe(duration.Seconds())
	}
	m.Recomputes.WithLabelValues(result).Inc()

	m.Trades.WithLabelValues("closed").Set(float64(d.Stats.ClosedTrades))
	m.Trades.WithLabelValues("open").Set(float64(d.Stats.TotalTrades - d.Stats.ClosedTrades))
	m.TotalPnL.Set(d.Stats.TotalPnL)
	m.WinRate.Set(d.Stats.WinRate)
	m.ProfitFactor.Set(d.Stats.ProfitFactor)
	m.MaxDrawdown.Set(d.Summary.MaxDrawdown)
	m.CurrentBalance.Set(d.Account.CurrentBalance)
	m.LastRecomputeAt.Set(float64(d.GeneratedAt.Unix()))
}

// RecordError counts a failed refresh.
func (m *Metrics) RecordError() {
	m.Recomputes.WithLabelValues("error").Inc()
}

// FeedStats is a point-in-time view of the live dashboard feed.
type FeedStats struct {
	Published   uint64
	Delivered   uint64
	Dropped     uint64
	Subscribers int
}

// CacheStats is a point-in-time view of the dashboard snapshot cache.
type CacheStats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

// ObserveFeed registers collectors that read the feed counters on every
// scrape. It must be called at most once per Metrics.
func (m *Metrics) ObserveFeed(stats func() FeedStats) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "zellax_feed_snapshots_published_total",
			Help: "Snapshots handed to the live feed",
		}, func() float64 { return float64(stats().Published) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "zellax_feed_snapshots_delivered_total",
			Help: "Snapshots queued for a feed subscriber",
		}, func() float64 { return float64(stats().Delivered) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "zellax_feed_snapshots_dropped_total",
			Help: "Snapshots discarded because a buffer was full",
		}, func() float64 { return float64(stats().Dropped) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "zellax_feed_subscribers",
			Help: "Connected feed subscribers",
		}, func() float64 { return float64(stats().Subscribers) }),
	)
}

// ObserveCache registers collectors that read the snapshot cache counters on
// every scrape. It must be called at most once per Metrics.
func (m *Metrics) ObserveCache(stats func() CacheStats) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "zellax_dashboard_cache_hits_total",
			Help: "Dashboard snapshots served from the cache",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "zellax_dashboard_cache_misses_total",
			Help: "Dashboard snapshots that had to be computed",
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "zellax_dashboard_cache_entries",
			Help: "Snapshots held in the cache",
		}, func() float64 { return float64(stats().Size) }),
	)
}

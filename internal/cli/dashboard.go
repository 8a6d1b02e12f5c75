package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"zellax/internal/journal"
	"zellax/internal/logging"
	"zellax/internal/metrics"
	"zellax/internal/performance"
	"zellax/internal/store"
	"zellax/internal/stream"
)

// dashboardKey identifies a computed dashboard. Bounded windows move with
// the clock, so their snapshots are only reused within the same minute.
type dashboardKey struct {
	fingerprint uint64
	window      journal.Window
	starting    float64
	bucket      int64
}

// dashboardService loads the journal and memoizes dashboard snapshots.
type dashboardService struct {
	store   store.JournalStore
	userID  string
	now     func() time.Time
	cache   *performance.Cache[dashboardKey, journal.Dashboard]
	metrics *metrics.Metrics
}

func newDashboardService(st store.JournalStore, userID string, now func() time.Time, m *metrics.Metrics) *dashboardService {
	return &dashboardService{
		store:   st,
		userID:  userID,
		now:     now,
		cache:   performance.NewCache[dashboardKey, journal.Dashboard](32),
		metrics: m,
	}
}

// snapshot returns the current dashboard and whether it came from the cache.
func (s *dashboardService) snapshot(ctx context.Context, window journal.Window) (journal.Dashboard, bool, error) {
	start := time.Now()
	trades, err := s.store.ListTrades(ctx, store.TradeFilter{UserID: s.userID})
	if err != nil {
		s.recordError()
		return journal.Dashboard{}, false, err
	}
	starting, _, err := startingBalance(ctx, s.store, s.userID)
	if err != nil {
		s.recordError()
		return journal.Dashboard{}, false, err
	}

	now := s.now()
	key := dashboardKey{
		fingerprint: journal.Fingerprint(trades),
		window:      window,
		starting:    starting,
	}
	if window != journal.WindowAll {
		key.bucket = now.Unix() / 60
	}

	d, cached := s.cache.GetOrCompute(key, func() journal.Dashboard {
		return journal.BuildDashboard(trades, starting, window, now)
	})
	elapsed := time.Since(start)

	logging.LogRecompute(logging.FromContext(ctx), string(window), len(trades), cached, elapsed)
	if s.metrics != nil {
		s.metrics.RecordDashboard(d, cached, elapsed)
	}
	return d, cached, nil
}

func (s *dashboardService) recordError() {
	if s.metrics != nil {
		s.metrics.RecordError()
	}
}

// watchDashboard renders a snapshot every interval until ctx is done.
func watchDashboard(ctx context.Context, svc *dashboardService, window journal.Window, interval time.Duration, render func(journal.Dashboard, bool) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		d, cached, err := svc.snapshot(ctx, window)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := render(d, cached); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// observeWatch exports the feed and snapshot cache counters on m.
func observeWatch(m *metrics.Metrics, hub *stream.Hub, svc *dashboardService) {
	m.ObserveCache(func() metrics.CacheStats {
		s := svc.cache.Stats()
		return metrics.CacheStats{Size: s.Size, Hits: s.Hits, Misses: s.Misses}
	})
	if hub == nil {
		return
	}
	m.ObserveFeed(func() metrics.FeedStats {
		s := hub.GetMetrics()
		return metrics.FeedStats{
			Published:   s.Published,
			Delivered:   s.Delivered,
			Dropped:     s.Dropped,
			Subscribers: s.Subscribers,
		}
	})
}

// serveWatch exposes /metrics, /healthz and, when hub is set, the /ws
// snapshot feed on addr until the returned stop function is called.
func serveWatch(addr string, m *metrics.Metrics, hub *stream.Hub, logger zerolog.Logger) (string, func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if hub != nil {
		mux.Handle("/ws", hub.Handler(logger))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "ok"}
		if hub != nil {
			if d, ok := hub.Latest(); ok {
				status["last_snapshot"] = d.GeneratedAt
				status["fingerprint"] = d.Fingerprint
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	return ln.Addr().String(), stop, nil
}

func newDashboardCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Show the performance dashboard",
		Long: `Show account figures, statistics and the equity curve in one view.

With --watch the dashboard refreshes every --interval until interrupted. A
refresh is only recomputed when the journal changed, or when the minute rolls
over for a bounded window. --metrics-addr additionally serves the figures as
Prometheus metrics on /metrics and streams every snapshot as JSON over a
WebSocket on /ws.`,
		Example: `  zellax dashboard
  zellax dashboard --window 1W --watch --interval 10s
  zellax dashboard --watch --metrics-addr :9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			window, err := windowFlag(cmd, app)
			if err != nil {
				return err
			}
			st, err := app.journal()
			if err != nil {
				return err
			}

			watch, _ := cmd.Flags().GetBool("watch")
			if !watch {
				ctx, cancel := app.context(cmd, "dashboard")
				defer cancel()
				svc := newDashboardService(st, app.userID(), app.Now, nil)
				d, _, err := svc.snapshot(ctx, window)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(d)
				}
				renderDashboard(output, d)
				return nil
			}

			interval := app.Config.Watch.Interval
			if cmd.Flags().Changed("interval") {
				interval, _ = cmd.Flags().GetDuration("interval")
			}
			if interval < time.Second {
				interval = time.Second
			}

			base := cmd.Context()
			if base == nil {
				base = context.Background()
			}
			ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger := logging.WithOperation(app.Logger, "dashboard.watch")
			ctx = logging.WithLogger(ctx, logger)

			var (
				m   *metrics.Metrics
				hub *stream.Hub
			)
			addr := app.Config.Watch.MetricsAddr
			if cmd.Flags().Changed("metrics-addr") {
				addr, _ = cmd.Flags().GetString("metrics-addr")
			}
			if addr != "" {
				m = metrics.New()
				hub = stream.NewHub()
				bound, shutdown, err := serveWatch(addr, m, hub, logger)
				if err != nil {
					return err
				}
				defer shutdown()
				hub.Start(ctx)
				defer hub.Stop()
				logger.Info().Str("addr", bound).Msg("Serving metrics and dashboard feed")
				if !output.IsJSON() {
					output.Dim("Metrics on http://%s/metrics, live feed on ws://%s/ws", bound, bound)
				}
			}

			svc := newDashboardService(st, app.userID(), app.Now, m)
			if m != nil {
				observeWatch(m, hub, svc)
			}
			return watchDashboard(ctx, svc, window, interval, func(d journal.Dashboard, cached bool) error {
				if hub != nil {
					hub.Publish(d)
				}
				if output.IsJSON() {
					return output.JSON(d)
				}
				if output.colorEnabled {
					output.Printf("\033[H\033[2J")
				}
				renderDashboard(output, d)
				output.Println()
				status := "recomputed"
				if cached {
					status = "unchanged"
				}
				output.Dim("Refreshed %s (%s), every %s. Press Ctrl+C to stop.", FormatDateTime(app.Now()), status, interval)
				return nil
			})
		},
	}

	cmd.Flags().StringP("window", "w", "", "Equity window (1D, 1W, 1M, 3M, ALL)")
	cmd.Flags().Bool("watch", false, "Refresh continuously")
	cmd.Flags().Duration("interval", 30*time.Second, "Refresh interval in watch mode")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics and the /ws feed on this address in watch mode")
	return cmd
}

func renderDashboard(output *Output, d journal.Dashboard) {
	s := d.Stats
	output.Box("Dashboard ("+string(d.Window)+")", []string{
		"Balance:        " + output.Money(d.Account.CurrentBalance) + "  (" + output.FormatPercent(d.Account.TotalReturnPercent) + ")",
		"Total P&L:      " + output.FormatPnL(s.TotalPnL),
		"Trades:         " + humanCount(s.ClosedTrades, s.TotalTrades),
		"Win rate:       " + FormatPercentPlain(s.WinRate),
		"Profit factor:  " + FormatRatio(s.ProfitFactor),
		"Expectancy:     " + output.FormatPnL(s.Expectancy),
		"Max drawdown:   " + output.Money(d.Summary.MaxDrawdown),
	})

	if len(d.Curve) == 0 {
		output.Println()
		output.Info("No closed trades in the %s window.", d.Window)
		return
	}
	output.Println()
	output.Bold("Equity (%s): %s over %d trade(s)", d.Window, FormatPnL(d.Summary.TotalReturn, output.currency), d.Summary.TradeCount)
	drawEquityCurve(output, d.Curve)
}

package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"zellax/internal/journal"
	"zellax/internal/logging"
	"zellax/internal/models"
	"zellax/internal/performance"
)

// addAnalyticsCommands adds statistics, equity and report commands.
func addAnalyticsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newEquityCmd(app))
	rootCmd.AddCommand(newReportCmd(app))
	rootCmd.AddCommand(newDashboardCmd(app))
}

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show trading statistics",
		Long: `Show win rate, profit factor, expectancy and the other aggregate figures
of the closed trades. Open trades only count towards the total.`,
		Example: `  zellax stats
  zellax stats --strategy "ORB Fade" --from 2024-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "stats")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(cmd, app)
			if err != nil {
				return err
			}
			trades, err := st.ListTrades(ctx, filter)
			if err != nil {
				return err
			}
			stats := journal.ComputeStats(trades)

			if output.IsJSON() {
				return output.JSON(stats)
			}
			printStats(output, stats)
			return nil
		},
	}

	registerFilterFlags(cmd)
	return cmd
}

func printStats(output *Output, s models.TradingStats) {
	output.Bold("Summary")
	output.Printf("  Total Trades:     %d (%d closed, %d open)\n", s.TotalTrades, s.ClosedTrades, s.TotalTrades-s.ClosedTrades)
	output.Printf("  Winning Trades:   %d\n", s.WinningTrades)
	output.Printf("  Losing Trades:    %d\n", s.LosingTrades)
	output.Printf("  Net P&L:          %s\n", output.FormatPnL(s.TotalPnL))
	output.Println()

	output.Bold("Performance Metrics")
	output.Printf("  Win Rate:         %s\n", FormatPercentPlain(s.WinRate))
	output.Printf("  Profit Factor:    %s\n", FormatRatio(s.ProfitFactor))
	output.Printf("  Avg Win:          %s\n", output.Green(output.Money(s.AvgWin)))
	output.Printf("  Avg Loss:         %s\n", output.Red(output.Money(s.AvgLoss)))
	output.Printf("  Largest Win:      %s\n", output.Money(s.LargestWin))
	output.Printf("  Largest Loss:     %s\n", output.Money(s.LargestLoss))
	output.Printf("  Expectancy:       %s\n", output.FormatPnL(s.Expectancy))
}

// humanCount renders a closed trade count, noting open trades when present.
func humanCount(closed, total int) string {
	if open := total - closed; open > 0 {
		return fmt.Sprintf("%d (+%d open)", closed, open)
	}
	return fmt.Sprintf("%d", closed)
}

// windowFlag resolves --window, falling back to the configured default.
func windowFlag(cmd *cobra.Command, app *App) (journal.Window, error) {
	if !cmd.Flags().Changed("window") {
		return app.Config.Window(), nil
	}
	v, _ := cmd.Flags().GetString("window")
	return journal.ParseWindow(v)
}

func newEquityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equity",
		Short: "Show the equity curve",
		Long: `Show the cumulative P&L of the closed trades in exit-date order, with the
running drawdown from the zero baseline and the win rate to date.

Windows: 1D, 1W, 1M (30 days), 3M (90 days), ALL.`,
		Example: `  zellax equity --window 1M
  zellax equity --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "equity")
			defer cancel()

			window, err := windowFlag(cmd, app)
			if err != nil {
				return err
			}
			st, err := app.journal()
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(cmd, app)
			if err != nil {
				return err
			}
			trades, err := st.ListTrades(ctx, filter)
			if err != nil {
				return err
			}

			curve := journal.BuildEquityCurve(trades, window, app.Now())
			summary := journal.Summarize(curve)

			if output.IsJSON() {
				if curve == nil {
					curve = []models.EquityPoint{}
				}
				return output.JSON(map[string]interface{}{
					"window":  window,
					"points":  curve,
					"summary": summary,
				})
			}

			if len(curve) == 0 {
				output.Info("No closed trades in the %s window.", window)
				return nil
			}

			output.Bold("Equity Curve (%s)", window)
			drawEquityCurve(output, curve)
			output.Println()

			table := NewTable(output, "Date", "Trade", "P&L", "Cumulative", "Drawdown", "Win Rate")
			for _, p := range curve {
				trade, pnl := "", ""
				if p.Baseline {
					trade = output.DimText("start")
				} else {
					trade = ShortID(p.TradeID)
					pnl = output.FormatPnL(p.PnL)
				}
				table.AddRow(
					FormatDate(p.Date),
					trade,
					pnl,
					output.FormatPnL(p.CumulativePnL),
					output.Money(p.RunningMaxDrawdown),
					FormatPercentPlain(p.WinRateToDate),
				)
			}
			table.Render()
			output.Println()
			printSummary(output, summary)
			return nil
		},
	}

	registerFilterFlags(cmd)
	cmd.Flags().StringP("window", "w", "", "Time window (1D, 1W, 1M, 3M, ALL)")
	return cmd
}

func printSummary(output *Output, s models.EquitySummary) {
	output.Bold("Curve Summary")
	output.Printf("  Trades:           %d\n", s.TradeCount)
	output.Printf("  Total Return:     %s\n", output.FormatPnL(s.TotalReturn))
	output.Printf("  Max Drawdown:     %s\n", output.Red(output.Money(s.MaxDrawdown)))
	output.Printf("  Best Trade:       %s\n", output.FormatPnL(s.BestTrade))
	output.Printf("  Worst Trade:      %s\n", output.FormatPnL(s.WorstTrade))
	output.Printf("  Avg Trade:        %s\n", output.FormatPnL(s.AvgTrade))
}

// drawEquityCurve plots the cumulative P&L as an ASCII chart.
func drawEquityCurve(output *Output, curve []models.EquityPoint) {
	if len(curve) < 2 {
		output.Println("  Insufficient data for equity curve")
		return
	}

	minPnL, maxPnL := curve[0].CumulativePnL, curve[0].CumulativePnL
	for _, p := range curve {
		minPnL = math.Min(minPnL, p.CumulativePnL)
		maxPnL = math.Max(maxPnL, p.CumulativePnL)
	}
	padding := (maxPnL - minPnL) * 0.1
	if padding == 0 {
		padding = 1
	}
	minPnL -= padding
	maxPnL += padding

	width := 48
	if len(curve) < width {
		width = len(curve)
	}
	height := 8

	chart := make([][]rune, height)
	for i := range chart {
		chart[i] = []rune(strings.Repeat(" ", width))
	}
	for i, p := range curve {
		x := i * width / len(curve)
		y := int((p.CumulativePnL - minPnL) / (maxPnL - minPnL) * float64(height-1))
		if y >= 0 && y < height && x >= 0 && x < width {
			chart[height-1-y][x] = '█'
		}
	}

	for i := 0; i < height; i++ {
		label := strings.Repeat(" ", 12)
		if i == 0 {
			label = fmt.Sprintf("%12s", FormatCurrency(maxPnL, ""))
		} else if i == height-1 {
			label = fmt.Sprintf("%12s", FormatCurrency(minPnL, ""))
		}
		output.Printf("  %s │%s\n", label, string(chart[i]))
	}
	output.Printf("  %s └%s\n", strings.Repeat(" ", 12), strings.Repeat("─", width))
}

// reportDimensions are the groupings of a full report, in display order.
var reportDimensions = []journal.GroupBy{journal.BySymbol, journal.ByStrategy, journal.ByDirection, journal.ByTag}

// buildReport computes the breakdowns of every dimension on the worker pool.
func buildReport(ctx context.Context, trades []models.Trade, dims []journal.GroupBy) (map[journal.GroupBy][]journal.GroupStats, error) {
	pool := performance.NewWorkerPool(len(dims))
	pool.Start()
	defer pool.Stop()

	results := make([][]journal.GroupStats, len(dims))
	tasks := make([]func(), len(dims))
	for i, by := range dims {
		i, by := i, by
		tasks[i] = func() { results[i] = journal.Breakdown(trades, by) }
	}
	if !pool.RunAll(ctx, tasks) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("report workers stopped")
	}

	stats := pool.Stats()
	logger := logging.FromContext(ctx)
	logger.Debug().
		Int("workers", stats.Workers).
		Uint64("tasks", stats.TasksDone).
		Msg("report breakdowns computed")

	report := make(map[journal.GroupBy][]journal.GroupStats, len(dims))
	for i, by := range dims {
		report[by] = results[i]
	}
	return report, nil
}

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Break performance down by symbol, strategy, direction or tag",
		Long: `Group the trades and show the statistics of every group, best first.

Trades without a strategy are grouped under "Manual" and untagged trades under
"untagged". A trade with several tags counts in each of its tags.`,
		Example: `  zellax report --by strategy
  zellax report --by all --from 2024-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "report")
			defer cancel()

			dims := reportDimensions
			if by, _ := cmd.Flags().GetString("by"); by != "all" {
				g, err := journal.ParseGroupBy(by)
				if err != nil {
					return err
				}
				dims = []journal.GroupBy{g}
			}

			st, err := app.journal()
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(cmd, app)
			if err != nil {
				return err
			}
			trades, err := st.ListTrades(ctx, filter)
			if err != nil {
				return err
			}

			report, err := buildReport(ctx, trades, dims)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			for i, by := range dims {
				if i > 0 {
					output.Println()
				}
				name := string(by)
				output.Bold("By %s", strings.ToUpper(name[:1])+name[1:])
				groups := report[by]
				if len(groups) == 0 {
					output.Dim("  No trades")
					continue
				}
				table := NewTable(output, "Group", "Trades", "Win Rate", "P&L", "Avg Win", "Avg Loss", "PF")
				for _, g := range groups {
					table.AddRow(
						g.Key,
						humanCount(g.Stats.ClosedTrades, g.Stats.TotalTrades),
						FormatPercentPlain(g.Stats.WinRate),
						output.FormatPnL(g.Stats.TotalPnL),
						output.Money(g.Stats.AvgWin),
						output.Money(g.Stats.AvgLoss),
						FormatRatio(g.Stats.ProfitFactor),
					)
				}
				table.Render()
			}
			return nil
		},
	}

	registerFilterFlags(cmd)
	cmd.Flags().String("by", "all", "Grouping: symbol, strategy, direction, tag or all")
	return cmd
}

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "zellax/internal/errors"
	"zellax/internal/journal"
	"zellax/internal/models"
)

// seedJournal records a losing and a winning closed trade plus an open one.
func seedJournal(t *testing.T, app *App) {
	t.Helper()
	addTrade(t, app, "MSFT", "--entry", "100", "--qty", "10", "--exit", "95",
		"--entry-date", "2024-03-01T10:00:00Z", "--exit-date", "2024-03-02T15:00:00Z", "--strategy", "Fade")
	addTrade(t, app, "AAPL", "--entry", "100", "--qty", "10", "--exit", "110",
		"--entry-date", "2024-03-02T10:00:00Z", "--exit-date", "2024-03-08T15:00:00Z", "--tags", "breakout")
	addTrade(t, app, "TSLA", "--entry", "180", "--qty", "5", "--entry-date", "2024-03-09T10:00:00Z")
}

func TestStatsCommand(t *testing.T) {
	app := newTestApp(t)
	seedJournal(t, app)

	var stats models.TradingStats
	runJSON(t, app, &stats, "stats")
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 2, stats.ClosedTrades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 50.0, stats.TotalPnL)
	assert.Equal(t, 2.0, stats.ProfitFactor)
	assert.Equal(t, 50.0, stats.AvgLoss)
	assert.Equal(t, -50.0, stats.LargestLoss)
	assert.Equal(t, 25.0, stats.Expectancy)

	runJSON(t, app, &stats, "stats", "--strategy", "fade")
	assert.Equal(t, 1, stats.TotalTrades)
	assert.Equal(t, -50.0, stats.TotalPnL)

	out, err := run(t, app, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Profit Factor:    2.00")
	assert.Contains(t, out, "3 (2 closed, 1 open)")
}

func TestEquityCommand(t *testing.T) {
	app := newTestApp(t)
	seedJournal(t, app)

	var all struct {
		Window  journal.Window       `json:"window"`
		Points  []models.EquityPoint `json:"points"`
		Summary models.EquitySummary `json:"summary"`
	}
	runJSON(t, app, &all, "equity")
	assert.Equal(t, journal.WindowAll, all.Window)
	require.Len(t, all.Points, 3)
	assert.True(t, all.Points[0].Baseline)
	assert.Equal(t, -50.0, all.Points[1].CumulativePnL)
	assert.Equal(t, 50.0, all.Points[2].CumulativePnL)
	assert.Equal(t, -50.0, all.Summary.MaxDrawdown)
	assert.Equal(t, 50.0, all.Summary.TotalReturn)
	assert.Equal(t, 2, all.Summary.TradeCount)

	var week struct {
		Points  []models.EquityPoint `json:"points"`
		Summary models.EquitySummary `json:"summary"`
	}
	runJSON(t, app, &week, "equity", "--window", "1w")
	require.Len(t, week.Points, 2)
	assert.Equal(t, 100.0, week.Summary.TotalReturn)
	assert.Equal(t, 0.0, week.Summary.MaxDrawdown)

	runJSON(t, app, &week, "equity", "--window", "1D")
	assert.Empty(t, week.Points)

	_, err := run(t, app, "equity", "--window", "2Y")
	assert.ErrorIs(t, err, errs.ErrInvalidWindow)

	out, err := run(t, app, "equity")
	require.NoError(t, err)
	assert.Contains(t, out, "Equity Curve (ALL)")
	assert.Contains(t, out, "Max Drawdown:")
}

func TestReportCommand(t *testing.T) {
	app := newTestApp(t)
	seedJournal(t, app)

	var report map[string][]journal.GroupStats
	runJSON(t, app, &report, "report")
	require.Len(t, report, 4)

	symbols := report["symbol"]
	require.Len(t, symbols, 3)
	assert.Equal(t, "AAPL", symbols[0].Key)
	assert.Equal(t, "TSLA", symbols[1].Key)
	assert.Equal(t, "MSFT", symbols[2].Key)

	strategies := report["strategy"]
	require.Len(t, strategies, 2)
	assert.Equal(t, "Manual", strategies[0].Key)
	assert.Equal(t, 2, strategies[0].Stats.TotalTrades)

	tags := report["tag"]
	require.Len(t, tags, 2)
	assert.Equal(t, "breakout", tags[0].Key)
	assert.Equal(t, "untagged", tags[1].Key)

	report = nil
	runJSON(t, app, &report, "report", "--by", "direction")
	require.Len(t, report, 1)
	require.Len(t, report["direction"], 1)
	assert.Equal(t, 3, report["direction"][0].Stats.TotalTrades)

	_, err := run(t, app, "report", "--by", "weekday")
	assert.Error(t, err)
}

func TestAccountCommands(t *testing.T) {
	app := newTestApp(t)
	seedJournal(t, app)

	var acct models.AccountBalance
	runJSON(t, app, &acct, "account", "show")
	assert.Equal(t, 0.0, acct.StartingBalance)
	assert.Equal(t, 50.0, acct.CurrentBalance)
	assert.Equal(t, 0.0, acct.TotalReturnPercent)

	out, err := run(t, app, "account", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No starting balance set")

	runJSON(t, app, &acct, "account", "set", "1,000")
	assert.Equal(t, 1000.0, acct.StartingBalance)
	assert.Equal(t, 1050.0, acct.CurrentBalance)
	assert.Equal(t, 50.0, acct.TotalPnL)
	assert.Equal(t, 5.0, acct.TotalReturnPercent)

	_, err = run(t, app, "account", "set", "--", "-5")
	assert.ErrorIs(t, err, errs.ErrInvalidNumber)
	_, err = run(t, app, "account", "set", "lots")
	assert.ErrorIs(t, err, errs.ErrInputValidation)

	out, err = run(t, app, "account", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "$1,050.00")
	assert.NotContains(t, out, "No starting balance set")
}

func TestPlaybookCommands(t *testing.T) {
	app := newTestApp(t)

	var pb models.Playbook
	runJSON(t, app, &pb, "playbook", "add", "Fade", "--timeframe", "5m",
		"--rule", "Wait for the range", "--rule", "Stop above the high")
	assert.Equal(t, "Fade", pb.Name)
	assert.Equal(t, []string{"Wait for the range", "Stop above the high"}, pb.Rules)

	_, err := run(t, app, "playbook", "add", "fade")
	assert.ErrorIs(t, err, errs.ErrPlaybookExists)

	runJSON(t, app, &pb, "playbook", "edit", "FADE", "--setup", "Failed breakout")
	assert.Equal(t, "Failed breakout", pb.Setup)
	assert.Equal(t, "5m", pb.Timeframe)

	seedJournal(t, app)

	var rows []playbookRow
	runJSON(t, app, &rows, "playbook", "list")
	require.Len(t, rows, 1)
	assert.Equal(t, "Fade", rows[0].Name)
	assert.Equal(t, 1, rows[0].Stats.ClosedTrades)
	assert.Equal(t, -50.0, rows[0].Stats.TotalPnL)

	var shown playbookRow
	runJSON(t, app, &shown, "playbook", "show", "fade")
	assert.Equal(t, "Failed breakout", shown.Setup)
	assert.Equal(t, 1, shown.Stats.TotalTrades)

	out, err := run(t, app, "playbook", "show", "Fade")
	require.NoError(t, err)
	assert.Contains(t, out, "2. Stop above the high")

	_, err = run(t, app, "playbook", "delete", "Fade")
	require.NoError(t, err)
	_, err = run(t, app, "playbook", "delete", "Fade")
	assert.ErrorIs(t, err, errs.ErrPlaybookNotFound)

	var trades []models.Trade
	runJSON(t, app, &trades, "trade", "list", "--strategy", "Fade")
	assert.Len(t, trades, 1, "trades keep their strategy after the playbook is deleted")
}

package journal

import (
	"math"

	"zellax/internal/models"
)

// resolved returns the closed trades that carry a P&L, in input order.
func resolved(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if _, ok := t.PnL(); ok {
			out = append(out, t)
		}
	}
	return out
}

// ComputeStats folds a trade collection into summary statistics. Open trades
// count towards TotalTrades only. Degenerate inputs yield zero values.
func ComputeStats(trades []models.Trade) models.TradingStats {
	stats := models.TradingStats{TotalTrades: len(trades)}

	var totalWins, totalLosses float64
	largestWin, largestLoss := 0.0, 0.0

	for _, t := range resolved(trades) {
		pnl := t.Exit.PnL
		stats.ClosedTrades++
		stats.TotalPnL += pnl

		switch {
		case pnl > 0:
			stats.WinningTrades++
			totalWins += pnl
			if stats.WinningTrades == 1 || pnl > largestWin {
				largestWin = pnl
			}
		case pnl < 0:
			stats.LosingTrades++
			totalLosses += math.Abs(pnl)
			if stats.LosingTrades == 1 || pnl < largestLoss {
				largestLoss = pnl
			}
		}
	}

	if stats.ClosedTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.ClosedTrades) * 100
		stats.Expectancy = stats.TotalPnL / float64(stats.ClosedTrades)
	}
	if stats.WinningTrades > 0 {
		stats.AvgWin = totalWins / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = totalLosses / float64(stats.LosingTrades)
	}
	// No losses means no defined ratio; report 0 rather than +Inf.
	if totalLosses > 0 {
		stats.ProfitFactor = totalWins / totalLosses
	}
	stats.LargestWin = largestWin
	stats.LargestLoss = largestLoss

	return stats
}

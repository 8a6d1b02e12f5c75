// Package models provides domain models for the trading journal.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Direction represents the side of a journaled position.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ParseDirection parses a direction, accepting buy/sell as aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return DirectionLong, nil
	case "short", "sell":
		return DirectionShort, nil
	default:
		return "", fmt.Errorf("unknown direction %q (must be long or short)", s)
	}
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// ParseTradeStatus parses a trade status.
func ParseTradeStatus(s string) (TradeStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return StatusOpen, nil
	case "closed":
		return StatusClosed, nil
	default:
		return "", fmt.Errorf("unknown status %q (must be open or closed)", s)
	}
}

// AccountBalance is the per-user capital snapshot. Only StartingBalance is
// user-owned; the rest is recomputed from the trade collection.
type AccountBalance struct {
	UserID             string    `json:"user_id"`
	StartingBalance    float64   `json:"starting_balance"`
	CurrentBalance     float64   `json:"current_balance"`
	TotalPnL           float64   `json:"total_pnl"`
	TotalReturnPercent float64   `json:"total_return_percent"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TradingStats is the aggregate summary of a trade collection.
type TradingStats struct {
	TotalTrades   int     `json:"total_trades"`
	ClosedTrades  int     `json:"closed_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"` // magnitude, never negative
	ProfitFactor  float64 `json:"profit_factor"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"` // signed, the worst pnl
	Expectancy    float64 `json:"expectancy"`
}

// EquityPoint is one point of the cumulative P&L series.
type EquityPoint struct {
	Date               time.Time `json:"date"`
	TradeID            string    `json:"trade_id,omitempty"`
	PnL                float64   `json:"pnl"`
	CumulativePnL      float64   `json:"cumulative_pnl"`
	WinRateToDate      float64   `json:"win_rate_to_date"`
	TradeCountToDate   int       `json:"trade_count_to_date"`
	RunningMaxDrawdown float64   `json:"running_max_drawdown"`
	Baseline           bool      `json:"baseline,omitempty"`
}

// EquitySummary holds the scalar dashboard figures derived from a curve.
type EquitySummary struct {
	TotalReturn float64 `json:"total_return"`
	MaxDrawdown float64 `json:"max_drawdown"`
	BestTrade   float64 `json:"best_trade"`
	WorstTrade  float64 `json:"worst_trade"`
	AvgTrade    float64 `json:"avg_trade"`
	TradeCount  int     `json:"trade_count"`
}

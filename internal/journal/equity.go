package journal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	errs "zellax/internal/errors"
	"zellax/internal/models"
)

// Window restricts an equity curve to a trailing period.
type Window string

const (
	Window1D  Window = "1D"
	Window1W  Window = "1W"
	Window1M  Window = "1M"
	Window3M  Window = "3M"
	WindowAll Window = "ALL"
)

// Windows lists the supported windows in display order.
var Windows = []Window{Window1D, Window1W, Window1M, Window3M, WindowAll}

// ParseWindow parses a window selector. The empty string means ALL.
func ParseWindow(s string) (Window, error) {
	w := Window(strings.ToUpper(strings.TrimSpace(s)))
	if w == "" {
		return WindowAll, nil
	}
	for _, known := range Windows {
		if w == known {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: %q (1D, 1W, 1M, 3M, ALL)", errs.ErrInvalidWindow, s)
}

// Duration returns the trailing length of the window, or false when unbounded.
func (w Window) Duration() (time.Duration, bool) {
	const day = 24 * time.Hour
	switch w {
	case Window1D:
		return day, true
	case Window1W:
		return 7 * day, true
	case Window1M:
		return 30 * day, true
	case Window3M:
		return 90 * day, true
	default:
		return 0, false
	}
}

// BuildEquityCurve orders the closed trades by exit date and folds them into a
// running P&L series. Trades sharing an exit date keep their input order.
// The window cut happens before the fold, so the running total starts at zero
// within the window. A non-empty result starts with a zero baseline point
// dated one day before the first trade; an empty result means no data.
func BuildEquityCurve(trades []models.Trade, window Window, now time.Time) []models.EquityPoint {
	closed := resolved(trades)
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].Exit.Date.Before(closed[j].Exit.Date)
	})

	if d, ok := window.Duration(); ok {
		cutoff := now.Add(-d)
		start := sort.Search(len(closed), func(i int) bool {
			return !closed[i].Exit.Date.Before(cutoff)
		})
		closed = closed[start:]
	}

	if len(closed) == 0 {
		return nil
	}

	points := make([]models.EquityPoint, 0, len(closed)+1)
	points = append(points, models.EquityPoint{
		Date:     closed[0].Exit.Date.AddDate(0, 0, -1),
		Baseline: true,
	})

	var cumulative, drawdown float64
	var wins int
	for i, t := range closed {
		pnl := t.Exit.PnL
		cumulative += pnl
		if pnl > 0 {
			wins++
		}
		if cumulative < drawdown {
			drawdown = cumulative
		}
		points = append(points, models.EquityPoint{
			Date:               t.Exit.Date,
			TradeID:            t.ID,
			PnL:                pnl,
			CumulativePnL:      cumulative,
			WinRateToDate:      float64(wins) / float64(i+1) * 100,
			TradeCountToDate:   i + 1,
			RunningMaxDrawdown: drawdown,
		})
	}

	return points
}

// Summarize derives the dashboard figures from a completed curve.
func Summarize(points []models.EquityPoint) models.EquitySummary {
	var s models.EquitySummary
	first := true
	for _, p := range points {
		if p.RunningMaxDrawdown < s.MaxDrawdown {
			s.MaxDrawdown = p.RunningMaxDrawdown
		}
		if p.Baseline {
			continue
		}
		s.TradeCount++
		if first || p.PnL > s.BestTrade {
			s.BestTrade = p.PnL
		}
		if first || p.PnL < s.WorstTrade {
			s.WorstTrade = p.PnL
		}
		first = false
	}
	if len(points) > 0 {
		s.TotalReturn = points[len(points)-1].CumulativePnL
	}

	n := s.TradeCount
	if n < 1 {
		n = 1
	}
	s.AvgTrade = s.TotalReturn / float64(n)
	return s
}

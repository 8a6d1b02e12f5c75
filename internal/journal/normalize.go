// Package journal turns a trade collection into statistics, equity curves and
// derived account figures. Every function here is a pure fold over its
// arguments: nothing is cached between calls and inputs are never mutated.
package journal

import (
	"strings"
	"time"

	errs "zellax/internal/errors"
	"zellax/internal/models"
)

// TradeInput is a raw trade as entered or edited by the user.
type TradeInput struct {
	ID         string
	UserID     string
	Symbol     string
	Direction  models.Direction
	Status     models.TradeStatus
	EntryPrice float64
	ExitPrice  *float64
	Quantity   float64
	EntryDate  time.Time
	ExitDate   *time.Time
	ManualPnL  *float64
	Notes      string
	Tags       []string
	Strategy   string
}

// Normalize validates a raw trade and resolves its P&L when it is closed.
func Normalize(in TradeInput) (models.Trade, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return models.Trade{}, errs.MissingField("symbol")
	}
	if in.Direction != models.DirectionLong && in.Direction != models.DirectionShort {
		return models.Trade{}, errs.NewValidationError("direction", in.Direction, "must be long or short")
	}
	if err := requirePositive("entryPrice", in.EntryPrice); err != nil {
		return models.Trade{}, err
	}
	if err := requirePositive("quantity", in.Quantity); err != nil {
		return models.Trade{}, err
	}
	if in.EntryDate.IsZero() {
		return models.Trade{}, errs.MissingField("entryDate")
	}

	t := models.Trade{
		ID:         in.ID,
		UserID:     in.UserID,
		Symbol:     symbol,
		Direction:  in.Direction,
		EntryPrice: in.EntryPrice,
		Quantity:   in.Quantity,
		EntryDate:  in.EntryDate,
		Notes:      strings.TrimSpace(in.Notes),
		Tags:       normalizeTags(in.Tags),
		Strategy:   strings.TrimSpace(in.Strategy),
	}

	switch in.Status {
	case models.StatusOpen:
		return t, nil
	case models.StatusClosed:
	default:
		return models.Trade{}, errs.NewValidationError("status", in.Status, "must be open or closed")
	}

	pnl, pct, err := ResolvePnL(in.Direction, in.EntryPrice, in.ExitPrice, in.Quantity, in.ManualPnL)
	if err != nil {
		return models.Trade{}, err
	}

	exitDate := in.EntryDate
	if in.ExitDate != nil && !in.ExitDate.IsZero() {
		exitDate = *in.ExitDate
	}
	if exitDate.Before(in.EntryDate) {
		return models.Trade{}, errs.NewValidationError("exitDate", exitDate, "must not be before entry date")
	}

	exit := &models.Exit{
		Date:       exitDate,
		PnL:        pnl,
		PnLPercent: pct,
		Manual:     in.ManualPnL != nil,
	}
	if in.ExitPrice != nil {
		price := *in.ExitPrice
		exit.Price = &price
	}
	t.Exit = exit

	return t, nil
}

// ResolvePnL determines the realized P&L of a closed trade. A manual value
// takes precedence over the price-derived one and is kept as entered; a
// price-derived value is rounded to cents. The returned percentage is nil
// when the position notional is zero.
func ResolvePnL(dir models.Direction, entry float64, exit *float64, qty float64, manual *float64) (float64, *float64, error) {
	if exit != nil {
		if err := requirePositive("exitPrice", *exit); err != nil {
			return 0, nil, err
		}
	}

	var pnl float64
	switch {
	case manual != nil:
		if !isFinite(*manual) {
			return 0, nil, errs.InvalidNumber("pnl", *manual)
		}
		pnl = *manual
	case exit != nil:
		raw := (*exit - entry) * qty
		if dir == models.DirectionShort {
			raw = (entry - *exit) * qty
		}
		if !isFinite(raw) {
			return 0, nil, errs.InvalidNumber("pnl", raw)
		}
		pnl = RoundMoney(raw)
	default:
		return 0, nil, errs.MissingField("exitPrice")
	}

	return pnl, PnLPercent(pnl, entry, qty), nil
}

// PnLPercent returns pnl as a percentage of the entry notional, or nil when
// the notional is zero.
func PnLPercent(pnl, entry, qty float64) *float64 {
	notional := entry * qty
	if notional == 0 || !isFinite(notional) {
		return nil
	}
	pct := pnl / notional * 100
	if !isFinite(pct) {
		return nil
	}
	return &pct
}

// InputFromTrade rebuilds the editable input of a stored trade. A manually
// entered P&L survives the round trip; a price-derived one is recomputed.
func InputFromTrade(t models.Trade) TradeInput {
	in := TradeInput{
		ID:         t.ID,
		UserID:     t.UserID,
		Symbol:     t.Symbol,
		Direction:  t.Direction,
		Status:     t.Status(),
		EntryPrice: t.EntryPrice,
		Quantity:   t.Quantity,
		EntryDate:  t.EntryDate,
		Notes:      t.Notes,
		Tags:       append([]string(nil), t.Tags...),
		Strategy:   t.Strategy,
	}
	if t.Exit != nil {
		if t.Exit.Price != nil {
			price := *t.Exit.Price
			in.ExitPrice = &price
		}
		date := t.Exit.Date
		in.ExitDate = &date
		if t.Exit.Manual {
			pnl := t.Exit.PnL
			in.ManualPnL = &pnl
		}
	}
	return in
}

func requirePositive(field string, v float64) error {
	if !isFinite(v) || v <= 0 {
		return errs.InvalidNumber(field, v)
	}
	return nil
}

// normalizeTags trims, drops empties and removes duplicates, keeping order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

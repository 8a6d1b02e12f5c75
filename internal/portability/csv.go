package portability

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"zellax/internal/models"
)

// TradeRow is one trade as a spreadsheet record. Optional figures are left
// blank for open trades, and exit_price is blank when the P&L was entered
// by hand.
type TradeRow struct {
	ID         string  `csv:"id"`
	Symbol     string  `csv:"symbol"`
	Direction  string  `csv:"direction"`
	Status     string  `csv:"status"`
	EntryDate  string  `csv:"entry_date"`
	EntryPrice float64 `csv:"entry_price"`
	Quantity   float64 `csv:"quantity"`
	ExitDate   string  `csv:"exit_date"`
	ExitPrice  string  `csv:"exit_price"`
	PnL        string  `csv:"pnl"`
	PnLPercent string  `csv:"pnl_percent"`
	Manual     bool    `csv:"manual_pnl"`
	Strategy   string  `csv:"strategy"`
	Tags       string  `csv:"tags"`
	Notes      string  `csv:"notes"`
}

// TradeRows flattens trades into CSV records, keeping their order.
func TradeRows(trades []models.Trade) []*TradeRow {
	rows := make([]*TradeRow, 0, len(trades))
	for _, t := range trades {
		row := &TradeRow{
			ID:         t.ID,
			Symbol:     t.Symbol,
			Direction:  string(t.Direction),
			Status:     string(t.Status()),
			EntryDate:  t.EntryDate.UTC().Format(time.RFC3339),
			EntryPrice: t.EntryPrice,
			Quantity:   t.Quantity,
			Strategy:   t.Strategy,
			Tags:       strings.Join(t.Tags, ";"),
			Notes:      t.Notes,
		}
		if t.Exit != nil {
			row.ExitDate = t.Exit.Date.UTC().Format(time.RFC3339)
			row.ExitPrice = formatOptional(t.Exit.Price)
			row.PnL = strconv.FormatFloat(t.Exit.PnL, 'f', -1, 64)
			row.PnLPercent = formatOptional(t.Exit.PnLPercent)
			row.Manual = t.Exit.Manual
		}
		rows = append(rows, row)
	}
	return rows
}

// EncodeCSV writes trades as CSV with a header row.
func EncodeCSV(w io.Writer, trades []models.Trade) error {
	return gocsv.Marshal(TradeRows(trades), w)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

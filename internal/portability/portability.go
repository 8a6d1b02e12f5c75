// Package portability moves a whole journal in and out of a YAML document.
package portability

import (
	"context"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	errs "zellax/internal/errors"
	"zellax/internal/journal"
	"zellax/internal/models"
	"zellax/internal/store"
)

// FormatVersion is the document version written by Encode.
const FormatVersion = 1

// Document is the exported journal of one user.
type Document struct {
	Version         int           `yaml:"version"`
	ExportedAt      time.Time     `yaml:"exported_at"`
	UserID          string        `yaml:"user_id"`
	StartingBalance *float64      `yaml:"starting_balance,omitempty"`
	Playbooks       []PlaybookDoc `yaml:"playbooks,omitempty"`
	Trades          []TradeDoc    `yaml:"trades"`
}

// PlaybookDoc is the exported form of a playbook.
type PlaybookDoc struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Setup       string   `yaml:"setup,omitempty"`
	Rules       []string `yaml:"rules,omitempty"`
	Timeframe   string   `yaml:"timeframe,omitempty"`
}

// TradeDoc is the exported form of a trade. PnL is carried for closed trades;
// on import it is recomputed from the exit price unless Manual is set.
type TradeDoc struct {
	ID         string     `yaml:"id"`
	Symbol     string     `yaml:"symbol"`
	Direction  string     `yaml:"direction"`
	Status     string     `yaml:"status"`
	EntryPrice float64    `yaml:"entry_price"`
	Quantity   float64    `yaml:"quantity"`
	EntryDate  time.Time  `yaml:"entry_date"`
	ExitPrice  *float64   `yaml:"exit_price,omitempty"`
	ExitDate   *time.Time `yaml:"exit_date,omitempty"`
	PnL        *float64   `yaml:"pnl,omitempty"`
	Manual     bool       `yaml:"manual_pnl,omitempty"`
	Strategy   string     `yaml:"strategy,omitempty"`
	Tags       []string   `yaml:"tags,omitempty"`
	Notes      string     `yaml:"notes,omitempty"`
}

// NewDocument assembles a document from stored records.
func NewDocument(userID string, startingBalance *float64, playbooks []models.Playbook, trades []models.Trade, now time.Time) *Document {
	doc := &Document{
		Version:         FormatVersion,
		ExportedAt:      now.UTC(),
		UserID:          userID,
		StartingBalance: startingBalance,
		Trades:          make([]TradeDoc, 0, len(trades)),
	}
	for _, p := range playbooks {
		doc.Playbooks = append(doc.Playbooks, PlaybookDoc{
			Name:        p.Name,
			Description: p.Description,
			Setup:       p.Setup,
			Rules:       p.Rules,
			Timeframe:   p.Timeframe,
		})
	}
	for _, t := range trades {
		doc.Trades = append(doc.Trades, tradeDoc(t))
	}
	return doc
}

func tradeDoc(t models.Trade) TradeDoc {
	d := TradeDoc{
		ID:         t.ID,
		Symbol:     t.Symbol,
		Direction:  string(t.Direction),
		Status:     string(t.Status()),
		EntryPrice: t.EntryPrice,
		Quantity:   t.Quantity,
		EntryDate:  t.EntryDate.UTC(),
		Strategy:   t.Strategy,
		Tags:       t.Tags,
		Notes:      t.Notes,
	}
	if t.Exit != nil {
		exitDate := t.Exit.Date.UTC()
		pnl := t.Exit.PnL
		d.ExitPrice = t.Exit.Price
		d.ExitDate = &exitDate
		d.PnL = &pnl
		d.Manual = t.Exit.Manual
	}
	return d
}

// Input converts the document form back into normalizer input. A missing
// status is inferred from the exit fields. A closed trade without an exit
// price keeps its recorded pnl as a manual figure.
func (d TradeDoc) Input(userID string) journal.TradeInput {
	in := journal.TradeInput{
		ID:         d.ID,
		UserID:     userID,
		Symbol:     d.Symbol,
		Direction:  models.Direction(d.Direction),
		Status:     models.TradeStatus(d.Status),
		EntryPrice: d.EntryPrice,
		ExitPrice:  d.ExitPrice,
		Quantity:   d.Quantity,
		EntryDate:  d.EntryDate,
		ExitDate:   d.ExitDate,
		Notes:      d.Notes,
		Tags:       d.Tags,
		Strategy:   d.Strategy,
	}
	if dir, err := models.ParseDirection(d.Direction); err == nil {
		in.Direction = dir
	}
	if status, err := models.ParseTradeStatus(d.Status); err == nil {
		in.Status = status
	} else if d.Status == "" {
		in.Status = models.StatusOpen
		if d.ExitDate != nil || d.ExitPrice != nil || d.PnL != nil {
			in.Status = models.StatusClosed
		}
	}
	if d.PnL != nil && (d.Manual || d.ExitPrice == nil) {
		pnl := *d.PnL
		in.ManualPnL = &pnl
	}
	return in
}

// Encode writes the document as YAML.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding journal: %w", err)
	}
	return enc.Close()
}

// Decode reads a YAML document and checks its version.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding journal: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, errs.NewValidationError("version", doc.Version, fmt.Sprintf("unsupported journal version (want %d)", FormatVersion))
	}
	return &doc, nil
}

// Summary reports what Import wrote.
type Summary struct {
	Trades           int
	Playbooks        int
	SkippedPlaybooks int
	BalanceSet       bool
}

// Import normalizes every trade of the document and writes the journal into
// st under userID in one transaction. Nothing is written when any trade is
// invalid or any write fails. Trades are saved by ID, so importing the same
// document twice leaves one copy; playbooks whose name already exists are
// skipped.
func Import(ctx context.Context, st store.JournalStore, doc *Document, userID string) (Summary, error) {
	var sum Summary

	if doc.StartingBalance != nil {
		if err := journal.ValidateStartingBalance(*doc.StartingBalance); err != nil {
			return sum, err
		}
	}

	trades := make([]models.Trade, 0, len(doc.Trades))
	for i, d := range doc.Trades {
		t, err := journal.Normalize(d.Input(userID))
		if err != nil {
			return sum, errs.Wrapf(err, "trade %d (%s)", i+1, d.Symbol)
		}
		trades = append(trades, t)
	}

	err := st.WithTx(ctx, func(tx store.JournalStore) error {
		for _, p := range doc.Playbooks {
			pb := &models.Playbook{
				UserID:      userID,
				Name:        p.Name,
				Description: p.Description,
				Setup:       p.Setup,
				Rules:       p.Rules,
				Timeframe:   p.Timeframe,
			}
			err := tx.SavePlaybook(ctx, pb)
			if errs.Is(err, errs.ErrPlaybookExists) {
				sum.SkippedPlaybooks++
				continue
			}
			if err != nil {
				return err
			}
			sum.Playbooks++
		}

		for i := range trades {
			if err := tx.SaveTrade(ctx, &trades[i]); err != nil {
				return err
			}
			sum.Trades++
		}

		if doc.StartingBalance != nil {
			if err := tx.SetStartingBalance(ctx, userID, *doc.StartingBalance); err != nil {
				return err
			}
			sum.BalanceSet = true
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	return sum, nil
}

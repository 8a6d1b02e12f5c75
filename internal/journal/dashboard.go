package journal

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"

	"zellax/internal/models"
)

// Dashboard bundles everything the dashboard view renders for one snapshot.
type Dashboard struct {
	Window      Window                `json:"window"`
	GeneratedAt time.Time             `json:"generated_at"`
	Fingerprint uint64                `json:"fingerprint"`
	Stats       models.TradingStats   `json:"stats"`
	Curve       []models.EquityPoint  `json:"curve"`
	Summary     models.EquitySummary  `json:"summary"`
	Account     models.AccountBalance `json:"account"`
}

// BuildDashboard computes stats, curve and account figures for a snapshot.
// Stats and account figures cover the whole collection; only the curve and
// its summary honor the window.
func BuildDashboard(trades []models.Trade, startingBalance float64, window Window, now time.Time) Dashboard {
	curve := BuildEquityCurve(trades, window, now)
	return Dashboard{
		Window:      window,
		GeneratedAt: now,
		Fingerprint: Fingerprint(trades),
		Stats:       ComputeStats(trades),
		Curve:       curve,
		Summary:     Summarize(curve),
		Account:     DeriveAccount(startingBalance, trades),
	}
}

// Fingerprint hashes the fields of a trade collection that affect any derived
// figure. Callers use it as a memoization key; it is order sensitive because
// input order breaks exit-date ties.
func Fingerprint(trades []models.Trade) uint64 {
	d := xxhash.New()
	var buf [8]byte

	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		d.Write(buf[:])
	}
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		d.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(int64(len(s)))
		d.WriteString(s)
	}

	writeInt(int64(len(trades)))
	for _, t := range trades {
		writeString(t.ID)
		writeString(t.Symbol)
		writeString(string(t.Direction))
		writeString(t.Strategy)
		writeFloat(t.EntryPrice)
		writeFloat(t.Quantity)
		writeInt(t.EntryDate.UnixNano())
		writeInt(int64(len(t.Tags)))
		for _, tag := range t.Tags {
			writeString(tag)
		}
		if t.Exit == nil {
			d.Write([]byte{0})
			continue
		}
		d.Write([]byte{1})
		writeInt(t.Exit.Date.UnixNano())
		writeFloat(t.Exit.PnL)
	}
	return d.Sum64()
}

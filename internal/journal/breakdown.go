package journal

import (
	"fmt"
	"sort"
	"strings"

	"zellax/internal/models"
)

// GroupBy selects the dimension a breakdown report groups trades by.
type GroupBy string

const (
	BySymbol    GroupBy = "symbol"
	ByStrategy  GroupBy = "strategy"
	ByDirection GroupBy = "direction"
	ByTag       GroupBy = "tag"
)

const (
	manualStrategy = "Manual"
	untagged       = "untagged"
)

// ParseGroupBy parses a breakdown dimension.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case BySymbol, ByStrategy, ByDirection, ByTag:
		return g, nil
	case "playbook":
		return ByStrategy, nil
	default:
		return "", fmt.Errorf("unknown breakdown %q (symbol, strategy, direction, tag)", s)
	}
}

// GroupStats is the statistics of one breakdown group.
type GroupStats struct {
	Key   string              `json:"key"`
	Stats models.TradingStats `json:"stats"`
}

// Breakdown groups the trades along a dimension and computes statistics per
// group, ordered by total P&L descending. A trade with several tags counts in
// every tag group.
func Breakdown(trades []models.Trade, by GroupBy) []GroupStats {
	groups := make(map[string][]models.Trade)
	var order []string

	add := func(key string, t models.Trade) {
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	for _, t := range trades {
		switch by {
		case BySymbol:
			add(t.Symbol, t)
		case ByStrategy:
			key := t.Strategy
			if key == "" {
				key = manualStrategy
			}
			add(key, t)
		case ByDirection:
			add(string(t.Direction), t)
		case ByTag:
			if len(t.Tags) == 0 {
				add(untagged, t)
			}
			for _, tag := range t.Tags {
				add(tag, t)
			}
		}
	}

	out := make([]GroupStats, 0, len(order))
	for _, key := range order {
		out = append(out, GroupStats{Key: key, Stats: ComputeStats(groups[key])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stats.TotalPnL != out[j].Stats.TotalPnL {
			return out[i].Stats.TotalPnL > out[j].Stats.TotalPnL
		}
		return out[i].Key < out[j].Key
	})
	return out
}

package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatCurrency formats an amount with thousands separators and two decimal
// places, e.g. -$1,234.50.
func FormatCurrency(amount float64, symbol string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return symbol + "—"
	}
	negative := amount < 0
	if negative {
		amount = -amount
	}

	result := symbol + humanize.FormatFloat("#,###.##", amount)
	if negative && result != symbol+"0.00" {
		result = "-" + result
	}
	return result
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPercentPlain formats a rate such as the win rate, without sign.
func FormatPercentPlain(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// FormatPnL formats P&L with sign.
func FormatPnL(pnl float64, symbol string) string {
	formatted := FormatCurrency(pnl, symbol)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatPrice formats a price, keeping sub-cent digits for cheap instruments.
func FormatPrice(price float64) string {
	if price >= 10 {
		return humanize.FormatFloat("#,###.##", price)
	}
	return fmt.Sprintf("%.4f", price)
}

// FormatQuantity formats a quantity without trailing zeros.
func FormatQuantity(qty float64) string {
	if qty == math.Trunc(qty) && math.Abs(qty) < 1e15 {
		return humanize.Comma(int64(qty))
	}
	return humanize.Ftoa(qty)
}

// FormatRatio formats a ratio such as the profit factor.
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FormatDate formats a date in local time.
func FormatDate(t time.Time) string {
	return t.Local().Format("02-Jan-2006")
}

// FormatDateTime formats a datetime in local time.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("02-Jan-2006 15:04")
}

// FormatAgo formats t relative to now, e.g. "3 days ago".
func FormatAgo(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatBytes formats a byte count, e.g. "83 kB".
func FormatBytes(n int) string {
	return humanize.Bytes(uint64(n))
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// ShortID returns the first block of a UUID for table display.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return TruncateString(id, 8)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses a user supplied date. Layouts without a zone are read in
// local time; "now" and "today" are relative to now.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "now":
		return now, nil
	case "today":
		y, m, d := now.Local().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339)", s)
}

package journal

import (
	"math"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the number of decimal places monetary values are stored with.
const moneyPlaces = 2

// RoundMoney rounds a monetary amount to cents, half away from zero. NaN and
// infinities are returned unchanged.
func RoundMoney(v float64) float64 {
	if !isFinite(v) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(moneyPlaces).Float64()
	return f
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

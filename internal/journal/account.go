package journal

import (
	errs "zellax/internal/errors"
	"zellax/internal/models"
)

// DeriveAccount recomputes the balance figures from the starting balance and
// the trade collection. The return percentage is 0 when the starting balance
// is 0.
func DeriveAccount(startingBalance float64, trades []models.Trade) models.AccountBalance {
	var realized float64
	for _, t := range resolved(trades) {
		realized += t.Exit.PnL
	}

	acct := models.AccountBalance{
		StartingBalance: startingBalance,
		CurrentBalance:  startingBalance + realized,
	}
	acct.TotalPnL = acct.CurrentBalance - acct.StartingBalance
	if startingBalance != 0 {
		acct.TotalReturnPercent = acct.TotalPnL / startingBalance * 100
	}
	return acct
}

// ValidateStartingBalance rejects non-finite and negative balances.
func ValidateStartingBalance(v float64) error {
	if !isFinite(v) || v < 0 {
		return errs.InvalidNumber("startingBalance", v)
	}
	return nil
}

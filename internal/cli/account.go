package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	errs "zellax/internal/errors"
	"zellax/internal/journal"
	"zellax/internal/logging"
	"zellax/internal/models"
	"zellax/internal/store"
)

// addAccountCommands adds account balance commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Starting balance and account figures",
		Long: `Set the starting balance of the journal. The current balance, total P&L
and return are always recomputed from the closed trades.`,
	}

	cmd.AddCommand(newAccountSetCmd(app))
	cmd.AddCommand(newAccountShowCmd(app))

	rootCmd.AddCommand(cmd)
}

// startingBalance returns the stored starting balance, or 0 and false when
// none has been set.
func startingBalance(ctx context.Context, st store.JournalStore, userID string) (float64, bool, error) {
	acct, err := st.GetAccount(ctx, userID)
	if errs.Is(err, errs.ErrAccountNotSet) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return acct.StartingBalance, true, nil
}

func newAccountSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "set <starting-balance>",
		Short:   "Set the starting balance",
		Example: `  zellax account set 25000`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "account.set")
			defer cancel()

			raw := strings.ReplaceAll(strings.TrimSpace(args[0]), ",", "")
			balance, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return errs.NewValidationError("startingBalance", args[0], "must be a number")
			}
			if err := journal.ValidateStartingBalance(balance); err != nil {
				return err
			}
			balance = journal.RoundMoney(balance)

			st, err := app.journal()
			if err != nil {
				return err
			}
			if err := st.SetStartingBalance(ctx, app.userID(), balance); err != nil {
				return err
			}

			logger := logging.FromContext(ctx)
			logger.Info().Float64("starting_balance", balance).Msg("Starting balance set")
			if err := app.Audit.LogBalance(ctx, app.userID(), balance); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			acct, err := currentAccount(ctx, app, st)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(acct)
			}
			output.Success("✓ Starting balance set to %s", output.Money(balance))
			output.Printf("  Current balance: %s\n", output.Money(acct.CurrentBalance))
			return nil
		},
	}
}

func newAccountShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show account figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "account.show")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			acct, err := currentAccount(ctx, app, st)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(acct)
			}
			if acct.UpdatedAt.IsZero() {
				output.Warning("No starting balance set; figures assume 0. Use 'zellax account set <amount>'.")
				output.Println()
			}
			output.Box("Account", []string{
				"Starting balance:  " + output.Money(acct.StartingBalance),
				"Current balance:   " + output.Money(acct.CurrentBalance),
				"Total P&L:         " + output.FormatPnL(acct.TotalPnL),
				"Total return:      " + output.FormatPercent(acct.TotalReturnPercent),
			})
			return nil
		},
	}
}

// currentAccount derives the account figures of the current user from every
// one of their trades.
func currentAccount(ctx context.Context, app *App, st store.JournalStore) (models.AccountBalance, error) {
	trades, err := st.ListTrades(ctx, store.TradeFilter{UserID: app.userID()})
	if err != nil {
		return models.AccountBalance{}, err
	}
	stored, err := st.GetAccount(ctx, app.userID())
	if err != nil && !errs.Is(err, errs.ErrAccountNotSet) {
		return models.AccountBalance{}, err
	}

	var starting float64
	if stored != nil {
		starting = stored.StartingBalance
	}
	acct := journal.DeriveAccount(starting, trades)
	acct.UserID = app.userID()
	if stored != nil {
		acct.UpdatedAt = stored.UpdatedAt
	}
	return acct, nil
}

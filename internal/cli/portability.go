package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"zellax/internal/audit"
	errs "zellax/internal/errors"
	"zellax/internal/logging"
	"zellax/internal/portability"
	"zellax/internal/store"
)

// addPortabilityCommands adds journal export and import.
func addPortabilityCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the journal as YAML or CSV",
		Long: `Write the starting balance, playbooks and trades of the journal to a YAML
document that 'zellax import' can read back. Screenshots are not exported.

--format csv writes only the trades, one row each, for use in a spreadsheet.`,
		Example: `  zellax export > journal.yaml
  zellax export --out backup/2024-q1.yaml
  zellax export --format csv -o trades.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			format, _ := cmd.Flags().GetString("format")
			format = strings.ToLower(format)
			if format != "yaml" && format != "csv" {
				return errs.NewValidationError("format", format, "must be yaml or csv")
			}
			ctx, cancel := app.context(cmd, "export")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			userID := app.userID()
			trades, err := st.ListTrades(ctx, store.TradeFilter{UserID: userID})
			if err != nil {
				return err
			}
			playbooks, err := st.ListPlaybooks(ctx, userID)
			if err != nil {
				return err
			}
			var balance *float64
			if v, ok, err := startingBalance(ctx, st, userID); err != nil {
				return err
			} else if ok {
				balance = &v
			}

			outFile, _ := cmd.Flags().GetString("out")
			var w io.Writer = cmd.OutOrStdout()
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outFile, err)
				}
				defer f.Close()
				w = f
			}
			if format == "csv" {
				err = portability.EncodeCSV(w, trades)
			} else {
				err = portability.Encode(w, portability.NewDocument(userID, balance, playbooks, trades, app.Now()))
			}
			if err != nil {
				return err
			}

			logger := logging.FromContext(ctx)
			logger.Info().
				Int("trades", len(trades)).
				Int("playbooks", len(playbooks)).
				Str("file", outFile).
				Str("format", format).
				Msg("Journal exported")
			if err := app.Audit.LogBulk(ctx, audit.JournalExported, userID, len(trades), len(playbooks)); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if outFile != "" {
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{
						"file":      outFile,
						"trades":    len(trades),
						"playbooks": len(playbooks),
					})
				}
				output.Success("✓ Exported %d trade(s) and %d playbook(s) to %s", len(trades), len(playbooks), outFile)
			}
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringP("format", "f", "yaml", "Output format (yaml, csv)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a YAML journal",
		Long: `Import a document written by 'zellax export' into the current journal.

Every trade is validated before anything is written. Trades are matched by ID,
so importing the same file twice does not duplicate them. Playbooks whose name
already exists are kept as they are. Use - to read from stdin.`,
		Example: `  zellax import journal.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "import")
			defer cancel()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}
			doc, err := portability.Decode(r)
			if err != nil {
				return err
			}

			st, err := app.journal()
			if err != nil {
				return err
			}
			sum, err := portability.Import(ctx, st, doc, app.userID())
			if err != nil {
				return err
			}

			logger := logging.FromContext(ctx)
			logger.Info().
				Int("trades", sum.Trades).
				Int("playbooks", sum.Playbooks).
				Int("skipped_playbooks", sum.SkippedPlaybooks).
				Msg("Journal imported")
			if err := app.Audit.LogBulk(ctx, audit.JournalImported, app.userID(), sum.Trades, sum.Playbooks); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"trades":            sum.Trades,
					"playbooks":         sum.Playbooks,
					"skipped_playbooks": sum.SkippedPlaybooks,
					"balance_set":       sum.BalanceSet,
				})
			}
			output.Success("✓ Imported %d trade(s) and %d playbook(s)", sum.Trades, sum.Playbooks)
			if sum.SkippedPlaybooks > 0 {
				output.Dim("  %d existing playbook(s) left unchanged", sum.SkippedPlaybooks)
			}
			if sum.BalanceSet {
				output.Dim("  Starting balance updated")
			}
			return nil
		},
	}
}

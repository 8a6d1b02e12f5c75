package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"zellax/internal/audit"
	errs "zellax/internal/errors"
	"zellax/internal/journal"
	"zellax/internal/logging"
	"zellax/internal/media"
	"zellax/internal/models"
	"zellax/internal/store"
)

// addTradeCommands adds trade journaling commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "trade",
		Aliases: []string{"trades"},
		Short:   "Record and manage trades",
		Long:    "Add, close, edit and review journaled trades.",
	}

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeCloseCmd(app))
	cmd.AddCommand(newTradeEditCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))
	cmd.AddCommand(newTradeAttachCmd(app))

	rootCmd.AddCommand(cmd)
}

func registerTradeFlags(cmd *cobra.Command) {
	cmd.Flags().String("direction", "long", "Direction: long or short (buy/sell accepted)")
	cmd.Flags().Float64("entry", 0, "Entry price")
	cmd.Flags().Float64("qty", 0, "Quantity")
	cmd.Flags().String("entry-date", "now", "Entry date (YYYY-MM-DD, YYYY-MM-DD HH:MM, RFC3339)")
	registerExitFlags(cmd)
	cmd.Flags().String("strategy", "", "Playbook name")
	cmd.Flags().StringSlice("tags", nil, "Comma-separated tags")
	cmd.Flags().String("notes", "", "Free-form notes")
}

func registerExitFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("exit", 0, "Exit price")
	cmd.Flags().String("exit-date", "", "Exit date (default: entry date, or now when closing)")
	cmd.Flags().Float64("pnl", 0, "Manual P&L, overrides the price-derived value")
}

// applyTradeFlags copies the flags set on the command line into in. Any exit
// flag marks the trade closed.
func applyTradeFlags(cmd *cobra.Command, app *App, in *journal.TradeInput) error {
	flags := cmd.Flags()
	now := app.Now()

	if flags.Changed("direction") {
		v, _ := flags.GetString("direction")
		dir, err := models.ParseDirection(v)
		if err != nil {
			return errs.NewValidationError("direction", v, "must be long or short")
		}
		in.Direction = dir
	}
	if flags.Changed("entry") {
		in.EntryPrice, _ = flags.GetFloat64("entry")
	}
	if flags.Changed("qty") {
		in.Quantity, _ = flags.GetFloat64("qty")
	}
	if flags.Changed("entry-date") {
		v, _ := flags.GetString("entry-date")
		t, err := ParseDate(v, now)
		if err != nil {
			return errs.NewValidationError("entryDate", v, err.Error())
		}
		in.EntryDate = t
	}
	if flags.Changed("exit") {
		v, _ := flags.GetFloat64("exit")
		in.ExitPrice = &v
		in.Status = models.StatusClosed
		if !flags.Changed("pnl") {
			in.ManualPnL = nil
		}
	}
	if flags.Changed("exit-date") {
		v, _ := flags.GetString("exit-date")
		t, err := ParseDate(v, now)
		if err != nil {
			return errs.NewValidationError("exitDate", v, err.Error())
		}
		in.ExitDate = &t
		in.Status = models.StatusClosed
	}
	if flags.Changed("pnl") {
		v, _ := flags.GetFloat64("pnl")
		in.ManualPnL = &v
		in.Status = models.StatusClosed
	}
	if flags.Changed("strategy") {
		in.Strategy, _ = flags.GetString("strategy")
	}
	if flags.Changed("tags") {
		in.Tags, _ = flags.GetStringSlice("tags")
	}
	if flags.Changed("notes") {
		in.Notes, _ = flags.GetString("notes")
	}
	return nil
}

// warnUnknownPlaybook reports a strategy that names no playbook. The trade is
// still saved with the strategy text.
func warnUnknownPlaybook(ctx context.Context, st store.JournalStore, output *Output, userID, strategy string) {
	if strategy == "" || output.IsJSON() {
		return
	}
	if _, err := st.GetPlaybook(ctx, userID, strategy); errs.Is(err, errs.ErrPlaybookNotFound) {
		output.Warning("Playbook %q does not exist yet; create it with 'zellax playbook add'", strategy)
	}
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Record a trade",
		Long: `Record a new trade. Without exit flags the trade stays open.

Give --exit (price) or --pnl (manual P&L) to record a closed trade directly.`,
		Example: `  zellax trade add AAPL --entry 187.20 --qty 50
  zellax trade add ES --direction short --entry 5012.25 --qty 2 --exit 5001 --strategy "ORB Fade"
  zellax trade add NQ --entry 17850 --qty 1 --pnl -240 --tags news,fomo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "trade.add")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}

			in := journal.TradeInput{
				UserID:    app.userID(),
				Symbol:    args[0],
				Direction: models.DirectionLong,
				Status:    models.StatusOpen,
				EntryDate: app.Now(),
			}
			if err := applyTradeFlags(cmd, app, &in); err != nil {
				return err
			}

			trade, err := journal.Normalize(in)
			if err != nil {
				return err
			}
			if err := st.SaveTrade(ctx, &trade); err != nil {
				return err
			}

			logger := logging.WithTradeID(logging.FromContext(ctx), trade.ID)
			logger.Info().
				Str("symbol", trade.Symbol).
				Str("status", string(trade.Status())).
				Msg("Trade recorded")
			if err := app.Audit.LogTrade(ctx, audit.TradeCreated, trade); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Trade %s recorded", ShortID(trade.ID))
			warnUnknownPlaybook(ctx, st, output, app.userID(), trade.Strategy)
			printTrade(output, trade)
			return nil
		},
	}

	registerTradeFlags(cmd)
	return cmd
}

func newTradeCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <trade-id>",
		Short: "Close an open trade",
		Long: `Close an open trade with an exit price or a manual P&L.

The P&L is derived from the exit price unless --pnl is given.`,
		Example: `  zellax trade close 3f2a9c1e-... --exit 192.75
  zellax trade close 3f2a9c1e-... --pnl 310 --exit-date "2024-03-01 15:45"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "trade.close")
			defer cancel()

			if !cmd.Flags().Changed("exit") && !cmd.Flags().Changed("pnl") {
				return errs.MissingField("exitPrice")
			}

			st, err := app.journal()
			if err != nil {
				return err
			}
			existing, err := st.GetTrade(ctx, args[0])
			if err != nil {
				return err
			}
			if existing.IsClosed() {
				return errs.NewValidationError("status", existing.Status(), "trade is already closed; use 'trade edit' to change it")
			}

			in := journal.InputFromTrade(*existing)
			now := app.Now()
			in.ExitDate = &now
			if err := applyTradeFlags(cmd, app, &in); err != nil {
				return err
			}

			trade, err := journal.Normalize(in)
			if err != nil {
				return err
			}
			trade.CreatedAt = existing.CreatedAt
			if err := st.SaveTrade(ctx, &trade); err != nil {
				return err
			}

			pnl, _ := trade.PnL()
			logger := logging.WithTradeID(logging.FromContext(ctx), trade.ID)
			logger.Info().Float64("pnl", pnl).Msg("Trade closed")
			if err := app.Audit.LogTrade(ctx, audit.TradeClosed, trade); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Trade %s closed: %s", ShortID(trade.ID), output.FormatPnL(pnl))
			printTrade(output, trade)
			return nil
		},
	}

	registerExitFlags(cmd)
	return cmd
}

func newTradeEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <trade-id>",
		Short: "Edit a trade",
		Long: `Change any field of a trade. Only the flags given are changed and the
P&L is recomputed from the result. --reopen turns a closed trade back into an
open one.`,
		Example: `  zellax trade edit 3f2a9c1e-... --qty 40
  zellax trade edit 3f2a9c1e-... --exit 193.10 --tags breakout,a-plus
  zellax trade edit 3f2a9c1e-... --reopen`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "trade.edit")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			existing, err := st.GetTrade(ctx, args[0])
			if err != nil {
				return err
			}

			in := journal.InputFromTrade(*existing)
			if cmd.Flags().Changed("symbol") {
				in.Symbol, _ = cmd.Flags().GetString("symbol")
			}
			if reopen, _ := cmd.Flags().GetBool("reopen"); reopen {
				in.Status = models.StatusOpen
				in.ExitPrice, in.ExitDate, in.ManualPnL = nil, nil, nil
			}
			if err := applyTradeFlags(cmd, app, &in); err != nil {
				return err
			}

			trade, err := journal.Normalize(in)
			if err != nil {
				return err
			}
			trade.CreatedAt = existing.CreatedAt
			if err := st.SaveTrade(ctx, &trade); err != nil {
				return err
			}

			logger := logging.WithTradeID(logging.FromContext(ctx), trade.ID)
			logger.Info().Msg("Trade updated")
			if err := app.Audit.LogTrade(ctx, audit.TradeUpdated, trade); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Trade %s updated", ShortID(trade.ID))
			warnUnknownPlaybook(ctx, st, output, app.userID(), trade.Strategy)
			printTrade(output, trade)
			return nil
		},
	}

	registerTradeFlags(cmd)
	cmd.Flags().String("symbol", "", "Instrument symbol")
	cmd.Flags().Bool("reopen", false, "Remove the exit and mark the trade open")
	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <trade-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a trade and its screenshots",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "trade.delete")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			existing, err := st.GetTrade(ctx, args[0])
			if err != nil {
				return err
			}
			if err := st.DeleteTrade(ctx, existing.ID); err != nil {
				return err
			}

			logger := logging.WithTradeID(logging.FromContext(ctx), existing.ID)
			logger.Info().Msg("Trade deleted")
			if err := app.Audit.LogTradeDeleted(ctx, *existing); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": existing.ID})
			}
			output.Success("✓ Trade %s (%s) deleted", ShortID(existing.ID), existing.Symbol)
			return nil
		},
	}
}

// registerFilterFlags adds the trade selection flags shared by the list and
// analytics commands.
func registerFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("symbol", "", "Only trades in this symbol")
	cmd.Flags().String("strategy", "", "Only trades of this playbook")
	cmd.Flags().String("tag", "", "Only trades carrying this tag")
	cmd.Flags().String("from", "", "Entry date lower bound")
	cmd.Flags().String("to", "", "Entry date upper bound")
}

// filterFromFlags builds a store filter for the current user.
func filterFromFlags(cmd *cobra.Command, app *App) (store.TradeFilter, error) {
	filter := store.TradeFilter{UserID: app.userID()}
	filter.Symbol, _ = cmd.Flags().GetString("symbol")
	filter.Strategy, _ = cmd.Flags().GetString("strategy")
	filter.Tag, _ = cmd.Flags().GetString("tag")

	now := app.Now()
	if v, _ := cmd.Flags().GetString("from"); v != "" {
		t, err := ParseDate(v, now)
		if err != nil {
			return filter, errs.NewValidationError("from", v, err.Error())
		}
		filter.StartDate = t
	}
	if v, _ := cmd.Flags().GetString("to"); v != "" {
		t, err := ParseDate(v, now)
		if err != nil {
			return filter, errs.NewValidationError("to", v, err.Error())
		}
		filter.EndDate = t
	}
	return filter, nil
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trades",
		Example: `  zellax trade list --status open
  zellax trade list --strategy "ORB Fade" --from 2024-03-01 --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "trade.list")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(cmd, app)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("status"); v != "" {
				status, err := models.ParseTradeStatus(v)
				if err != nil {
					return errs.NewValidationError("status", v, "must be open or closed")
				}
				filter.Status = status
			}
			filter.Limit, _ = cmd.Flags().GetInt("limit")

			trades, err := st.ListTrades(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if trades == nil {
					trades = []models.Trade{}
				}
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			table := NewTable(output, "ID", "Entry Date", "Symbol", "Side", "Qty", "Entry", "Exit", "P&L", "Strategy")
			for _, t := range trades {
				exit, pnl := output.DimText("open"), ""
				if t.Exit != nil {
					exit = "manual"
					if t.Exit.Price != nil {
						exit = FormatPrice(*t.Exit.Price)
					}
					pnl = output.FormatPnL(t.Exit.PnL)
				}
				table.AddRow(
					ShortID(t.ID),
					FormatDateTime(t.EntryDate),
					t.Symbol,
					strings.ToUpper(string(t.Direction)),
					FormatQuantity(t.Quantity),
					FormatPrice(t.EntryPrice),
					exit,
					pnl,
					TruncateString(t.Strategy, 18),
				)
			}
			table.Render()
			output.Println()
			output.Dim("%d trade(s)", len(trades))
			return nil
		},
	}

	registerFilterFlags(cmd)
	cmd.Flags().String("status", "", "open or closed")
	cmd.Flags().Int("limit", 50, "Show only the most recent N trades (0 for all)")
	return cmd
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trade-id>",
		Short: "Show a trade with its screenshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "trade.show")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			trade, err := st.GetTrade(ctx, args[0])
			if err != nil {
				return err
			}
			attachments, err := st.ListAttachments(ctx, trade.ID)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if attachments == nil {
					attachments = []models.Attachment{}
				}
				return output.JSON(map[string]interface{}{
					"trade":       trade,
					"attachments": attachments,
				})
			}

			output.Bold("Trade %s", trade.ID)
			printTrade(output, *trade)
			if len(attachments) > 0 {
				output.Println()
				output.Bold("Screenshots")
				for _, a := range attachments {
					output.Printf("  %s  %s  %dx%d  %s  %s\n", ShortID(a.ID), a.Filename, a.Width, a.Height,
						FormatBytes(a.Size), FormatAgo(a.CreatedAt, app.Now()))
				}
			}
			return nil
		},
	}
}

func newTradeAttachCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <trade-id> <image>",
		Short: "Attach a chart screenshot to a trade",
		Long: `Attach a JPEG, PNG or GIF screenshot to a trade.

The image is re-encoded as JPEG, lowering quality and then resolution until it
fits the configured media.max_image_bytes.`,
		Example: `  zellax trade attach 3f2a9c1e-... ~/Desktop/es-5m.png`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "trade.attach")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			trade, err := st.GetTrade(ctx, args[0])
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			res, err := media.Compress(raw, media.Options{
				MaxBytes:     app.Config.Media.MaxImageBytes,
				MaxDimension: app.Config.Media.MaxDimension,
				MinQuality:   app.Config.Media.MinQuality,
			})
			if err != nil {
				return err
			}

			att := &models.Attachment{
				TradeID:     trade.ID,
				Filename:    filepath.Base(args[1]),
				ContentType: media.ContentType,
				Width:       res.Width,
				Height:      res.Height,
				Data:        res.Data,
			}
			if err := st.SaveAttachment(ctx, att); err != nil {
				return err
			}

			logger := logging.WithTradeID(logging.FromContext(ctx), trade.ID)
			logger.Info().
				Int("bytes", att.Size).
				Int("quality", res.Quality).
				Int("passes", res.Passes).
				Msg("Screenshot attached")
			if err := app.Audit.LogAttachment(ctx, *att); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if output.IsJSON() {
				return output.JSON(att)
			}
			output.Success("✓ Attached %s to %s", att.Filename, ShortID(trade.ID))
			output.Printf("  %s → %s, %dx%d, quality %d\n", FormatBytes(len(raw)), FormatBytes(att.Size), res.Width, res.Height, res.Quality)
			return nil
		},
	}
}

func printTrade(output *Output, t models.Trade) {
	output.Printf("  Symbol:     %s (%s)\n", t.Symbol, t.Direction)
	output.Printf("  Entry:      %s × %s on %s\n", FormatPrice(t.EntryPrice), FormatQuantity(t.Quantity), FormatDateTime(t.EntryDate))
	if t.Exit != nil {
		exit := "manual P&L"
		if t.Exit.Price != nil {
			exit = FormatPrice(*t.Exit.Price)
		}
		output.Printf("  Exit:       %s on %s (held %s)\n", exit, FormatDateTime(t.Exit.Date), FormatDuration(t.Exit.Date.Sub(t.EntryDate)))
		pnl := output.FormatPnL(t.Exit.PnL)
		if t.Exit.PnLPercent != nil {
			pnl += " (" + output.FormatPercent(*t.Exit.PnLPercent) + ")"
		}
		output.Printf("  P&L:        %s\n", pnl)
	} else {
		output.Printf("  Status:     %s\n", output.DimText("open"))
	}
	if t.Strategy != "" {
		output.Printf("  Strategy:   %s\n", t.Strategy)
	}
	if len(t.Tags) > 0 {
		output.Printf("  Tags:       %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Notes != "" {
		output.Printf("  Notes:      %s\n", t.Notes)
	}
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"zellax/internal/audit"
	errs "zellax/internal/errors"
	"zellax/internal/journal"
	"zellax/internal/logging"
	"zellax/internal/models"
	"zellax/internal/store"
)

// addPlaybookCommands adds playbook (strategy template) commands.
func addPlaybookCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "playbook",
		Aliases: []string{"playbooks", "pb"},
		Short:   "Manage strategy playbooks",
		Long: `Playbooks describe the setups you trade. Trades reference a playbook by
name through --strategy, and every playbook reports the statistics of its
trades.`,
	}

	cmd.AddCommand(newPlaybookAddCmd(app))
	cmd.AddCommand(newPlaybookEditCmd(app))
	cmd.AddCommand(newPlaybookListCmd(app))
	cmd.AddCommand(newPlaybookShowCmd(app))
	cmd.AddCommand(newPlaybookDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func registerPlaybookFlags(cmd *cobra.Command) {
	cmd.Flags().String("description", "", "What the playbook is about")
	cmd.Flags().String("setup", "", "Entry setup")
	cmd.Flags().StringArray("rule", nil, "A trading rule (repeatable)")
	cmd.Flags().String("timeframe", "", "Chart timeframe, e.g. 5m or daily")
}

func applyPlaybookFlags(cmd *cobra.Command, p *models.Playbook) {
	flags := cmd.Flags()
	if flags.Changed("description") {
		p.Description, _ = flags.GetString("description")
	}
	if flags.Changed("setup") {
		p.Setup, _ = flags.GetString("setup")
	}
	if flags.Changed("rule") {
		p.Rules, _ = flags.GetStringArray("rule")
	}
	if flags.Changed("timeframe") {
		p.Timeframe, _ = flags.GetString("timeframe")
	}
}

func newPlaybookAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a playbook",
		Example: `  zellax playbook add "ORB Fade" --timeframe 5m \
    --setup "Failed opening range breakout" \
    --rule "Wait for the 15m range" --rule "Stop above the range high"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "playbook.add")
			defer cancel()

			name := strings.TrimSpace(args[0])
			if name == "" {
				return errs.MissingField("name")
			}

			st, err := app.journal()
			if err != nil {
				return err
			}
			if _, err := st.GetPlaybook(ctx, app.userID(), name); err == nil {
				return fmt.Errorf("%w: %s", errs.ErrPlaybookExists, name)
			}

			p := &models.Playbook{UserID: app.userID(), Name: name}
			applyPlaybookFlags(cmd, p)
			if err := st.SavePlaybook(ctx, p); err != nil {
				return err
			}

			logger := logging.FromContext(ctx)
			logger.Info().Str("playbook", p.Name).Msg("Playbook created")
			if err := app.Audit.LogPlaybook(ctx, audit.PlaybookCreated, p.UserID, p.Name); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if output.IsJSON() {
				return output.JSON(p)
			}
			output.Success("✓ Playbook %q created", p.Name)
			return nil
		},
	}

	registerPlaybookFlags(cmd)
	return cmd
}

func newPlaybookEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Change a playbook",
		Long:  "Change a playbook. --rule replaces the whole rule list.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "playbook.edit")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			p, err := st.GetPlaybook(ctx, app.userID(), args[0])
			if err != nil {
				return err
			}
			applyPlaybookFlags(cmd, p)
			if err := st.SavePlaybook(ctx, p); err != nil {
				return err
			}

			logger := logging.FromContext(ctx)
			logger.Info().Str("playbook", p.Name).Msg("Playbook updated")
			if output.IsJSON() {
				return output.JSON(p)
			}
			output.Success("✓ Playbook %q updated", p.Name)
			return nil
		},
	}

	registerPlaybookFlags(cmd)
	return cmd
}

// playbookRow pairs a playbook with the statistics of its trades.
type playbookRow struct {
	models.Playbook
	Stats models.TradingStats `json:"stats"`
}

func newPlaybookListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List playbooks with their performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "playbook.list")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			playbooks, err := st.ListPlaybooks(ctx, app.userID())
			if err != nil {
				return err
			}
			trades, err := st.ListTrades(ctx, store.TradeFilter{UserID: app.userID()})
			if err != nil {
				return err
			}

			byStrategy := make(map[string]models.TradingStats)
			for _, g := range journal.Breakdown(trades, journal.ByStrategy) {
				byStrategy[strings.ToLower(g.Key)] = g.Stats
			}

			rows := make([]playbookRow, 0, len(playbooks))
			for _, p := range playbooks {
				rows = append(rows, playbookRow{Playbook: p, Stats: byStrategy[strings.ToLower(p.Name)]})
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}
			if len(rows) == 0 {
				output.Info("No playbooks yet. Create one with 'zellax playbook add <name>'.")
				return nil
			}

			table := NewTable(output, "Name", "Timeframe", "Trades", "Win Rate", "P&L", "Profit Factor", "Expectancy")
			for _, r := range rows {
				table.AddRow(
					r.Name,
					r.Timeframe,
					humanCount(r.Stats.ClosedTrades, r.Stats.TotalTrades),
					FormatPercentPlain(r.Stats.WinRate),
					output.FormatPnL(r.Stats.TotalPnL),
					FormatRatio(r.Stats.ProfitFactor),
					output.FormatPnL(r.Stats.Expectancy),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newPlaybookShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a playbook and its statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "playbook.show")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			p, err := st.GetPlaybook(ctx, app.userID(), args[0])
			if err != nil {
				return err
			}
			trades, err := st.ListTrades(ctx, store.TradeFilter{UserID: app.userID(), Strategy: p.Name})
			if err != nil {
				return err
			}
			row := playbookRow{Playbook: *p, Stats: journal.ComputeStats(trades)}

			if output.IsJSON() {
				return output.JSON(row)
			}

			output.Bold("%s", p.Name)
			if p.Description != "" {
				output.Println(p.Description)
			}
			output.Println()
			if p.Timeframe != "" {
				output.Printf("  Timeframe:  %s\n", p.Timeframe)
			}
			if p.Setup != "" {
				output.Printf("  Setup:      %s\n", p.Setup)
			}
			if len(p.Rules) > 0 {
				output.Println("  Rules:")
				for i, r := range p.Rules {
					output.Printf("    %d. %s\n", i+1, r)
				}
			}
			output.Println()
			printStats(output, row.Stats)
			return nil
		},
	}
}

func newPlaybookDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a playbook",
		Long:    "Delete a playbook. Trades that reference it keep their strategy name.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd, "playbook.delete")
			defer cancel()

			st, err := app.journal()
			if err != nil {
				return err
			}
			if err := st.DeletePlaybook(ctx, app.userID(), args[0]); err != nil {
				return err
			}

			logger := logging.FromContext(ctx)
			logger.Info().Str("playbook", args[0]).Msg("Playbook deleted")
			if err := app.Audit.LogPlaybook(ctx, audit.PlaybookDeleted, app.userID(), args[0]); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to write audit event")
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Playbook %q deleted", args[0])
			return nil
		},
	}
}

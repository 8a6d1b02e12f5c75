package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"zellax/internal/audit"
	"zellax/internal/config"
	"zellax/internal/logging"
	"zellax/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.JournalStore
	Audit  *audit.Logger

	// Now is the clock used for defaults such as exit dates and windows.
	Now func() time.Time

	ownsStore bool
}

// NewApp creates the application around a loaded configuration. The store
// and audit trail are opened on first use.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// journal returns the store, opening the SQLite database on first use.
func (a *App) journal() (store.JournalStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	path := a.Config.DatabasePath()
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal at %s: %w", path, err)
	}
	a.Logger.Debug().Str("path", path).Msg("SQLite store initialized")
	a.Store = st
	a.ownsStore = true

	if a.Audit == nil && a.Config.Audit.Enabled {
		al, err := audit.New(audit.Config{Path: a.Config.AuditPath(), MaxSize: 20, MaxBackups: 10, MaxAge: 365}, a.Config.Journal.UserID)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Audit trail unavailable")
		} else {
			a.Audit = al
		}
	}
	return a.Store, nil
}

// userID returns the journal owner all records are scoped to.
func (a *App) userID() string {
	return a.Config.Journal.UserID
}

// output creates an Output using the configured currency.
func (a *App) output(cmd *cobra.Command) *Output {
	return NewOutput(cmd).WithCurrency(a.Config.Journal.Currency)
}

// context returns the command context carrying the operation logger.
func (a *App) context(cmd *cobra.Command, operation string) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithLogger(ctx, logging.WithOperation(a.Logger, operation))
	return context.WithTimeout(ctx, 30*time.Second)
}

// Close releases the store and audit trail opened by the app.
func (a *App) Close() error {
	if err := a.Audit.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close audit trail")
	}
	if a.ownsStore && a.Store != nil {
		err := a.Store.Close()
		a.Store = nil
		return err
	}
	return nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zellax",
		Short: "ZellaX - trading journal and performance analytics",
		Long: `ZellaX is a trading journal for the command line.

Record trades as you take them, close them with an exit price or a manual P&L,
group them under playbooks and review win rate, profit factor, drawdown and the
equity curve over any trailing window.

Use 'zellax <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/zellax)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addPlaybookCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addAnalyticsCommands(rootCmd, app)
	addPortabilityCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("ZellaX v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"config":   app.Config.Dir,
					"database": app.Config.DatabasePath(),
					"log":      app.Config.LogPath(),
					"audit":    app.Config.AuditPath(),
				})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Journal")
	output.Printf("  User:            %s\n", cfg.Journal.UserID)
	output.Printf("  Currency:        %s\n", cfg.Journal.Currency)
	output.Printf("  Default Window:  %s\n", cfg.Window())
	output.Printf("  Database:        %s\n", cfg.DatabasePath())
	output.Println()

	output.Bold("Screenshots")
	output.Printf("  Max Size:        %s\n", FormatBytes(cfg.Media.MaxImageBytes))
	output.Printf("  Max Dimension:   %dpx\n", cfg.Media.MaxDimension)
	output.Printf("  Min Quality:     %d\n", cfg.Media.MinQuality)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Log.Level)
	output.Printf("  File:            %v (%s)\n", cfg.Log.File, cfg.LogPath())
	output.Printf("  Audit:           %v\n", cfg.Audit.Enabled)
	output.Println()

	output.Bold("Watch")
	output.Printf("  Interval:        %s\n", cfg.Watch.Interval)
	metrics := cfg.Watch.MetricsAddr
	if metrics == "" {
		metrics = "disabled"
	}
	output.Printf("  Metrics:         %s\n", metrics)
}

// Execute runs the root command and returns the process exit code.
func Execute(app *App) int {
	rootCmd := NewRootCmd(app)
	err := rootCmd.Execute()
	if closeErr := app.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		app.Logger.Error().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}

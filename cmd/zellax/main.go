// Command zellax is a trading journal and performance analytics CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"zellax/internal/cli"
	"zellax/internal/config"
	"zellax/internal/logging"
)

func main() {
	dir := configDir(os.Args[1:])
	if dir == "" {
		dir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.FromConfig(cfg))
	logger.Debug().Str("config", cfg.Dir).Msg("Configuration loaded")

	os.Exit(cli.Execute(cli.NewApp(cfg, logger)))
}

// configDir finds --config before cobra parses the command line, since the
// configuration has to be loaded to build the app.
func configDir(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--":
			return ""
		case arg == "--config" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

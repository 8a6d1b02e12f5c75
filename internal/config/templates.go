package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# ZellaX Journal Configuration

[journal]
# Journal owner; every trade, playbook and balance is scoped to it
user_id = "default"
# Currency symbol used when printing amounts
currency = "$"
# Dashboard window when none is given: 1D, 1W, 1M, 3M, ALL
default_window = "ALL"
# SQLite database file (empty: journal.db next to this file)
database = ""

[media]
# Stored screenshots are compressed until they fit this many bytes
max_image_bytes = 1048576
# Longest edge in pixels before compression starts
max_dimension = 2048
# Lowest JPEG quality tried before downscaling (1-100)
min_quality = 40

[log]
# Log level: debug, info, warn, error
level = "info"
# Mirror logs to the terminal
console = false
# Write rotating log file under logs/
file = true
max_size = 20
max_backups = 5
max_age = 30

[audit]
# Append every journal change to logs/audit.log
enabled = true

[watch]
# Dashboard refresh interval in watch mode (e.g. "30s", "1m")
interval = "30s"
# Serve Prometheus metrics in watch mode (e.g. ":9108"; empty disables)
metrics_addr = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

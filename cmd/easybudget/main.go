// Command easybudget is a local, offline budget tracker: a SQLite
// ledger of one-off and recurring transactions rendered as a monthly
// calendar of running balances.
package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"easybudget/internal/cli"
	"easybudget/internal/config"
)

// globals holds options shared by every subcommand.
type globals struct {
	Config string `help:"Path to YAML config file." type:"path"`
	DB     string `help:"SQLite database path (overrides config)." type:"path"`
}

var root struct {
	Globals globals `embed:""`

	Serve    serveCmd    `cmd:"" help:"Run the local web UI and JSON API."`
	Expand   expandCmd   `cmd:"" help:"Materialize recurring transactions up to the horizon."`
	Calendar calendarCmd `cmd:"" help:"Print the month calendar with running balances."`
	Add      addCmd      `cmd:"" help:"Record a transaction or a recurring rule."`
}

// initApp performs the shared startup sequence: logging, .env, config
// load plus file overlay plus validation, and CLI overrides.
func initApp(g *globals) (*config.Config, *slog.Logger) {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(logger, g.Config)
	if g.DB != "" {
		cfg.DBPath = g.DB
	}
	return cfg, logger
}

func main() {
	ctx := kong.Parse(&root,
		kong.Name("easybudget"),
		kong.Description("Offline personal budget tracker."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&root.Globals)
	ctx.FatalIfErrorf(err)
}

// Command folio runs Folio's valuation and asset log operations from a shell
// or a scheduler, without the HTTP server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/app"
)

var configPath = flag.String("config", "", "path to folio.toml (defaults to FOLIO_CONFIG, then folio.toml next to the binary)")

// commands lists every registered subcommand.
var commands = []subcommands.Command{
	&valuationCmd{},
	&snapshotCmd{},
	&snapshotsCmd{},
	&recomputeCmd{},
	&syncCmd{},
	&transactionsCmd{},
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openApp initializes the application core for one command.
func openApp(ctx context.Context) (*app.App, error) {
	return app.NewApp(ctx, *configPath)
}

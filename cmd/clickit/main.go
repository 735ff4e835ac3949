package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/clickit/cmd/clickit/commands"
	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("clickit"),
		kong.Description("Build, serve and relay for the Click IT marketing site."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}

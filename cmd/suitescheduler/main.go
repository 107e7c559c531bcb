package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/suitescheduler/cmd/suitescheduler/commands"
	"git.home.luguber.info/inful/suitescheduler/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("suitescheduler"),
		kong.Description("Polls for new builds and dispatches test suites against them."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := ctx.Run(&commands.Global{}); err != nil {
		ctx.Errorf("%v", err)
		os.Exit(1)
	}
}

// Command papertradectl administers trading accounts directly against the ledger database
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "accounts")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

var commands = []subcommands.Command{
	&createAccountCmd{},
	&resetAccountCmd{},
	&balanceCmd{},
	&tradesCmd{},
}

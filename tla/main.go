// Command tla reconstructs trades from a ledger and reports their performance.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/etnz/trades/cmd"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	// a missing .env file is fine, the environment and flags are enough.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("cannot load .env: %v", err)
	}

	// shell completion exits here when invoked by the shell.
	cmd.Completion().Complete("tla")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	cmd.Register(subcommands.DefaultCommander)

	flag.Parse()
	if err := cmd.Setup(); err != nil {
		log.Println(err)
		os.Exit(int(subcommands.ExitUsageError))
	}
	os.Exit(int(subcommands.Execute(context.Background())))
}

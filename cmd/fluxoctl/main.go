// Command fluxoctl runs operator tasks against a fluxo database: issuing API tokens,
// applying the schema, running one pass of the background jobs and auditing transfers.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&tokenCmd{}, "auth")
	commander.Register(&migrateCmd{}, "database")
	commander.Register(&companiesCmd{}, "ledger")
	commander.Register(&jobsCmd{}, "ledger")
	commander.Register(&verifyTransfersCmd{}, "ledger")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

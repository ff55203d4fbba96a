package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/trades"
	"github.com/google/subcommands"
)

type fmtCmd struct {
	output string
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `tla fmt [-o <file>]

  Validates the ledger file, sorts the transactions by date and writes them
  back in a canonical JSONL format: declarations first, one transfer per line.
  The ledger is formatted in-place unless -o is given, "-" for the standard output.
`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, defaults to the ledger file itself")
}

func (c *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := trades.LoadLedger(*ledgerFile)
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}

	switch c.output {
	case "-":
		err = trades.EncodeLedger(os.Stdout, ledger)
	case "":
		err = trades.SaveLedger(*ledgerFile, ledger)
	default:
		err = trades.SaveLedger(c.output, ledger)
	}
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	log.WithField("transactions", ledger.Len()).Infof("formatted %s", *ledgerFile)
	return subcommands.ExitSuccess
}

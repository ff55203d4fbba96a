package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/trades"
	"github.com/etnz/trades/date"
	"github.com/etnz/trades/renderer"
	"github.com/google/subcommands"
)

type categoriesCmd struct {
	taxonomy   string
	on         string
	method     string
	byCurrency bool
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "aggregate trade performance by taxonomy" }
func (*categoriesCmd) Usage() string {
	return `tla categories [-taxonomy <file>] [-on <date>] [-method <method>] [-by-currency]

  Groups all trades by the classifications of a taxonomy, weighted by the
  instrument assignments, and displays each category statistics.
`
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.taxonomy, "taxonomy", getEnv("TLA_TAXONOMY_FILE", "taxonomy.json"), "Path to the taxonomy file (JSON). Env TLA_TAXONOMY_FILE.")
	f.StringVar(&c.on, "on", date.Today().String(), "Valuation date of open trades")
	f.StringVar(&c.method, "method", "fifo", "Cost basis method (fifo, average)")
	f.BoolVar(&c.byCurrency, "by-currency", false, "Split every category by trade currency")
}

func (c *categoriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := date.Parse(c.on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing valuation date: %v\n", err)
		return subcommands.ExitUsageError
	}
	method, err := trades.ParseCostBasisMethod(c.method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing cost basis method: %v\n", err)
		return subcommands.ExitUsageError
	}
	taxonomy, err := trades.LoadTaxonomy(c.taxonomy)
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}

	s, err := openSession()
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	list := s.collect(ctx, s.ledger.Instruments(), on)

	group := trades.GroupByTaxonomy
	if c.byCurrency {
		group = trades.GroupByTaxonomyAndCurrency
	}
	g, err := group(taxonomy, list, s.converter)
	if err != nil {
		log.WithField("taxonomy", c.taxonomy).Error(err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.CategoriesMarkdown(fmt.Sprintf("%s on %s", taxonomy.Name, on), g, method))
	return subcommands.ExitSuccess
}

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

// tradesCmd holds the flags for the 'trades' subcommand.
type tradesCmd struct {
	security string
	on       string
	method   string
	period   string
	end      string
}

func (*tradesCmd) Name() string     { return "trades" }
func (*tradesCmd) Synopsis() string { return "list closed and open trades with their performance" }
func (*tradesCmd) Usage() string {
	return `tla trades [-security <id>] [-on <date>] [-method <method>] [-period <period> -d <date>]

  Matches the ledger transactions into trades and displays their entry and
  exit values, profit, return and IRR. Open trades are valued on -on.
  With -period, only trades closed in the period ending on -d are listed.
`
}

func (c *tradesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.security, "security", "", "Only report trades of this instrument")
	f.StringVar(&c.on, "on", date.Today().String(), "Valuation date of open trades")
	f.StringVar(&c.method, "method", "fifo", "Cost basis method (fifo, average)")
	f.StringVar(&c.period, "period", "", "Predefined period of closed trades (day, week, month, quarter, year)")
	f.StringVar(&c.end, "d", date.Today().String(), "A date within the period")
}

func (c *tradesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	var period *date.Range
	if c.period != "" {
		p, err := date.ParsePeriod(c.period)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
			return subcommands.ExitUsageError
		}
		d, err := date.Parse(c.end)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		r := date.NewRange(d, p)
		period = &r
	}

	s, err := openSession()
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	instruments, err := s.instruments(c.security)
	if err != nil {
		log.Error(err)
		return subcommands.ExitUsageError
	}

	list := s.collect(ctx, instruments, on)
	title := fmt.Sprintf("Trades on %s", on)
	if period != nil {
		list = closedIn(list, *period)
		title = fmt.Sprintf("Trades closed %s", period)
	}
	printMarkdown(renderer.TradesMarkdown(title, list, method))
	return subcommands.ExitSuccess
}

// closedIn returns the trades closed within r.
func closedIn(list []*trades.Trade, r date.Range) []*trades.Trade {
	var res []*trades.Trade
	for _, t := range list {
		if end, ok := t.End(); ok && r.Contains(end) {
			res = append(res, t)
		}
	}
	return res
}

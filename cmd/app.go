// Package cmd implements the tla command line application: trade lot analysis.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/trades"
	"github.com/etnz/trades/date"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&tradesCmd{}, "reports")
	c.Register(&categoriesCmd{}, "reports")
	c.Register(&fmtCmd{}, "ledger")
	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	ledgerFile = flag.String("ledger", "ledger.jsonl", "Path to the ledger file (JSONL format). Env TLA_LEDGER_FILE.")
	marketFile = flag.String("market", "market.jsonl", "Path to the market data file with prices and exchange rates. Env TLA_MARKET_FILE.")
	currency   = flag.String("c", "EUR", "Reporting currency. Env TLA_CURRENCY.")
	verbose    = flag.Bool("v", false, "Verbose logging. Env TLA_VERBOSE.")
	workers    = flag.Int("workers", 4, "Number of instruments collected in parallel")
)

// envFlags are the global flags whose default comes from the environment.
var envFlags = map[string]string{
	"ledger": "TLA_LEDGER_FILE",
	"market": "TLA_MARKET_FILE",
	"c":      "TLA_CURRENCY",
	"v":      "TLA_VERBOSE",
}

// log is the application logger, configured by Setup.
var log = logrus.New()

// Setup applies the environment to the global flags not set on the command
// line, and configures the logger. It must be called after flag.Parse.
func Setup() error {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for name, key := range envFlags {
		if v := os.Getenv(key); v != "" && !set[name] {
			if err := flag.Set(name, v); err != nil {
				return fmt.Errorf("invalid %s=%q: %w", key, v, err)
			}
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// getEnv returns the environment variable key, or fallback if it is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// session holds the data files of a report.
type session struct {
	ledger    *trades.Ledger
	market    *trades.MarketData
	converter trades.CurrencyConverter
}

// openSession loads the ledger and the market data.
func openSession() (*session, error) {
	ledger, err := trades.LoadLedger(*ledgerFile)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"file": *ledgerFile, "instruments": len(ledger.Instruments()), "transactions": ledger.Len()}).Debug("ledger loaded")

	market, err := trades.LoadMarketData(*marketFile, *currency)
	if err != nil {
		return nil, err
	}
	log.WithField("file", *marketFile).Debug("market data loaded")

	return &session{
		ledger:    ledger,
		market:    market,
		converter: trades.NewCachedConverter(market),
	}, nil
}

// collect returns the trades of instruments valued on day 'on'. Instruments
// that fail are logged and skipped.
func (s *session) collect(ctx context.Context, instruments []trades.Instrument, on date.Date) []*trades.Trade {
	collector := trades.NewCollector(s.ledger, s.converter, s.market, on)
	var list []*trades.Trade
	for _, r := range collector.CollectAll(ctx, instruments, *workers) {
		if r.Err != nil {
			log.WithFields(logrus.Fields{"instrument": r.Instrument.ID, "name": r.Instrument.Name}).Warnf("skipped: %v", r.Err)
			continue
		}
		log.WithFields(logrus.Fields{"instrument": r.Instrument.ID, "trades": len(r.Trades)}).Debug("collected")
		if _, ok := s.market.PriceAt(r.Instrument.ID, on); !ok && slices.ContainsFunc(r.Trades, isOpen) {
			log.WithField("instrument", r.Instrument.ID).Warnf("no price on %s, open trades are valued at zero", on)
		}
		list = append(list, r.Trades...)
	}
	if c, ok := s.converter.(interface{ Stats() (int, int) }); ok {
		hits, misses := c.Stats()
		log.WithFields(logrus.Fields{"hits": hits, "misses": misses}).Debug("exchange rate cache")
	}
	return list
}

func isOpen(t *trades.Trade) bool { return !t.IsClosed() }

// instruments returns the declared instruments, or only 'id' if not empty.
func (s *session) instruments(id string) ([]trades.Instrument, error) {
	if id == "" {
		return s.ledger.Instruments(), nil
	}
	parsed, err := trades.ParseID(id)
	if err != nil {
		return nil, err
	}
	inst, ok := s.ledger.Instrument(parsed)
	if !ok {
		return nil, fmt.Errorf("instrument %s is not declared in %s", parsed, *ledgerFile)
	}
	return []trades.Instrument{inst}, nil
}

// printMarkdown renders markdown for the terminal, or prints it raw if it cannot.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "dark")
	if err != nil {
		log.WithError(err).Debug("cannot render markdown")
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

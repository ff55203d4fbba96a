// Package renderer turns trades and categories into markdown reports.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/trades"
)

// TradesMarkdown renders closed and open trades, entry values and P/L per cost basis method.
func TradesMarkdown(title string, list []*trades.Trade, method trades.CostBasisMethod) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Method: %s\n\n", method)

	section := func(name string, closed bool) {
		ConditionalBlock(&b, func(w io.Writer) bool {
			fmt.Fprintf(w, "## %s\n\n", name)
			fmt.Fprintln(w, "| Instrument | Account | Direction | Shares | Start | End | Days | Entry | Exit | P/L | Return | IRR |")
			fmt.Fprintln(w, "|:---|:---|:---|---:|:---|:---|---:|---:|---:|---:|---:|---:|")
			n := 0
			for _, t := range list {
				if t.IsClosed() != closed {
					continue
				}
				n++
				entry, pl, ret := values(t, method)
				fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %d | %s | %s | %s | %s | %s |\n",
					t.Instrument(),
					t.Account(),
					direction(t),
					t.Shares(),
					t.Start(),
					end(t),
					t.HoldingPeriod(),
					entry,
					t.ExitValue(),
					pl.SignedString(),
					trades.Pct(ret).SignedString(),
					rate(t.IRR()),
				)
			}
			fmt.Fprintln(w)
			return n > 0
		})
	}
	section("Closed Trades", true)
	section("Open Trades", false)
	return b.String()
}

// values returns the entry value, P/L and return of t for the method.
func values(t *trades.Trade, method trades.CostBasisMethod) (entry, pl trades.Money, ret float64) {
	if method == trades.MovingAverage {
		return t.EntryValueMovingAverage(), t.ProfitLossMovingAverage(), t.ReturnMovingAverage()
	}
	return t.EntryValue(), t.ProfitLoss(), t.Return()
}

func direction(t *trades.Trade) string {
	if t.IsLong() {
		return "long"
	}
	return "short"
}

func end(t *trades.Trade) string {
	if e, ok := t.End(); ok {
		return e.String()
	}
	return "open"
}

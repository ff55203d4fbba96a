package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/trades"
)

// CategoriesMarkdown renders the weighted statistics of each category of a taxonomy.
func CategoriesMarkdown(title string, g *trades.TradesByTaxonomy, method trades.CostBasisMethod) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Method: %s\n\n", method)

	fmt.Fprintln(&b, "| Category | Trades | Won | Lost | Win Rate | Days | Entry | P/L | Avg Return | IRR |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|---:|---:|---:|---:|")
	for _, c := range g.AsList() {
		var entry, pl trades.Money
		var entryErr, plErr error
		ret := c.AverageReturn()
		if method == trades.MovingAverage {
			entry, entryErr = c.TotalEntryValueMovingAverage()
			pl, plErr = c.TotalProfitLossMovingAverage()
			ret = c.AverageReturnMovingAverage()
		} else {
			entry, entryErr = c.TotalEntryValue()
			pl, plErr = c.TotalProfitLoss()
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %s | %d | %s | %s | %s | %s |\n",
			c.Name(),
			c.TradeCount(),
			c.WinningTradesCount(),
			c.LosingTradesCount(),
			trades.Pct(c.WinRate()),
			c.AverageHoldingPeriod(),
			money(entry, entryErr),
			money(pl, plErr),
			trades.Pct(ret).SignedString(),
			rate(c.AverageIRR()),
		)
	}
	fmt.Fprintf(&b, "| **Total** | **%d** | | | | | | **%s** | | |\n", len(g.Trades()), money(g.TotalProfitLoss()))
	fmt.Fprintln(&b)
	return b.String()
}

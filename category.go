package trades

import (
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/trades/date"
	"github.com/etnz/trades/irr"
	"github.com/shopspring/decimal"
)

// ErrInvalidWeight is returned when a trade is added with a weight outside (0, 1].
var ErrInvalidWeight = errors.New("weight must be in (0, 1]")

// WeightedTrade is the share of a trade attributed to a category.
type WeightedTrade struct {
	Trade  *Trade
	Weight decimal.Decimal
}

// Category aggregates weighted trades.
//
// Aggregates are recomputed on every call, a Category holds no derived state.
// It is not safe for concurrent AddTrade.
type Category struct {
	classification *Classification
	name           string
	currency       string // fixed currency key, empty to derive it from the trades.
	converter      CurrencyConverter
	assignments    []WeightedTrade
	index          map[string]int // trade key -> assignments index
}

// NewCategory returns an empty category for a classification.
func NewCategory(c *Classification, converter CurrencyConverter) *Category {
	return &Category{
		classification: c,
		name:           c.Name,
		converter:      converter,
		index:          make(map[string]int),
	}
}

// newCurrencyCategory returns a category restricted to trades in one currency.
func newCurrencyCategory(c *Classification, converter CurrencyConverter, currency string) *Category {
	cat := NewCategory(c, converter)
	cat.name = fmt.Sprintf("%s (%s)", c.Name, currency)
	cat.currency = currency
	return cat
}

func (c *Category) Classification() *Classification { return c.classification }
func (c *Category) Name() string                    { return c.name }

// AddTrade attributes a weight of trade t to the category.
//
// Adding a trade already present (or an equivalent trade with the same Key) adds up the weights, capped at 1.
func (c *Category) AddTrade(t *Trade, weight decimal.Decimal) error {
	if !weight.IsPositive() || weight.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: cannot add %s to %q with weight %v", ErrInvalidWeight, t, c.name, weight)
	}
	if c.currency != "" && t.Currency() != c.currency {
		return fmt.Errorf("cannot add %s trade %s to %q", t.Currency(), t, c.name)
	}
	if i, ok := c.index[t.Key()]; ok {
		c.assignments[i].Weight = decimal.Min(decimal.NewFromInt(1), c.assignments[i].Weight.Add(weight))
		return nil
	}
	c.index[t.Key()] = len(c.assignments)
	c.assignments = append(c.assignments, WeightedTrade{Trade: t, Weight: weight})
	return nil
}

// Trades returns the distinct trades of the category in the order they were added.
func (c *Category) Trades() []*Trade {
	list := make([]*Trade, len(c.assignments))
	for i, a := range c.assignments {
		list[i] = a.Trade
	}
	return list
}

// Assignments returns a copy of the weighted trades.
func (c *Category) Assignments() []WeightedTrade { return slices.Clone(c.assignments) }

func (c *Category) TradeCount() int { return len(c.assignments) }

// WinningTradesCount counts trades that did not lose money.
func (c *Category) WinningTradesCount() int {
	n := 0
	for _, a := range c.assignments {
		if !a.Trade.IsLoss() {
			n++
		}
	}
	return n
}

func (c *Category) LosingTradesCount() int { return c.TradeCount() - c.WinningTradesCount() }

// TotalWeight returns the sum of the weights.
func (c *Category) TotalWeight() decimal.Decimal {
	var w decimal.Decimal
	for _, a := range c.assignments {
		w = w.Add(a.Weight)
	}
	return w
}

// WinRate returns the weight of winning trades relative to the total weight.
func (c *Category) WinRate() float64 {
	total := c.TotalWeight()
	if total.IsZero() {
		return 0
	}
	var won decimal.Decimal
	for _, a := range c.assignments {
		if !a.Trade.IsLoss() {
			won = won.Add(a.Weight)
		}
	}
	return won.Div(total).InexactFloat64()
}

// AverageHoldingPeriod returns the weighted average holding period of the trades, in days.
func (c *Category) AverageHoldingPeriod() int {
	total := c.TotalWeight()
	if total.IsZero() {
		return 0
	}
	var days decimal.Decimal
	for _, a := range c.assignments {
		days = days.Add(a.Weight.Mul(decimal.NewFromInt(int64(a.Trade.HoldingPeriod()))))
	}
	return int(days.Div(total).Round(0).IntPart())
}

// CurrencyKey returns the currency of the aggregates: the currency shared by
// all trades, or the term currency of the converter if they differ.
func (c *Category) CurrencyKey() string {
	if c.currency != "" {
		return c.currency
	}
	key := ""
	for _, a := range c.assignments {
		switch {
		case key == "":
			key = a.Trade.Currency()
		case key != a.Trade.Currency():
			return c.termCurrency()
		}
	}
	if key == "" {
		return c.termCurrency()
	}
	return key
}

func (c *Category) termCurrency() string {
	if c.converter == nil {
		return ""
	}
	return c.converter.TermCurrency()
}

// total sums the weighted value of each trade converted in the currency key
// at the date the trade is valued.
func (c *Category) total(value func(*Trade) Money) (Money, error) {
	cur := c.CurrencyKey()
	sum := M(0, cur)
	for _, a := range c.assignments {
		v, err := Convert(c.converter, value(a.Trade), cur, a.Trade.ValuedOn())
		if err != nil {
			return Money{}, fmt.Errorf("category %q: %w", c.name, err)
		}
		sum = sum.Add(v.Scale(a.Weight))
	}
	return sum, nil
}

func (c *Category) TotalEntryValue() (Money, error) { return c.total((*Trade).EntryValue) }
func (c *Category) TotalExitValue() (Money, error)  { return c.total((*Trade).ExitValue) }
func (c *Category) TotalProfitLoss() (Money, error) { return c.total((*Trade).ProfitLoss) }
func (c *Category) TotalEntryValueMovingAverage() (Money, error) {
	return c.total((*Trade).EntryValueMovingAverage)
}
func (c *Category) TotalProfitLossMovingAverage() (Money, error) {
	return c.total((*Trade).ProfitLossMovingAverage)
}
func (c *Category) TotalProfitLossWithoutTaxesAndFees() (Money, error) {
	return c.total((*Trade).ProfitLossWithoutTaxesAndFees)
}
func (c *Category) TotalProfitLossMovingAverageWithoutTaxesAndFees() (Money, error) {
	return c.total((*Trade).ProfitLossMovingAverageWithoutTaxesAndFees)
}

// AverageReturn is the arithmetic mean of the trade returns, regardless of weights and sizes.
func (c *Category) AverageReturn() float64 { return c.mean((*Trade).Return) }

// AverageReturnMovingAverage is the arithmetic mean of the trade moving average returns.
func (c *Category) AverageReturnMovingAverage() float64 { return c.mean((*Trade).ReturnMovingAverage) }

func (c *Category) mean(f func(*Trade) float64) float64 {
	if len(c.assignments) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range c.assignments {
		sum += f(a.Trade)
	}
	return sum / float64(len(c.assignments))
}

// AverageIRR solves the IRR of all the weighted cash flows of the category at once.
// It is the money weighted return of the category, not an average of the trade IRRs.
func (c *Category) AverageIRR() (float64, error) {
	cur := c.CurrencyKey()
	var pooled []irr.Flow
	for _, a := range c.assignments {
		w := a.Weight.InexactFloat64()
		for _, f := range a.Trade.cashFlows() {
			rate, err := c.rate(a.Trade.Currency(), cur, f.On)
			if err != nil {
				return 0, fmt.Errorf("category %q: %w", c.name, err)
			}
			pooled = append(pooled, irr.Flow{On: f.On, Amount: f.Amount * rate * w})
		}
	}
	r, err := irr.Calculate(pooled)
	if err != nil {
		return 0, fmt.Errorf("category %q: %w", c.name, err)
	}
	return r, nil
}

func (c *Category) rate(from, to string, on date.Date) (float64, error) {
	if from == to {
		return 1, nil
	}
	if c.converter == nil {
		return 0, fmt.Errorf("%w: cannot convert %s to %s on %v without converter", ErrNoRate, from, to, on)
	}
	r, err := c.converter.RateAt(on, from, to)
	if err != nil {
		return 0, err
	}
	return r.InexactFloat64(), nil
}

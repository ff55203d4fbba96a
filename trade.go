package trades

import (
	"fmt"
	"math"
	"slices"

	"github.com/etnz/trades/date"
	"github.com/etnz/trades/irr"
	"github.com/shopspring/decimal"
)

// Trade is one position lifecycle: shares opened by one or more transactions
// and closed by one transaction, or still open.
//
// All values are in the instrument currency. A Trade is immutable.
type Trade struct {
	instrument Instrument
	account    string
	long       bool
	shares     Quantity
	start      date.Date
	end        date.Date // zero for open trades
	valuedOn   date.Date // valuation date of open trades
	seq        int       // position in the output of Collect

	contributions []Contribution

	entry, entryGross     Money
	exit, exitGross       Money
	entryMA, entryMAGross Money
}

// newTrade computes the values of a trade from its contributions.
// exit is only used for open trades (end is zero) and is the market value of the shares.
func newTrade(inst Instrument, account string, long bool, cs []Contribution, end, valuedOn date.Date, entryMA, entryMAGross, exit Money) *Trade {
	t := &Trade{
		instrument:    inst,
		account:       account,
		long:          long,
		end:           end,
		valuedOn:      valuedOn,
		contributions: cs,
		entryMA:       entryMA.In(inst.Currency),
		entryMAGross:  entryMAGross.In(inst.Currency),
	}
	slices.SortStableFunc(t.contributions, func(a, b Contribution) int { return a.Tx.Date.Compare(b.Tx.Date) })
	t.start = t.contributions[0].Tx.Date

	t.entry, t.entryGross = M(0, inst.Currency), M(0, inst.Currency)
	t.exit, t.exitGross = M(0, inst.Currency), M(0, inst.Currency)
	for _, c := range cs {
		if t.isOpening(c) {
			t.shares = t.shares.Add(c.Shares)
			t.entry = t.entry.Add(c.value)
			t.entryGross = t.entryGross.Add(c.gross)
		} else {
			t.exit = t.exit.Add(c.value)
			t.exitGross = t.exitGross.Add(c.gross)
		}
	}
	if !t.IsClosed() {
		t.exit, t.exitGross = exit.In(inst.Currency), exit.In(inst.Currency)
	}
	return t
}

// isOpening reports whether c opened shares of this trade.
func (t *Trade) isOpening(c Contribution) bool {
	if t.long {
		return c.Tx.Side() == Purchase
	}
	return c.Tx.Side() == Sale
}

func (t *Trade) Instrument() Instrument { return t.instrument }
func (t *Trade) Account() string        { return t.account }
func (t *Trade) Currency() string       { return t.instrument.Currency }
func (t *Trade) IsLong() bool           { return t.long }
func (t *Trade) IsClosed() bool         { return !t.end.IsZero() }
func (t *Trade) Shares() Quantity       { return t.shares }
func (t *Trade) Start() date.Date       { return t.start }

// End returns the closing date, or false if the trade is still open.
func (t *Trade) End() (date.Date, bool) { return t.end, !t.end.IsZero() }

// ValuedOn returns the date values refer to: the closing date or the valuation date of an open trade.
func (t *Trade) ValuedOn() date.Date {
	if t.IsClosed() {
		return t.end
	}
	return t.valuedOn
}

// Transactions returns a copy of the contributions, ordered by date.
func (t *Trade) Transactions() []Contribution { return slices.Clone(t.contributions) }

// EntryValue is the FIFO cost of the shares, taxes and fees included.
// For short trades it is the proceeds of the opening sales.
func (t *Trade) EntryValue() Money                    { return t.entry }
func (t *Trade) EntryValueWithoutTaxesAndFees() Money { return t.entryGross }

// ExitValue is the closing amount, or the market value for open trades.
func (t *Trade) ExitValue() Money                    { return t.exit }
func (t *Trade) ExitValueWithoutTaxesAndFees() Money { return t.exitGross }

// EntryValueMovingAverage is the average cost of the account's shares when the trade was closed,
// or the average cost of the shares still held for open trades.
func (t *Trade) EntryValueMovingAverage() Money                    { return t.entryMA }
func (t *Trade) EntryValueMovingAverageWithoutTaxesAndFees() Money { return t.entryMAGross }

func (t *Trade) ProfitLoss() Money { return t.profitLoss(t.entry, t.exit) }
func (t *Trade) ProfitLossWithoutTaxesAndFees() Money {
	return t.profitLoss(t.entryGross, t.exitGross)
}
func (t *Trade) ProfitLossMovingAverage() Money { return t.profitLoss(t.entryMA, t.exit) }
func (t *Trade) ProfitLossMovingAverageWithoutTaxesAndFees() Money {
	return t.profitLoss(t.entryMAGross, t.exitGross)
}

func (t *Trade) profitLoss(entry, exit Money) Money {
	if t.long {
		return exit.Sub(entry)
	}
	return entry.Sub(exit)
}

// IsLoss reports whether the trade lost money.
func (t *Trade) IsLoss() bool { return t.ProfitLoss().IsNegative() }

// Return is the P/L relative to the entry value: the cost for long trades, the collateral for short trades.
func (t *Trade) Return() float64 { return t.ret(t.entry) }

// ReturnMovingAverage is Return based on the moving average entry value.
func (t *Trade) ReturnMovingAverage() float64 { return t.ret(t.entryMA) }

func (t *Trade) ret(entry Money) float64 {
	if entry.IsZero() {
		return 0
	}
	r := t.exit.Ratio(entry)
	if t.long {
		return r.Sub(decimal.NewFromInt(1)).InexactFloat64()
	}
	return decimal.NewFromInt(1).Sub(r).InexactFloat64()
}

// HoldingPeriod returns the average number of days the shares were held, weighted by shares.
func (t *Trade) HoldingPeriod() int {
	if !t.shares.IsPositive() {
		return 0
	}
	until := t.ValuedOn()
	var days decimal.Decimal
	for _, c := range t.contributions {
		if t.isOpening(c) {
			days = days.Add(c.Shares.Value().Mul(decimal.NewFromInt(int64(date.DaysBetween(c.Tx.Date, until)))))
		}
	}
	return int(days.Div(t.shares.Value()).Round(0).IntPart())
}

// IRR returns the annual money weighted return of the trade.
// It returns irr.ErrUndefined if it has no solution.
func (t *Trade) IRR() (float64, error) {
	r, err := irr.Calculate(t.cashFlows())
	if err != nil {
		return 0, fmt.Errorf("irr of %s: %w", t, err)
	}
	return r, nil
}

// collateral is the part of the opening proceeds of a short trade held back until covered.
type collateral struct {
	shares Quantity
	amount float64
}

// cashFlows returns the dated flows of the trade in its currency.
//
// Long trades pay the purchases and receive the sales. A short trade locks the
// proceeds of its opening sales as collateral (an outflow), each covering
// purchase releases the collateral of the shares it covers minus its cost, and
// the whole collateral is finally returned at the end.
func (t *Trade) cashFlows() []irr.Flow {
	var flows []irr.Flow
	var total, remaining float64
	var locked []collateral

	for _, c := range t.contributions {
		amount := c.value.AsFloat()
		switch {
		case t.isOpening(c):
			if !t.long {
				locked = append(locked, collateral{c.Shares, amount})
				total += amount
				remaining += amount
			}
			amount = -amount
		case !t.long:
			var released float64
			locked, released = release(locked, c.Shares)
			remaining = math.Max(0, remaining-released)
			amount = released - amount
		}
		flows = append(flows, irr.Flow{On: c.Tx.Date, Amount: amount})
	}

	if !t.IsClosed() {
		amount := t.exit.AsFloat()
		if !t.long {
			amount = remaining - amount
		}
		flows = append(flows, irr.Flow{On: t.valuedOn, Amount: amount})
	}
	if !t.long {
		flows = append(flows, irr.Flow{On: t.ValuedOn(), Amount: total})
	}
	return flows
}

// release frees the collateral of 'shares' shares, oldest first.
func release(locked []collateral, shares Quantity) ([]collateral, float64) {
	released := 0.0
	for len(locked) > 0 && shares.IsPositive() {
		lot := &locked[0]
		if !shares.LessThan(lot.shares) {
			released += lot.amount
			shares = shares.Sub(lot.shares)
			locked = locked[1:]
			continue
		}
		part := lot.amount * shares.AsFloat() / lot.shares.AsFloat()
		released += part
		lot.amount -= part
		lot.shares = lot.shares.Sub(shares)
		shares = Q(0)
	}
	return locked, released
}

// Key identifies a trade by value: two trades collected twice from the same history have the same key.
// Trades of an instrument that only differ by their closing transaction have different keys.
func (t *Trade) Key() string {
	end := "open"
	if t.IsClosed() {
		end = t.end.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|#%d", t.instrument.ID, t.start, end, t.account, t.shares, t.seq)
}

func (t *Trade) String() string {
	dir := "long"
	if !t.long {
		dir = "short"
	}
	end := "open"
	if t.IsClosed() {
		end = t.end.String()
	}
	return fmt.Sprintf("%s %s %v %s..%s in %s", dir, t.instrument, t.shares, t.start, end, t.account)
}

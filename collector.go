package trades

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/trades/date"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoHoldings is returned when a sale or a transfer finds no shares in the account.
	ErrNoHoldings = errors.New("no holdings")
	// ErrMissingHoldings is returned when a delivery or a transfer needs more shares than held.
	ErrMissingHoldings = errors.New("missing holdings")
	// ErrConflictingDirection is returned when a transfer moves long shares into a short position or the reverse.
	ErrConflictingDirection = errors.New("conflicting position direction")
)

// CollectorError reports an inconsistent transaction history of an instrument.
type CollectorError struct {
	Instrument ID
	Tx         *Transaction // the transaction that could not be matched, if any.
	Err        error
}

func (e *CollectorError) Error() string {
	if e.Tx == nil {
		return fmt.Sprintf("cannot collect trades of %s: %v", e.Instrument, e.Err)
	}
	return fmt.Sprintf("cannot collect trades of %s: %v: %v", e.Instrument, e.Tx, e.Err)
}

func (e *CollectorError) Unwrap() error { return e.Err }

// TransactionSource provides the transaction history of instruments.
type TransactionSource interface {
	// Transactions returns all transactions of instrument id across all accounts.
	Transactions(id ID) []Transaction
}

// Collector reconstructs trades from the transaction history of an instrument.
type Collector struct {
	source    TransactionSource
	converter CurrencyConverter
	prices    PriceSource
	valuation date.Date
}

// NewCollector returns a Collector valuing open trades on day 'valuation'.
//
// converter is used for transactions not in the instrument currency, prices values open trades.
func NewCollector(source TransactionSource, converter CurrencyConverter, prices PriceSource, valuation date.Date) *Collector {
	return &Collector{
		source:    source,
		converter: converter,
		prices:    prices,
		valuation: valuation,
	}
}

// byDateAndType orders transactions by date, purchases and incoming transfers first on the same day.
func byDateAndType(a, b *Transaction) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	inbound := func(tx *Transaction) bool { return tx.Side() == Purchase || tx.Type == TransferIn }
	switch ia, ib := inbound(a), inbound(b); {
	case ia && !ib:
		return -1
	case !ia && ib:
		return 1
	}
	return 0
}

// collection is the state of a single Collect call.
type collection struct {
	*Collector
	instrument Instrument
	positions  map[string]*position
	accounts   []string // first-seen order
	trades     []*Trade
}

// Collect returns the trades of inst: one closed trade per closing transaction,
// in chronological order, followed by one open trade per account still holding shares.
func (c *Collector) Collect(inst Instrument) ([]*Trade, error) {
	history := c.source.Transactions(inst.ID)
	txs := make([]*Transaction, 0, len(history))
	for i := range history {
		// the collector owns a copy, trades point to it.
		tx := history[i]
		if tx.Instrument != inst.ID {
			continue
		}
		if err := tx.Validate(); err != nil {
			return nil, &CollectorError{Instrument: inst.ID, Tx: &tx, Err: err}
		}
		txs = append(txs, &tx)
	}
	slices.SortStableFunc(txs, byDateAndType)

	col := &collection{
		Collector:  c,
		instrument: inst,
		positions:  make(map[string]*position),
	}
	for _, tx := range txs {
		if err := col.process(tx); err != nil {
			return nil, &CollectorError{Instrument: inst.ID, Tx: tx, Err: err}
		}
	}
	if err := col.openTrades(); err != nil {
		return nil, &CollectorError{Instrument: inst.ID, Err: err}
	}
	for i, t := range col.trades {
		t.seq = i
	}
	return col.trades, nil
}

func (col *collection) position(account string) *position {
	p, ok := col.positions[account]
	if !ok {
		p = &position{account: account}
		col.positions[account] = p
		col.accounts = append(col.accounts, account)
	}
	return p
}

// contribution allocates all the shares of tx, valued in the instrument currency.
func (col *collection) contribution(tx *Transaction) (Contribution, error) {
	cur := col.instrument.Currency
	value, err := Convert(col.converter, tx.Amount, cur, tx.Date)
	if err != nil {
		return Contribution{}, err
	}
	gross, err := Convert(col.converter, tx.GrossValue(), cur, tx.Date)
	if err != nil {
		return Contribution{}, err
	}
	return Contribution{Account: tx.Account, Tx: tx, Shares: tx.Quantity, value: value, gross: gross}, nil
}

func (col *collection) process(tx *Transaction) error {
	switch tx.Type {
	case TransferOut:
		// handled by the matching TransferIn
		return nil
	case TransferIn:
		return col.transfer(tx)
	}

	c, err := col.contribution(tx)
	if err != nil {
		return err
	}
	pos := col.position(tx.Account)
	long := tx.Side() == Purchase

	if pos.empty() || pos.long == long {
		if tx.Type == OutboundDelivery {
			// deliveries never open a short position.
			return ErrNoHoldings
		}
		pos.open(c, long)
		return nil
	}

	// tx closes (part of) the position.
	held := pos.lots.shares()
	closed, rest := c.split(tx.Quantity.Min(held))
	taken, _ := pos.lots.take(closed.Shares)
	entryMA, entryMAGross := pos.average.remove(closed.Shares)
	col.trades = append(col.trades, newTrade(col.instrument, tx.Account, pos.long, append(taken, closed), tx.Date, date.Date{}, entryMA, entryMAGross, Money{}))

	if rest.Shares.IsPositive() {
		if tx.Type == OutboundDelivery {
			return fmt.Errorf("%w: %v more shares to deliver than held", ErrMissingHoldings, rest.Shares)
		}
		// the remainder flips the position.
		pos.open(rest, long)
	}
	return nil
}

// transfer moves lots and their average cost from the counterpart account to tx.Account.
func (col *collection) transfer(tx *Transaction) error {
	src, ok := col.positions[tx.Counterpart]
	if !ok || src.empty() {
		return fmt.Errorf("%w: nothing to transfer from %q", ErrNoHoldings, tx.Counterpart)
	}
	if held := src.lots.shares(); held.LessThan(tx.Quantity) {
		return fmt.Errorf("%w: cannot transfer %v shares from %q holding %v", ErrMissingHoldings, tx.Quantity, tx.Counterpart, held)
	}
	dst := col.position(tx.Account)
	if !dst.empty() && dst.long != src.long {
		return fmt.Errorf("%w: cannot transfer into %q", ErrConflictingDirection, tx.Account)
	}
	if dst.empty() {
		dst.long = src.long
		dst.average = averageCost{}
	}

	moved, _ := src.lots.take(tx.Quantity)
	for i := range moved {
		moved[i].Account = tx.Account
	}
	dst.lots.push(moved...)
	cost, gross := src.average.remove(tx.Quantity)
	dst.average.add(tx.Quantity, cost, gross)
	return nil
}

// openTrades turns the remaining lots of each account into an open trade.
func (col *collection) openTrades() error {
	price, ok := Money{}, false
	if col.prices != nil {
		price, ok = col.prices.PriceAt(col.instrument.ID, col.valuation)
	}
	if ok {
		var err error
		price, err = Convert(col.converter, price, col.instrument.Currency, col.valuation)
		if err != nil {
			return err
		}
	}
	for _, account := range col.accounts {
		pos := col.positions[account]
		if pos.empty() {
			continue
		}
		value := price.Mul(pos.lots.shares())
		col.trades = append(col.trades, newTrade(col.instrument, account, pos.long, slices.Clone(pos.lots), date.Date{}, col.valuation, pos.average.cost, pos.average.gross, value))
	}
	return nil
}

// CollectResult is the outcome of collecting one instrument.
type CollectResult struct {
	Instrument Instrument
	Trades     []*Trade
	Err        error
}

// CollectAll collects the trades of many instruments using at most 'workers' goroutines.
//
// A failure is recorded in the instrument's result and does not stop the
// others. Results are in the order of instruments.
func (c *Collector) CollectAll(ctx context.Context, instruments []Instrument, workers int) []CollectResult {
	results := make([]CollectResult, len(instruments))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, inst := range instruments {
		results[i].Instrument = inst
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Trades, results[i].Err = c.Collect(inst)
			return nil
		})
	}
	_ = g.Wait() // never fails, errors are in the results.
	return results
}

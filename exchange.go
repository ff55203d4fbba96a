package trades

import (
	"errors"
	"fmt"
	"sync"

	"github.com/etnz/trades/date"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// ErrNoRate is returned when no conversion path exists between two currencies.
var ErrNoRate = errors.New("no exchange rate")

// CurrencyConverter converts money between currencies at a given date.
//
// Implementations must be deterministic for a given date.
type CurrencyConverter interface {
	// TermCurrency is the reporting currency mixed currency aggregates are converted to.
	TermCurrency() string
	// RateAt returns how many units of 'to' one unit of 'from' is worth on a given day.
	RateAt(on date.Date, from, to string) (decimal.Decimal, error)
}

// Convert returns m in currency 'to' using the rate of day 'on'.
//
// Money without a currency is only relabelled.
func Convert(c CurrencyConverter, m Money, to string, on date.Date) (Money, error) {
	if m.Currency() == to || m.Currency() == "" {
		return m.In(to), nil
	}
	if c == nil {
		return Money{}, fmt.Errorf("%w: cannot convert %s to %s on %v without converter", ErrNoRate, m.Currency(), to, on)
	}
	rate, err := c.RateAt(on, m.Currency(), to)
	if err != nil {
		return Money{}, err
	}
	return m.Scale(rate).In(to), nil
}

// ExchangeRates is a CurrencyConverter based on daily rate histories of currency pairs.
//
// A pair "EURUSD" holds the price of one EUR in USD. Rates are looked up as of
// the requested day, from the direct pair, the inverse pair or across the term currency.
type ExchangeRates struct {
	term  string
	pairs map[ID]*date.History[float64]
}

// NewExchangeRates returns an empty set of rates reporting in term.
func NewExchangeRates(term string) *ExchangeRates {
	return &ExchangeRates{term: term, pairs: make(map[ID]*date.History[float64])}
}

func (x *ExchangeRates) TermCurrency() string { return x.term }

// Append records the rate of the pair base/quote on a day.
func (x *ExchangeRates) Append(base, quote string, on date.Date, rate float64) error {
	pair, err := NewCurrencyPair(base, quote)
	if err != nil {
		return err
	}
	if rate <= 0 {
		return fmt.Errorf("invalid rate %v for %s on %v: must be positive", rate, pair, on)
	}
	h, ok := x.pairs[pair]
	if !ok {
		h = new(date.History[float64])
		x.pairs[pair] = h
	}
	h.Append(on, rate)
	return nil
}

// direct looks up from/to as a pair or as the inverse pair.
func (x *ExchangeRates) direct(on date.Date, from, to string) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	if h, ok := x.pairs[ID(from+to)]; ok {
		if r, ok := h.ValueAsOf(on); ok {
			return decimal.NewFromFloat(r), true
		}
	}
	if h, ok := x.pairs[ID(to+from)]; ok {
		if r, ok := h.ValueAsOf(on); ok {
			return decimal.NewFromInt(1).Div(decimal.NewFromFloat(r)), true
		}
	}
	return decimal.Zero, false
}

func (x *ExchangeRates) RateAt(on date.Date, from, to string) (decimal.Decimal, error) {
	if r, ok := x.direct(on, from, to); ok {
		return r, nil
	}
	// cross rate through the term currency.
	if x.term != "" && x.term != from && x.term != to {
		r1, ok1 := x.direct(on, from, x.term)
		r2, ok2 := x.direct(on, x.term, to)
		if ok1 && ok2 {
			return r1.Mul(r2), nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w from %s to %s on %v", ErrNoRate, from, to, on)
}

// cachedConverter memoizes successful lookups of another converter.
type cachedConverter struct {
	CurrencyConverter
	rates *cache.Cache

	mu     sync.Mutex
	hits   int
	misses int
}

// NewCachedConverter returns a converter remembering the rates returned by c.
//
// Rates of a given day never change, entries never expire. Errors are not cached.
// The returned converter is safe for concurrent use if c is.
func NewCachedConverter(c CurrencyConverter) CurrencyConverter {
	return &cachedConverter{
		CurrencyConverter: c,
		rates:             cache.New(cache.NoExpiration, 0),
	}
}

func (c *cachedConverter) RateAt(on date.Date, from, to string) (decimal.Decimal, error) {
	key := from + to + "@" + on.String()
	if v, found := c.rates.Get(key); found {
		c.count(true)
		return v.(decimal.Decimal), nil
	}
	c.count(false)
	r, err := c.CurrencyConverter.RateAt(on, from, to)
	if err != nil {
		return r, err
	}
	c.rates.Set(key, r, cache.NoExpiration)
	return r, nil
}

func (c *cachedConverter) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Stats returns the number of lookups served from the cache and forwarded to the underlying converter.
func (c *cachedConverter) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

package trades

import (
	"github.com/etnz/trades/date"
)

// PriceSource values open positions.
type PriceSource interface {
	// PriceAt returns the price of one share of id as of day 'on', or false if unknown.
	PriceAt(id ID, on date.Date) (Money, bool)
}

// Prices is a PriceSource holding a daily price history per instrument.
type Prices struct {
	history  map[ID]*date.History[float64]
	currency map[ID]string
}

// NewPrices returns an empty price database.
func NewPrices() *Prices {
	return &Prices{
		history:  make(map[ID]*date.History[float64]),
		currency: make(map[ID]string),
	}
}

// Append records the price of id on a day. The currency of the last price appended wins.
func (p *Prices) Append(id ID, on date.Date, price Money) {
	h, ok := p.history[id]
	if !ok {
		h = new(date.History[float64])
		p.history[id] = h
	}
	h.Append(on, price.AsFloat())
	p.currency[id] = price.Currency()
}

// PriceAt returns the last known price of id on or before day 'on'.
func (p *Prices) PriceAt(id ID, on date.Date) (Money, bool) {
	h, ok := p.history[id]
	if !ok {
		return Money{}, false
	}
	v, ok := h.ValueAsOf(on)
	if !ok {
		return Money{}, false
	}
	return M(v, p.currency[id]), true
}

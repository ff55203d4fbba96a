package trades

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/trades/date"
)

// This file reads market data: daily prices of instruments and exchange rates.
//
// The market file is a JSONL file, one price or one rate per line:
//
//	{"on":"2025-01-02","security":"US0378331005.XNAS","price":243.85,"currency":"USD"}
//	{"on":"2025-01-02","pair":"EURUSD","rate":1.0354}

// MarketData holds prices and exchange rates. It is both a PriceSource and a CurrencyConverter.
type MarketData struct {
	*Prices
	*ExchangeRates
}

// NewMarketData returns empty market data converting to term.
func NewMarketData(term string) *MarketData {
	return &MarketData{Prices: NewPrices(), ExchangeRates: NewExchangeRates(term)}
}

// marketLine holds every field a market line can have.
type marketLine struct {
	On       date.Date `json:"on"`
	Security string    `json:"security"`
	Price    *float64  `json:"price"`
	Currency string    `json:"currency"`
	Pair     string    `json:"pair"`
	Rate     *float64  `json:"rate"`
}

// Decode reads market lines from r. filename is only used in error messages.
func (m *MarketData) Decode(filename string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		txt := scanner.Text()
		if strings.TrimSpace(txt) == "" {
			continue
		}
		if err := m.decodeLine(txt); err != nil {
			return fmt.Errorf("parse error %s:%d: %w", filename, i, err)
		}
	}
	return scanner.Err()
}

func (m *MarketData) decodeLine(txt string) error {
	var l marketLine
	if err := json.Unmarshal([]byte(txt), &l); err != nil {
		return fmt.Errorf("not a correct json: %w", err)
	}
	if l.On.IsZero() {
		return fmt.Errorf("missing the property %q with a date", "on")
	}
	switch {
	case l.Security != "" && l.Price != nil:
		id, err := ParseID(l.Security)
		if err != nil {
			return err
		}
		m.Prices.Append(id, l.On, M(*l.Price, l.Currency))
		return nil
	case l.Pair != "" && l.Rate != nil:
		base, quote, ok := ID(l.Pair).CurrencyPair()
		if !ok {
			return fmt.Errorf("invalid currency pair %q", l.Pair)
		}
		return m.ExchangeRates.Append(base, quote, l.On, *l.Rate)
	default:
		return fmt.Errorf("line must be either a 'security' 'price' or a 'pair' 'rate'")
	}
}

// LoadMarketData reads a market file. A missing file is an empty market.
func LoadMarketData(filename, term string) (*MarketData, error) {
	m := NewMarketData(term)
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil // Empty database.
		}
		return nil, fmt.Errorf("load error: cannot open market file %q: %w", filename, err)
	}
	defer f.Close()
	if err := m.Decode(filename, f); err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	return m, nil
}

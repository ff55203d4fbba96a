package trades

import (
	"math"
	"testing"

	"github.com/etnz/trades/date"
)

var (
	AAPL, _   = NewMSSI("US0378331005", "XNAS")
	USDEUR, _ = NewCurrencyPair("USD", "EUR")

	// acme is a test stock traded in EUR.
	acme = Instrument{ID: "ACME Corp", Name: "Acme", Currency: "EUR"}
)

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

func fee(v float64) Unit { return Unit{Kind: Fee, Amount: EUR(v)} }
func tax(v float64) Unit { return Unit{Kind: Tax, Amount: EUR(v)} }

// tx creates an acme transaction paid in EUR.
func tx(on string, typ TxType, account string, shares, amount float64, units ...Unit) Transaction {
	return Transaction{
		Date:       date.MustParse(on),
		Type:       typ,
		Account:    account,
		Instrument: acme.ID,
		Quantity:   Q(shares),
		Amount:     EUR(amount),
		Units:      units,
	}
}

// transfer creates the pair of transactions moving acme shares between accounts.
func transfer(on, from, to string, shares float64) []Transaction {
	out := tx(on, TransferOut, from, shares, 0)
	out.Counterpart = to
	in := tx(on, TransferIn, to, shares, 0)
	in.Counterpart = from
	return []Transaction{out, in}
}

// newTestLedger returns a ledger with acme declared and txs appended.
func newTestLedger(t *testing.T, txs ...Transaction) *Ledger {
	t.Helper()
	l := NewLedger()
	if err := l.Declare(acme); err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	if err := l.Append(txs...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	return l
}

// collect returns the acme trades, open trades valued on 'valuation' at 'price' (if not zero).
func collect(t *testing.T, valuation string, price float64, txs ...Transaction) []*Trade {
	t.Helper()
	prices := NewPrices()
	if price != 0 {
		prices.Append(acme.ID, date.MustParse(valuation), EUR(price))
	}
	c := NewCollector(newTestLedger(t, txs...), NewExchangeRates("EUR"), prices, date.MustParse(valuation))
	trades, err := c.Collect(acme)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return trades
}

// assertMoney checks a value rounded to cents.
func assertMoney(t *testing.T, name string, got, want Money) {
	t.Helper()
	if !got.Round().Equal(want) {
		t.Errorf("%s = %v (%s), want %v", name, got, got.Value(), want)
	}
}

// assertNear checks a float with a tolerance of 1e-4.
func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-4 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

package trades

import (
	"errors"
	"sync"
	"testing"

	"github.com/etnz/trades/date"
	"github.com/shopspring/decimal"
)

func testRates(t *testing.T) *ExchangeRates {
	t.Helper()
	x := NewExchangeRates("EUR")
	for _, r := range []struct {
		base, quote string
		on          string
		rate        float64
	}{
		{"EUR", "USD", "2025-01-01", 1.25},
		{"EUR", "USD", "2025-02-01", 1.1},
		{"GBP", "EUR", "2025-01-01", 1.2},
	} {
		if err := x.Append(r.base, r.quote, date.MustParse(r.on), r.rate); err != nil {
			t.Fatal(err)
		}
	}
	return x
}

func TestExchangeRates_RateAt(t *testing.T) {
	x := testRates(t)
	tests := []struct {
		name     string
		on       string
		from, to string
		want     float64
		wantErr  error
	}{
		{"same currency", "2020-01-01", "JPY", "JPY", 1, nil},
		{"direct", "2025-01-15", "EUR", "USD", 1.25, nil},
		{"as of", "2025-03-01", "EUR", "USD", 1.1, nil},
		{"inverse", "2025-01-15", "USD", "EUR", 0.8, nil},
		{"cross", "2025-01-15", "GBP", "USD", 1.5, nil},
		{"cross inverse", "2025-01-15", "USD", "GBP", 0.8 / 1.2, nil},
		{"before history", "2024-12-31", "EUR", "USD", 0, ErrNoRate},
		{"unknown", "2025-01-15", "EUR", "CHF", 0, ErrNoRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := x.RateAt(date.MustParse(tt.on), tt.from, tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RateAt() error = %v, want %v", err, tt.wantErr)
			}
			assertNear(t, "RateAt()", got.InexactFloat64(), tt.want)
		})
	}
}

func TestExchangeRates_Append(t *testing.T) {
	x := NewExchangeRates("EUR")
	if err := x.Append("EUR", "USD", date.New(2025, 1, 1), 0); err == nil {
		t.Errorf("Append() with a zero rate should fail")
	}
	if err := x.Append("EURO", "USD", date.New(2025, 1, 1), 1); err == nil {
		t.Errorf("Append() with an invalid currency should fail")
	}
}

func TestConvert(t *testing.T) {
	on := date.New(2025, 1, 15)
	got, err := Convert(testRates(t), USD(100), "EUR", on)
	if err != nil {
		t.Fatal(err)
	}
	assertMoney(t, "Convert(USD)", got, EUR(80))

	// without currency money is just relabelled.
	got, err = Convert(nil, M(5, ""), "EUR", on)
	if err != nil {
		t.Fatal(err)
	}
	assertMoney(t, "Convert(\"\")", got, EUR(5))

	if _, err := Convert(nil, USD(1), "EUR", on); !errors.Is(err, ErrNoRate) {
		t.Errorf("Convert() without converter error = %v, want ErrNoRate", err)
	}
}

func TestCachedConverter(t *testing.T) {
	c := NewCachedConverter(testRates(t)).(*cachedConverter)
	if c.TermCurrency() != "EUR" {
		t.Errorf("TermCurrency() = %q, want EUR", c.TermCurrency())
	}
	on := date.New(2025, 1, 15)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.RateAt(on, "GBP", "USD")
			if err != nil || !r.Equal(decimal.NewFromFloat(1.5)) {
				t.Errorf("RateAt() = %v, %v, want 1.5", r, err)
			}
		}()
	}
	wg.Wait()
	if _, err := c.RateAt(on, "EUR", "CHF"); !errors.Is(err, ErrNoRate) {
		t.Errorf("RateAt() error = %v, want ErrNoRate", err)
	}
	if _, err := c.RateAt(on, "EUR", "CHF"); err == nil {
		t.Errorf("errors must not be cached")
	}

	hits, misses := c.Stats()
	if hits+misses != 12 || misses < 3 {
		t.Errorf("Stats() = %d hits, %d misses", hits, misses)
	}
}

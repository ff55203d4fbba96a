package trades

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/trades/date"
	"github.com/google/go-cmp/cmp"
)

func TestCollector_Long(t *testing.T) {
	trades := collect(t, "2025-01-01", 0,
		tx("2024-01-01", Buy, "one", 5, 500),
		tx("2024-12-31", Sell, "one", 5, 900),
	)
	if len(trades) != 1 {
		t.Fatalf("Collect() returned %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if !tr.IsLong() || !tr.IsClosed() {
		t.Errorf("trade %v should be a closed long trade", tr)
	}
	if end, ok := tr.End(); !ok || end != date.New(2024, 12, 31) {
		t.Errorf("End() = %v, %v, want 2024-12-31, true", end, ok)
	}
	assertMoney(t, "EntryValue()", tr.EntryValue(), EUR(500))
	assertMoney(t, "ExitValue()", tr.ExitValue(), EUR(900))
	assertMoney(t, "ProfitLoss()", tr.ProfitLoss(), EUR(400))
	assertMoney(t, "ProfitLossMovingAverage()", tr.ProfitLossMovingAverage(), EUR(400))
	assertNear(t, "Return()", tr.Return(), 0.8)
	irr, err := tr.IRR()
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}
	assertNear(t, "IRR()", irr, 0.8)
}

func TestCollector_LongUnclosed(t *testing.T) {
	trades := collect(t, "2025-01-01", 210,
		tx("2024-01-01", Buy, "one", 5, 500),
		tx("2024-12-31", Sell, "one", 3, 540),
	)
	if len(trades) != 2 {
		t.Fatalf("Collect() returned %d trades, want 2", len(trades))
	}
	closed, open := trades[0], trades[1]

	if !closed.Shares().Equal(Q(3)) {
		t.Errorf("closed.Shares() = %v, want 3", closed.Shares())
	}
	assertMoney(t, "closed.EntryValue()", closed.EntryValue(), EUR(300))
	assertMoney(t, "closed.ExitValue()", closed.ExitValue(), EUR(540))

	if open.IsClosed() {
		t.Errorf("open trade %v is closed", open)
	}
	if !open.Shares().Equal(Q(2)) {
		t.Errorf("open.Shares() = %v, want 2", open.Shares())
	}
	if got := open.ValuedOn(); got != date.New(2025, 1, 1) {
		t.Errorf("open.ValuedOn() = %v, want 2025-01-01", got)
	}
	assertMoney(t, "open.EntryValue()", open.EntryValue(), EUR(200))
	assertMoney(t, "open.ExitValue()", open.ExitValue(), EUR(420))
	assertNear(t, "open.Return()", open.Return(), 1.1)
}

func TestCollector_Short(t *testing.T) {
	trades := collect(t, "2025-01-01", 0,
		tx("2024-01-01", Sell, "one", 3, 60),
		tx("2024-12-31", Buy, "one", 3, 15),
	)
	if len(trades) != 1 {
		t.Fatalf("Collect() returned %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if tr.IsLong() {
		t.Errorf("trade %v should be short", tr)
	}
	assertMoney(t, "EntryValue()", tr.EntryValue(), EUR(60))
	assertMoney(t, "ExitValue()", tr.ExitValue(), EUR(15))
	assertMoney(t, "ProfitLoss()", tr.ProfitLoss(), EUR(45))
	assertNear(t, "Return()", tr.Return(), 0.75)
	irr, err := tr.IRR()
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}
	assertNear(t, "IRR()", irr, 0.75)
}

func TestCollector_MultipleBuys(t *testing.T) {
	trades := collect(t, "2025-01-01", 2,
		tx("2024-01-01", Buy, "one", 12, 120),
		tx("2024-02-01", Buy, "one", 5, 60),
		tx("2024-03-01", Buy, "one", 3, 90),
		tx("2024-12-31", Sell, "one", 18, 360),
	)
	if len(trades) != 2 {
		t.Fatalf("Collect() returned %d trades, want 2", len(trades))
	}
	closed, open := trades[0], trades[1]

	if !closed.Shares().Equal(Q(18)) {
		t.Errorf("closed.Shares() = %v, want 18", closed.Shares())
	}
	if got := len(closed.Transactions()); got != 4 {
		t.Errorf("len(closed.Transactions()) = %d, want 4", got)
	}
	assertMoney(t, "closed.EntryValue()", closed.EntryValue(), EUR(210))
	assertMoney(t, "closed.ProfitLoss()", closed.ProfitLoss(), EUR(150))
	irr, err := closed.IRR()
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}
	assertNear(t, "closed.IRR()", irr, 0.76018)

	if !open.Shares().Equal(Q(2)) {
		t.Errorf("open.Shares() = %v, want 2", open.Shares())
	}
	if got := open.Start(); got != date.New(2024, 3, 1) {
		t.Errorf("open.Start() = %v, want 2024-03-01", got)
	}
	assertMoney(t, "open.ProfitLoss()", open.ProfitLoss(), EUR(4-60))
	if !open.IsLoss() {
		t.Errorf("open.IsLoss() = false, want true")
	}
}

func TestCollector_ShortMultipleSells(t *testing.T) {
	txs := []Transaction{
		tx("2024-01-01", Sell, "one", 2, 200),
		tx("2024-02-01", Sell, "one", 3, 360),
		tx("2024-03-01", Sell, "one", 2, 100),
		tx("2024-12-31", Buy, "one", 4, 80),
	}

	t.Run("without price", func(t *testing.T) {
		trades := collect(t, "2025-03-01", 0, txs...)
		if len(trades) != 2 {
			t.Fatalf("Collect() returned %d trades, want 2", len(trades))
		}
		closed, open := trades[0], trades[1]

		assertMoney(t, "closed.EntryValue()", closed.EntryValue(), EUR(440))
		assertMoney(t, "closed.ExitValue()", closed.ExitValue(), EUR(80))
		assertMoney(t, "closed.EntryValueMovingAverage()", closed.EntryValueMovingAverage(), EUR(377.14))
		irr, err := closed.IRR()
		if err != nil {
			t.Fatalf("IRR() error = %v", err)
		}
		assertNear(t, "closed.IRR()", irr, 0.87107)

		if open.IsLong() || !open.Shares().Equal(Q(3)) {
			t.Errorf("open = %v, want short of 3 shares", open)
		}
		assertMoney(t, "open.EntryValue()", open.EntryValue(), EUR(220))
		assertMoney(t, "open.ExitValue()", open.ExitValue(), EUR(0))
		assertMoney(t, "open.ProfitLoss()", open.ProfitLoss(), EUR(220))
		assertNear(t, "open.Return()", open.Return(), 1)
	})

	t.Run("with price", func(t *testing.T) {
		trades := collect(t, "2025-03-01", 30, txs...)
		open := trades[1]
		assertMoney(t, "open.ExitValue()", open.ExitValue(), EUR(90))
		assertMoney(t, "open.ProfitLossMovingAverage()", open.ProfitLossMovingAverage(), EUR(192.86))
	})
}

func TestCollector_TaxesAndFees(t *testing.T) {
	deliveries := []Transaction{
		tx("2022-01-01", InboundDelivery, "one", 5, 520, fee(10), tax(10)),
		tx("2022-02-01", InboundDelivery, "one", 10, 1000),
	}

	t.Run("open", func(t *testing.T) {
		trades := collect(t, "2022-03-01", 200, deliveries...)
		if len(trades) != 1 {
			t.Fatalf("Collect() returned %d trades, want 1", len(trades))
		}
		open := trades[0]
		assertMoney(t, "ProfitLoss()", open.ProfitLoss(), EUR(1480))
		assertMoney(t, "ProfitLossWithoutTaxesAndFees()", open.ProfitLossWithoutTaxesAndFees(), EUR(1500))
	})

	t.Run("closed", func(t *testing.T) {
		txs := append(deliveries, tx("2022-03-01", OutboundDelivery, "one", 10, 1480, fee(10), tax(10)))
		trades := collect(t, "2023-03-01", 200, txs...)
		if len(trades) != 2 {
			t.Fatalf("Collect() returned %d trades, want 2", len(trades))
		}
		closed, open := trades[0], trades[1]

		assertMoney(t, "closed.ProfitLoss()", closed.ProfitLoss(), EUR(460))
		assertMoney(t, "closed.ProfitLossMovingAverage()", closed.ProfitLossMovingAverage(), EUR(466.67))
		assertMoney(t, "closed.ProfitLossWithoutTaxesAndFees()", closed.ProfitLossWithoutTaxesAndFees(), EUR(500))
		assertMoney(t, "closed.ProfitLossMovingAverageWithoutTaxesAndFees()", closed.ProfitLossMovingAverageWithoutTaxesAndFees(), EUR(500))
		assertNear(t, "closed.Return()", closed.Return(), 0.45098)
		assertNear(t, "closed.ReturnMovingAverage()", closed.ReturnMovingAverage(), 0.46053)

		assertMoney(t, "open.ProfitLoss()", open.ProfitLoss(), EUR(500))
		assertMoney(t, "open.ProfitLossMovingAverage()", open.ProfitLossMovingAverage(), EUR(493.33))
		assertMoney(t, "open.ProfitLossWithoutTaxesAndFees()", open.ProfitLossWithoutTaxesAndFees(), EUR(500))
		assertMoney(t, "open.ProfitLossMovingAverageWithoutTaxesAndFees()", open.ProfitLossMovingAverageWithoutTaxesAndFees(), EUR(500))
		assertNear(t, "open.Return()", open.Return(), 1)
		assertNear(t, "open.ReturnMovingAverage()", open.ReturnMovingAverage(), 0.97368)
	})
}

func TestCollector_SeveralAccounts(t *testing.T) {
	trades := collect(t, "2023-03-01", 200,
		tx("2022-01-01", Buy, "one", 5, 500, fee(10), tax(10)),
		tx("2022-02-01", Buy, "one", 10, 1000),
		tx("2022-03-01", Sell, "one", 10, 1500, fee(10), tax(10)),
		tx("2022-01-02", Buy, "two", 5, 1000, fee(10), tax(10)),
		tx("2022-02-02", Buy, "two", 10, 2000),
		tx("2022-03-02", Sell, "two", 10, 1500, fee(10), tax(10)),
	)
	if len(trades) != 4 {
		t.Fatalf("Collect() returned %d trades, want 4", len(trades))
	}

	tests := []struct {
		account string
		start   date.Date
		closed  bool
		pl      Money
		plGross Money
	}{
		{"one", date.New(2022, 1, 1), true, EUR(500), EUR(533.33)},
		{"two", date.New(2022, 1, 2), true, EUR(-500), EUR(-466.67)},
		{"one", date.New(2022, 2, 1), false, EUR(500), EUR(506.67)},
		{"two", date.New(2022, 2, 2), false, EUR(0), EUR(6.67)},
	}
	for i, tt := range tests {
		tr := trades[i]
		if tr.Account() != tt.account || tr.Start() != tt.start || tr.IsClosed() != tt.closed {
			t.Errorf("trades[%d] = %v, want account %q starting %v (closed: %v)", i, tr, tt.account, tt.start, tt.closed)
		}
		assertMoney(t, "ProfitLossMovingAverage()", tr.ProfitLossMovingAverage(), tt.pl)
		assertMoney(t, "ProfitLossMovingAverageWithoutTaxesAndFees()", tr.ProfitLossMovingAverageWithoutTaxesAndFees(), tt.plGross)
	}
}

func TestCollector_Transfer(t *testing.T) {
	txs := []Transaction{
		tx("2024-01-01", Buy, "A", 10, 100),
		tx("2024-02-01", Buy, "A", 10, 200),
	}
	txs = append(txs, transfer("2024-03-01", "A", "B", 15)...)
	txs = append(txs,
		tx("2024-04-01", Sell, "A", 5, 150),
		tx("2024-05-01", Sell, "B", 15, 450),
	)
	trades := collect(t, "2025-01-01", 0, txs...)
	if len(trades) != 2 {
		t.Fatalf("Collect() returned %d trades, want 2", len(trades))
	}
	a, b := trades[0], trades[1]

	if a.Account() != "A" || a.Start() != date.New(2024, 2, 1) {
		t.Errorf("trades[0] = %v, want account A starting 2024-02-01", a)
	}
	assertMoney(t, "A.EntryValue()", a.EntryValue(), EUR(100))
	assertMoney(t, "A.EntryValueMovingAverage()", a.EntryValueMovingAverage(), EUR(75))

	if b.Account() != "B" || b.Start() != date.New(2024, 1, 1) {
		t.Errorf("trades[1] = %v, want account B starting 2024-01-01", b)
	}
	assertMoney(t, "B.EntryValue()", b.EntryValue(), EUR(200))
	assertMoney(t, "B.EntryValueMovingAverage()", b.EntryValueMovingAverage(), EUR(225))
	for _, c := range b.Transactions() {
		if c.Account != "B" {
			t.Errorf("contribution %v of trade B is in account %q", c.Tx, c.Account)
		}
	}
}

func TestCollector_Flip(t *testing.T) {
	trades := collect(t, "2024-12-31", 100,
		tx("2024-01-01", Buy, "one", 5, 500),
		tx("2024-06-01", Sell, "one", 8, 960),
	)
	if len(trades) != 2 {
		t.Fatalf("Collect() returned %d trades, want 2", len(trades))
	}
	closed, open := trades[0], trades[1]
	if !closed.IsLong() || !closed.Shares().Equal(Q(5)) {
		t.Errorf("closed = %v, want long of 5 shares", closed)
	}
	assertMoney(t, "closed.ExitValue()", closed.ExitValue(), EUR(600))

	if open.IsLong() || !open.Shares().Equal(Q(3)) {
		t.Errorf("open = %v, want short of 3 shares", open)
	}
	if got := open.Start(); got != date.New(2024, 6, 1) {
		t.Errorf("open.Start() = %v, want 2024-06-01", got)
	}
	assertMoney(t, "open.EntryValue()", open.EntryValue(), EUR(360))
	assertMoney(t, "open.ProfitLoss()", open.ProfitLoss(), EUR(60))
}

func TestCollector_SameDayRoundTrip(t *testing.T) {
	// the sale is recorded before the purchase
	trades := collect(t, "2024-12-31", 0,
		tx("2024-05-05", Sell, "one", 5, 500),
		tx("2024-05-05", Buy, "one", 5, 500),
	)
	if len(trades) != 1 {
		t.Fatalf("Collect() returned %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if !tr.IsLong() || !tr.IsClosed() {
		t.Errorf("trade %v should be a closed long trade", tr)
	}
	if got := tr.HoldingPeriod(); got != 0 {
		t.Errorf("HoldingPeriod() = %d, want 0", got)
	}
	assertMoney(t, "ProfitLoss()", tr.ProfitLoss(), EUR(0))
}

func TestCollector_Errors(t *testing.T) {
	tests := []struct {
		name string
		txs  []Transaction
		want error
	}{
		{
			name: "delivery without holdings",
			txs:  []Transaction{tx("2024-01-01", OutboundDelivery, "one", 5, 500)},
			want: ErrNoHoldings,
		},
		{
			name: "delivery of missing shares",
			txs: []Transaction{
				tx("2024-01-01", Buy, "one", 5, 500),
				tx("2024-02-01", OutboundDelivery, "one", 10, 1000),
			},
			want: ErrMissingHoldings,
		},
		{
			name: "transfer without holdings",
			txs:  transfer("2024-01-01", "one", "two", 5),
			want: ErrNoHoldings,
		},
		{
			name: "transfer of missing shares",
			txs: append([]Transaction{tx("2024-01-01", Buy, "one", 5, 500)},
				transfer("2024-02-01", "one", "two", 10)...),
			want: ErrMissingHoldings,
		},
		{
			name: "transfer into a short position",
			txs: append([]Transaction{
				tx("2024-01-01", Buy, "one", 5, 500),
				tx("2024-01-01", Sell, "two", 5, 500),
			}, transfer("2024-02-01", "one", "two", 5)...),
			want: ErrConflictingDirection,
		},
		{
			name: "invalid quantity",
			txs:  []Transaction{tx("2024-01-01", Buy, "one", 0, 500)},
			want: ErrInvalidTransaction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(newTestLedger(t, tt.txs...), nil, nil, date.New(2025, 1, 1))
			_, err := c.Collect(acme)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Collect() error = %v, want %v", err, tt.want)
			}
			var cerr *CollectorError
			if !errors.As(err, &cerr) || cerr.Instrument != acme.ID {
				t.Errorf("Collect() error = %#v, want a CollectorError for %s", err, acme.ID)
			}
		})
	}
}

func TestCollector_Conservation(t *testing.T) {
	txs := []Transaction{
		tx("2024-01-01", Buy, "one", 10, 100),
		tx("2024-01-15", Buy, "two", 7, 77),
		tx("2024-02-01", Sell, "one", 4, 48),
		tx("2024-03-01", Buy, "one", 6, 54),
		tx("2024-04-01", Sell, "two", 9, 117),
		tx("2024-05-01", Sell, "one", 15, 210),
		tx("2024-06-01", Buy, "two", 2, 20),
		tx("2024-07-01", Sell, "one", 1, 14),
	}
	trades := collect(t, "2025-01-01", 12, txs...)

	allocated := make(map[*Transaction]Quantity)
	for _, tr := range trades {
		for _, c := range tr.Transactions() {
			allocated[c.Tx] = allocated[c.Tx].Add(c.Shares)
		}
	}
	got := make(map[string]Quantity)
	for tx, q := range allocated {
		got[tx.String()] = q
	}
	want := make(map[string]Quantity)
	for _, tx := range txs {
		want[tx.String()] = tx.Quantity
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b Quantity) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("allocated shares mismatch (-want +got):\n%s", diff)
	}
}

func TestCollector_Idempotent(t *testing.T) {
	txs := []Transaction{
		tx("2024-01-01", Buy, "one", 10, 100),
		tx("2024-02-01", Sell, "one", 4, 48),
		tx("2024-03-01", Sell, "two", 3, 30),
	}
	keys := func() []string {
		var list []string
		for _, tr := range collect(t, "2025-01-01", 11, txs...) {
			list = append(list, tr.Key())
		}
		return list
	}
	if diff := cmp.Diff(keys(), keys()); diff != "" {
		t.Errorf("Collect() is not deterministic (-first +second):\n%s", diff)
	}
}

func TestCollector_ForeignCurrency(t *testing.T) {
	rates := NewExchangeRates("EUR")
	if err := rates.Append("USD", "EUR", date.New(2024, 1, 1), 0.5); err != nil {
		t.Fatal(err)
	}
	buy := tx("2024-01-01", Buy, "one", 5, 0)
	buy.Amount = USD(1000)
	sell := tx("2024-06-01", Sell, "one", 5, 600)

	c := NewCollector(newTestLedger(t, buy, sell), rates, nil, date.New(2025, 1, 1))
	trades, err := c.Collect(acme)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	assertMoney(t, "EntryValue()", trades[0].EntryValue(), EUR(500))
	assertMoney(t, "ProfitLoss()", trades[0].ProfitLoss(), EUR(100))
}

func TestCollector_CollectAll(t *testing.T) {
	other := Instrument{ID: "Other Corp", Name: "Other", Currency: "EUR"}
	ledger := newTestLedger(t,
		tx("2024-01-01", Buy, "one", 5, 500),
		tx("2024-02-01", Sell, "one", 5, 600),
	)
	if err := ledger.Declare(other); err != nil {
		t.Fatal(err)
	}
	bad := tx("2024-01-01", OutboundDelivery, "one", 1, 10)
	bad.Instrument = other.ID
	if err := ledger.Append(bad); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(ledger, nil, nil, date.New(2025, 1, 1))
	results := c.CollectAll(context.Background(), ledger.Instruments(), 2)
	if len(results) != 2 {
		t.Fatalf("CollectAll() returned %d results, want 2", len(results))
	}
	if results[0].Instrument.ID != acme.ID || results[0].Err != nil || len(results[0].Trades) != 1 {
		t.Errorf("results[0] = %+v, want one acme trade", results[0])
	}
	if results[1].Instrument.ID != other.ID || !errors.Is(results[1].Err, ErrNoHoldings) {
		t.Errorf("results[1] = %+v, want ErrNoHoldings", results[1])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, r := range c.CollectAll(ctx, ledger.Instruments(), 1) {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("CollectAll(canceled) error = %v, want context.Canceled", r.Err)
		}
	}
}

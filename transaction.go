package trades

import (
	"errors"
	"fmt"

	"github.com/etnz/trades/date"
	"github.com/shopspring/decimal"
)

// TxType is the closed set of instrument transaction types.
type TxType int

const (
	Buy TxType = iota
	Sell
	InboundDelivery
	OutboundDelivery
	TransferIn
	TransferOut
)

func (t TxType) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case InboundDelivery:
		return "deliver-in"
	case OutboundDelivery:
		return "deliver-out"
	case TransferIn:
		return "transfer-in"
	case TransferOut:
		return "transfer-out"
	default:
		return fmt.Sprintf("TxType(%d)", int(t))
	}
}

// Side classifies a transaction type for lot matching.
type Side int

const (
	// Purchase adds shares to the account.
	Purchase Side = iota
	// Sale removes shares from the account.
	Sale
	// Transfer moves shares between accounts without valuation.
	Transfer
)

// Side returns how t affects the holdings of its account.
func (t TxType) Side() Side {
	switch t {
	case Buy, InboundDelivery:
		return Purchase
	case Sell, OutboundDelivery:
		return Sale
	default:
		return Transfer
	}
}

// UnitKind is the kind of an amount decomposing a transaction.
type UnitKind int

const (
	Tax UnitKind = iota
	Fee
	GrossValue
)

func (k UnitKind) String() string {
	switch k {
	case Tax:
		return "tax"
	case Fee:
		return "fee"
	case GrossValue:
		return "gross"
	default:
		return fmt.Sprintf("UnitKind(%d)", int(k))
	}
}

// Unit is part of a transaction amount.
//
// Amount is in the transaction currency. When the unit was originally paid in
// another currency Forex holds that amount and ExchangeRate the rate used (Amount = Forex × ExchangeRate).
type Unit struct {
	Kind         UnitKind
	Amount       Money
	Forex        Money
	ExchangeRate decimal.Decimal
}

// Transaction is a dated event on one instrument in one custody account.
//
// Amount is the total paid for purchases (taxes and fees included) and the net
// proceeds for sales (taxes and fees deducted). Transactions are read only: the
// engine allocates their shares to trades through Contribution values.
type Transaction struct {
	Date        date.Date
	Type        TxType
	Account     string
	Counterpart string // the other account of a transfer.
	Instrument  ID
	Quantity    Quantity
	Amount      Money
	Units       []Unit
}

// Side returns the matching class of the transaction.
func (tx *Transaction) Side() Side { return tx.Type.Side() }

// TaxesAndFees returns the sum of the tax and fee units.
func (tx *Transaction) TaxesAndFees() Money {
	total := M(0, tx.Amount.Currency())
	for _, u := range tx.Units {
		if u.Kind == Tax || u.Kind == Fee {
			total = total.Add(u.Amount)
		}
	}
	return total
}

// GrossValue returns the amount without taxes and fees.
func (tx *Transaction) GrossValue() Money {
	for _, u := range tx.Units {
		if u.Kind == GrossValue {
			return u.Amount
		}
	}
	switch tx.Side() {
	case Purchase:
		return tx.Amount.Sub(tx.TaxesAndFees())
	case Sale:
		return tx.Amount.Add(tx.TaxesAndFees())
	default:
		return tx.Amount
	}
}

// ErrInvalidTransaction is the cause of every Validate failure.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Validate checks the transaction can be used for lot matching.
func (tx *Transaction) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidTransaction, fmt.Sprintf(format, args...))
	}
	switch {
	case tx.Date.IsZero():
		return invalid("missing date")
	case tx.Type < Buy || tx.Type > TransferOut:
		return invalid("unknown type %v", tx.Type)
	case tx.Account == "":
		return invalid("missing account")
	case tx.Instrument == "":
		return invalid("missing instrument")
	case !tx.Quantity.IsPositive():
		return invalid("quantity must be positive, got %v", tx.Quantity)
	case tx.Amount.IsNegative():
		return invalid("amount must not be negative, got %v", tx.Amount)
	case tx.Side() == Transfer && tx.Counterpart == "":
		return invalid("%v requires a counterpart account", tx.Type)
	case tx.Side() == Transfer && tx.Counterpart == tx.Account:
		return invalid("cannot transfer from %q to itself", tx.Account)
	}
	return nil
}

func (tx *Transaction) String() string {
	return fmt.Sprintf("%s %s %s %v %s for %v", tx.Date, tx.Account, tx.Type, tx.Quantity, tx.Instrument, tx.Amount)
}

package trades

import (
	"fmt"
	"slices"
	"sort"
)

// Ledger is an in-memory record of instruments and their transactions.
//
// In a Ledger transactions are always in chronological order. It implements TransactionSource.
type Ledger struct {
	instruments  map[ID]Instrument
	declared     []ID // declaration order
	transactions []Transaction
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		instruments: make(map[ID]Instrument),
	}
}

// Declare adds an instrument to the ledger.
func (l *Ledger) Declare(inst Instrument) error {
	if _, exists := l.instruments[inst.ID]; exists {
		return fmt.Errorf("instrument %s is already declared", inst.ID)
	}
	l.instruments[inst.ID] = inst
	l.declared = append(l.declared, inst.ID)
	return nil
}

// Instrument returns the instrument declared with this id.
func (l *Ledger) Instrument(id ID) (Instrument, bool) {
	inst, ok := l.instruments[id]
	return inst, ok
}

// Instruments returns the declared instruments in declaration order.
func (l *Ledger) Instruments() []Instrument {
	list := make([]Instrument, 0, len(l.declared))
	for _, id := range l.declared {
		list = append(list, l.instruments[id])
	}
	return list
}

// Append adds transactions to the ledger. Instruments must be declared first.
func (l *Ledger) Append(txs ...Transaction) error {
	for _, tx := range txs {
		if _, ok := l.instruments[tx.Instrument]; !ok {
			return fmt.Errorf("%v: undeclared instrument %s", tx.Date, tx.Instrument)
		}
	}
	l.transactions = append(l.transactions, txs...)
	l.stableSort()
	return nil
}

// stableSort sorts the ledger by transaction date. The sort is stable, meaning
// transactions on the same day maintain their original relative order.
func (l *Ledger) stableSort() {
	sort.SliceStable(l.transactions, func(i, j int) bool {
		return l.transactions[i].Date.Before(l.transactions[j].Date)
	})
}

// Transactions returns a copy of all the transactions of an instrument, across all accounts.
func (l *Ledger) Transactions(id ID) []Transaction {
	var list []Transaction
	for _, tx := range l.transactions {
		if tx.Instrument == id {
			list = append(list, tx)
		}
	}
	return list
}

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.transactions) }

// Accounts returns the sorted list of accounts used in the ledger.
func (l *Ledger) Accounts() []string {
	var accounts []string
	for _, tx := range l.transactions {
		if !slices.Contains(accounts, tx.Account) {
			accounts = append(accounts, tx.Account)
		}
	}
	slices.Sort(accounts)
	return accounts
}

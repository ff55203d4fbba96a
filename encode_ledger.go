package trades

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/trades/date"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// CommandType is the "command" of a ledger line.
type CommandType string

const (
	CmdDeclare    CommandType = "declare"
	CmdBuy        CommandType = "buy"
	CmdSell       CommandType = "sell"
	CmdDeliverIn  CommandType = "deliver-in"
	CmdDeliverOut CommandType = "deliver-out"
	CmdTransfer   CommandType = "transfer"
)

// txTypes maps the commands of a single transaction to their type.
var txTypes = map[CommandType]TxType{
	CmdBuy:        Buy,
	CmdSell:       Sell,
	CmdDeliverIn:  InboundDelivery,
	CmdDeliverOut: OutboundDelivery,
}

// unitCmd is a unit as written in the ledger. Amounts are in the transaction currency.
type unitCmd struct {
	Kind          string           `json:"kind"`
	Amount        decimal.Decimal  `json:"amount"`
	Forex         *decimal.Decimal `json:"forex,omitempty"`
	ForexCurrency string           `json:"forexCurrency,omitempty"`
	Rate          *decimal.Decimal `json:"rate,omitempty"`
}

// unitKinds are the ledger names of unit kinds.
var unitKinds = map[UnitKind]string{
	Tax:        "tax",
	Fee:        "fee",
	GrossValue: "gross",
}

func (u unitCmd) Unit(currency string) (Unit, error) {
	unit := Unit{Amount: M(u.Amount, currency)}
	found := false
	for kind, name := range unitKinds {
		if name == u.Kind {
			unit.Kind, found = kind, true
		}
	}
	if !found {
		return Unit{}, fmt.Errorf("unknown unit kind %q", u.Kind)
	}
	if u.Rate != nil {
		unit.ExchangeRate = *u.Rate
	}
	if u.ForexCurrency != "" && u.Forex != nil {
		unit.Forex = M(*u.Forex, u.ForexCurrency)
	}
	return unit, nil
}

// newUnitCmd returns the ledger representation of u.
func newUnitCmd(u Unit) unitCmd {
	cmd := unitCmd{Kind: unitKinds[u.Kind], Amount: u.Amount.Value()}
	if u.Forex.Currency() != "" {
		forex := u.Forex.Value()
		cmd.Forex, cmd.ForexCurrency = &forex, u.Forex.Currency()
	}
	if !u.ExchangeRate.IsZero() {
		rate := u.ExchangeRate
		cmd.Rate = &rate
	}
	return cmd
}

// ledgerLine holds every field a ledger line can have.
type ledgerLine struct {
	Command  CommandType     `json:"command"`
	Date     date.Date       `json:"date"`
	Security string          `json:"security"`
	Account  string          `json:"account"`
	Quantity Quantity        `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Fee      decimal.Decimal `json:"fee"`
	Tax      decimal.Decimal `json:"tax"`
	Units    []unitCmd       `json:"units"`
	// declare
	Name string `json:"name"`
	// transfer
	From string `json:"from"`
	To   string `json:"to"`
}

// DecodeLedger decodes a stream of JSONL ledger lines. filename is only used in error messages.
func DecodeLedger(filename string, r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue // Skip empty lines
		}
		if err := ledger.decodeLine(line); err != nil {
			return nil, fmt.Errorf("parse error %s:%d: %w", filename, i, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filename, err)
	}
	return ledger, nil
}

func (l *Ledger) decodeLine(line []byte) error {
	var jl ledgerLine
	if err := json.Unmarshal(line, &jl); err != nil {
		return fmt.Errorf("not a correct json: %w", err)
	}
	id, err := ParseID(jl.Security)
	if err != nil {
		return err
	}

	switch jl.Command {
	case CmdDeclare:
		if !currencyRegex.MatchString(jl.Currency) {
			return fmt.Errorf("invalid currency %q for %s", jl.Currency, id)
		}
		return l.Declare(Instrument{ID: id, Name: jl.Name, Currency: jl.Currency})

	case CmdTransfer:
		if jl.From == "" || jl.To == "" {
			return fmt.Errorf("transfer requires 'from' and 'to' accounts")
		}
		out := Transaction{Date: jl.Date, Type: TransferOut, Account: jl.From, Counterpart: jl.To, Instrument: id, Quantity: jl.Quantity}
		in := Transaction{Date: jl.Date, Type: TransferIn, Account: jl.To, Counterpart: jl.From, Instrument: id, Quantity: jl.Quantity}
		if err := in.Validate(); err != nil {
			return err
		}
		return l.Append(out, in)

	default:
		typ, ok := txTypes[jl.Command]
		if !ok {
			return fmt.Errorf("unknown command %q", jl.Command)
		}
		cur := jl.Currency
		if cur == "" {
			// default to the trading currency
			inst, declared := l.Instrument(id)
			if !declared {
				return fmt.Errorf("undeclared instrument %s", id)
			}
			cur = inst.Currency
		}
		tx := Transaction{
			Date:       jl.Date,
			Type:       typ,
			Account:    jl.Account,
			Instrument: id,
			Quantity:   jl.Quantity,
			Amount:     M(jl.Amount, cur),
		}
		if !jl.Fee.IsZero() {
			tx.Units = append(tx.Units, Unit{Kind: Fee, Amount: M(jl.Fee, cur)})
		}
		if !jl.Tax.IsZero() {
			tx.Units = append(tx.Units, Unit{Kind: Tax, Amount: M(jl.Tax, cur)})
		}
		for _, u := range jl.Units {
			unit, err := u.Unit(cur)
			if err != nil {
				return err
			}
			tx.Units = append(tx.Units, unit)
		}
		if err := tx.Validate(); err != nil {
			return err
		}
		return l.Append(tx)
	}
}

// LoadLedger reads a ledger file.
func LoadLedger(filename string) (*Ledger, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger %q: %w", filename, err)
	}
	defer f.Close()
	return DecodeLedger(filename, f)
}

// declareLine, txLine and transferLine are the canonical forms of ledger lines.
type declareLine struct {
	Command  CommandType `json:"command"`
	Security ID          `json:"security"`
	Name     string      `json:"name,omitempty"`
	Currency string      `json:"currency"`
}

type txLine struct {
	Command  CommandType     `json:"command"`
	Date     date.Date       `json:"date"`
	Security ID              `json:"security"`
	Account  string          `json:"account"`
	Quantity Quantity        `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Units    []unitCmd       `json:"units,omitempty"`
}

type transferLine struct {
	Command  CommandType `json:"command"`
	Date     date.Date   `json:"date"`
	Security ID          `json:"security"`
	From     string      `json:"from"`
	To       string      `json:"to"`
	Quantity Quantity    `json:"quantity"`
}

// EncodeLedger writes the ledger in JSONL format: declarations first, then
// transactions by date. A transfer is written once, as a single 'transfer' line.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	enc := json.NewEncoder(w)
	for _, inst := range ledger.Instruments() {
		if err := enc.Encode(declareLine{Command: CmdDeclare, Security: inst.ID, Name: inst.Name, Currency: inst.Currency}); err != nil {
			return fmt.Errorf("failed to write declaration of %s: %w", inst.ID, err)
		}
	}

	commands := make(map[TxType]CommandType, len(txTypes))
	for cmd, typ := range txTypes {
		commands[typ] = cmd
	}
	for _, tx := range ledger.transactions {
		var line any
		switch tx.Type {
		case TransferOut:
			// written with its TransferIn.
			continue
		case TransferIn:
			line = transferLine{Command: CmdTransfer, Date: tx.Date, Security: tx.Instrument, From: tx.Counterpart, To: tx.Account, Quantity: tx.Quantity}
		default:
			l := txLine{
				Command:  commands[tx.Type],
				Date:     tx.Date,
				Security: tx.Instrument,
				Account:  tx.Account,
				Quantity: tx.Quantity,
				Amount:   tx.Amount.Value(),
				Currency: tx.Amount.Currency(),
			}
			for _, u := range tx.Units {
				l.Units = append(l.Units, newUnitCmd(u))
			}
			line = l
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to write transaction %v: %w", &tx, err)
		}
	}
	return nil
}

// SaveLedger writes the ledger to a file, replacing it.
func SaveLedger(filename string, ledger *Ledger) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create ledger %q: %w", filename, err)
	}
	if err := EncodeLedger(f, ledger); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

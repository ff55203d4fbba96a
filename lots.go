package trades

import (
	"slices"
)

// Contribution is the part of a transaction allocated to a trade.
//
// Account is the account holding the shares when they were matched: for lots
// moved by a transfer, it is the receiving account.
type Contribution struct {
	Account string
	Tx      *Transaction
	Shares  Quantity

	value Money // share of Tx.Amount, in the instrument currency.
	gross Money // share of Tx.GrossValue(), in the instrument currency.
}

// Value returns the part of the transaction amount allocated to this contribution.
func (c Contribution) Value() Money { return c.value }

// ValueWithoutTaxesAndFees returns the part of the transaction gross value allocated to this contribution.
func (c Contribution) ValueWithoutTaxesAndFees() Money { return c.gross }

// split cuts the first 'shares' out of c. Values are prorated, the rest keeps
// the remainder so that nothing is lost to rounding.
func (c Contribution) split(shares Quantity) (head, tail Contribution) {
	if !shares.LessThan(c.Shares) {
		return c, Contribution{Account: c.Account, Tx: c.Tx}
	}
	head = Contribution{
		Account: c.Account,
		Tx:      c.Tx,
		Shares:  shares,
		value:   c.value.Mul(shares).Div(c.Shares),
		gross:   c.gross.Mul(shares).Div(c.Shares),
	}
	tail = Contribution{
		Account: c.Account,
		Tx:      c.Tx,
		Shares:  c.Shares.Sub(shares),
		value:   c.value.Sub(head.value),
		gross:   c.gross.Sub(head.gross),
	}
	return head, tail
}

// lots is a FIFO queue of unmatched contributions, oldest first.
type lots []Contribution

func (l lots) shares() Quantity {
	var total Quantity
	for _, c := range l {
		total = total.Add(c.Shares)
	}
	return total
}

// take removes up to q shares from the front of the queue. It returns the
// removed contributions and the quantity it could not find.
func (l *lots) take(q Quantity) (taken []Contribution, missing Quantity) {
	remaining := *l
	for len(remaining) > 0 && q.IsPositive() {
		current := remaining[0]
		if current.Shares.GreaterThan(q) {
			// Partial match of this lot
			head, tail := current.split(q)
			taken = append(taken, head)
			remaining[0] = tail
			q = Q(0)
			break
		}
		// Full match of this lot
		taken = append(taken, current)
		q = q.Sub(current.Shares)
		remaining = remaining[1:]
	}
	*l = remaining
	return taken, q
}

// push appends lots and keeps the queue ordered by acquisition date.
func (l *lots) push(cs ...Contribution) {
	*l = append(*l, cs...)
	slices.SortStableFunc(*l, func(a, b Contribution) int { return a.Tx.Date.Compare(b.Tx.Date) })
}

// averageCost tracks the blended cost of the shares held in one account.
type averageCost struct {
	shares Quantity
	cost   Money // taxes and fees included
	gross  Money // taxes and fees excluded
}

func (a *averageCost) add(shares Quantity, cost, gross Money) {
	a.shares = a.shares.Add(shares)
	a.cost = a.cost.Add(cost)
	a.gross = a.gross.Add(gross)
}

// remove takes q shares out at the current average cost and returns their cost.
func (a *averageCost) remove(q Quantity) (cost, gross Money) {
	if !q.LessThan(a.shares) {
		cost, gross = a.cost, a.gross
		*a = averageCost{}
		return cost, gross
	}
	cost, gross = a.cost.Mul(q).Div(a.shares), a.gross.Mul(q).Div(a.shares)
	a.shares = a.shares.Sub(q)
	a.cost = a.cost.Sub(cost)
	a.gross = a.gross.Sub(gross)
	return cost, gross
}

// position is the state of one account during collection.
type position struct {
	account string
	long    bool
	lots    lots
	average averageCost
}

func (p *position) empty() bool { return len(p.lots) == 0 }

// open adds a lot in direction 'long'. The position must be empty or in the same direction.
func (p *position) open(c Contribution, long bool) {
	if p.empty() {
		p.long = long
		p.average = averageCost{}
	}
	p.lots.push(c)
	p.average.add(c.Shares, c.value, c.gross)
}

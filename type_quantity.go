package trades

import "github.com/shopspring/decimal"

// number lists the Go values accepted by the Q and M constructors.
type number interface {
	float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal
}

func toDecimal[T number](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	}
	return any(value).(decimal.Decimal)
}

// Quantity is a signed number of shares. Shares can be fractional, a
// negative quantity is a short position.
type Quantity struct {
	value decimal.Decimal
}

// Q returns the quantity of v shares.
func Q[T number](v T) Quantity { return Quantity{value: toDecimal(v)} }

func (q Quantity) Value() decimal.Decimal { return q.value }
func (q Quantity) AsFloat() float64       { return q.value.InexactFloat64() }
func (q Quantity) String() string         { return q.value.String() }

// arithmetic

func (q Quantity) Add(p Quantity) Quantity { return Quantity{q.value.Add(p.value)} }
func (q Quantity) Sub(p Quantity) Quantity { return Quantity{q.value.Sub(p.value)} }
func (q Quantity) Mul(p Quantity) Quantity { return Quantity{q.value.Mul(p.value)} }
func (q Quantity) Div(p Quantity) Quantity { return Quantity{q.value.Div(p.value)} }
func (q Quantity) Neg() Quantity           { return Quantity{q.value.Neg()} }

// Min returns the smallest of q and p.
func (q Quantity) Min(p Quantity) Quantity {
	if p.LessThan(q) {
		return p
	}
	return q
}

// comparisons

func (q Quantity) Equal(p Quantity) bool       { return q.value.Equal(p.value) }
func (q Quantity) LessThan(p Quantity) bool    { return q.value.LessThan(p.value) }
func (q Quantity) GreaterThan(p Quantity) bool { return q.value.GreaterThan(p.value) }
func (q Quantity) IsZero() bool                { return q.value.IsZero() }
func (q Quantity) IsPositive() bool            { return q.value.IsPositive() }
func (q Quantity) IsNegative() bool            { return q.value.IsNegative() }

// MarshalJSON writes the quantity as a JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) { return q.value.MarshalJSON() }

// UnmarshalJSON reads a JSON number or a quoted decimal.
func (q *Quantity) UnmarshalJSON(data []byte) error { return q.value.UnmarshalJSON(data) }

package trades

import "fmt"

// CostBasisMethod selects which entry value a report shows for a trade.
type CostBasisMethod int

const (
	// FIFO (First-In, First-Out) matches the oldest lot first.
	FIFO CostBasisMethod = iota
	// MovingAverage values sold shares at the blended cost of all shares held at the time.
	MovingAverage
)

func (m CostBasisMethod) String() string {
	switch m {
	case MovingAverage:
		return "average"
	case FIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// ParseCostBasisMethod parses a string into a CostBasisMethod.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch s {
	case "average", "moving-average":
		return MovingAverage, nil
	case "fifo":
		return FIFO, nil
	default:
		return 0, fmt.Errorf("unknown cost basis method: %q", s)
	}
}

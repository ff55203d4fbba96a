package renderer

import (
	"bytes"
	"errors"
	"io"

	"github.com/etnz/trades"
	"github.com/etnz/trades/irr"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// rate formats a return or an IRR. Undefined IRRs are rendered as "n/a".
func rate(r float64, err error) string {
	if errors.Is(err, irr.ErrUndefined) {
		return "n/a"
	}
	if err != nil {
		return "error"
	}
	return trades.Pct(r).SignedString()
}

// money formats a value that may have failed to compute.
func money(m trades.Money, err error) string {
	if err != nil {
		return "error"
	}
	return m.SignedString()
}

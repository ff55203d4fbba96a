package trades

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// 2 letters, 9 alphanumeric, 1 check digit.
	isinRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	// 4 uppercase alphanumeric characters.
	micRegex          = regexp.MustCompile(`^[A-Z0-9]{4}$`)
	currencyRegex     = regexp.MustCompile(`^[A-Z]{3}$`)
	currencyPairRegex = regexp.MustCompile(`^[A-Z]{6}$`)
	privateRegex      = regexp.MustCompile(`^[a-zA-Z0-9 ]{7,}$`)
)

// ID identifies an instrument. Three forms are accepted:
//
//   - MSSI, "ISIN.MIC", a listing of a security on a trading venue, e.g. "US0378331005.XNAS";
//   - a currency pair, base then quote, e.g. "EURUSD";
//   - a private identifier: at least 7 alphanumeric characters or spaces, without '.'.
//
// The forms cannot be confused with one another.
type ID string

// NewMSSI creates an ID from an ISIN and a MIC.
func NewMSSI(isin, mic string) (ID, error) {
	if err := ValidateISIN(isin); err != nil {
		return "", fmt.Errorf("invalid ISIN: %w", err)
	}
	if !micRegex.MatchString(mic) {
		return "", fmt.Errorf("invalid MIC %q: must be 4 uppercase alphanumeric characters", mic)
	}
	return ID(isin + "." + mic), nil
}

// NewCurrencyPair creates an ID for the base/quote currency pair.
func NewCurrencyPair(base, quote string) (ID, error) {
	if !currencyRegex.MatchString(base) || !currencyRegex.MatchString(quote) {
		return "", fmt.Errorf("invalid currency pair %q/%q: must be 3 uppercase letters each", base, quote)
	}
	return ID(base + quote), nil
}

// ParseID validates s as any of the ID forms.
func ParseID(s string) (ID, error) {
	if isin, mic, ok := strings.Cut(s, "."); ok {
		return NewMSSI(isin, mic)
	}
	if currencyPairRegex.MatchString(s) {
		return ID(s), nil
	}
	if !privateRegex.MatchString(s) {
		return "", fmt.Errorf("invalid id %q: neither ISIN.MIC, a currency pair, nor 7+ alphanumeric characters", s)
	}
	return ID(s), nil
}

// ValidateISIN checks the format and the check digit of an ISIN.
func ValidateISIN(isin string) error {
	if !isinRegex.MatchString(isin) {
		return fmt.Errorf("invalid format %q: must be 2 uppercase letters, 9 alphanumeric chars, and 1 digit", isin)
	}
	// Letters expand to two digits (A=10 ... Z=35), then Luhn from the right.
	var digits []int
	for _, c := range isin[:11] {
		if c >= 'A' && c <= 'Z' {
			v := int(c-'A') + 10
			digits = append(digits, v/10, v%10)
		} else {
			digits = append(digits, int(c-'0'))
		}
	}
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
		}
		sum += d/10 + d%10
		double = !double
	}
	want := (10 - sum%10) % 10
	if got := int(isin[11] - '0'); got != want {
		return fmt.Errorf("invalid check digit: expected %d, got %d", want, got)
	}
	return nil
}

// CurrencyPair returns the base and quote currencies when id is a currency pair.
func (id ID) CurrencyPair() (base, quote string, ok bool) {
	if !currencyPairRegex.MatchString(string(id)) {
		return "", "", false
	}
	return string(id[:3]), string(id[3:]), true
}

func (id ID) String() string { return string(id) }

// Instrument is a tradable asset as the engine sees it.
type Instrument struct {
	ID       ID
	Name     string
	Currency string // trading currency, the currency of every trade value.
}

func (i Instrument) String() string {
	if i.Name == "" {
		return i.ID.String()
	}
	return i.Name
}

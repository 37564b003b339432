package transcript

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/errors"
)

// secondsPlaces is the precision kept when rendering seconds.
const secondsPlaces = 3

// FormatSeconds renders seconds as an integer when whole, otherwise with the
// fewest decimals needed (up to milliseconds).
func FormatSeconds(s decimal.Decimal) string {
	return s.Round(secondsPlaces).String()
}

// ParseSeconds parses a rendered seconds value.
func ParseSeconds(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.InvalidInput("seconds", "not a number: "+s).WithCause(err)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.InvalidInput("seconds", "negative value: "+s)
	}
	return d, nil
}

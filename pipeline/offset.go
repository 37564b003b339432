package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/transcript"
)

// Offset is a position on the continuous timeline shared by chained
// sources. Each source starts at the Offset it is given and returns the
// Offset the next source starts at.
type Offset struct {
	seconds decimal.Decimal
}

// NewOffset creates an Offset at s seconds. Negative values are rejected.
func NewOffset(s decimal.Decimal) (Offset, error) {
	if s.IsNegative() {
		return Offset{}, errors.InvalidInput("initial_offset", "must not be negative, got "+s.String())
	}
	return Offset{seconds: s}, nil
}

// Seconds returns the offset in seconds.
func (o Offset) Seconds() decimal.Decimal { return o.seconds }

// Advance returns the offset d seconds later. d must be positive so that
// chained offsets strictly increase.
func (o Offset) Advance(d decimal.Decimal) (Offset, error) {
	if !d.IsPositive() {
		return o, errors.OffsetMismatch("cannot advance offset " + o.String() + " by non-positive duration " + d.String())
	}
	return Offset{seconds: o.seconds.Add(d)}, nil
}

// String renders the offset like transcript times.
func (o Offset) String() string { return transcript.FormatSeconds(o.seconds) }

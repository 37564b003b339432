package transcript

import (
	"github.com/shopspring/decimal"
)

// EOFMarker is the literal end of the open-ended final chunk of a source.
const EOFMarker = "EOF"

// WordToken is one recognized word with segment-local start and end times.
type WordToken struct {
	Text  string
	Start decimal.Decimal
	End   decimal.Decimal
}

// Chunk is a window of transcript text on the source timeline.
type Chunk struct {
	Start decimal.Decimal
	End   decimal.Decimal
	// Open marks the final chunk of a source; it renders as "<start>-EOF".
	Open bool
	Text string
}

// Range renders the chunk's time range line.
func (c Chunk) Range() string {
	if c.Open {
		return FormatSeconds(c.Start) + "-" + EOFMarker
	}
	return FormatSeconds(c.Start) + "-" + FormatSeconds(c.End)
}

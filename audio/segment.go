package audio

import (
	"path/filepath"

	"github.com/shopspring/decimal"
)

// Source is one original audio asset.
type Source struct {
	Path string
	// Stem is the file name without extension.
	Stem string
	// Name is the stem with any _segment_<n> suffix stripped; it keys the
	// transcript.
	Name string
	// Ext includes the leading dot.
	Ext string
	// TotalDuration is the sum of the segment durations.
	TotalDuration decimal.Decimal
}

// NewSource describes the file at path.
func NewSource(path string) *Source {
	stem, ext := splitExt(filepath.Base(path))
	return &Source{
		Path: path,
		Stem: stem,
		Name: StripSegmentSuffix(stem),
		Ext:  ext,
	}
}

// Segment is one bounded-duration slice of a source.
type Segment struct {
	Source *Source
	// Index is 1-based in creation order.
	Index int
	Path  string
	// Start is the planned start within the source.
	Start    decimal.Decimal
	Duration decimal.Decimal
	// Offset is the sum of the durations of all earlier segments.
	Offset decimal.Decimal
	// Scratch is true when Path lives in the scratch directory.
	Scratch bool
}

// Name returns the segment file name.
func (s Segment) Name() string {
	return filepath.Base(s.Path)
}

// Span is a planned [Start, Start+Duration) slice.
type Span struct {
	Start    decimal.Decimal
	Duration decimal.Decimal
}

// Plan divides total seconds into consecutive spans of at most max seconds.
// The last span is total mod max when that is nonzero, else max.
func Plan(total, max decimal.Decimal) []Span {
	if !total.IsPositive() || !max.IsPositive() {
		return nil
	}
	var spans []Span
	start := decimal.Zero
	for start.LessThan(total) {
		d := decimal.Min(max, total.Sub(start))
		spans = append(spans, Span{Start: start, Duration: d})
		start = start.Add(d)
	}
	return spans
}

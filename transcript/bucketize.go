package transcript

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/errors"
)

// BucketOptions controls Bucketize.
type BucketOptions struct {
	// Width is the bucket width W in seconds. Must be positive.
	Width decimal.Decimal
	// Offset is added to every bucket boundary to place local times on the
	// source timeline.
	Offset decimal.Decimal
	// Limit is the local end of the segment. When positive, words starting
	// at or past it are placed in the bucket holding Limit, and a final chunk
	// whose bucket contains Limit ends there instead of at the bucket end.
	Limit decimal.Decimal
}

// limitEpsilon places a word that starts at Limit inside the bucket ending
// at Limit rather than opening the next one.
var limitEpsilon = decimal.New(1, -9)

// Bucketize groups words into fixed-width chunks. Words must arrive in
// non-decreasing start order; buckets with no words are never emitted.
func Bucketize(words []WordToken, opts BucketOptions) ([]Chunk, error) {
	if !opts.Width.IsPositive() {
		return nil, errors.InvalidInput("bucket_width", "must be positive, got "+opts.Width.String())
	}

	var (
		chunks      []Chunk
		acc         []string
		bucketStart = decimal.Zero
		bucketEnd   = opts.Width
		prev        decimal.Decimal
	)

	emit := func(end decimal.Decimal) {
		if len(acc) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Start: bucketStart.Add(opts.Offset),
			End:   end.Add(opts.Offset),
			Text:  strings.Join(acc, " "),
		})
		acc = nil
	}

	for i, w := range words {
		if w.Start.IsNegative() {
			return nil, errors.InvalidInput("word.start", "negative start time "+w.Start.String())
		}
		if i > 0 && w.Start.LessThan(prev) {
			return nil, errors.OutOfOrderInput(w.Text, w.Start.String(), prev.String())
		}
		prev = w.Start

		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}

		at := placement(w.Start, opts.Limit)
		if at.GreaterThanOrEqual(bucketEnd) {
			emit(bucketEnd)
			steps := at.Sub(bucketStart).Div(opts.Width).Floor()
			bucketStart = bucketStart.Add(steps.Mul(opts.Width))
			bucketEnd = bucketStart.Add(opts.Width)
			for at.GreaterThanOrEqual(bucketEnd) {
				bucketStart = bucketEnd
				bucketEnd = bucketEnd.Add(opts.Width)
			}
		}
		acc = append(acc, text)
	}

	end := bucketEnd
	if opts.Limit.IsPositive() && opts.Limit.GreaterThan(bucketStart) && opts.Limit.LessThan(bucketEnd) {
		end = opts.Limit
	}
	emit(end)

	return chunks, nil
}

// placement is the time used to pick a word's bucket. Recognizers may report
// a start slightly past the end of the audio they were given.
func placement(start, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() || start.LessThan(limit) {
		return start
	}
	return decimal.Max(limit.Sub(limitEpsilon), decimal.Zero)
}

package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/ledger"
)

// Source statuses, shared with the ledger.
const (
	StatusCompleted = ledger.StatusCompleted
	StatusFailed    = ledger.StatusFailed
	StatusSkipped   = ledger.StatusSkipped
	StatusUnchanged = ledger.StatusUnchanged
)

// SegmentReport is the outcome of one segment.
type SegmentReport struct {
	Index    int
	Name     string
	Offset   decimal.Decimal
	Duration decimal.Decimal
	Attempts int
	Words    int
	Chunks   int
	// Skipped is true when recognition was never started because an
	// earlier segment had already failed.
	Skipped bool
	Err     error
}

// SourceReport is the outcome of one source.
type SourceReport struct {
	Path        string
	Name        string
	Fingerprint string
	Status      string
	// Offset is where the source starts on the continuous timeline.
	Offset   decimal.Decimal
	Duration decimal.Decimal
	Segments []SegmentReport
	Chunks   int
	// Transcript is the finalized (or incomplete-marked) transcript path.
	Transcript string
	// MetadataKey is the storage key of the exported metadata document.
	MetadataKey string
	ExportErr   error
	Err         error
	Elapsed     time.Duration
}

// Next returns the offset the following chained source starts at.
func (r *SourceReport) Next() decimal.Decimal {
	return r.Offset.Add(r.Duration)
}

// Failed reports whether the source failed.
func (r *SourceReport) Failed() bool { return r.Status == StatusFailed }

func (r *SourceReport) record() *ledger.SourceRecord {
	rec := &ledger.SourceRecord{
		Path:        r.Path,
		Name:        r.Name,
		Fingerprint: r.Fingerprint,
		Status:      r.Status,
		Offset:      r.Offset,
		Duration:    r.Duration,
		Segments:    len(r.Segments),
		Chunks:      r.Chunks,
		Transcript:  r.Transcript,
		Elapsed:     r.Elapsed,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	for _, s := range r.Segments {
		seg := ledger.SegmentRecord{
			Index:    s.Index,
			Offset:   s.Offset,
			Duration: s.Duration,
			Attempts: s.Attempts,
			Words:    s.Words,
			Chunks:   s.Chunks,
		}
		if s.Err != nil {
			seg.Error = s.Err.Error()
		}
		rec.SegmentRecords = append(rec.SegmentRecords, seg)
	}
	return rec
}

// WalkReport is the outcome of one directory walk.
type WalkReport struct {
	RunID   string
	Dir     string
	Sources []*SourceReport
	// Offset is where a further chained source would start.
	Offset Offset
}

// Count returns how many sources ended with status.
func (w *WalkReport) Count(status string) int {
	n := 0
	for _, s := range w.Sources {
		if s.Status == status {
			n++
		}
	}
	return n
}

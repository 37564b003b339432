package audio

import (
	"context"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/logger"
)

// DefaultMaxSegment is the default maximum segment length in seconds.
var DefaultMaxSegment = decimal.NewFromInt(59)

// Segmenter splits sources into segments no longer than MaxSegment.
type Segmenter struct {
	codec      Codec
	maxSegment decimal.Decimal
	log        *logger.Logger
}

// NewSegmenter creates a Segmenter. A non-positive maxSegment uses
// DefaultMaxSegment.
func NewSegmenter(codec Codec, maxSegment decimal.Decimal, log *logger.Logger) *Segmenter {
	if !maxSegment.IsPositive() {
		maxSegment = DefaultMaxSegment
	}
	return &Segmenter{codec: codec, maxSegment: maxSegment, log: log.WithComponent("segmenter")}
}

// MaxSegment returns the configured maximum segment length.
func (s *Segmenter) MaxSegment() decimal.Decimal { return s.maxSegment }

// Split probes the source and writes one file per segment into scratchDir,
// named <stem>_segment_<n><ext>. A source that fits in one segment is not
// copied; its single segment points at the source file itself.
func (s *Segmenter) Split(ctx context.Context, sourcePath, scratchDir string) (*Source, []Segment, error) {
	src := NewSource(sourcePath)

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, nil, errors.SourceUnreadable(sourcePath, err)
	}
	if info.IsDir() {
		return nil, nil, errors.SourceUnreadable(sourcePath, nil).WithDetail("reason", "is a directory")
	}

	total, err := s.codec.Probe(ctx, sourcePath)
	if err != nil {
		return nil, nil, err
	}
	if !total.IsPositive() {
		return nil, nil, errors.SourceUnreadable(sourcePath, nil).WithDetail("duration", total.String())
	}

	spans := Plan(total, s.maxSegment)
	if len(spans) == 1 {
		src.TotalDuration = total
		return src, []Segment{{
			Source:   src,
			Index:    1,
			Path:     sourcePath,
			Duration: total,
		}}, nil
	}

	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, nil, errors.IOFailure("create scratch dir", scratchDir, err)
	}

	segments := make([]Segment, 0, len(spans))
	offset := decimal.Zero
	for i, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		seg := Segment{
			Source:   src,
			Index:    i + 1,
			Path:     filepath.Join(scratchDir, SegmentName(src.Stem, i+1, src.Ext)),
			Start:    span.Start,
			Duration: span.Duration,
			Offset:   offset,
			Scratch:  true,
		}
		if err := s.codec.Extract(ctx, sourcePath, seg.Path, span.Start, span.Duration); err != nil {
			return nil, nil, err
		}
		if fi, err := os.Stat(seg.Path); err != nil || fi.Size() == 0 {
			return nil, nil, errors.IOFailure("write segment", seg.Path, err)
		}
		segments = append(segments, seg)
		offset = offset.Add(span.Duration)
	}
	src.TotalDuration = offset

	s.log.Debug("source split", logger.Fields(
		logger.FieldSource, sourcePath,
		"segments", len(segments),
		logger.FieldDuration, total.String(),
	))
	return src, segments, nil
}

// Probe measures one file with the underlying codec.
func (s *Segmenter) Probe(ctx context.Context, path string) (decimal.Decimal, error) {
	return s.codec.Probe(ctx, path)
}

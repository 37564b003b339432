package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/audio"
	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/logger"
	"github.com/kbukum/chunkscribe/observability"
	"github.com/kbukum/chunkscribe/recognition"
	"github.com/kbukum/chunkscribe/resilience"
	"github.com/kbukum/chunkscribe/stream"
	"github.com/kbukum/chunkscribe/transcript"
)

// MergerOptions configures how one source is processed.
type MergerOptions struct {
	// BucketWidth is the chunk width W in seconds.
	BucketWidth decimal.Decimal
	OutputDir   string
	// ScratchDir holds one subdirectory of segment files per source stem.
	ScratchDir  string
	KeepScratch bool
	// OnFailure is OnFailureDiscard or OnFailureMark.
	OnFailure         string
	VerifyDurations   bool
	DurationTolerance decimal.Decimal
	Language          string
	// Concurrency is how many segments are recognized at once.
	Concurrency int
	Retry       resilience.RetryConfig
}

// Merger turns one audio source into one transcript file.
type Merger struct {
	segmenter  *audio.Segmenter
	recognizer recognition.Provider
	opts       MergerOptions
	exporter   *Exporter
	metrics    *observability.Metrics
	log        *logger.Logger
}

// NewMerger creates a Merger. recognizer is called once per segment attempt
// and is typically wrapped in the recognition middleware chain.
func NewMerger(segmenter *audio.Segmenter, recognizer recognition.Provider, opts MergerOptions, log *logger.Logger) *Merger {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.OnFailure == "" {
		opts.OnFailure = OnFailureDiscard
	}
	return &Merger{
		segmenter:  segmenter,
		recognizer: recognizer,
		opts:       opts,
		log:        log.WithComponent("merger"),
	}
}

// WithExporter exports a metadata document for every finalized transcript.
func (m *Merger) WithExporter(e *Exporter) *Merger {
	m.exporter = e
	return m
}

// WithMetrics records source, segment and chunk metrics.
func (m *Merger) WithMetrics(metrics *observability.Metrics) *Merger {
	m.metrics = metrics
	return m
}

// Process segments, recognizes and merges the source at sourcePath, placing
// its chunks on the timeline from start. The report is always returned; the
// error is the one recorded in it.
//
// A failure of any segment fails the whole source and no transcript is
// finalized. The partial transcript is discarded or, with OnFailureMark,
// kept as <name>_transcript.incomplete.txt.
func (m *Merger) Process(ctx context.Context, sourcePath string, start Offset) (*SourceReport, error) {
	began := time.Now()
	src := audio.NewSource(sourcePath)

	ctx, span := observability.StartSpan(ctx, observability.SpanSource)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSource, sourcePath)
	observability.SetSpanAttribute(ctx, observability.AttrOffset, start)

	report := &SourceReport{Path: sourcePath, Name: src.Name, Offset: start.Seconds()}
	log := m.log.WithFields(logger.Fields(logger.FieldSource, sourcePath, logger.FieldOffset, start.String()))

	err := m.process(ctx, src, start, report, log)
	report.Elapsed = time.Since(began)

	fields := logger.ElapsedFields("process", report.Elapsed)
	fields[logger.FieldChunks] = report.Chunks
	fields[logger.FieldDuration] = transcript.FormatSeconds(report.Duration)
	if err != nil {
		report.Status = StatusFailed
		report.Err = err
		observability.SetSpanError(ctx, err)
		log.Error("source failed", logger.MergeWithError(fields, err))
	} else {
		report.Status = StatusCompleted
		log.Info("source transcribed", fields)
	}
	observability.SetSpanAttribute(ctx, observability.AttrStatus, report.Status)
	observability.SetSpanAttribute(ctx, observability.AttrChunks, report.Chunks)
	m.metrics.RecordSource(ctx, report.Status, report.Elapsed)
	return report, err
}

func (m *Merger) process(ctx context.Context, src *audio.Source, start Offset, report *SourceReport, log *logger.Logger) error {
	scratch := filepath.Join(m.opts.ScratchDir, src.Stem)
	// Runs after the transcript is finalized or discarded.
	defer m.cleanup(scratch, log)

	source, segments, err := m.segmenter.Split(ctx, src.Path, scratch)
	if err != nil {
		return err
	}
	report.Duration = source.TotalDuration
	report.Segments = make([]SegmentReport, len(segments))
	for i, seg := range segments {
		report.Segments[i] = SegmentReport{
			Index:    seg.Index,
			Name:     seg.Name(),
			Offset:   seg.Offset,
			Duration: seg.Duration,
		}
	}

	if err := m.verify(ctx, source, segments); err != nil {
		return err
	}

	w, err := transcript.NewWriter(m.opts.OutputDir, source.Name)
	if err != nil {
		return err
	}

	if err := m.merge(ctx, segments, start, w, report); err != nil {
		report.Chunks = w.Count()
		report.Transcript = m.abandon(w, log)
		return err
	}

	path, err := w.Finalize()
	if err != nil {
		_ = w.Discard()
		return err
	}
	report.Transcript = path
	report.Chunks = w.Count()
	m.metrics.RecordChunks(ctx, report.Chunks)

	if path == "" {
		log.Warn("no words recognized, transcript not written")
		return nil
	}
	if m.exporter != nil {
		key, err := m.exporter.Export(ctx, path)
		report.MetadataKey = key
		report.ExportErr = err
	}
	return nil
}

// verify checks that segment offsets are the running sum of the durations
// before them, that the durations add up to the source total and, when
// enabled, that every extracted segment file measures its planned duration.
func (m *Merger) verify(ctx context.Context, src *audio.Source, segments []audio.Segment) error {
	sum := decimal.Zero
	for _, seg := range segments {
		if !seg.Offset.Equal(sum) {
			return errors.OffsetMismatch(fmt.Sprintf("segment %s has offset %s, expected %s",
				seg.Name(), transcript.FormatSeconds(seg.Offset), transcript.FormatSeconds(sum))).
				WithDetail("segment", seg.Name())
		}
		if m.opts.VerifyDurations && seg.Scratch {
			measured, err := m.segmenter.Probe(ctx, seg.Path)
			if err != nil {
				return err
			}
			if measured.Sub(seg.Duration).Abs().GreaterThan(m.opts.DurationTolerance) {
				return errors.OffsetMismatch(fmt.Sprintf("segment %s measures %ss, planned %ss",
					seg.Name(), transcript.FormatSeconds(measured), transcript.FormatSeconds(seg.Duration))).
					WithDetails(map[string]any{
						"segment":  seg.Name(),
						"measured": measured.String(),
						"planned":  seg.Duration.String(),
					})
			}
		}
		sum = sum.Add(seg.Duration)
	}
	if !sum.Equal(src.TotalDuration) {
		return errors.OffsetMismatch(fmt.Sprintf("segment durations sum to %ss, source is %ss",
			transcript.FormatSeconds(sum), transcript.FormatSeconds(src.TotalDuration)))
	}
	return nil
}

// merge consumes recognition outcomes in segment order and appends each
// segment's chunks to w. After the first failure no new recognition is
// started, but outcomes already in flight are still collected.
func (m *Merger) merge(ctx context.Context, segments []audio.Segment, start Offset, w *transcript.Writer, report *SourceReport) error {
	var halted atomic.Bool
	outcomes := m.recognizeAll(ctx, segments, &halted)
	defer outcomes.Close()

	var (
		firstErr error
		pending  = make(map[int]segmentOutcome)
		drained  bool
	)
	for i, seg := range segments {
		out, ok := pending[i]
		delete(pending, i)
		for !ok && !drained {
			next, more, err := outcomes.Next(ctx)
			switch {
			case err != nil || !more:
				drained = true
			case next.index == i:
				out, ok = next, true
			default:
				pending[next.index] = next
			}
		}
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = errors.Internal(fmt.Errorf("no recognition outcome for %s", seg.Name()))
			}
			out = segmentOutcome{skipped: true, err: err}
		}

		sr := &report.Segments[i]
		sr.Attempts = out.attempts
		sr.Words = len(out.words)
		sr.Skipped = out.skipped && out.err == nil
		sr.Err = out.err

		if firstErr != nil || sr.Skipped {
			continue
		}
		if out.err != nil {
			firstErr = out.err
			halted.Store(true)
			continue
		}

		chunks, err := transcript.Bucketize(out.words, transcript.BucketOptions{
			Width:  m.opts.BucketWidth,
			Offset: seg.Offset.Add(start.Seconds()),
			Limit:  seg.Duration,
		})
		if err == nil {
			err = w.Append(chunks...)
		}
		if err != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				appErr.WithDetail("segment", seg.Name())
			}
			sr.Err = err
			firstErr = err
			halted.Store(true)
			continue
		}
		sr.Chunks = len(chunks)
	}
	return firstErr
}

type segmentOutcome struct {
	index    int
	words    []transcript.WordToken
	attempts int
	skipped  bool
	err      error
}

// recognizeAll recognizes up to Concurrency segments at a time. Outcomes
// arrive in completion order, tagged with their segment index. Once halted
// is set no new recognition starts and the remaining segments report
// skipped. A failed recognition sets halted itself.
func (m *Merger) recognizeAll(ctx context.Context, segments []audio.Segment, halted *atomic.Bool) stream.Iterator[segmentOutcome] {
	return stream.Parallel(stream.FromSlice(indexes(len(segments))), m.opts.Concurrency,
		func(ctx context.Context, i int) (segmentOutcome, error) {
			if halted.Load() || ctx.Err() != nil {
				return segmentOutcome{index: i, skipped: true, err: ctx.Err()}, nil
			}
			out := m.recognize(ctx, segments[i])
			out.index = i
			// Set before the worker picks up its next segment.
			if out.err != nil {
				halted.Store(true)
			}
			return out, nil
		}).Iter(ctx)
}

// recognize runs one segment through the recognizer with bounded retries.
func (m *Merger) recognize(ctx context.Context, seg audio.Segment) segmentOutcome {
	ctx, span := observability.StartSpan(ctx, observability.SpanSegment)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSegment, seg.Name())
	observability.SetSpanAttribute(ctx, observability.AttrOffset, transcript.FormatSeconds(seg.Offset))

	data, err := os.ReadFile(seg.Path)
	if err != nil {
		err = errors.IOFailure("read segment", seg.Path, err)
		observability.SetSpanError(ctx, err)
		return segmentOutcome{err: err}
	}
	req := recognition.Request{Audio: data, FileName: seg.Name(), LanguageHint: m.opts.Language}

	retry := m.opts.Retry
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		m.log.Warn("retrying segment", logger.Fields(
			logger.FieldSegment, seg.Name(),
			logger.FieldAttempt, attempt,
			"backoff", backoff.String(),
			logger.FieldError, err.Error(),
		))
	}

	resp, attempts, err := resilience.Retry(ctx, retry, func(int) (*recognition.Response, error) {
		return m.recognizer.Recognize(ctx, req)
	})
	observability.SetSpanAttribute(ctx, observability.AttrAttempts, attempts)
	if err != nil {
		if ctx.Err() == nil {
			err = errors.RecognitionFailure(seg.Name(), err).WithDetail("attempts", attempts)
		}
		observability.SetSpanError(ctx, err)
		m.metrics.RecordSegment(ctx, StatusFailed, attempts)
		return segmentOutcome{attempts: attempts, err: err}
	}

	words := recognition.BestWords(resp)
	m.metrics.RecordSegment(ctx, StatusCompleted, attempts)
	m.log.Debug("segment recognized", logger.Fields(
		logger.FieldSegment, seg.Name(),
		logger.FieldAttempt, attempts,
		logger.FieldWords, len(words),
	))
	return segmentOutcome{words: words, attempts: attempts}
}

// abandon disposes of a failed source's partial transcript according to
// OnFailure and returns the kept path, if any.
func (m *Merger) abandon(w *transcript.Writer, log *logger.Logger) string {
	if m.opts.OnFailure == OnFailureMark {
		path, err := w.MarkIncomplete()
		if err == nil {
			if path != "" {
				log.Warn("transcript marked incomplete", logger.Fields("transcript", path))
			}
			return path
		}
		log.Warn("could not mark transcript incomplete, discarding", logger.MergeWithError(nil, err))
	}
	if err := w.Discard(); err != nil {
		log.Warn("could not discard partial transcript", logger.MergeWithError(nil, err))
	}
	return ""
}

// cleanup removes the source's scratch directory unless KeepScratch is set.
func (m *Merger) cleanup(dir string, log *logger.Logger) {
	if m.opts.KeepScratch {
		return
	}
	if err := audio.Cleanup(dir); err != nil {
		log.Warn("scratch cleanup failed", logger.MergeWithError(logger.Fields("dir", dir), err))
		return
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		log.Warn("scratch cleanup failed", logger.MergeWithError(logger.Fields("dir", dir), err))
	}
}

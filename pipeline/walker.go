package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/audio"
	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/ledger"
	"github.com/kbukum/chunkscribe/logger"
	"github.com/kbukum/chunkscribe/observability"
	"github.com/kbukum/chunkscribe/stream"
)

// WalkOptions configures a directory walk.
type WalkOptions struct {
	// Extensions are the lower-case ".ext" suffixes of audio files to pick up.
	Extensions []string
	Recursive  bool
	// ChainOffsets places every source on one continuous timeline, each
	// starting where the previous one ended. Chained sources run one at a
	// time and the first failure skips the rest.
	ChainOffsets  bool
	InitialOffset decimal.Decimal
	// Workers is how many unchained sources are processed at once.
	Workers int
	// SkipUnchanged reuses the transcript of a source whose content matches
	// an earlier completed run at the same offset.
	SkipUnchanged bool
}

// Walker processes every audio source of a directory with a Merger.
type Walker struct {
	merger  *Merger
	opts    WalkOptions
	ledger  *ledger.Store
	version string
	log     *logger.Logger
}

// NewWalker creates a Walker.
func NewWalker(merger *Merger, opts WalkOptions, log *logger.Logger) *Walker {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	return &Walker{merger: merger, opts: opts, log: log.WithComponent("walker")}
}

// WithLedger records every run and source outcome in store. version is
// stored with each run.
func (w *Walker) WithLedger(store *ledger.Store, version string) *Walker {
	w.ledger = store
	w.version = version
	return w
}

// Sources lists the audio files of dir in lexical order. Files that already
// carry a _segment_<n> suffix are left out.
func (w *Walker) Sources(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.IOFailure("read source dir", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.InvalidInput("dir", dir+" is not a directory")
	}

	var paths []string
	consider := func(path string) {
		if !w.wanted(path) {
			return
		}
		if audio.IsSegmentFile(path) {
			w.log.Debug("skipping pre-split segment", logger.Fields(logger.FieldSource, path))
			return
		}
		paths = append(paths, path)
	}

	if w.opts.Recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != dir && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			consider(path)
			return nil
		})
		if err != nil {
			return nil, errors.IOFailure("walk source dir", dir, err)
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.IOFailure("read source dir", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				consider(filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (w *Walker) wanted(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.opts.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Walk processes every source of dir. The report lists the sources in
// enumeration order. The returned error joins every source failure and
// export failure; a walk that could not start returns a nil report.
func (w *Walker) Walk(ctx context.Context, dir string) (*WalkReport, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanWalk)
	defer span.End()

	start, err := NewOffset(w.opts.InitialOffset)
	if err != nil {
		return nil, err
	}
	paths, err := w.Sources(dir)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}

	run, err := w.ledger.BeginRun(ctx, dir, w.version, w.opts.ChainOffsets)
	if err != nil {
		return nil, err
	}
	report := &WalkReport{RunID: run.ID, Dir: dir, Sources: make([]*SourceReport, len(paths)), Offset: start}
	log := w.log.WithFields(logger.Fields("dir", dir))
	if run.ID != "" {
		log = log.WithFields(logger.Fields(logger.FieldRunID, run.ID))
	}
	log.Info("walk started", logger.Fields(
		"sources", len(paths),
		"chained", w.opts.ChainOffsets,
		logger.FieldOffset, start.String(),
	))

	conflicts := nameConflicts(paths)
	if w.opts.ChainOffsets {
		w.walkChained(ctx, run.ID, paths, conflicts, report, log)
	} else {
		w.walkParallel(ctx, run.ID, paths, conflicts, report)
	}

	var errs []error
	for _, sr := range report.Sources {
		if sr.Failed() {
			errs = append(errs, fmt.Errorf("%s: %w", sr.Path, sr.Err))
		}
		if sr.ExportErr != nil {
			errs = append(errs, fmt.Errorf("%s: export: %w", sr.Path, sr.ExportErr))
		}
	}
	walkErr := stderrors.Join(errs...)
	if walkErr == nil && ctx.Err() != nil {
		walkErr = ctx.Err()
	}

	run.Sources = len(paths)
	run.Failed = report.Count(StatusFailed)
	if err := w.ledger.FinishRun(context.WithoutCancel(ctx), run, walkErr); err != nil {
		log.Warn("could not finish ledger run", logger.MergeWithError(nil, err))
	}

	observability.SetSpanAttribute(ctx, observability.AttrChunks, totalChunks(report))
	fields := logger.Fields(
		StatusCompleted, report.Count(StatusCompleted),
		StatusUnchanged, report.Count(StatusUnchanged),
		StatusFailed, run.Failed,
		StatusSkipped, report.Count(StatusSkipped),
	)
	if walkErr != nil {
		observability.SetSpanError(ctx, walkErr)
		log.Error("walk finished with failures", logger.MergeWithError(fields, walkErr))
	} else {
		log.Info("walk finished", fields)
	}
	return report, walkErr
}

// walkChained runs sources one after another, threading the offset from
// each source into the next. After a failure the remaining sources are
// skipped so no later source is placed on a broken timeline.
func (w *Walker) walkChained(ctx context.Context, runID string, paths []string, conflicts map[int]error, report *WalkReport, log *logger.Logger) {
	at := report.Offset
	broken := false
	visit := func(ctx context.Context, i int) (int, error) {
		path := paths[i]
		if broken || ctx.Err() != nil {
			report.Sources[i] = skippedReport(path, at)
			return i, nil
		}

		sr := w.source(ctx, path, at, conflicts[i])
		if !sr.Failed() {
			next, err := at.Advance(sr.Duration)
			if err != nil {
				sr.Status = StatusFailed
				sr.Err = err
			} else {
				at = next
			}
		}
		if sr.Failed() {
			broken = true
			log.Error("offset chain broken, skipping remaining sources", logger.Fields(
				logger.FieldSource, path,
				"remaining", len(paths)-i-1,
			))
		}
		report.Sources[i] = sr
		return i, nil
	}

	sources := stream.Map(stream.FromSlice(indexes(len(paths))), visit)
	_ = stream.ForEach(ctx, sources, func(ctx context.Context, i int) error {
		w.record(ctx, runID, report.Sources[i])
		return nil
	})
	report.Offset = at
}

// walkParallel runs independent sources on a pool of workers. A failed
// source does not stop the others. Sources not started before ctx is
// canceled are reported skipped.
func (w *Walker) walkParallel(ctx context.Context, runID string, paths []string, conflicts map[int]error, report *WalkReport) {
	at := report.Offset
	visit := func(ctx context.Context, i int) (int, error) {
		if ctx.Err() != nil {
			return i, nil
		}
		sr := w.source(ctx, paths[i], at, conflicts[i])
		report.Sources[i] = sr
		w.record(ctx, runID, sr)
		return i, nil
	}
	// Collect returns once every worker has exited.
	_, _ = stream.Collect(ctx, stream.Parallel(stream.FromSlice(indexes(len(paths))), w.opts.Workers, visit))

	for i, sr := range report.Sources {
		if sr == nil {
			sr = skippedReport(paths[i], at)
			report.Sources[i] = sr
			w.record(ctx, runID, sr)
		}
	}
}

// source processes one path starting at offset at, or reuses an earlier
// result when the source is unchanged.
func (w *Walker) source(ctx context.Context, path string, at Offset, conflict error) *SourceReport {
	if conflict != nil {
		src := audio.NewSource(path)
		return &SourceReport{Path: path, Name: src.Name, Status: StatusFailed, Offset: at.Seconds(), Err: conflict}
	}

	var fingerprint string
	if w.ledger != nil {
		fp, err := ledger.Fingerprint(path)
		if err != nil {
			w.log.Warn("could not fingerprint source", logger.MergeWithError(logger.Fields(logger.FieldSource, path), err))
		}
		fingerprint = fp
	}

	if w.opts.SkipUnchanged && fingerprint != "" {
		if sr := w.reuse(ctx, path, fingerprint, at); sr != nil {
			return sr
		}
	}

	sr, _ := w.merger.Process(ctx, path, at)
	sr.Fingerprint = fingerprint
	return sr
}

// reuse returns an unchanged report when the ledger holds a completed
// record of the same content at the same offset whose transcript is still
// in the output directory.
func (w *Walker) reuse(ctx context.Context, path, fingerprint string, at Offset) *SourceReport {
	outDir := filepath.Clean(w.merger.opts.OutputDir)
	rec, err := w.ledger.LastCompleted(ctx, fingerprint, func(p string) bool {
		if filepath.Dir(p) != outDir {
			return false
		}
		_, err := os.Stat(p)
		return err == nil
	})
	if err != nil {
		w.log.Warn("ledger lookup failed", logger.MergeWithError(logger.Fields(logger.FieldSource, path), err))
		return nil
	}
	if rec == nil || !rec.Offset.Equal(at.Seconds()) || !rec.Duration.IsPositive() {
		return nil
	}
	w.log.Info("source unchanged, reusing transcript", logger.Fields(
		logger.FieldSource, path,
		"transcript", rec.Transcript,
	))
	return &SourceReport{
		Path:        path,
		Name:        rec.Name,
		Fingerprint: fingerprint,
		Status:      StatusUnchanged,
		Offset:      rec.Offset,
		Duration:    rec.Duration,
		Chunks:      rec.Chunks,
		Transcript:  rec.Transcript,
	}
}

func (w *Walker) record(ctx context.Context, runID string, sr *SourceReport) {
	if w.ledger == nil {
		return
	}
	if err := w.ledger.RecordSource(context.WithoutCancel(ctx), runID, sr.record()); err != nil {
		w.log.Warn("could not record source", logger.MergeWithError(logger.Fields(logger.FieldSource, sr.Path), err))
	}
}

func skippedReport(path string, at Offset) *SourceReport {
	src := audio.NewSource(path)
	return &SourceReport{Path: path, Name: src.Name, Status: StatusSkipped, Offset: at.Seconds()}
}

// nameConflicts finds sources whose transcript name is already taken by an
// earlier source, which happens for equal stems with different extensions
// or in different subdirectories.
func nameConflicts(paths []string) map[int]error {
	conflicts := make(map[int]error)
	seen := make(map[string]string, len(paths))
	for i, path := range paths {
		name := audio.NewSource(path).Name
		if first, ok := seen[name]; ok {
			conflicts[i] = errors.InvalidInput("source", fmt.Sprintf("transcript name %q already used by %s", name, first))
			continue
		}
		seen[name] = path
	}
	return conflicts
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func totalChunks(r *WalkReport) int {
	n := 0
	for _, s := range r.Sources {
		n += s.Chunks
	}
	return n
}

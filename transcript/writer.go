package transcript

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/errors"
)

const (
	transcriptSuffix = "_transcript.txt"
	partialSuffix    = ".partial"
	incompleteSuffix = "_transcript.incomplete.txt"
)

// FileName returns the finalized transcript file name for a source name.
func FileName(name string) string { return name + transcriptSuffix }

// IncompleteFileName returns the name used for a transcript marked incomplete.
func IncompleteFileName(name string) string { return name + incompleteSuffix }

func partialFileName(name string) string { return FileName(name) + partialSuffix }

// Writer appends chunks to one source's transcript. Output goes to a
// ".partial" file that is renamed into place by Finalize, so a finished
// transcript only ever appears whole.
//
// The most recent chunk is held back until the next one arrives; Finalize
// writes it as the open-ended EOF chunk. A Writer is not safe for
// concurrent use.
type Writer struct {
	dir  string
	name string

	f       *os.File
	buf     *bufio.Writer
	pending *Chunk
	lastEnd decimal.Decimal
	written int
	closed  bool
}

// NewWriter prepares a writer for <dir>/<name>_transcript.txt. A stale
// partial file from an earlier interrupted run is removed. The file itself
// is created with the first chunk.
func NewWriter(dir, name string) (*Writer, error) {
	w := &Writer{dir: dir, name: name}
	if err := os.Remove(w.partialPath()); err != nil && !os.IsNotExist(err) {
		return nil, errors.IOFailure("remove stale partial", w.partialPath(), err)
	}
	return w, nil
}

// Path returns the finalized transcript path.
func (w *Writer) Path() string { return filepath.Join(w.dir, FileName(w.name)) }

func (w *Writer) partialPath() string { return filepath.Join(w.dir, partialFileName(w.name)) }

// Count returns the number of chunks accepted so far.
func (w *Writer) Count() int {
	if w.pending != nil {
		return w.written + 1
	}
	return w.written
}

// Append accepts chunks in timeline order. A chunk starting before the end
// of the previous one is rejected with OFFSET_MISMATCH.
func (w *Writer) Append(chunks ...Chunk) error {
	if w.closed {
		return errors.Internal(io.ErrClosedPipe).WithDetail("transcript", w.name)
	}
	for _, c := range chunks {
		if w.pending != nil || w.written > 0 {
			if c.Start.LessThan(w.lastEnd) {
				return errors.OffsetMismatch("chunk " + c.Range() + " overlaps previous chunk ending at " + FormatSeconds(w.lastEnd)).
					WithDetail("transcript", w.name)
			}
		}
		if w.pending != nil {
			if err := w.write(*w.pending); err != nil {
				return err
			}
		}
		w.pending = &c
		w.lastEnd = c.End
	}
	return nil
}

func (w *Writer) write(c Chunk) error {
	if w.f == nil {
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			return errors.IOFailure("create output dir", w.dir, err)
		}
		f, err := os.OpenFile(w.partialPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.IOFailure("open transcript", w.partialPath(), err)
		}
		w.f = f
		w.buf = bufio.NewWriter(f)
	}
	if err := WriteChunk(w.buf, c); err != nil {
		return errors.IOFailure("write transcript", w.partialPath(), err)
	}
	w.written++
	return nil
}

// Finalize writes the held-back chunk as the EOF chunk, syncs and renames the
// partial file into place. It returns the transcript path, or "" when no
// chunk was ever appended.
func (w *Writer) Finalize() (string, error) {
	if w.closed {
		return "", errors.Internal(io.ErrClosedPipe).WithDetail("transcript", w.name)
	}
	if w.pending != nil {
		last := *w.pending
		last.Open = true
		w.pending = nil
		if err := w.write(last); err != nil {
			w.abandon()
			return "", err
		}
	}
	if w.f == nil {
		w.closed = true
		return "", nil
	}
	if err := w.close(); err != nil {
		return "", err
	}
	if err := os.Rename(w.partialPath(), w.Path()); err != nil {
		return "", errors.IOFailure("finalize transcript", w.Path(), err)
	}
	return w.Path(), nil
}

// Discard closes and removes the partial transcript.
func (w *Writer) Discard() error {
	w.abandon()
	if err := os.Remove(w.partialPath()); err != nil && !os.IsNotExist(err) {
		return errors.IOFailure("discard transcript", w.partialPath(), err)
	}
	return nil
}

// MarkIncomplete flushes what was written, including the held-back chunk
// with its explicit end, and renames the file to <name>_transcript.incomplete.txt.
// It returns "" when nothing had been appended.
func (w *Writer) MarkIncomplete() (string, error) {
	if w.pending != nil && !w.closed {
		last := *w.pending
		w.pending = nil
		if err := w.write(last); err != nil {
			w.abandon()
			return "", err
		}
	}
	if w.f == nil {
		w.closed = true
		return "", nil
	}
	if err := w.close(); err != nil {
		return "", err
	}
	target := filepath.Join(w.dir, IncompleteFileName(w.name))
	if err := os.Rename(w.partialPath(), target); err != nil {
		return "", errors.IOFailure("mark transcript incomplete", target, err)
	}
	return target, nil
}

func (w *Writer) close() error {
	w.closed = true
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return errors.IOFailure("flush transcript", w.partialPath(), err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return errors.IOFailure("sync transcript", w.partialPath(), err)
	}
	if err := w.f.Close(); err != nil {
		return errors.IOFailure("close transcript", w.partialPath(), err)
	}
	return nil
}

func (w *Writer) abandon() {
	w.closed = true
	w.pending = nil
	if w.f != nil {
		w.f.Close()
	}
}

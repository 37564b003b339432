package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/chunkscribe/errors"
)

func chunk(start, end, text string) Chunk {
	return Chunk{Start: sec(start), End: sec(end), Text: text}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestWriter_FinalizeMarksOnlyLastChunkEOF(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "lecture")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	// Two segments worth of chunks appended in separate calls.
	if err := w.Append(chunk("0", "10", "shalom"), chunk("50", "59", "end of one")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append(chunk("59", "69", "second")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if w.Count() != 3 {
		t.Errorf("expected 3 chunks, got %d", w.Count())
	}

	if _, err := os.Stat(w.Path()); !os.IsNotExist(err) {
		t.Fatal("final transcript must not exist before Finalize")
	}

	path, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if path != filepath.Join(dir, "lecture_transcript.txt") {
		t.Errorf("unexpected path %s", path)
	}

	want := "0-10\nshalom\n50-59\nend of one\n59-EOF\nsecond\n"
	if got := readFile(t, path); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if _, err := os.Stat(path + ".partial"); !os.IsNotExist(err) {
		t.Error("partial file should be gone after Finalize")
	}
}

func TestWriter_NoChunksNoFile(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewWriter(dir, "silence")
	if err := w.Append(); err != nil {
		t.Fatalf("Append: %v", err)
	}
	path, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if path != "" {
		t.Errorf("expected no transcript path, got %s", path)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty output dir, got %d entries", len(entries))
	}
}

func TestWriter_RejectsOverlap(t *testing.T) {
	w, _ := NewWriter(t.TempDir(), "overlap")
	if err := w.Append(chunk("0", "10", "a")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	err := w.Append(chunk("5", "15", "b"))
	if !errors.HasCode(err, errors.ErrCodeOffsetMismatch) {
		t.Fatalf("expected OFFSET_MISMATCH, got %v", err)
	}
	_ = w.Discard()
}

func TestWriter_Discard(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewWriter(dir, "broken")
	w.Append(chunk("0", "10", "a"), chunk("10", "20", "b"))

	if err := w.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files after discard, got %d", len(entries))
	}
	if err := w.Discard(); err != nil {
		t.Errorf("second Discard should be a no-op, got %v", err)
	}
	if err := w.Append(chunk("20", "30", "c")); err == nil {
		t.Error("expected error appending to a discarded writer")
	}
}

func TestWriter_MarkIncomplete(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewWriter(dir, "partial")
	w.Append(chunk("0", "10", "a"), chunk("10", "20", "b"))

	path, err := w.MarkIncomplete()
	if err != nil {
		t.Fatalf("MarkIncomplete: %v", err)
	}
	if filepath.Base(path) != "partial_transcript.incomplete.txt" {
		t.Errorf("unexpected path %s", path)
	}
	want := "0-10\na\n10-20\nb\n"
	if got := readFile(t, path); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if _, err := os.Stat(filepath.Join(dir, "partial_transcript.txt")); !os.IsNotExist(err) {
		t.Error("incomplete transcript must not use the final name")
	}
}

func TestNewWriter_RemovesStalePartial(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "lecture_transcript.txt.partial")
	if err := os.WriteFile(stale, []byte("0-10\nstale\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWriter(dir, "lecture")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.Append(chunk("0", "10", "fresh"))
	path, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := readFile(t, path); got != "0-EOF\nfresh\n" {
		t.Errorf("stale content leaked into transcript: %q", got)
	}
}

package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/database"
	apperrors "github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Enabled: true, DSN: ":memory:", LogLevel: "silent"}, logger.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db, logger.NewNop())
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "b.mp3")
	_ = os.WriteFile(a, []byte("same bytes"), 0o644)
	_ = os.WriteFile(b, []byte("same bytes"), 0o644)

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fb, _ := Fingerprint(b)
	if fa != fb {
		t.Errorf("identical content should share a fingerprint: %s vs %s", fa, fb)
	}
	if len(fa) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(fa))
	}

	fr, _ := FingerprintReader(strings.NewReader("other bytes"))
	if fr == fa {
		t.Error("different content should not collide")
	}

	if _, err := Fingerprint(filepath.Join(dir, "missing.mp3")); !apperrors.HasCode(err, apperrors.ErrCodeSourceUnreadable) {
		t.Errorf("expected SOURCE_UNREADABLE, got %v", err)
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.BeginRun(ctx, "/audio", "v1.2.3", true)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == "" || run.Status != StatusRunning {
		t.Fatalf("unexpected run %+v", run)
	}

	rec := &SourceRecord{
		Path:        "/audio/a.mp3",
		Name:        "a",
		Fingerprint: "abc",
		Status:      StatusCompleted,
		Offset:      decimal.RequireFromString("59.5"),
		Duration:    decimal.RequireFromString("70.25"),
		Segments:    2,
		Chunks:      8,
		Transcript:  "/out/a_transcript.txt",
		SegmentRecords: []SegmentRecord{
			{Index: 2, Offset: decimal.NewFromInt(59), Duration: decimal.RequireFromString("11.25"), Attempts: 2, Words: 20, Chunks: 2},
			{Index: 1, Offset: decimal.Zero, Duration: decimal.NewFromInt(59), Attempts: 1, Words: 100, Chunks: 6},
		},
	}
	if err := s.RecordSource(ctx, run.ID, rec); err != nil {
		t.Fatalf("RecordSource: %v", err)
	}

	run.Sources = 1
	if err := s.FinishRun(ctx, run, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, sources, err := s.LoadRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if got.Status != StatusCompleted || got.Sources != 1 || got.FinishedAt == nil || !got.Chained {
		t.Errorf("unexpected stored run %+v", got)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	src := sources[0]
	if !src.Offset.Equal(decimal.RequireFromString("59.5")) || src.End().String() != "129.75" {
		t.Errorf("decimal round trip failed: offset=%s end=%s", src.Offset, src.End())
	}
	if len(src.SegmentRecords) != 2 || src.SegmentRecords[0].Index != 1 || src.SegmentRecords[1].Attempts != 2 {
		t.Errorf("unexpected segments %+v", src.SegmentRecords)
	}
}

func TestStore_FinishRunWithError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, _ := s.BeginRun(ctx, "/audio", "dev", false)
	run.Failed = 1
	if err := s.FinishRun(ctx, run, errors.New("one source failed")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, _, err := s.LoadRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if got.Status != StatusFailed || got.Failed != 1 || got.Error != "one source failed" {
		t.Errorf("unexpected run %+v", got)
	}
}

func TestStore_LastCompleted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, _ := s.BeginRun(ctx, "/audio", "dev", false)

	_ = s.RecordSource(ctx, run.ID, &SourceRecord{Fingerprint: "f1", Status: StatusFailed})
	if rec, err := s.LastCompleted(ctx, "f1", nil); err != nil || rec != nil {
		t.Fatalf("failed records must not count, got %+v %v", rec, err)
	}

	_ = s.RecordSource(ctx, run.ID, &SourceRecord{Fingerprint: "f1", Status: StatusCompleted, Transcript: "/gone.txt", Duration: decimal.NewFromInt(30)})
	exists := func(p string) bool { return p != "/gone.txt" }
	if rec, _ := s.LastCompleted(ctx, "f1", exists); rec != nil {
		t.Errorf("record whose transcript is gone must not count, got %+v", rec)
	}

	rec, err := s.LastCompleted(ctx, "f1", nil)
	if err != nil || rec == nil {
		t.Fatalf("expected completed record, got %+v %v", rec, err)
	}
	if !rec.Duration.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected duration %s", rec.Duration)
	}

	if rec, _ := s.LastCompleted(ctx, "other", nil); rec != nil {
		t.Errorf("unexpected match %+v", rec)
	}
}

func TestStore_NilIsNoop(t *testing.T) {
	var s *Store
	ctx := context.Background()
	run, err := s.BeginRun(ctx, "/audio", "dev", false)
	if err != nil || run == nil {
		t.Fatalf("nil store BeginRun: %v", err)
	}
	rec := &SourceRecord{}
	if err := s.RecordSource(ctx, "id", rec); err != nil || rec.RunID != "id" {
		t.Errorf("nil store RecordSource: %v", err)
	}
	if err := s.FinishRun(ctx, run, nil); err != nil {
		t.Errorf("nil store FinishRun: %v", err)
	}
	if got, _ := s.LastCompleted(ctx, "f", nil); got != nil {
		t.Error("nil store never has records")
	}
}

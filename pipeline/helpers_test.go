package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/audio"
	"github.com/kbukum/chunkscribe/audio/testutil"
	"github.com/kbukum/chunkscribe/logger"
	"github.com/kbukum/chunkscribe/recognition"
	"github.com/kbukum/chunkscribe/resilience"
)

var errBackend = stderrors.New("backend unavailable")

// scriptedRecognizer answers per segment file name. Words are scripted as
// "text@start" and last half a second.
type scriptedRecognizer struct {
	mu     sync.Mutex
	words  map[string][]string
	fails  map[string]int
	delays map[string]time.Duration
	calls  map[string]int
}

func newScriptedRecognizer() *scriptedRecognizer {
	return &scriptedRecognizer{
		words:  make(map[string][]string),
		fails:  make(map[string]int),
		delays: make(map[string]time.Duration),
		calls:  make(map[string]int),
	}
}

func (r *scriptedRecognizer) say(file string, words ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.words[file] = words
}

// fail makes the next n calls for file fail; n < 0 fails every call.
func (r *scriptedRecognizer) fail(file string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fails[file] = n
}

func (r *scriptedRecognizer) delay(file string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays[file] = d
}

func (r *scriptedRecognizer) callsFor(file string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[file]
}

func (r *scriptedRecognizer) totalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func (r *scriptedRecognizer) Name() string                     { return "scripted" }
func (r *scriptedRecognizer) IsAvailable(context.Context) bool { return true }

func (r *scriptedRecognizer) Recognize(ctx context.Context, req recognition.Request) (*recognition.Response, error) {
	r.mu.Lock()
	r.calls[req.FileName]++
	delay := r.delays[req.FileName]
	failing := r.fails[req.FileName]
	if failing > 0 {
		r.fails[req.FileName] = failing - 1
	}
	scripted := r.words[req.FileName]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failing != 0 {
		return nil, errBackend
	}

	var words []recognition.Word
	for _, s := range scripted {
		text, at, _ := strings.Cut(s, "@")
		start := decimal.RequireFromString(at)
		end := start.Add(decimal.RequireFromString("0.5"))
		words = append(words, recognition.Word{Text: text, Start: &start, End: &end})
	}
	return &recognition.Response{Results: []recognition.Result{
		{Alternatives: []recognition.Alternative{{Confidence: 0.9, Words: words}}},
	}}, nil
}

// testEnv lays out source, output and scratch directories under one temp dir.
type testEnv struct {
	t          *testing.T
	srcDir     string
	outDir     string
	scratchDir string
	codec      *testutil.Codec
	rec        *scriptedRecognizer
	maxSegment decimal.Decimal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	e := &testEnv{
		t:          t,
		srcDir:     filepath.Join(root, "in"),
		outDir:     filepath.Join(root, "out"),
		scratchDir: filepath.Join(root, "scratch"),
		codec:      testutil.NewCodec(),
		rec:        newScriptedRecognizer(),
		maxSegment: decimal.NewFromInt(59),
	}
	if err := os.MkdirAll(e.srcDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return e
}

// addSource creates a source file with the given content and registers its
// duration with the fake codec.
func (e *testEnv) addSource(name, seconds, content string) string {
	e.t.Helper()
	path := filepath.Join(e.srcDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		e.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.t.Fatalf("write source: %v", err)
	}
	e.codec.SetDuration(path, seconds)
	return path
}

func (e *testEnv) options() MergerOptions {
	return MergerOptions{
		BucketWidth:       decimal.NewFromInt(10),
		OutputDir:         e.outDir,
		ScratchDir:        e.scratchDir,
		OnFailure:         OnFailureDiscard,
		VerifyDurations:   true,
		DurationTolerance: decimal.RequireFromString("0.5"),
		Concurrency:       1,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	}
}

func (e *testEnv) merger(opts MergerOptions) *Merger {
	segmenter := audio.NewSegmenter(e.codec, e.maxSegment, logger.NewNop())
	return NewMerger(segmenter, e.rec, opts, logger.NewNop())
}

func (e *testEnv) transcript(name string) string {
	e.t.Helper()
	data, err := os.ReadFile(filepath.Join(e.outDir, name+"_transcript.txt"))
	if err != nil {
		e.t.Fatalf("read transcript %s: %v", name, err)
	}
	return string(data)
}

func (e *testEnv) outFiles() []string {
	e.t.Helper()
	entries, err := os.ReadDir(e.outDir)
	if err != nil && !os.IsNotExist(err) {
		e.t.Fatalf("read out dir: %v", err)
	}
	var names []string
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}

func (e *testEnv) dirExists(path string) bool {
	e.t.Helper()
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func mustOffset(t *testing.T, s string) Offset {
	t.Helper()
	o, err := NewOffset(decimal.RequireFromString(s))
	if err != nil {
		t.Fatalf("NewOffset(%s): %v", s, err)
	}
	return o
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

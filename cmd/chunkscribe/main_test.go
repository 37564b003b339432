package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/config"
	"github.com/kbukum/chunkscribe/logger"
	"github.com/kbukum/chunkscribe/pipeline"
)

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer

	f, err := parseFlags([]string{"-W", "5", "-chain", "./recordings"}, &stderr)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if f.dir != "./recordings" {
		t.Errorf("expected positional dir, got %q", f.dir)
	}
	if !f.set["W"] || !f.set["chain"] || f.set["D"] {
		t.Errorf("unexpected set flags %v", f.set)
	}

	if _, err := parseFlags(nil, &stderr); err == nil {
		t.Error("expected an error without a directory")
	}
	if !strings.Contains(stderr.String(), "usage: chunkscribe") {
		t.Errorf("expected usage on stderr, got %q", stderr.String())
	}

	f, err = parseFlags([]string{"-version"}, &stderr)
	if err != nil || !f.showVersion {
		t.Errorf("-version must not require a directory: %v", err)
	}
}

func TestRunVersionAndUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, &stdout, &stderr); code != 0 {
		t.Errorf("expected exit 0, got %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "chunkscribe ") {
		t.Errorf("expected version line, got %q", stdout.String())
	}

	if code := run([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Errorf("expected exit 2 for a bad flag, got %d", code)
	}
	if code := run([]string{"-h"}, &stdout, &stderr); code != 0 {
		t.Errorf("expected exit 0 for -h, got %d", code)
	}
}

func loadTestConfig(t *testing.T, yaml string, args ...string) *AppConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := parseFlags(append(append([]string{"-config", path}, args...), "dir"), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg := defaultConfig()
	if err := config.LoadConfig(serviceName, cfg, f.loaderOptions()...); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	cfg := loadTestConfig(t, `
pipeline:
  bucket_width: 10
  max_segment: 30
  extensions: [WAV]
  duration_tolerance: 0
`, "-W", "5", "-offset", "12.5", "-chain")

	if cfg.Pipeline.BucketWidth != 5 {
		t.Errorf("expected -W to win, got %v", cfg.Pipeline.BucketWidth)
	}
	if cfg.Pipeline.MaxSegment != 30 {
		t.Errorf("expected max_segment from file, got %v", cfg.Pipeline.MaxSegment)
	}
	if !cfg.Pipeline.ChainOffsets || cfg.Pipeline.InitialOffset != 12.5 {
		t.Errorf("expected chain and offset from flags, got %+v", cfg.Pipeline)
	}
	if len(cfg.Pipeline.Extensions) != 1 || cfg.Pipeline.Extensions[0] != ".wav" {
		t.Errorf("expected the file's extensions only, got %v", cfg.Pipeline.Extensions)
	}
	if !cfg.Pipeline.VerifyDurations {
		t.Error("expected verify_durations to keep its default")
	}
	if cfg.Pipeline.DurationTolerance != 0 {
		t.Errorf("expected the file's zero tolerance, got %v", cfg.Pipeline.DurationTolerance)
	}
	if cfg.Name != serviceName || cfg.Version == "" {
		t.Errorf("expected service defaults, got %q %q", cfg.Name, cfg.Version)
	}
	if !cfg.Ledger.AutoMigrate {
		t.Error("expected ledger auto-migrate on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestAppConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *AppConfig)
		errMsg string
	}{
		{"bad failure policy", func(c *AppConfig) { c.Pipeline.OnFailure = "retry" }, "pipeline"},
		{"bad export provider", func(c *AppConfig) { c.Export.Enabled = true; c.Export.Provider = "s3" }, "export"},
		{"bad environment", func(c *AppConfig) { c.Environment = "qa" }, "environment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestBuildWalker(t *testing.T) {
	cfg := defaultConfig()
	cfg.ApplyDefaults()

	w, err := buildWalker(cfg, nil, nil, nil, logger.NewNop())
	if err != nil || w == nil {
		t.Fatalf("buildWalker: %v", err)
	}

	cfg.Recognition.Provider = "nope"
	if _, err := buildWalker(cfg, nil, nil, nil, logger.NewNop()); err == nil {
		t.Error("expected an error for an unknown provider")
	}
}

func TestPrintReport(t *testing.T) {
	next, _ := pipeline.NewOffset(decimal.NewFromInt(95))
	r := &pipeline.WalkReport{
		Offset: next,
		Sources: []*pipeline.SourceReport{
			{Path: "in/a.mp3", Status: pipeline.StatusCompleted, Transcript: "out/a_transcript.txt", Chunks: 3},
			{Path: "in/b.mp3", Status: pipeline.StatusCompleted},
			{Path: "in/c.mp3", Status: pipeline.StatusFailed, Err: errors.New("boom")},
			{Path: "in/d.mp3", Status: pipeline.StatusSkipped},
		},
	}
	var buf bytes.Buffer
	printReport(&buf, r)
	out := buf.String()
	for _, want := range []string{
		"in/a.mp3 -> out/a_transcript.txt (3 chunks)",
		"in/b.mp3 (no speech)",
		"in/c.mp3: boom",
		"skipped   in/d.mp3",
		"2 completed, 0 unchanged, 1 failed, 1 skipped; next offset 95",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

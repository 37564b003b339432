package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if cfg.Logging.ServiceName != "svc" {
			t.Errorf("expected logging service name propagated, got %q", cfg.Logging.ServiceName)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info level, got %q", cfg.Logging.Level)
		}
	})

	t.Run("debug raises log level", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Debug: true}
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug level, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, false, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type testPipeline struct {
	BucketWidth time.Duration `mapstructure:"bucket_width"`
	Workers     int           `mapstructure:"workers"`
	ScratchDir  string        `mapstructure:"scratch_dir"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Pipeline      testPipeline `mapstructure:"pipeline"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	writeFile(t, configPath, `
name: chunkscribe
environment: staging
pipeline:
  bucket_width: 10s
  workers: 2
`)

	var cfg testConfig
	if err := LoadConfig("chunkscribe", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "chunkscribe" {
		t.Errorf("expected name 'chunkscribe', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Pipeline.BucketWidth != 10*time.Second {
		t.Errorf("expected bucket width 10s, got %s", cfg.Pipeline.BucketWidth)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Pipeline.Workers)
	}
}

func TestLoadConfigEnvPrefixOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	writeFile(t, configPath, `
name: chunkscribe
pipeline:
  bucket_width: 10s
`)
	t.Setenv("CSTEST_PIPELINE_BUCKET_WIDTH", "15s")
	t.Setenv("CSTEST_PIPELINE_SCRATCH_DIR", "/tmp/scratch")

	var cfg testConfig
	if err := LoadConfig("chunkscribe", &cfg, WithConfigFile(configPath), WithEnvPrefix("CSTEST")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.BucketWidth != 15*time.Second {
		t.Errorf("expected env to override bucket width, got %s", cfg.Pipeline.BucketWidth)
	}
	if cfg.Pipeline.ScratchDir != "/tmp/scratch" {
		t.Errorf("expected scratch dir from env, got %q", cfg.Pipeline.ScratchDir)
	}
}

func TestLoadConfigOverrideWins(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	writeFile(t, configPath, "pipeline:\n  workers: 1\n")

	var cfg testConfig
	err := LoadConfig("chunkscribe", &cfg,
		WithConfigFile(configPath),
		WithOverride("pipeline.workers", 4),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("expected override to win, got %d", cfg.Pipeline.Workers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	writeFile(t, configPath, "pipeline: [unclosed\n")

	var cfg testConfig
	if err := LoadConfig("chunkscribe", &cfg, WithConfigFile(configPath)); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/chunkscribe/config.yml": true,
		".env":                         true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("chunkscribe", LoaderConfig{})
	if files.ConfigFile != "./cmd/chunkscribe/config.yml" {
		t.Errorf("expected config file at ./cmd/chunkscribe/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("expected .env, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPathsWin(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./config.yml": true}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("chunkscribe", LoaderConfig{ConfigFile: "/etc/cs.yml", EnvFile: "/etc/cs.env"})
	if files.ConfigFile != "/etc/cs.yml" || files.EnvFile != "/etc/cs.env" {
		t.Errorf("expected explicit paths, got %+v", files)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("PIPELINE_BUCKET_WIDTH")
	want := map[string]bool{
		"pipeline_bucket_width": false,
		"pipeline.bucket.width": false,
		"pipeline.bucket_width": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("expected variant %q in %v", k, variants)
		}
	}

	if got := generateEnvKeyVariants("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("expected single variant for NAME, got %v", got)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("chunkscribe_")(&lc)

	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
	if lc.EnvPrefix != "CHUNKSCRIBE" {
		t.Errorf("expected normalized prefix, got %q", lc.EnvPrefix)
	}
}

// Command chunkscribe turns a directory of recordings into time-aligned
// transcripts, one per source, bucketed into fixed-width chunks.
//
//	chunkscribe -dir ./recordings -W 10 -D 59 -chain
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kbukum/chunkscribe/audio"
	"github.com/kbukum/chunkscribe/bootstrap"
	"github.com/kbukum/chunkscribe/component"
	"github.com/kbukum/chunkscribe/config"
	"github.com/kbukum/chunkscribe/database"
	"github.com/kbukum/chunkscribe/ledger"
	"github.com/kbukum/chunkscribe/logger"
	"github.com/kbukum/chunkscribe/observability"
	"github.com/kbukum/chunkscribe/pipeline"
	"github.com/kbukum/chunkscribe/recognition"
	"github.com/kbukum/chunkscribe/recognition/whisper"
	"github.com/kbukum/chunkscribe/resilience"
	"github.com/kbukum/chunkscribe/storage"
	_ "github.com/kbukum/chunkscribe/storage/local"
	"github.com/kbukum/chunkscribe/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cliFlags holds parsed command-line input. Only flags the user actually
// set are turned into config overrides.
type cliFlags struct {
	dir         string
	configFile  string
	envFile     string
	bucketWidth float64
	maxSegment  float64
	offset      float64
	chain       bool
	quiet       bool
	showVersion bool
	set         map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.dir, "dir", "", "directory of audio sources (or the first positional argument)")
	fs.StringVar(&f.configFile, "config", "", "config file (default: searched next to the binary)")
	fs.StringVar(&f.envFile, "env", "", ".env file to load")
	fs.Float64Var(&f.bucketWidth, "W", 0, "bucket width in seconds")
	fs.Float64Var(&f.maxSegment, "D", 0, "maximum segment duration in seconds")
	fs.Float64Var(&f.offset, "offset", 0, "initial offset in seconds")
	fs.BoolVar(&f.chain, "chain", false, "chain offsets across sources")
	fs.BoolVar(&f.quiet, "quiet", false, "suppress the startup summary")
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] [dir]\n", serviceName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if f.dir == "" && fs.NArg() > 0 {
		f.dir = fs.Arg(0)
	}
	if f.dir == "" && !f.showVersion {
		fs.Usage()
		return nil, fmt.Errorf("a source directory is required")
	}
	return f, nil
}

// loaderOptions maps set flags onto config keys; they win over files and env.
func (f *cliFlags) loaderOptions() []config.LoaderOption {
	opts := []config.LoaderOption{config.WithEnvPrefix("CHUNKSCRIBE")}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	overrides := []struct {
		flag  string
		key   string
		value any
	}{
		{"W", "pipeline.bucket_width", f.bucketWidth},
		{"D", "pipeline.max_segment", f.maxSegment},
		{"offset", "pipeline.initial_offset", f.offset},
		{"chain", "pipeline.chain_offsets", f.chain},
	}
	for _, o := range overrides {
		if f.set[o.flag] {
			opts = append(opts, config.WithOverride(o.key, o.value))
		}
	}
	return opts
}

func run(args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return 2
	}
	if flags.showVersion {
		fmt.Fprintf(stdout, "%s %s\n", serviceName, version.Get().String())
		return 0
	}

	cfg := defaultConfig()
	if err := config.LoadConfig(serviceName, cfg, flags.loaderOptions()...); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return 1
	}

	app, err := bootstrap.NewApp(cfg, bootstrap.WithQuiet(flags.quiet))
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return 1
	}

	obs := observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment, app.Logger)
	db := database.NewComponent(cfg.Ledger, app.Logger).WithAutoMigrate(ledger.Models()...)
	export := storage.NewComponent(cfg.Export, app.Logger)
	for _, c := range []component.Component{obs, db, export} {
		if err := app.RegisterComponent(c); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
			return 1
		}
	}

	var walker *pipeline.Walker
	app.OnConfigure(func(_ context.Context, a *bootstrap.App[*AppConfig]) error {
		w, err := buildWalker(a.Cfg, obs.Metrics(), db.DB(), export.Storage(), a.Logger)
		walker = w
		return err
	})

	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		report, err := walker.Walk(ctx, flags.dir)
		if report != nil {
			printReport(stdout, report)
		}
		return err
	})
	if err != nil {
		app.Logger.Error("Run failed", logger.Fields("error", err.Error()))
		return 1
	}
	return 0
}

// buildWalker assembles the recognition chain, the merger and the walker
// from started components. db and store are nil when their sections are
// disabled.
func buildWalker(cfg *AppConfig, metrics *observability.Metrics, db *database.DB, store storage.Storage, log *logger.Logger) (*pipeline.Walker, error) {
	registry := recognition.NewRegistry()
	if err := registry.RegisterFactory(whisper.ProviderName, whisper.Factory); err != nil {
		return nil, err
	}
	backend, err := registry.Create(cfg.Recognition.Provider, cfg.Recognition)
	if err != nil {
		return nil, fmt.Errorf("recognition: %w", err)
	}

	recognizer := recognition.Chain(
		recognition.WithLogging(log),
		recognition.WithTracing(),
		recognition.WithMetrics(metrics),
		recognition.WithLimiter(resilience.NewLimiter(cfg.Recognition.LimiterConfig())),
		recognition.WithTimeout(cfg.Recognition.Timeout),
	)(backend)

	segmenter := audio.NewSegmenter(audio.NewFFmpeg(cfg.FFmpeg, nil), cfg.Pipeline.MaxSegmentSeconds(), log)
	merger := pipeline.NewMerger(segmenter, recognizer, cfg.Pipeline.MergerOptions(cfg.Recognition), log).
		WithMetrics(metrics)
	if store != nil {
		merger = merger.WithExporter(pipeline.NewExporter(store, log))
	}

	walker := pipeline.NewWalker(merger, cfg.Pipeline.WalkOptions(), log)
	if db != nil {
		walker = walker.WithLedger(ledger.NewStore(db, log), cfg.Version)
	}
	return walker, nil
}

func printReport(w io.Writer, r *pipeline.WalkReport) {
	for _, s := range r.Sources {
		switch {
		case s.Err != nil:
			fmt.Fprintf(w, "%-9s %s: %v\n", s.Status, s.Path, s.Err)
		case s.Status == pipeline.StatusSkipped:
			fmt.Fprintf(w, "%-9s %s\n", s.Status, s.Path)
		case s.Transcript == "":
			fmt.Fprintf(w, "%-9s %s (no speech)\n", s.Status, s.Path)
		default:
			fmt.Fprintf(w, "%-9s %s -> %s (%d chunks)\n", s.Status, s.Path, s.Transcript, s.Chunks)
		}
		if s.ExportErr != nil {
			fmt.Fprintf(w, "          export failed: %v\n", s.ExportErr)
		}
	}
	fmt.Fprintf(w, "%d completed, %d unchanged, %d failed, %d skipped; next offset %s\n",
		r.Count(pipeline.StatusCompleted), r.Count(pipeline.StatusUnchanged),
		r.Count(pipeline.StatusFailed), r.Count(pipeline.StatusSkipped), r.Offset)
}

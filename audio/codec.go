package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/process"
)

// Codec probes and cuts audio files.
type Codec interface {
	// Probe returns the duration of the file in seconds.
	Probe(ctx context.Context, path string) (decimal.Decimal, error)
	// Extract writes [start, start+length) of src to dst.
	Extract(ctx context.Context, src, dst string, start, length decimal.Decimal) error
}

// FFmpegConfig configures the ffmpeg-backed codec.
type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" mapstructure:"ffprobe_path"`
	// Timeout bounds a single ffmpeg or ffprobe invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// CopyStreams cuts without re-encoding. Faster, but cut points snap to
	// frame boundaries so durations drift slightly.
	CopyStreams bool `yaml:"copy_streams" mapstructure:"copy_streams"`
}

// ApplyDefaults fills unset fields.
func (c *FFmpegConfig) ApplyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
}

// FFmpeg implements Codec with the ffprobe and ffmpeg binaries.
type FFmpeg struct {
	cfg    FFmpegConfig
	runner process.Runner
}

var _ Codec = (*FFmpeg)(nil)

// NewFFmpeg creates the codec. A nil runner uses real subprocesses.
func NewFFmpeg(cfg FFmpegConfig, runner process.Runner) *FFmpeg {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = process.Exec
	}
	return &FFmpeg{cfg: cfg, runner: runner}
}

// Probe reads the container duration with ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, path string) (decimal.Decimal, error) {
	res, err := f.runner.Run(ctx, process.Command{
		Binary: f.cfg.FFprobePath,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
		Timeout: f.cfg.Timeout,
	})
	if err != nil {
		return decimal.Zero, errors.SourceUnreadable(path, err)
	}

	out := strings.TrimSpace(string(res.Stdout))
	d, err := decimal.NewFromString(out)
	if err != nil {
		return decimal.Zero, errors.SourceUnreadable(path, fmt.Errorf("unexpected ffprobe duration %q: %w", out, err))
	}
	return d, nil
}

// Extract cuts one span of src into dst, overwriting dst.
func (f *FFmpeg) Extract(ctx context.Context, src, dst string, start, length decimal.Decimal) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-ss", start.String(),
		"-t", length.String(),
		"-i", src,
		"-map", "0:a",
	}
	if f.cfg.CopyStreams {
		args = append(args, "-c", "copy")
	}
	args = append(args, dst)

	if _, err := f.runner.Run(ctx, process.Command{
		Binary:  f.cfg.FFmpegPath,
		Args:    args,
		Timeout: f.cfg.Timeout,
	}); err != nil {
		if werr := writable(filepath.Dir(dst)); werr != nil {
			return errors.IOFailure("write segment", dst, werr).
				WithDetail("ffmpeg", err.Error())
		}
		return errors.SourceUnreadable(src, err).
			WithDetail("segment", dst)
	}
	return nil
}

// writable reports why files cannot be created in dir, or nil.
func writable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

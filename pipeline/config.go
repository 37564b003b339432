package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/recognition"
	"github.com/kbukum/chunkscribe/validation"
)

// Failure policies for a source that fails after its transcript was started.
const (
	OnFailureDiscard = "discard"
	OnFailureMark    = "mark"
)

// DefaultExtensions are the audio file extensions walked by default.
var DefaultExtensions = []string{".mp3", ".wav", ".flac", ".m4a", ".ogg"}

// Config is the pipeline section of the application config. Seconds are
// plain numbers in YAML and become exact decimals in the options.
type Config struct {
	BucketWidth       float64  `mapstructure:"bucket_width" validate:"gt=0"`
	MaxSegment        float64  `mapstructure:"max_segment" validate:"gt=0"`
	InitialOffset     float64  `mapstructure:"initial_offset" validate:"gte=0"`
	ChainOffsets      bool     `mapstructure:"chain_offsets"`
	Workers           int      `mapstructure:"workers" validate:"gte=1"`
	Recursive         bool     `mapstructure:"recursive"`
	Extensions        []string `mapstructure:"extensions" validate:"min=1,dive,ext"`
	ScratchDir        string   `mapstructure:"scratch_dir" validate:"required"`
	OutputDir         string   `mapstructure:"output_dir" validate:"required"`
	KeepScratch       bool     `mapstructure:"keep_scratch"`
	OnFailure         string   `mapstructure:"on_failure" validate:"oneof=discard mark"`
	VerifyDurations   bool     `mapstructure:"verify_durations"`
	DurationTolerance float64  `mapstructure:"duration_tolerance" validate:"gte=0"`
	SkipUnchanged     bool     `mapstructure:"skip_unchanged"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BucketWidth:       10,
		MaxSegment:        59,
		Workers:           1,
		Extensions:        append([]string(nil), DefaultExtensions...),
		ScratchDir:        "./tmp/segments",
		OutputDir:         "./out",
		OnFailure:         OnFailureDiscard,
		VerifyDurations:   true,
		DurationTolerance: 0.5,
	}
}

// ApplyDefaults fills zero-valued fields and normalizes extensions to a
// lower-case ".ext" form. Booleans and DurationTolerance, where zero is a
// valid setting, are left alone; callers start from DefaultConfig before
// decoding.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.BucketWidth == 0 {
		c.BucketWidth = d.BucketWidth
	}
	if c.MaxSegment == 0 {
		c.MaxSegment = d.MaxSegment
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if len(c.Extensions) == 0 {
		c.Extensions = d.Extensions
	}
	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
	if c.ScratchDir == "" {
		c.ScratchDir = d.ScratchDir
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.OnFailure == "" {
		c.OnFailure = d.OnFailure
	}
}

// Validate checks field bounds and the rules that span fields.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	v := validation.New()
	v.Custom(c.DurationTolerance < c.MaxSegment, "duration_tolerance", "must be below max_segment")
	return v.Validate()
}

// MergerOptions derives the per-source options. Language, concurrency and
// the retry policy come from the recognition section.
func (c *Config) MergerOptions(rc recognition.Config) MergerOptions {
	return MergerOptions{
		Language:          rc.Language,
		Concurrency:       rc.Concurrency,
		Retry:             rc.RetryConfig(),
		BucketWidth:       decimal.NewFromFloat(c.BucketWidth),
		OutputDir:         c.OutputDir,
		ScratchDir:        c.ScratchDir,
		KeepScratch:       c.KeepScratch,
		OnFailure:         c.OnFailure,
		VerifyDurations:   c.VerifyDurations,
		DurationTolerance: decimal.NewFromFloat(c.DurationTolerance),
	}
}

// WalkOptions derives the directory walk options.
func (c *Config) WalkOptions() WalkOptions {
	return WalkOptions{
		Extensions:    c.Extensions,
		Recursive:     c.Recursive,
		ChainOffsets:  c.ChainOffsets,
		InitialOffset: decimal.NewFromFloat(c.InitialOffset),
		Workers:       c.Workers,
		SkipUnchanged: c.SkipUnchanged,
	}
}

// MaxSegmentSeconds returns MaxSegment as an exact decimal.
func (c *Config) MaxSegmentSeconds() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxSegment)
}

// Package testutil provides an in-process audio codec for tests that must
// not depend on ffmpeg.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/errors"
)

const segmentHeader = "segment"

// Codec fakes ffprobe/ffmpeg. Source durations are registered up front;
// extracted segment files record their span and probe back as its length
// plus Drift.
type Codec struct {
	mu         sync.Mutex
	durations  map[string]decimal.Decimal
	failProbe  map[string]error
	failAt     map[int]error
	extracts   int
	drift      decimal.Decimal
	ExtractLog []string
}

// NewCodec creates an empty fake codec.
func NewCodec() *Codec {
	return &Codec{
		durations: make(map[string]decimal.Decimal),
		failProbe: make(map[string]error),
		failAt:    make(map[int]error),
	}
}

// SetDuration registers the duration of a source file.
func (c *Codec) SetDuration(path string, seconds string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations[path] = decimal.RequireFromString(seconds)
}

// FailProbe makes Probe of path fail with err.
func (c *Codec) FailProbe(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failProbe[path] = err
}

// FailExtract makes the n-th Extract call (1-based) fail with err.
func (c *Codec) FailExtract(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAt[n] = err
}

// SetDrift adds d seconds to every probed segment duration.
func (c *Codec) SetDrift(d string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drift = decimal.RequireFromString(d)
}

// Probe returns the registered duration, or the recorded span length of an
// extracted segment file.
func (c *Codec) Probe(_ context.Context, path string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.failProbe[path]; err != nil {
		return decimal.Zero, errors.SourceUnreadable(path, err)
	}
	if d, ok := c.durations[path]; ok {
		return d, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return decimal.Zero, errors.SourceUnreadable(path, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) != 3 || fields[0] != segmentHeader {
		return decimal.Zero, errors.SourceUnreadable(path, fmt.Errorf("not a fake segment"))
	}
	length, err := decimal.NewFromString(fields[2])
	if err != nil {
		return decimal.Zero, errors.SourceUnreadable(path, err)
	}
	return length.Add(c.drift), nil
}

// Extract writes a small file describing the span.
func (c *Codec) Extract(_ context.Context, src, dst string, start, length decimal.Decimal) error {
	c.mu.Lock()
	c.extracts++
	n := c.extracts
	failErr := c.failAt[n]
	c.ExtractLog = append(c.ExtractLog, fmt.Sprintf("%s@%s+%s", dst, start, length))
	c.mu.Unlock()

	if failErr != nil {
		return errors.SourceUnreadable(src, failErr)
	}
	content := fmt.Sprintf("%s %s %s\n", segmentHeader, start.String(), length.String())
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return errors.IOFailure("write segment", dst, err)
	}
	return nil
}

// Extracts returns how many Extract calls were made.
func (c *Codec) Extracts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extracts
}

package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LimiterConfig configures a Limiter. Zero values disable the matching limit.
type LimiterConfig struct {
	// MaxInFlight caps how many calls may run at once.
	MaxInFlight int `yaml:"max_in_flight" mapstructure:"max_in_flight"`
	// Rate is the maximum number of call starts per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
}

// Validate rejects negative limits.
func (c *LimiterConfig) Validate() error {
	if c.MaxInFlight < 0 {
		return fmt.Errorf("limiter.max_in_flight must be >= 0 (got: %d)", c.MaxInFlight)
	}
	if c.Rate < 0 {
		return fmt.Errorf("limiter.rate must be >= 0 (got: %v)", c.Rate)
	}
	return nil
}

// Limiter bounds concurrent calls and spaces their starts evenly. One Limiter
// is shared by every source so parallel sources stay within a backend quota.
type Limiter struct {
	slots    chan struct{}
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewLimiter creates a Limiter from cfg.
func NewLimiter(cfg LimiterConfig) *Limiter {
	l := &Limiter{}
	if cfg.MaxInFlight > 0 {
		l.slots = make(chan struct{}, cfg.MaxInFlight)
	}
	if cfg.Rate > 0 {
		l.interval = time.Duration(float64(time.Second) / cfg.Rate)
	}
	return l
}

// Acquire blocks until a call may start. The returned release func must be
// called when the call finishes. A nil Limiter never blocks.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l == nil {
		return func() {}, nil
	}

	if l.slots != nil {
		select {
		case l.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	release := func() {
		if l.slots != nil {
			<-l.slots
		}
	}

	if wait := l.reserve(); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

// InFlight returns the number of calls currently holding a slot.
func (l *Limiter) InFlight() int {
	if l == nil || l.slots == nil {
		return 0
	}
	return len(l.slots)
}

// reserve books the next start time and returns how long the caller must wait.
func (l *Limiter) reserve() time.Duration {
	if l.interval <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	start := l.next
	if start.Before(now) {
		start = now
	}
	l.next = start.Add(l.interval)
	return start.Sub(now)
}

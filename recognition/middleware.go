package recognition

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/logger"
	"github.com/kbukum/chunkscribe/observability"
	"github.com/kbukum/chunkscribe/resilience"
)

// Middleware wraps a Provider with cross-cutting behavior.
type Middleware func(Provider) Provider

// Chain composes middlewares; the first is outermost.
//
// Chain(a, b, c)(p) is equivalent to a(b(c(p))).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Provider) Provider {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// IsRetryable decides whether a failed recognition call is worth repeating.
// AppErrors carry their own verdict; other errors are retried unless the
// caller's context ended.
func IsRetryable(err error) bool {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return resilience.DefaultRetryIf(err)
}

// wrapped forwards Name and IsAvailable to the inner provider.
type wrapped struct {
	inner Provider
}

func (w wrapped) Name() string                         { return w.inner.Name() }
func (w wrapped) IsAvailable(ctx context.Context) bool { return w.inner.IsAvailable(ctx) }

// WithLogging logs every call with its duration and outcome.
func WithLogging(log *logger.Logger) Middleware {
	return func(inner Provider) Provider {
		return &loggingProvider{wrapped{inner}, log.WithComponent("recognition")}
	}
}

type loggingProvider struct {
	wrapped
	log *logger.Logger
}

func (l *loggingProvider) Recognize(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Recognize(ctx, req)

	fields := logger.Fields(
		"provider", l.inner.Name(),
		logger.FieldSegment, req.FileName,
		"bytes", len(req.Audio),
	)
	for k, v := range logger.ElapsedFields("recognize", time.Since(start)) {
		fields[k] = v
	}
	if err != nil {
		l.log.Warn("recognition call failed", logger.MergeWithError(fields, err))
		return nil, err
	}
	fields["results"] = len(resp.Results)
	l.log.Debug("recognition call ok", fields)
	return resp, nil
}

// WithTracing opens a span around every call.
func WithTracing() Middleware {
	return func(inner Provider) Provider {
		return &tracingProvider{wrapped{inner}}
	}
}

type tracingProvider struct {
	wrapped
}

func (t *tracingProvider) Recognize(ctx context.Context, req Request) (*Response, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRecognition)
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrProvider, t.inner.Name())
	observability.SetSpanAttribute(ctx, observability.AttrSegment, req.FileName)

	resp, err := t.inner.Recognize(ctx, req)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return resp, err
}

// WithMetrics records the duration and status of every call. A nil
// *observability.Metrics records nothing.
func WithMetrics(metrics *observability.Metrics) Middleware {
	return func(inner Provider) Provider {
		return &metricsProvider{wrapped{inner}, metrics}
	}
}

type metricsProvider struct {
	wrapped
	metrics *observability.Metrics
}

func (m *metricsProvider) Recognize(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := m.inner.Recognize(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordRecognition(ctx, m.inner.Name(), status, time.Since(start))
	return resp, err
}

// WithLimiter makes every call acquire a slot from l first. One limiter is
// shared by all sources of a run.
func WithLimiter(l *resilience.Limiter) Middleware {
	return func(inner Provider) Provider {
		return &limitedProvider{wrapped{inner}, l}
	}
}

type limitedProvider struct {
	wrapped
	limiter *resilience.Limiter
}

func (l *limitedProvider) Recognize(ctx context.Context, req Request) (*Response, error) {
	release, err := l.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.inner.Recognize(ctx, req)
}

// WithTimeout bounds every call by d. A call that runs out of its own time
// while the caller's context is still live fails with a retryable TIMEOUT.
func WithTimeout(d time.Duration) Middleware {
	return func(inner Provider) Provider {
		if d <= 0 {
			return inner
		}
		return &timeoutProvider{wrapped{inner}, d}
	}
}

type timeoutProvider struct {
	wrapped
	timeout time.Duration
}

func (t *timeoutProvider) Recognize(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.inner.Recognize(callCtx, req)
	if err != nil && ctx.Err() == nil && stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, errors.Timeout("recognize " + req.FileName).WithCause(err)
	}
	return resp, err
}

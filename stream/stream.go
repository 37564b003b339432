package stream

import "context"

// Iterator yields values one at a time. Next returns (zero, false, nil) once
// the sequence is exhausted.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Stream is a lazy sequence. Every terminal call builds a fresh iterator
// chain from it.
type Stream[T any] struct {
	open func(ctx context.Context) Iterator[T]
}

// Runnable is a stream bound to a sink, ready to run.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run pulls until the stream ends, the sink fails or ctx is canceled.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// FromSlice streams items in order.
func FromSlice[T any](items []T) *Stream[T] {
	return &Stream[T]{
		open: func(context.Context) Iterator[T] {
			return &sliceIter[T]{items: items}
		},
	}
}

// FromFunc streams from the iterator fn opens.
func FromFunc[T any](fn func(ctx context.Context) Iterator[T]) *Stream[T] {
	return &Stream[T]{open: fn}
}

// Iter opens the stream for manual iteration. The caller must Close it.
func (s *Stream[T]) Iter(ctx context.Context) Iterator[T] {
	return s.open(ctx)
}

// Drain returns a Runnable that hands every value to sink.
func Drain[T any](s *Stream[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{
		run: func(ctx context.Context) error {
			it := s.open(ctx)
			defer it.Close()
			for {
				v, ok, err := it.Next(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := sink(ctx, v); err != nil {
					return err
				}
			}
		},
	}
}

// ForEach runs Drain(s, fn) immediately.
func ForEach[T any](ctx context.Context, s *Stream[T], fn func(context.Context, T) error) error {
	return Drain(s, fn).Run(ctx)
}

// Collect pulls every value into a slice. On error the values pulled so far
// are returned with it.
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, s, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.pos >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

// item carries one value or error across a channel.
type item[T any] struct {
	val T
	err error
}

type chanIter[T any] struct {
	ch     <-chan item[T]
	closer func() error
}

func (it *chanIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case r, open := <-it.ch:
		if !open {
			return zero, false, nil
		}
		if r.err != nil {
			return zero, false, r.err
		}
		return r.val, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (it *chanIter[T]) Close() error {
	if it.closer == nil {
		return nil
	}
	return it.closer()
}

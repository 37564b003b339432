package stream

import (
	"context"
	"sync"
)

// Map transforms each value with fn, one at a time and in order.
func Map[I, O any](s *Stream[I], fn func(context.Context, I) (O, error)) *Stream[O] {
	return &Stream[O]{
		open: func(ctx context.Context) Iterator[O] {
			return &mapIter[I, O]{source: s.open(ctx), fn: fn}
		},
	}
}

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	v, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, v)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

// Parallel applies fn on n workers. Results arrive in completion order. The
// first error from fn or the source cancels the workers' context and ends
// the stream. Close returns only after every worker has exited.
func Parallel[I, O any](s *Stream[I], n int, fn func(context.Context, I) (O, error)) *Stream[O] {
	if n < 1 {
		n = 1
	}
	return &Stream[O]{
		open: func(ctx context.Context) Iterator[O] {
			source := s.open(ctx)
			workCtx, cancel := context.WithCancel(ctx)
			in := make(chan I, n)
			out := make(chan item[O], n)

			send := func(r item[O]) bool {
				select {
				case out <- r:
					return true
				case <-workCtx.Done():
					return false
				}
			}

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer close(in)
				for {
					v, ok, err := source.Next(workCtx)
					if err != nil {
						send(item[O]{err: err})
						return
					}
					if !ok {
						return
					}
					select {
					case in <- v:
					case <-workCtx.Done():
						return
					}
				}
			}()

			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for v := range in {
						o, err := fn(workCtx, v)
						if err != nil {
							send(item[O]{err: err})
							cancel()
							return
						}
						if !send(item[O]{val: o}) {
							return
						}
					}
				}()
			}

			go func() {
				wg.Wait()
				close(out)
			}()

			return &chanIter[O]{
				ch: out,
				closer: func() error {
					cancel()
					wg.Wait()
					return source.Close()
				},
			}
		},
	}
}

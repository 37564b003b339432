// Package resilience provides the fault-tolerance primitives used around
// recognition calls:
//
//   - Retry: bounded retries with exponential backoff and a retry predicate
//   - Limiter: caps concurrent calls and spaces call starts to a rate
//
//	lim := resilience.NewLimiter(resilience.LimiterConfig{MaxInFlight: 4, Rate: 2})
//	words, attempts, err := resilience.Retry(ctx, cfg, func(attempt int) ([]Word, error) {
//	    release, err := lim.Acquire(ctx)
//	    if err != nil {
//	        return nil, err
//	    }
//	    defer release()
//	    return recognize(ctx)
//	})
package resilience

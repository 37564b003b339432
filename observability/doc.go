// Package observability wires OpenTelemetry tracing and metrics for
// chunkscribe runs.
//
// Spans are opened per walk, per source and per recognition call; counters
// track processed sources, segments, recognition attempts and emitted
// chunks. When telemetry is disabled the global no-op providers are used so
// instrumented code never has to check.
//
//	comp := observability.NewComponent(cfg.Observability, cfg.Name, version.Get().Short(), cfg.Environment, log)
//	registry.Register(comp)
//	ctx, span := observability.StartSpan(ctx, observability.SpanSource)
//	defer span.End()
package observability

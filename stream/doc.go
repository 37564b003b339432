// Package stream provides lazy, pull-based operators over sequences of
// values.
//
// A Stream does no work until it is pulled with Collect, Drain or ForEach,
// or iterated directly with Iter. Each stage pulls from the one before it,
// so a slow consumer slows the producers down.
//
//   - FromSlice, FromFunc: sources
//   - Map: sequential transform
//   - Parallel: unordered transform on a fixed number of workers
//   - Collect, Drain, ForEach: terminals
//
// Parallel does not preserve order. Callers that need results in input order
// carry an index through the stream and reorder on the consuming side.
package stream

// Package pipeline turns audio sources into time-aligned transcripts.
//
// A Merger handles one source: it splits the source into segments,
// recognizes each segment with bounded retries, buckets the recognized words
// into fixed-width chunks positioned on the source timeline and appends them
// to a single transcript file. A Walker runs the Merger over every audio
// file of a directory, optionally chaining the sources onto one continuous
// timeline by threading an Offset from each source into the next.
//
//	merger := pipeline.NewMerger(segmenter, recognizer, opts, log)
//	walker := pipeline.NewWalker(merger, walkOpts, log)
//	report, err := walker.Walk(ctx, "/recordings")
//
// Segments of one source are merged strictly in index order even when they
// are recognized concurrently. Sources that are not chained are independent
// and may run in parallel.
package pipeline

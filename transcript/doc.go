// Package transcript turns word-level recognition output into fixed-width,
// source-relative time chunks and reads and writes the transcript artifact.
//
// The artifact is a sequence of two-line records:
//
//	0-10
//	first ten seconds of words
//	10-20
//	...
//	20-EOF
//	words of the open-ended final chunk
//
// All times are shopspring/decimal seconds so offsets summed across many
// segments stay exact.
package transcript

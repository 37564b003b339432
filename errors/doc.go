// Package errors provides the error taxonomy shared by every chunkscribe
// package. Errors carry a machine-readable code, a retryable flag and optional
// details, and unwrap to their cause.
package errors

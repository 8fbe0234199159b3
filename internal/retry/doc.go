// Package retry runs fallible operations with bounded attempts and linear
// backoff. It is failure-agnostic: every error is retried the same way, and
// classifying what went wrong stays with the caller.
package retry

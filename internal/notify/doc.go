// Package notify delivers webhook pings when a store flips from
// out-of-stock to in-stock between two consecutive snapshots.
//
// The notifier keeps only the previous snapshot's per-store stock flags —
// enough for edge detection, nothing resembling an availability history.
// Delivery failures are logged and never propagated to the caller.
package notify

// Package checker runs one status collection cycle: resolve the product id,
// resolve any label-only store targets against the store directory, then ask
// the GraphQL service for per-store availability and assemble a Snapshot.
//
// Each upstream operation goes through the retry wrapper with the configured
// attempt budget. Product-id resolution does not — a bad URL will not get
// better by retrying. An exhausted retry for any store aborts the whole
// cycle; callers get either a complete snapshot or an error.
//
// Collect reads its configuration through an atomic pointer, so the config
// watcher can install a new store list while cycles are in flight.
package checker

// Package metrics tracks shelfwatch's process counters and serves them in
// Prometheus text exposition format.
package metrics

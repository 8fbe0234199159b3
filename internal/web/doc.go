// Package web is shelfwatch's HTTP surface.
//
// Routes:
//   - GET /            — the embedded status page
//   - GET /api/status  — runs a collection cycle and returns the Snapshot;
//     failures become a JSON error payload with HTTP 500
//   - GET /metrics     — Prometheus text exposition
//   - GET /ws/stream   — WebSocket; the hub pushes fresh snapshots on an
//     interval while at least one client is connected
//   - anything else    — 404, empty body
//
// Every request is independent: /api/status recomputes the snapshot from the
// upstream service on each call, and a panic in any handler is converted to
// the JSON error response instead of killing the process.
package web

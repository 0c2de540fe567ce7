// Package orchestrator ties the backend supervisor, its health gate and the
// single generation task slot together. It is structured into small files by
// concern:
//
//   - orchestrator.go: Orchestrator type, construction, backend start/restart.
//   - config.go: Config and package defaults.
//   - submit.go: Submit, Cancel, Dismiss and the task slot.
//   - tick.go: Tick, the one step of whichever loop is active.
//   - run.go: Run and RunUntil, the tick scheduler.
//   - status.go: Snapshot/Status reporting helpers.
//   - catalogue.go: read-through access to the backend's stored assets.
//   - errors.go: error values and helpers (IsSubmissionError).
//   - events.go, eventpub_memory.go, broadcast.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//
// Ticks are serialized. The state mutex is never held across a call to the
// backend, so Snapshot stays cheap while a poll is in flight.
package orchestrator

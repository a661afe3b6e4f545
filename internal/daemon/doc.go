// Package daemon assembles the scheduling core and exposes its operations.
// It owns the single-instance lock, re-arms persisted action timers at
// startup, routes bus events into the lifecycle orchestrator and recurrence
// engine, and serves the read-only HTTP API.
package daemon

// Package services defines shared utilities consumed by the broadcast
// orchestration components and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp broadcast IDs, action IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper, and the Classify mapper
//     that folds provider errors (typed API codes or message text) into a
//     small set of retry categories.
//
// Use these helpers when wiring new integrations so operational behaviour
// (error handling, observability, retries) stays uniform across the daemon.
package services

// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, batch numbers, plaque IDs, stage
//     names and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify, which maps
//     a marker to what the orchestrator does with the record (fail, retry
//     later, stop the batch, abort the run).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services

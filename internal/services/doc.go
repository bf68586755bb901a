// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp book names, stage names, and the run
//     correlation identifier for logging.
//   - Structured error markers plus the Wrap helper, and FailureOutcome which
//     decides whether a failed book goes to unclassified or stays in staging.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services

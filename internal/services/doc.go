// Package services defines shared utilities consumed by the pipeline stages,
// the project reconciler, and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures carry the
//     stage and operation that produced them and map onto HTTP statuses.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services

// Package logging assembles structured slog loggers and formatting helpers used
// across MediaSolver.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, stage names, and correlation IDs. The package also
// provides a no-op logger for tests and a sampler that keeps render progress
// logging readable.
package logging

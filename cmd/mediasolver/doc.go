// Package main hosts the MediaSolver CLI entrypoint and command graph.
//
// The Cobra-based command tree runs one-shot renders and project checks
// directly against the editing host, reads the run history, and controls the
// background daemon over its HTTP API. Configuration resolution and logger
// setup live here so subcommands can focus on output.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main

// Package pipeline ingests a folder of media into the host and renders it.
//
// Pipeline.Run walks a fixed sequence of stages: enumerate source files,
// create a dated bin, import, collect and sort the bin's clips, assemble a
// timeline, activate it, apply the render preset and overrides, queue and
// start a render job, poll it to completion, and clean up. Each stage opens
// a trace span and logs under its own stage name; each host call is bounded
// by hostcall. Progress is written to a jobstate.Store that the CLI and HTTP
// layers read.
//
// Runner gates runs so that only one is active, reconciles the target project
// before rendering, and records every finished run in the history store.
package pipeline

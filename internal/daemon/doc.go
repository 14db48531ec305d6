// Package daemon coordinates the long-running MediaSolver process.
//
// It owns the flock-based single-instance lock, the HTTP listener serving
// the api package's handler, the optional watch-folder trigger and periodic
// pruning of the run history. Rendering itself lives in the pipeline
// package; the daemon only starts and stops the pieces around it.
package daemon

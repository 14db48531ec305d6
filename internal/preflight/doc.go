// Package preflight provides readiness checks for the editing host bridge
// and the filesystem paths MediaSolver depends on.
//
// The CLI "mediasolver status" command renders RunAll as a table. Checks for
// optional features (watch folder, host launcher) run only when the feature
// is configured.
package preflight

// Package jobstate owns the single render job record shared between the
// pipeline goroutine that writes it and the CLI and HTTP readers.
//
// All access goes through Store, which guards the record with one mutex and
// hands out copies. Writers use Apply for read-modify-write updates; the store
// keeps state transitions forward-only and percent monotonic within a run.
package jobstate

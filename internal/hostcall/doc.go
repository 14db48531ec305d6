// Package hostcall time-boxes individual calls into the editing host.
//
// The host can stop answering mid-startup or while a modal dialog is open, so
// every probe runs on its own goroutine and the caller waits at most the
// supplied timeout. A call that does not finish is reported as incomplete and
// abandoned; its eventual result is discarded. Retry policy belongs to callers.
package hostcall

// Package watch starts render runs when media lands in a watched folder.
//
// File events are coalesced until the folder has been quiet for the debounce
// period, then the accumulated files are handed to the runner as one
// request. When a run is already active the batch is kept and offered again
// later, so files copied in during a render are not lost.
package watch

// Package reconcile makes a named project the host's active project.
//
// Reconciler inspects whatever project is open and takes one of three
// recovery paths: nothing to do when the target is already active, save and
// close a different named project, or leave an unnamed scratch project alone
// and load over it. The target is then searched for in the project library
// with a depth-limited walk, created at the library root when missing, loaded
// and verified.
//
// Every host call is individually bounded. A call that does not return in
// time aborts the attempt with StatusUnresponsive; callers decide whether to
// retry through EnsureWithRetry. Outcomes are always returned, never panicked.
package reconcile

// Package host defines the canonical view of the editing host's scripting
// API used by the reconciler and the render pipeline.
//
// The host exposes its objects (project manager, projects, media pool,
// folders, clips, timelines) through a scripting runtime whose method names
// differ between API generations. Everything outside this package tree talks
// to the interfaces declared here; the bridge subpackage supplies the adapter
// for each generation and hosttest supplies an in-memory fake.
//
// Calls on these interfaces may block for as long as the host likes. Callers
// wrap them with hostcall so a hung host never stalls the caller.
package host

// Package bridge adapts the host's scripting API to the host interfaces.
//
// The host's scripting runtime is only reachable from inside the host's own
// interpreter, so a small bridge script runs there and serves JSON-RPC 1.0
// (service "Host") over TCP or a unix socket. Objects cross the wire as
// opaque {"$ref": id} handles. The bridge forwards method names verbatim,
// which means the Go side must speak the naming of the host's API
// generation: CamelCase for the native API, snake_case for the wrapper
// library. The generation is chosen once per session when it is dialed.
package bridge

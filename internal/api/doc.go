// Package api serves the HTTP surface of the daemon.
//
// Every response is JSON and marked non-cacheable, since clients poll
// /api/progress and /api/hoststatus and must never see a stale record.
// Handlers only read snapshots; runs are started through the pipeline
// Runner, which rejects a second run with 409 while one is active.
//
// When a bearer token is configured every route except /healthz requires
// "Authorization: Bearer <token>".
package api

// Package daemonctl controls a mediasolver daemon from the CLI: launching it
// detached, probing it over its HTTP API, and stopping it through the PID file
// it writes.
package daemonctl

// Package textutil cleans user supplied names before they reach the host or
// the filesystem: media pool bin names and render output base names.
package textutil

// Package media enumerates the source files a render run imports.
package media

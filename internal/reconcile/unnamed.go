package reconcile

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Default project names the host assigns in its supported UI languages,
// written after folding and accent removal.
var unnamedPattern = regexp.MustCompile(
	`^(untitled project|projet sans titre|sans titre|unbenannt(es)? projekt|proyecto sin titulo)(\s*\d+)?$`,
)

// IsUnnamed reports whether name looks like a host-generated default project
// name such as "Untitled Project 2" or "Projet sans titre".
func IsUnnamed(name string) bool {
	key := foldName(name)
	if key == "" {
		return true
	}
	return unnamedPattern.MatchString(key)
}

// foldName builds a fresh Caser and transformer per call; neither may be
// shared between goroutines.
func foldName(name string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.TrimSpace(name),
	)
	if err != nil {
		stripped = strings.TrimSpace(name)
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer maps characters that are unsafe in file or bin names.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name safe as a render output base name or bin name.
// Path separators, colons and asterisks become dashes, other reserved
// characters and control characters are dropped, and runs of whitespace
// collapse to one space. Trailing dots are removed since some filesystems
// reject them.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, fileNameReplacer.Replace(name))
	name = strings.Join(strings.Fields(name), " ")
	return strings.TrimRight(name, ". ")
}

package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
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

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// Slugify converts a title into a lowercase, hyphen-separated identifier.
// Returns "untitled" when nothing usable remains.
func Slugify(value string) string {
	tokens := Tokenize(value)
	if len(tokens) == 0 {
		return "untitled"
	}
	return strings.Join(tokens, "-")
}

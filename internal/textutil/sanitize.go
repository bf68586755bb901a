package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fileNameReplacer drops characters that are illegal in file names on common
// filesystems.
var fileNameReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	":", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// Sanitize removes filesystem-illegal characters and collapses whitespace.
func Sanitize(name string) string {
	return CollapseSpaces(fileNameReplacer.Replace(name))
}

// CollapseSpaces trims the value and folds every whitespace run into one space.
func CollapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// NormalizeSeparators turns underscores and hyphens into spaces.
func NormalizeSeparators(name string) string {
	return CollapseSpaces(strings.NewReplacer("_", " ", "-", " ").Replace(name))
}

// TitleCase upper-cases the first letter of each word and lower-cases the rest.
func TitleCase(value string) string {
	return cases.Title(language.Und).String(value)
}

// IsUnknown reports whether value is empty or exactly the "Unknown"
// sentinel. Other casings are real values.
func IsUnknown(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || trimmed == Unknown
}

// Unknown is the sentinel used for unresolved metadata fields.
const Unknown = "Unknown"

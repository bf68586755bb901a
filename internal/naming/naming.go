package naming

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"shelfsort/internal/textutil"
)

// sequencePatterns strip chapter/part/disc markers (English and Spanish) and
// trailing counters from a file stem. They are applied in order until the stem
// stops changing.
var sequencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[\s_-]+(part|parte)s?[\s_-]*\d+`),
	regexp.MustCompile(`(?i)[\s_-]+(chapter|capitulo|capítulo|cap)s?[\s_-]*\d+`),
	regexp.MustCompile(`(?i)[\s_-]+(cd|disc|disco)s?[\s_-]*\d+`),
	regexp.MustCompile(`[\s_-]+\d+$`),
	regexp.MustCompile(`\s*\(\d+\)$`),
}

var chapterPrefix = regexp.MustCompile(`(?i)^(chapter|capitulo|capítulo|part|parte)s?([\s_-]|\d|$)`)

// Stem returns the file name without its extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BaseName derives the grouping key for a file name by removing sequence
// markers. It never returns an empty string: when everything would be
// stripped, the stem is returned unchanged.
func BaseName(filename string) string {
	stem := Stem(filename)
	current := stem
	for {
		next := current
		for _, pattern := range sequencePatterns {
			next = strings.TrimSpace(pattern.ReplaceAllString(next, ""))
		}
		if next == current {
			break
		}
		current = next
	}
	current = textutil.CollapseSpaces(current)
	if current == "" {
		return stem
	}
	return current
}

// LooksLikeChapter reports whether the file stem already reads as a chapter
// or part marker ("Chapter 03", "Parte 2").
func LooksLikeChapter(filename string) bool {
	return chapterPrefix.MatchString(strings.TrimSpace(Stem(filename)))
}

// NaturalLess orders strings so embedded digit runs compare as integers and
// everything else compares case-insensitively.
func NaturalLess(a, b string) bool {
	ar, br := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		ca, cb := ar[i], br[j]
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			si := i
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			sj := j
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			if c := compareDigits(ar[si:i], br[sj:j]); c != 0 {
				return c < 0
			}
			continue
		}
		la, lb := unicode.ToLower(ca), unicode.ToLower(cb)
		if la != lb {
			return la < lb
		}
		i++
		j++
	}
	if len(ar)-i != len(br)-j {
		return len(ar)-i < len(br)-j
	}
	return a < b
}

// compareDigits compares two digit runs numerically without overflowing on
// long runs.
func compareDigits(a, b []rune) int {
	a = trimLeadingZeros(a)
	b = trimLeadingZeros(b)
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for k := range a {
		if a[k] != b[k] {
			if a[k] < b[k] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func trimLeadingZeros(r []rune) []rune {
	for len(r) > 1 && r[0] == '0' {
		r = r[1:]
	}
	return r
}

// SortNatural sorts names in place using NaturalLess.
func SortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool { return NaturalLess(names[i], names[j]) })
}

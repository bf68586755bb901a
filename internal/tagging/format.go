package tagging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"shelfsort/internal/metadata"
	"shelfsort/internal/naming"
	"shelfsort/internal/textutil"
)

var trackNumberPlaceholder = regexp.MustCompile(`\{n(?::0?(\d+))?\}`)

// formatTitle expands {series}, {title}, {n} and {n:0W} placeholders.
func formatTitle(format, series, title string, n int) string {
	out := strings.NewReplacer("{series}", series, "{title}", title).Replace(format)
	return trackNumberPlaceholder.ReplaceAllStringFunc(out, func(match string) string {
		groups := trackNumberPlaceholder.FindStringSubmatch(match)
		if groups[1] == "" {
			return strconv.Itoa(n)
		}
		width, _ := strconv.Atoi(groups[1])
		return fmt.Sprintf("%0*d", width, n)
	})
}

// albumTitle is "{series} - {title}" style when the book has a series.
func albumTitle(book metadata.BookMetadata, format string) string {
	if series := book.SeriesName(); series != "" {
		return formatTitle(format, series, book.Title, 0)
	}
	return book.Title
}

// trackTitle names one file. Single-file books take the album title; in
// multi-track books chapter-like file names are kept and the rest get
// numbered titles.
func trackTitle(filename, album, format string, n, total int) string {
	switch {
	case total <= 1:
		return album
	case naming.LooksLikeChapter(filename):
		return textutil.TitleCase(strings.ReplaceAll(naming.Stem(filename), "_", " "))
	default:
		return formatTitle(format, "", album, n)
	}
}

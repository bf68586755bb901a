package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shelfsort/internal/services"
	"shelfsort/internal/textutil"
)

// ErrNoResult is returned when no source produced a usable title.
var ErrNoResult = errors.New("no metadata source produced a title")

// Record is the source-agnostic result of a lookup. Any field may hold the
// Unknown sentinel.
type Record struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Genre    string `json:"genre"`
	Series   string `json:"series"`
	Year     string `json:"year"`
	Synopsis string `json:"synopsis"`
	Source   string `json:"source"`
}

// UnknownRecord returns a record with every field set to the sentinel.
func UnknownRecord() Record {
	return Record{
		Title:    textutil.Unknown,
		Author:   textutil.Unknown,
		Genre:    textutil.Unknown,
		Series:   textutil.Unknown,
		Year:     textutil.Unknown,
		Synopsis: textutil.Unknown,
	}
}

// Resolved reports whether the record carries a real title.
func (r Record) Resolved() bool {
	return !textutil.IsUnknown(r.Title)
}

// normalized trims every field and fills blanks with the sentinel.
func (r Record) normalized() Record {
	fill := func(value string) string {
		value = strings.TrimSpace(value)
		if value == "" {
			return textutil.Unknown
		}
		return value
	}
	r.Title = fill(r.Title)
	r.Author = fill(r.Author)
	r.Genre = fill(r.Genre)
	r.Series = fill(r.Series)
	r.Year = fill(r.Year)
	r.Synopsis = fill(r.Synopsis)
	return r
}

// ErrorKind classifies adapter failures.
type ErrorKind string

const (
	KindNotFound  ErrorKind = "not_found"
	KindTransport ErrorKind = "transport"
	KindParse     ErrorKind = "parse"
)

// SourceError is returned by a Source that could not produce a record.
type SourceError struct {
	Source string
	Kind   ErrorKind
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// newSourceError tags err with the services marker matching kind so callers
// can classify it with errors.Is.
func newSourceError(source string, kind ErrorKind, err error) *SourceError {
	var marker error
	switch {
	case kind == KindNotFound:
		marker = services.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		marker = services.ErrTimeout
	case kind == KindParse:
		marker = services.ErrValidation
	default:
		marker = services.ErrExternalTool
	}
	return &SourceError{Source: source, Kind: kind, Err: services.Wrap(marker, "metadata", source, "", err)}
}

package metadata

import (
	"context"
	"errors"
	"strings"
	"time"

	"shelfsort/internal/catalog"
	"shelfsort/internal/catalog/googlebooks"
	"shelfsort/internal/services/llm"
	"shelfsort/internal/textutil"
)

const (
	SourceGoogleBooks = "googlebooks"
	SourceLLM         = "llm"
)

// Source looks up a record for a folder-derived info string.
type Source interface {
	Name() string
	Lookup(ctx context.Context, info string) (Record, error)
}

// BookSearcher is the slice of the Google Books client the catalog source uses.
type BookSearcher interface {
	Search(ctx context.Context, query string) (googlebooks.VolumeInfo, error)
}

// Completer is the slice of the LLM client the generative source uses.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CatalogSource maps the first Google Books volume to a record.
type CatalogSource struct {
	client BookSearcher
	dryRun bool
}

// NewCatalogSource wraps a Google Books client. In dry-run mode every lookup
// reports not found without touching the network.
func NewCatalogSource(client BookSearcher, dryRun bool) *CatalogSource {
	return &CatalogSource{client: client, dryRun: dryRun}
}

func (s *CatalogSource) Name() string { return SourceGoogleBooks }

func (s *CatalogSource) Lookup(ctx context.Context, info string) (Record, error) {
	if s.dryRun {
		return Record{}, newSourceError(SourceGoogleBooks, KindNotFound, errors.New("dry run"))
	}
	volume, err := s.client.Search(ctx, info)
	if err != nil {
		kind := KindTransport
		if errors.Is(err, catalog.ErrNoResults) {
			kind = KindNotFound
		}
		return Record{}, newSourceError(SourceGoogleBooks, kind, err)
	}
	rec := Record{
		Title:    volume.Title,
		Author:   first(volume.Authors),
		Genre:    first(volume.Categories),
		Series:   textutil.Unknown,
		Year:     volume.Year(),
		Synopsis: volume.Description,
		Source:   SourceGoogleBooks,
	}
	return rec.normalized(), nil
}

func first(values []string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// LLMSource asks a chat model to identify the book and parses its one-line
// "Key: value / Key: value" answer.
type LLMSource struct {
	client   Completer
	prompt   string
	cooldown time.Duration
	dryRun   bool
	sleep    func(ctx context.Context, d time.Duration)
}

// NewLLMSource builds the generative source. prompt must contain
// {info_string}; cooldown is applied after every call.
func NewLLMSource(client Completer, prompt string, cooldown time.Duration, dryRun bool) *LLMSource {
	return &LLMSource{client: client, prompt: prompt, cooldown: cooldown, dryRun: dryRun, sleep: sleepContext}
}

func (s *LLMSource) Name() string { return SourceLLM }

func (s *LLMSource) Lookup(ctx context.Context, info string) (Record, error) {
	if s.dryRun {
		return mockRecord(info), nil
	}
	defer s.sleep(ctx, s.cooldown)

	prompt := strings.ReplaceAll(s.prompt, "{info_string}", info)
	text, err := s.client.Complete(ctx, prompt)
	if err != nil {
		return Record{}, newSourceError(SourceLLM, KindTransport, err)
	}
	if strings.TrimSpace(text) == "" {
		return Record{}, newSourceError(SourceLLM, KindParse, errors.New("empty response"))
	}
	rec := ParseResponse(text)
	rec.Source = SourceLLM
	return rec, nil
}

// ParseResponse splits a generative answer on " / " and each part once on
// ": ". Keys are case-sensitive; missing keys become Unknown.
func ParseResponse(text string) Record {
	fields := make(map[string]string)
	for _, part := range strings.Split(strings.TrimSpace(text), " / ") {
		key, value, ok := strings.Cut(part, ": ")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	rec := Record{
		Title:    fields["Title"],
		Author:   fields["Author"],
		Genre:    fields["Genre"],
		Series:   fields["Series"],
		Year:     fields["Year"],
		Synopsis: fields["Synopsis"],
	}
	return rec.normalized()
}

func mockRecord(info string) Record {
	return Record{
		Title:    "Title for " + info,
		Author:   "Mock Author",
		Genre:    "Mock Genre",
		Series:   "Mock Series",
		Year:     "2023",
		Synopsis: "This is a mock synopsis from a dry run.",
		Source:   SourceLLM,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

var _ Completer = (*llm.Client)(nil)

package workflow

import (
	"context"
	"time"

	"shelfsort/internal/metadata"
	"shelfsort/internal/staging"
	"shelfsort/internal/tagging"
)

// Options describe a single organize run.
type Options struct {
	Source    string
	Dest      string
	DryRun    bool
	NoTagging bool
	ForceLLM  bool
}

// BookResolver resolves a folder-derived name into a record. A miss is an
// error marked services.ErrNotFound.
type BookResolver interface {
	Lookup(ctx context.Context, info string) (metadata.Record, error)
}

// Outcome is what happened to one staged book.
type Outcome string

const (
	OutcomePlaced       Outcome = "placed"
	OutcomeQuarantined  Outcome = "quarantined"
	OutcomeUnclassified Outcome = "unclassified"
	OutcomeFailed       Outcome = "failed"
	OutcomePlanned      Outcome = "planned"
)

// BookResult records one book's fate.
type BookResult struct {
	Folder  string  `json:"folder"`
	Outcome Outcome `json:"outcome"`
	Path    string  `json:"path,omitempty"`
	Title   string  `json:"title,omitempty"`
	Author  string  `json:"author,omitempty"`
	Source  string  `json:"source,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// RunSummary is the result of Run.
type RunSummary struct {
	RunID          string         `json:"run_id"`
	Source         string         `json:"source"`
	Dest           string         `json:"dest"`
	DryRun         bool           `json:"dry_run"`
	StagingPath    string         `json:"staging_path"`
	StagingRemoved bool           `json:"staging_removed"`
	Remaining      []string       `json:"remaining"`
	Placed         int            `json:"placed"`
	Quarantined    int            `json:"quarantined"`
	Unclassified   int            `json:"unclassified"`
	Failed         int            `json:"failed"`
	NoCover        []string       `json:"no_cover"`
	Books          []BookResult   `json:"books"`
	Staging        staging.Result `json:"staging"`
	Tagging        tagging.Stats  `json:"tagging"`
	Elapsed        time.Duration  `json:"elapsed"`
}

func (s *RunSummary) record(result BookResult) {
	s.Books = append(s.Books, result)
	switch result.Outcome {
	case OutcomePlaced:
		s.Placed++
	case OutcomeQuarantined:
		s.Quarantined++
		s.NoCover = append(s.NoCover, result.Path)
	case OutcomeUnclassified:
		s.Unclassified++
	case OutcomeFailed:
		s.Failed++
	}
}

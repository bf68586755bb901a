package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"shelfsort/internal/catalog"
	"shelfsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunAll executes every status check applicable to cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Cache.Enabled {
		results = append(results, CheckLookupCache(ctx, cfg))
	}
	results = append(results, CheckAuthorsFile(cfg.Paths.AuthorsFile))

	fetcher := catalog.NewFetcherFromConfig(cfg)
	results = append(results,
		CheckGoogleBooks(ctx, fetcher, cfg.Catalog.GoogleBooksURL, cfg.Catalog.GoogleBooksAPIKey),
		CheckITunes(ctx, fetcher, cfg.Catalog.ITunesURL, cfg.Catalog.Country),
		CheckLLM(ctx, "LLM", cfg.GetLLM()),
	)
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		results = append(results, Result{Name: "Notifications", Passed: true, Detail: "Disabled"})
	} else {
		results = append(results, Result{Name: "Notifications", Passed: true, Detail: cfg.Notifications.NtfyTopic})
	}
	return results
}

// CheckRun verifies the directories an organize run touches: the source
// itself, its parent (where the staging root and run lock are created) and
// the destination, or the nearest existing ancestor of a destination that
// has not been created yet.
func CheckRun(source, dest string) []Result {
	results := []Result{
		CheckDirectoryAccess("Source directory", source),
		CheckDirectoryAccess("Staging parent", filepath.Dir(filepath.Clean(source))),
	}
	results = append(results, CheckDirectoryAccess("Destination", nearestExisting(dest)))
	return results
}

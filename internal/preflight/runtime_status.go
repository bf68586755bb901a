package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"shelfsort/internal/authors"
	"shelfsort/internal/config"
	"shelfsort/internal/lookupcache"
)

// CheckLookupCache opens the SQLite cache and reports how many lookups it holds.
func CheckLookupCache(ctx context.Context, cfg *config.Config) Result {
	const name = "Lookup cache"
	store, err := lookupcache.Open(cfg.CachePath())
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.CachePath(), err)}
	}
	defer store.Close()
	count, err := store.Count(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.CachePath(), err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", cfg.CachePath(), count)}
}

// CheckAuthorsFile reports the known-authors list. A missing file is fine
// as long as its directory can be created.
func CheckAuthorsFile(path string) Result {
	const name = "Known authors"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		dir := CheckDirectoryAccess(name, nearestExisting(filepath.Dir(path)))
		if !dir.Passed {
			return dir
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	names, err := authors.New(path).Names()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d authors)", path, len(names))}
}

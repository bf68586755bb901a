package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"shelfsort/internal/naming"
)

// ErrRunInProgress reports that another run holds the lock for a source.
var ErrRunInProgress = errors.New("another shelfsort run is already organizing this source")

const (
	runTimeLayout = "20060102_150405"
	lockFileName  = ".shelfsort.lock"
)

// NewRunDir returns the staging root for a run started at now. It is a
// sibling of sourceDir named <prefix>YYYYMMDD_HHMMSS.
func NewRunDir(sourceDir, prefix string, now time.Time) (string, error) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", fmt.Errorf("resolve source directory: %w", err)
	}
	return filepath.Join(filepath.Dir(abs), prefix+now.Format(runTimeLayout)), nil
}

// RunLock serializes runs that share a staging parent.
type RunLock struct {
	path string
	lock *flock.Flock
}

// AcquireRunLock takes the lock beside sourceDir without blocking.
func AcquireRunLock(sourceDir string) (*RunLock, error) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve source directory: %w", err)
	}
	path := filepath.Join(filepath.Dir(abs), lockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrRunInProgress)
	}
	return &RunLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string { return l.path }

// Release unlocks and removes the lock file.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	_ = os.Remove(l.path)
	return nil
}

// FinalizeResult reports the state of a staging root after a run.
type FinalizeResult struct {
	Path      string   `json:"path"`
	Removed   bool     `json:"removed"`
	Remaining []string `json:"remaining"`
}

// Finalize prunes empty directories below root and removes root when
// nothing is left. Otherwise the leftover items are listed and kept.
func Finalize(root string) (FinalizeResult, error) {
	result := FinalizeResult{Path: root}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		result.Removed = true
		return result, nil
	} else if err != nil {
		return result, err
	}
	pruneEmptyDirs(root)

	remaining, err := ListRemaining(root)
	if err != nil {
		return result, err
	}
	if len(remaining) > 0 {
		result.Remaining = remaining
		return result, nil
	}
	if err := os.Remove(root); err != nil {
		return result, fmt.Errorf("remove staging directory: %w", err)
	}
	result.Removed = true
	return result, nil
}

// pruneEmptyDirs removes empty directories below root, deepest first.
func pruneEmptyDirs(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
}

// ListRemaining returns the top-level entry names left in a staging root.
func ListRemaining(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	naming.SortNatural(names)
	return names, nil
}

// RunInfo describes a staging root left beside a source directory.
type RunInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	StartedAt time.Time `json:"started_at"`
	Items     int       `json:"items"`
	Size      int64     `json:"size"`
}

// ListRuns finds staging roots beside sourceDir, oldest first.
func ListRuns(sourceDir, prefix string) ([]RunInfo, error) {
	abs, err := filepath.Abs(strings.TrimSpace(sourceDir))
	if err != nil {
		return nil, err
	}
	parent := filepath.Dir(abs)
	entries, err := os.ReadDir(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(parent, entry.Name())
		run := RunInfo{Name: entry.Name(), Path: path}
		if started, err := time.ParseInLocation(runTimeLayout, strings.TrimPrefix(entry.Name(), prefix), time.Local); err == nil {
			run.StartedAt = started
		} else if info, err := entry.Info(); err == nil {
			run.StartedAt = info.ModTime()
		}
		if items, err := ListRemaining(path); err == nil {
			run.Items = len(items)
		}
		run.Size, _ = dirSize(path)
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}

// BookFolders lists every directory below root that directly holds audio,
// parents before children, siblings in natural order.
func BookFolders(root string, classifier naming.Classifier) ([]string, error) {
	var books []string
	err := walkSorted(root, func(dir string) error {
		if dir == root {
			return nil
		}
		audio, err := classifier.ListAudio(dir)
		if err != nil {
			return err
		}
		if len(audio) > 0 {
			books = append(books, dir)
		}
		return nil
	})
	return books, err
}

func walkSorted(dir string, fn func(string) error) error {
	if err := fn(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var children []string
	for _, entry := range entries {
		if entry.IsDir() {
			children = append(children, entry.Name())
		}
	}
	naming.SortNatural(children)
	for _, child := range children {
		if err := walkSorted(filepath.Join(dir, child), fn); err != nil {
			return err
		}
	}
	return nil
}

// dirSize totals regular file sizes below path, best effort.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}

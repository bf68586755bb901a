package staging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"shelfsort/internal/config"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/logging"
	"shelfsort/internal/naming"
	"shelfsort/internal/textutil"
)

// Options tune a single Organize call.
type Options struct {
	DryRun bool
}

// Rename records a top-level source item renamed by separator normalization.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ItemError pairs a source path with the error that kept it in place.
type ItemError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Result describes what Organize did (or, in dry-run, would do).
type Result struct {
	MovedDirs        []string            `json:"moved_dirs"`
	Groups           map[string][]string `json:"groups"`
	SkippedImageOnly []string            `json:"skipped_image_only"`
	Renamed          []Rename            `json:"renamed"`
	RenameSkipped    []string            `json:"rename_skipped"`
	Errors           []ItemError         `json:"errors"`
}

// Organizer groups loose files into book folders.
type Organizer struct {
	classifier     naming.Classifier
	normalizeNames bool
	logger         *slog.Logger
}

// NewOrganizer builds an organizer from configuration.
func NewOrganizer(cfg *config.Config, logger *slog.Logger) *Organizer {
	return &Organizer{
		classifier:     naming.NewClassifier(cfg.Library.AudioExtensions, cfg.Library.ImageExtensions),
		normalizeNames: cfg.Staging.NormalizeNames,
		logger:         logging.NewComponentLogger(logger, "staging"),
	}
}

// Organize drains sourceDir into stagingDir. The staging directory itself is
// never touched when it happens to live inside sourceDir. Per-item failures
// are collected in the result and leave the item in the source.
func (o *Organizer) Organize(ctx context.Context, sourceDir, stagingDir string, opts Options) (Result, error) {
	result := Result{Groups: map[string][]string{}}
	logger := logging.WithContext(ctx, o.logger)

	info, err := os.Stat(sourceDir)
	if err != nil {
		return result, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("source %s is not a directory", sourceDir)
	}
	if !opts.DryRun {
		if err := os.MkdirAll(stagingDir, 0o755); err != nil {
			return result, fmt.Errorf("create staging directory: %w", err)
		}
	} else {
		logger.Info("dry run: would create staging directory", logging.String("path", stagingDir))
	}

	if o.normalizeNames {
		if err := o.normalize(ctx, sourceDir, stagingDir, opts, &result); err != nil {
			return result, err
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	entries, err := o.sourceEntries(sourceDir, stagingDir)
	if err != nil {
		return result, err
	}

	groups := map[string][]string{}
	var order []string
	for _, entry := range entries {
		path := filepath.Join(sourceDir, entry.Name())
		if entry.IsDir() {
			o.moveDir(logger, path, stagingDir, opts, &result)
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if o.classifier.Kind(entry.Name()) == naming.KindOther {
			continue
		}
		base := naming.BaseName(entry.Name())
		if _, ok := groups[base]; !ok {
			order = append(order, base)
		}
		groups[base] = append(groups[base], entry.Name())
	}
	logger.Info("grouped loose files", logging.Int("groups", len(order)))

	for _, base := range order {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		files := groups[base]
		if !o.hasAudio(files) {
			logger.Info("image-only group left in source",
				logging.Args(append(logging.DecisionAttrs("grouping", "skip", "no audio files"),
					logging.String("group", base))...)...)
			result.SkippedImageOnly = append(result.SkippedImageOnly, files...)
			continue
		}
		o.stageGroup(logger, sourceDir, stagingDir, base, files, opts, &result)
	}
	return result, nil
}

// normalize renames top-level items so "_" and "-" read as spaces.
func (o *Organizer) normalize(ctx context.Context, sourceDir, stagingDir string, opts Options, result *Result) error {
	logger := logging.WithContext(ctx, o.logger)
	entries, err := o.sourceEntries(sourceDir, stagingDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		normalized := textutil.NormalizeSeparators(name)
		if normalized == name || normalized == "" {
			continue
		}
		from := filepath.Join(sourceDir, name)
		to := filepath.Join(sourceDir, normalized)
		if fileutil.Exists(to) {
			logging.WarnWithContext(logger, "cannot normalize name, destination exists", "rename_skipped",
				logging.String("from", name),
				logging.String("to", normalized),
				logging.String(logging.FieldImpact, "item keeps its original name"),
			)
			result.RenameSkipped = append(result.RenameSkipped, name)
			continue
		}
		if opts.DryRun {
			logger.Info("dry run: would rename", logging.String("from", name), logging.String("to", normalized))
			result.Renamed = append(result.Renamed, Rename{From: name, To: normalized})
			continue
		}
		if err := os.Rename(from, to); err != nil {
			logging.WarnWithContext(logger, "rename failed", "rename_failed",
				logging.String("from", name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "item keeps its original name"),
			)
			result.RenameSkipped = append(result.RenameSkipped, name)
			continue
		}
		logger.Debug("renamed", logging.String("from", name), logging.String("to", normalized))
		result.Renamed = append(result.Renamed, Rename{From: name, To: normalized})
	}
	return nil
}

// sourceEntries lists sourceDir in natural order without the staging root.
// In dry-run the renames were not applied, so the listing is the original
// one and the plan is reported against the original names.
func (o *Organizer) sourceEntries(sourceDir, stagingDir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}
	stagingAbs, _ := filepath.Abs(stagingDir)
	kept := entries[:0]
	for _, entry := range entries {
		abs, _ := filepath.Abs(filepath.Join(sourceDir, entry.Name()))
		if abs == stagingAbs {
			continue
		}
		kept = append(kept, entry)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return naming.NaturalLess(kept[i].Name(), kept[j].Name())
	})
	return kept, nil
}

func (o *Organizer) hasAudio(files []string) bool {
	for _, name := range files {
		if o.classifier.IsAudio(name) {
			return true
		}
	}
	return false
}

func (o *Organizer) moveDir(logger *slog.Logger, path, stagingDir string, opts Options, result *Result) {
	name := filepath.Base(path)
	if opts.DryRun {
		logger.Info("dry run: would move folder into staging", logging.String("folder", name))
		result.MovedDirs = append(result.MovedDirs, name)
		return
	}
	target, err := fileutil.UniquePath(filepath.Join(stagingDir, name))
	if err == nil {
		err = fileutil.MoveDir(path, target)
	}
	if err != nil {
		o.recordError(logger, result, path, err)
		return
	}
	logger.Info("moved folder into staging", logging.String("folder", name), logging.String("staged_as", filepath.Base(target)))
	result.MovedDirs = append(result.MovedDirs, filepath.Base(target))
}

func (o *Organizer) stageGroup(logger *slog.Logger, sourceDir, stagingDir, base string, files []string, opts Options, result *Result) {
	folder := textutil.Sanitize(textutil.TitleCase(base))
	if folder == "" {
		folder = textutil.Sanitize(base)
	}
	target, err := fileutil.UniquePath(filepath.Join(stagingDir, folder))
	if err != nil {
		o.recordError(logger, result, filepath.Join(sourceDir, files[0]), err)
		return
	}
	name := filepath.Base(target)
	logger.Info("staging group",
		logging.String("group", name),
		logging.Int("files", len(files)),
		logging.Bool("dry_run", opts.DryRun),
	)
	if opts.DryRun {
		result.Groups[name] = append([]string(nil), files...)
		return
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		o.recordError(logger, result, target, err)
		return
	}
	for _, file := range files {
		if err := fileutil.MoveFile(filepath.Join(sourceDir, file), filepath.Join(target, file)); err != nil {
			o.recordError(logger, result, filepath.Join(sourceDir, file), err)
			continue
		}
		result.Groups[name] = append(result.Groups[name], file)
	}
}

func (o *Organizer) recordError(logger *slog.Logger, result *Result, path string, err error) {
	logging.WarnWithContext(logger, "could not stage item, leaving it in the source", "staging_move_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions on the source and its parent directory"),
	)
	result.Errors = append(result.Errors, ItemError{Path: path, Err: err.Error()})
}

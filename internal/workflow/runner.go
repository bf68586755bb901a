package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"shelfsort/internal/authors"
	"shelfsort/internal/catalog"
	"shelfsort/internal/config"
	"shelfsort/internal/cover"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/library"
	"shelfsort/internal/logging"
	"shelfsort/internal/lookupcache"
	"shelfsort/internal/metadata"
	"shelfsort/internal/naming"
	"shelfsort/internal/notifications"
	"shelfsort/internal/services"
	"shelfsort/internal/staging"
	"shelfsort/internal/tagging"
)

// Dependencies allows tests to replace the network-facing collaborators.
// Nil fields are built from configuration.
type Dependencies struct {
	Resolver BookResolver
	Covers   library.CoverResolver
	Notifier notifications.Service
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
}

// Runner executes organize runs.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	classifier naming.Classifier
	organizer  *staging.Organizer
	notifier   notifications.Service
	resolver   BookResolver
	covers     library.CoverResolver
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRunner builds a runner wired to the real catalog, LLM and ntfy clients.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return NewRunnerWithDependencies(cfg, logger, Dependencies{})
}

// NewRunnerWithDependencies builds a runner with injected collaborators.
func NewRunnerWithDependencies(cfg *config.Config, logger *slog.Logger, deps Dependencies) *Runner {
	r := &Runner{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		classifier: naming.NewClassifier(cfg.Library.AudioExtensions, cfg.Library.ImageExtensions),
		organizer:  staging.NewOrganizer(cfg, logger),
		notifier:   deps.Notifier,
		resolver:   deps.Resolver,
		covers:     deps.Covers,
		now:        deps.Now,
		sleep:      deps.Sleep,
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(cfg)
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.sleep == nil {
		r.sleep = sleepContext
	}
	return r
}

// pipeline holds the per-run collaborators for phase 2.
type pipeline struct {
	resolver BookResolver
	placer   *library.Placer
	writer   *tagging.Writer
	close    func()
}

// Run organizes opts.Source into opts.Dest (the source itself when Dest is
// empty). The summary is returned even when the run stops early; on
// cancellation it names the staging root that was kept.
func (r *Runner) Run(ctx context.Context, opts Options) (RunSummary, error) {
	start := r.now()
	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return RunSummary{}, fmt.Errorf("resolve source: %w", err)
	}
	dest := opts.Dest
	if dest == "" {
		dest = source
	}
	if dest, err = filepath.Abs(dest); err != nil {
		return RunSummary{}, fmt.Errorf("resolve destination: %w", err)
	}

	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	summary := RunSummary{RunID: runID, Source: source, Dest: dest, DryRun: opts.DryRun}

	if err := runPreflightChecks(logger, source, dest); err != nil {
		return summary, err
	}

	if !opts.DryRun {
		lock, err := staging.AcquireRunLock(source)
		if err != nil {
			return summary, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("could not release run lock", logging.Error(err), logging.String("path", lock.Path()))
			}
		}()
	}

	stagingRoot, err := staging.NewRunDir(source, r.cfg.Staging.DirPrefix, start)
	if err != nil {
		return summary, err
	}
	summary.StagingPath = stagingRoot
	logger.Info("run started",
		logging.String("source", source),
		logging.String("dest", dest),
		logging.String("staging", stagingRoot),
		logging.Bool("dry_run", opts.DryRun),
	)

	p, err := r.buildPipeline(logger, opts)
	if err != nil {
		return summary, err
	}
	defer p.close()

	if !opts.DryRun {
		if items, err := staging.ListRemaining(source); err == nil {
			r.notifyStarted(ctx, logger, source, len(items))
		}
	}

	staged, err := r.organizer.Organize(services.WithStage(ctx, "staging"), source, stagingRoot, staging.Options{DryRun: opts.DryRun})
	summary.Staging = staged
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return r.interrupted(logger, summary, start, err)
		}
		err = services.Wrap(services.ErrTransient, "staging", "organize", source, err)
		r.notifyError(ctx, logger, err, "staging")
		return summary, err
	}

	if opts.DryRun {
		err = r.plan(ctx, p, staged, dest, &summary)
	} else {
		err = r.processBooks(ctx, p, stagingRoot, dest, opts, &summary)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return r.interrupted(logger, summary, start, err)
		}
		r.notifyError(ctx, logger, err, "organize")
		return summary, err
	}

	if opts.DryRun {
		logger.Info("dry run: would remove staging directory when empty", logging.String("path", stagingRoot))
	} else {
		final, err := staging.Finalize(stagingRoot)
		if err != nil {
			logging.WarnWithContext(logger, "could not finalize staging directory", "staging_finalize_failed",
				logging.String("path", stagingRoot),
				logging.Error(err),
				logging.String(logging.FieldImpact, "staging directory is kept"),
			)
		}
		summary.StagingRemoved = final.Removed
		summary.Remaining = final.Remaining
	}

	summary.Elapsed = r.now().Sub(start)
	r.logSummary(logger, summary)
	if !opts.DryRun {
		r.notifyCompleted(ctx, logger, summary)
	}
	return summary, nil
}

func (r *Runner) buildPipeline(logger *slog.Logger, opts Options) (pipeline, error) {
	p := pipeline{close: func() {}}
	fetcher := catalog.NewFetcherFromConfig(r.cfg)

	p.resolver = r.resolver
	if p.resolver == nil {
		var cache metadata.Cache
		if r.cfg.Cache.Enabled && !opts.DryRun {
			store, err := lookupcache.Open(r.cfg.CachePath())
			if err != nil {
				logging.WarnWithContext(logger, "lookup cache unavailable, continuing without it", "cache_open_failed",
					logging.String("path", r.cfg.CachePath()),
					logging.Error(err),
					logging.String(logging.FieldImpact, "every book is resolved through the external sources"),
				)
			} else {
				cache = store
				p.close = func() {
					if err := store.Close(); err != nil {
						logger.Debug("close lookup cache", logging.Error(err))
					}
				}
			}
		}
		resolver, err := metadata.NewResolver(r.cfg, r.logger, metadata.Options{
			DryRun:   opts.DryRun,
			ForceLLM: opts.ForceLLM,
			Cache:    cache,
			Fetcher:  fetcher,
		})
		if err != nil {
			p.close()
			return pipeline{}, services.Wrap(services.ErrConfiguration, "metadata", "build resolver", "", err)
		}
		p.resolver = resolver
	}

	covers := r.covers
	if covers == nil {
		resolver, err := cover.NewResolver(r.cfg, fetcher, r.logger)
		if err != nil {
			p.close()
			return pipeline{}, services.Wrap(services.ErrConfiguration, "covers", "build resolver", "", err)
		}
		covers = resolver
	}
	p.placer = library.NewPlacer(r.cfg, covers, authors.New(r.cfg.Paths.AuthorsFile), r.logger)
	p.writer = tagging.NewWriter(r.cfg, r.logger)
	return p, nil
}

// processBooks runs phase 2 over every staged book folder.
func (r *Runner) processBooks(ctx context.Context, p pipeline, stagingRoot, dest string, opts Options, summary *RunSummary) error {
	books, err := staging.BookFolders(stagingRoot, r.classifier)
	if err != nil {
		return services.Wrap(services.ErrTransient, "placement", "list staged books", stagingRoot, err)
	}
	cooldown := r.cfg.APICooldown()
	for i, dir := range books {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Unclassified parents take their nested folders along.
		if !fileutil.Exists(dir) {
			continue
		}
		result := r.processBook(ctx, p, dir, dest, opts, &summary.Tagging)
		if result.Outcome == "" {
			if err := ctx.Err(); err != nil {
				return err
			}
			return context.Canceled
		}
		summary.record(result)
		if i < len(books)-1 {
			if err := r.sleep(ctx, cooldown); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) processBook(ctx context.Context, p pipeline, dir, dest string, opts Options, tagStats *tagging.Stats) BookResult {
	name := filepath.Base(dir)
	ctx = services.WithBook(ctx, name)
	logger := logging.WithContext(ctx, r.logger)
	result := BookResult{Folder: name}
	logger.Info("processing book", logging.String("path", dir))

	rec, err := p.resolver.Lookup(services.WithStage(ctx, "metadata"), name)
	if err != nil {
		switch services.FailureOutcome(err) {
		case services.OutcomeInterrupted:
			logger.Info("run interrupted, book left in staging", logging.String("path", dir))
			return BookResult{Folder: name}
		case services.OutcomeUnclassified:
			target, err := p.placer.Unclassified(ctx, dir, dest)
			if err != nil {
				return r.failBook(ctx, logger, result, err)
			}
			result.Outcome = OutcomeUnclassified
			result.Path = target
			return result
		default:
			return r.failBook(ctx, logger, result, err)
		}
	}
	result.Title, result.Author, result.Source = rec.Title, rec.Author, rec.Source

	placement, err := p.placer.Place(services.WithStage(ctx, "placement"), rec, dir, dest)
	if err != nil {
		return r.failBook(ctx, logger, result, err)
	}
	result.Path = placement.Path
	result.Outcome = OutcomePlaced
	if placement.Quarantined {
		result.Outcome = OutcomeQuarantined
	}

	if !opts.NoTagging {
		stats, err := p.writer.Book(services.WithStage(ctx, "tagging"), placement.Path, tagging.Options{Mode: tagging.ModeAll})
		tagStats.Add(stats)
		if err != nil {
			logging.WarnWithContext(logger, "tagging incomplete", "tagging_incomplete",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run shelfsort tag --mode all on the book later"),
				logging.String(logging.FieldImpact, "some files keep their old tags"),
			)
		}
	}
	return result
}

func (r *Runner) failBook(ctx context.Context, logger *slog.Logger, result BookResult, err error) BookResult {
	logging.ErrorWithContext(logger, "book failed, left in staging for review", "book_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the staging folder and rerun"),
		logging.String(logging.FieldImpact, "book was not added to the library"),
	)
	r.notifyError(ctx, logger, err, "book "+result.Folder)
	result.Outcome = OutcomeFailed
	result.Error = err.Error()
	return result
}

// plan resolves every group the dry-run organizer reported and logs where
// each book would go. Nothing touches disk.
func (r *Runner) plan(ctx context.Context, p pipeline, staged staging.Result, dest string, summary *RunSummary) error {
	names := append([]string(nil), staged.MovedDirs...)
	for name := range staged.Groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return naming.NaturalLess(names[i], names[j]) })

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		bookCtx := services.WithBook(ctx, name)
		logger := logging.WithContext(bookCtx, r.logger)
		rec, err := p.resolver.Lookup(bookCtx, name)
		if services.FailureOutcome(err) == services.OutcomeInterrupted {
			return err
		}
		if err != nil {
			target := filepath.Join(dest, r.cfg.Library.UnclassifiedDir, name)
			logger.Info("dry run: would move book to unclassified", logging.String("path", target))
			summary.record(BookResult{Folder: name, Outcome: OutcomeUnclassified, Path: target})
			continue
		}
		target := p.placer.Plan(rec, dest)
		logger.Info("dry run: would place book",
			logging.String("path", target),
			logging.String("title", rec.Title),
			logging.String("author", rec.Author),
		)
		summary.record(BookResult{
			Folder:  name,
			Outcome: OutcomePlanned,
			Path:    target,
			Title:   rec.Title,
			Author:  rec.Author,
			Source:  rec.Source,
		})
	}
	return nil
}

func (r *Runner) interrupted(logger *slog.Logger, summary RunSummary, start time.Time, err error) (RunSummary, error) {
	summary.Elapsed = r.now().Sub(start)
	if remaining, listErr := staging.ListRemaining(summary.StagingPath); listErr == nil {
		summary.Remaining = remaining
	}
	logging.WarnWithContext(logger, "run interrupted, staging directory kept", "run_interrupted",
		logging.String("staging", summary.StagingPath),
		logging.Int("remaining", len(summary.Remaining)),
		logging.String(logging.FieldErrorHint, "review the staging directory before running again"),
		logging.String(logging.FieldImpact, "unprocessed books stay in staging"),
	)
	return summary, err
}

func (r *Runner) logSummary(logger *slog.Logger, summary RunSummary) {
	logger.Info("run finished",
		logging.Int("placed", summary.Placed),
		logging.Int("quarantined", summary.Quarantined),
		logging.Int("unclassified", summary.Unclassified),
		logging.Int("failed", summary.Failed),
		logging.Int("remaining", len(summary.Remaining)),
		logging.Bool("staging_removed", summary.StagingRemoved),
		logging.Duration("elapsed", summary.Elapsed),
	)
	for _, path := range summary.NoCover {
		logger.Info("book without cover", logging.String("path", path), logging.String(logging.FieldEventType, "no_cover"))
	}
	if len(summary.Remaining) > 0 {
		logging.WarnWithContext(logger, "items remain in staging", "staging_not_empty",
			logging.String("staging", summary.StagingPath),
			logging.Any("items", summary.Remaining),
			logging.String(logging.FieldErrorHint, "inspect the leftover items manually"),
		)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shelfsort/internal/catalog"
	"shelfsort/internal/catalog/googlebooks"
	"shelfsort/internal/config"
	"shelfsort/internal/logging"
	"shelfsort/internal/lookupcache"
	"shelfsort/internal/services"
	"shelfsort/internal/services/llm"
)

// Cache stores resolved records between runs.
type Cache interface {
	Get(ctx context.Context, info string) (lookupcache.Entry, bool, error)
	Put(ctx context.Context, entry lookupcache.Entry) error
}

// Options tune how the resolver builds its chain.
type Options struct {
	DryRun   bool
	ForceLLM bool
	Cache    Cache
	Fetcher  *catalog.Fetcher
	LLM      Completer
}

// Resolver walks an ordered chain of sources.
type Resolver struct {
	sources []Source
	cache   Cache
	dryRun  bool
	logger  *slog.Logger
}

// NewResolver builds the default chain from configuration: Google Books then
// the generative source, or only the generative source when ForceLLM is set.
func NewResolver(cfg *config.Config, logger *slog.Logger, opts Options) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New("metadata resolver: config required")
	}
	completer := opts.LLM
	if completer == nil {
		llmCfg := cfg.GetLLM()
		completer = llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		})
	}
	cooldown := cfg.APICooldown()
	if opts.DryRun {
		cooldown = 0
	}

	var sources []Source
	if !opts.ForceLLM {
		fetcher := opts.Fetcher
		if fetcher == nil {
			fetcher = catalog.NewFetcherFromConfig(cfg)
		}
		books, err := googlebooks.New(fetcher, cfg.Catalog.GoogleBooksURL, cfg.Catalog.GoogleBooksAPIKey)
		if err != nil {
			return nil, fmt.Errorf("metadata resolver: %w", err)
		}
		sources = append(sources, NewCatalogSource(books, opts.DryRun))
	}
	sources = append(sources, NewLLMSource(completer, cfg.LLM.Prompt, cooldown, opts.DryRun))

	return NewResolverWithSources(sources, opts.Cache, opts.DryRun, logger), nil
}

// NewResolverWithSources allows injecting an explicit chain (used in tests).
func NewResolverWithSources(sources []Source, cache Cache, dryRun bool, logger *slog.Logger) *Resolver {
	return &Resolver{
		sources: sources,
		cache:   cache,
		dryRun:  dryRun,
		logger:  logging.NewComponentLogger(logger, "metadata"),
	}
}

// Resolve returns the first record with a real title. The boolean is false
// when every source was exhausted; the returned record is then all Unknown.
func (r *Resolver) Resolve(ctx context.Context, info string) (Record, bool) {
	rec, err := r.Lookup(ctx, info)
	return rec, err == nil
}

// Lookup is Resolve with the miss reported as an error. Exhausting every
// source yields an error matching both ErrNoResult and services.ErrNotFound;
// a cancelled context yields ctx.Err().
func (r *Resolver) Lookup(ctx context.Context, info string) (Record, error) {
	logger := logging.WithContext(ctx, r.logger)
	info = strings.TrimSpace(info)
	if info == "" {
		return UnknownRecord(), services.Wrap(services.ErrNotFound, "metadata", "resolve", "empty info string", ErrNoResult)
	}

	if rec, ok := r.fromCache(ctx, logger, info); ok {
		return rec, nil
	}

	for _, source := range r.sources {
		if err := ctx.Err(); err != nil {
			return UnknownRecord(), err
		}
		rec, err := source.Lookup(ctx, info)
		if err != nil {
			r.logExhausted(logger, source.Name(), info, err)
			continue
		}
		if !rec.Resolved() {
			logger.Info("source returned no title",
				logging.String("source", source.Name()),
				logging.String("info", info),
			)
			continue
		}
		if rec.Source == "" {
			rec.Source = source.Name()
		}
		attrs := append(logging.DecisionAttrs("metadata_source", source.Name(), "first source with a title"),
			logging.String("info", info),
			logging.String("title", rec.Title),
			logging.String("author", rec.Author),
		)
		logger.Info("metadata resolved", logging.Args(attrs...)...)
		r.store(ctx, logger, info, rec)
		return rec, nil
	}

	if err := ctx.Err(); err != nil {
		return UnknownRecord(), err
	}
	logger.Info("all metadata sources exhausted", logging.String("info", info))
	return UnknownRecord(), services.Wrap(services.ErrNotFound, "metadata", "resolve", info, ErrNoResult)
}

func (r *Resolver) fromCache(ctx context.Context, logger *slog.Logger, info string) (Record, bool) {
	if r.cache == nil || r.dryRun {
		return Record{}, false
	}
	entry, ok, err := r.cache.Get(ctx, info)
	if err != nil {
		logging.WarnWithContext(logger, "lookup cache read failed", "cache_read_failed",
			logging.String("info", info),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the cache database if the problem persists"),
			logging.String(logging.FieldImpact, "metadata will be fetched from the network"),
		)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}
	rec := Record{
		Title:    entry.Title,
		Author:   entry.Author,
		Genre:    entry.Genre,
		Series:   entry.Series,
		Year:     entry.Year,
		Synopsis: entry.Synopsis,
		Source:   entry.Source,
	}.normalized()
	if !rec.Resolved() {
		return Record{}, false
	}
	attrs := append(logging.DecisionAttrs("metadata_source", "cache", "cached lookup"),
		logging.String("info", info),
		logging.String("title", rec.Title),
		logging.String("source", rec.Source),
	)
	logger.Info("metadata resolved from cache", logging.Args(attrs...)...)
	return rec, true
}

func (r *Resolver) store(ctx context.Context, logger *slog.Logger, info string, rec Record) {
	if r.cache == nil || r.dryRun {
		return
	}
	err := r.cache.Put(ctx, lookupcache.Entry{
		Info:     info,
		Source:   rec.Source,
		Title:    rec.Title,
		Author:   rec.Author,
		Genre:    rec.Genre,
		Series:   rec.Series,
		Year:     rec.Year,
		Synopsis: rec.Synopsis,
	})
	if err != nil {
		logging.WarnWithContext(logger, "lookup cache write failed", "cache_write_failed",
			logging.String("info", info),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run will query the sources again"),
		)
	}
}

func (r *Resolver) logExhausted(logger *slog.Logger, source, info string, err error) {
	var srcErr *SourceError
	kind := KindTransport
	if errors.As(err, &srcErr) {
		kind = srcErr.Kind
	}
	if kind == KindNotFound {
		logger.Info("metadata source has no match",
			logging.String("source", source),
			logging.String("info", info),
			logging.String(logging.FieldEventType, "source_exhausted"),
		)
		return
	}
	logging.WarnWithContext(logger, "metadata source failed", "source_exhausted",
		logging.String("source", source),
		logging.String("info", info),
		logging.String("kind", string(kind)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check network access and API keys"),
		logging.String(logging.FieldImpact, "falling back to the next metadata source"),
	)
}

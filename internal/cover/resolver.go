package cover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"shelfsort/internal/audio"
	"shelfsort/internal/catalog"
	"shelfsort/internal/catalog/itunes"
	"shelfsort/internal/catalog/openlibrary"
	"shelfsort/internal/config"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/logging"
	"shelfsort/internal/metadata"
	"shelfsort/internal/naming"
	"shelfsort/internal/textutil"
)

// PrimarySearcher finds one artwork candidate for a search term.
type PrimarySearcher interface {
	SearchBook(ctx context.Context, term string) (itunes.Result, error)
}

// SecondarySearcher lists cover image URLs for a title and author.
type SecondarySearcher interface {
	CoverURLs(ctx context.Context, title, author string) ([]string, error)
}

// Downloader copies a remote body into w.
type Downloader interface {
	Download(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

// Resolver runs the cover strategy chain for one book at a time.
type Resolver struct {
	primary       PrimarySearcher
	secondary     SecondarySearcher
	downloader    Downloader
	classifier    naming.Classifier
	coverFile     string
	minResolution int
	logger        *slog.Logger
	removeFile    func(string) error
}

// NewResolver wires the iTunes and Open Library clients over fetcher.
func NewResolver(cfg *config.Config, fetcher *catalog.Fetcher, logger *slog.Logger) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New("cover resolver: config required")
	}
	if fetcher == nil {
		fetcher = catalog.NewFetcherFromConfig(cfg)
	}
	primary, err := itunes.New(fetcher, cfg.Catalog.ITunesURL, cfg.Catalog.Country)
	if err != nil {
		return nil, fmt.Errorf("cover resolver: %w", err)
	}
	secondary, err := openlibrary.New(fetcher, cfg.Catalog.OpenLibraryURL, cfg.Catalog.OpenLibraryCoversURL, cfg.Covers.SecondaryMaxResults)
	if err != nil {
		return nil, fmt.Errorf("cover resolver: %w", err)
	}
	return NewResolverWithDependencies(cfg, logger, primary, secondary, fetcher), nil
}

// NewResolverWithDependencies allows injecting the image sources (used in tests).
func NewResolverWithDependencies(cfg *config.Config, logger *slog.Logger, primary PrimarySearcher, secondary SecondarySearcher, downloader Downloader) *Resolver {
	coverFile := cfg.Library.CoverFile
	if coverFile == "" {
		coverFile = "cover.jpg"
	}
	return &Resolver{
		primary:       primary,
		secondary:     secondary,
		downloader:    downloader,
		classifier:    naming.NewClassifier(cfg.Library.AudioExtensions, cfg.Library.ImageExtensions),
		coverFile:     coverFile,
		minResolution: cfg.Covers.MinResolution,
		logger:        logging.NewComponentLogger(logger, "cover"),
		removeFile:    os.Remove,
	}
}

// CoverPath returns where the cover for bookDir lives.
func (r *Resolver) CoverPath(bookDir string) string {
	return filepath.Join(bookDir, r.coverFile)
}

type strategy struct {
	name string
	run  func(ctx context.Context, book metadata.Record, sourceFolder, destFolder string) (bool, error)
}

func (r *Resolver) strategies() []strategy {
	return []strategy{
		{name: "existing_file", run: r.fromExistingFile},
		{name: "embedded_artwork", run: r.fromEmbedded},
		{name: "external_search", run: func(ctx context.Context, book metadata.Record, _, dest string) (bool, error) {
			return r.FetchExternal(ctx, book.Title, book.Author, dest, nil)
		}},
	}
}

// Resolve reports whether destFolder holds a cover after trying each strategy
// in order.
func (r *Resolver) Resolve(ctx context.Context, book metadata.Record, sourceFolder, destFolder string) bool {
	logger := logging.WithContext(ctx, r.logger)
	for _, s := range r.strategies() {
		ok, err := s.run(ctx, book, sourceFolder, destFolder)
		if err != nil && ok {
			// The cover is in place; only the source cleanup failed.
			logging.WarnWithContext(logger, "cover kept, source image left behind", "cover_cleanup_failed",
				logging.String("strategy", s.name),
				logging.String("folder", destFolder),
				logging.Error(err),
				logging.String(logging.FieldImpact, "leftover image stays in staging"),
			)
			return true
		}
		if err != nil {
			logging.WarnWithContext(logger, "cover strategy failed", "cover_source_exhausted",
				logging.String("strategy", s.name),
				logging.String("folder", destFolder),
				logging.Error(err),
				logging.String(logging.FieldImpact, "trying the next cover source"),
			)
			continue
		}
		if ok {
			logger.Info("cover resolved", logging.Args(logging.DecisionAttrs("cover_source", s.name, "first strategy that produced a cover")...)...)
			return true
		}
	}
	exists := fileutil.Exists(r.CoverPath(destFolder))
	if !exists {
		logger.Info("no cover found", logging.String("folder", destFolder))
	}
	return exists
}

func (r *Resolver) fromExistingFile(_ context.Context, _ metadata.Record, sourceFolder, destFolder string) (bool, error) {
	dest := r.CoverPath(destFolder)
	if sourceFolder == "" {
		return fileutil.Exists(dest), nil
	}
	images, err := r.classifier.ListImages(sourceFolder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileutil.Exists(dest), nil
		}
		return false, err
	}
	if len(images) == 0 {
		return fileutil.Exists(dest), nil
	}
	src := images[0]
	if filepath.Clean(src) == filepath.Clean(dest) {
		return true, nil
	}
	if fileutil.Exists(dest) {
		r.logger.Info("cover already present, removing duplicate image", logging.String("image", src))
		if err := r.removeFile(src); err != nil {
			return true, fmt.Errorf("remove duplicate image: %w", err)
		}
		return true, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return false, err
	}
	asset, err := Analyze(data)
	if err != nil || asset.MIME == "image/jpeg" {
		// Undecodable files are still moved; the auditor flags them later.
		if err := fileutil.MoveFile(src, dest); err != nil {
			return false, fmt.Errorf("move %s: %w", filepath.Base(src), err)
		}
		return true, nil
	}
	converted, err := toJPEG(data, asset)
	if err != nil {
		return false, err
	}
	if err := fileutil.WriteFileAtomic(dest, converted, 0o644); err != nil {
		return false, err
	}
	if err := r.removeFile(src); err != nil {
		return true, fmt.Errorf("remove converted image: %w", err)
	}
	return true, nil
}

func (r *Resolver) fromEmbedded(_ context.Context, _ metadata.Record, _, destFolder string) (bool, error) {
	files, err := r.classifier.ListAudio(destFolder)
	if err != nil || len(files) == 0 {
		return false, err
	}
	pic, ok, err := audio.ReadPicture(files[0])
	if err != nil {
		if errors.Is(err, audio.ErrUnsupported) {
			return false, nil
		}
		return false, err
	}
	if !ok {
		return false, nil
	}
	data := pic.Data
	if asset, err := Analyze(data); err == nil {
		if converted, err := toJPEG(data, asset); err == nil {
			data = converted
		}
	}
	if err := fileutil.WriteFileAtomic(r.CoverPath(destFolder), data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

type candidate struct {
	path  string
	asset Asset
	url   string
}

// FetchExternal searches the image sources for title and author and promotes
// the best candidate to destFolder's cover. When baseline is set, a candidate
// must beat it to replace the current cover.
func (r *Resolver) FetchExternal(ctx context.Context, title, author, destFolder string, baseline *Asset) (bool, error) {
	if textutil.IsUnknown(title) || textutil.IsUnknown(author) {
		return false, nil
	}
	logger := logging.WithContext(ctx, r.logger)

	var temps []string
	defer func() {
		for _, path := range temps {
			_ = os.Remove(path)
		}
	}()
	download := func(rawURL string) (candidate, error) {
		path := filepath.Join(destFolder, ".cover-"+uuid.NewString()+".tmp")
		temps = append(temps, path)
		if err := r.downloadTo(ctx, rawURL, path); err != nil {
			return candidate{}, err
		}
		asset, err := AnalyzeFile(path)
		if err != nil {
			return candidate{}, err
		}
		return candidate{path: path, asset: asset, url: rawURL}, nil
	}

	var primary *candidate
	if r.primary != nil {
		result, err := r.primary.SearchBook(ctx, strings.TrimSpace(title+" "+author))
		switch {
		case err != nil:
			logger.Info("primary cover search found nothing", logging.Error(err))
		default:
			c, err := download(result.ArtworkURL())
			if err != nil {
				logger.Info("primary cover download failed", logging.Error(err))
			} else {
				primary = &c
			}
		}
	}

	chosen := primary
	if primary == nil || !primary.asset.Passes(r.minResolution) {
		if secondary := r.bestSecondary(ctx, logger, title, author, download); secondary != nil {
			if primary == nil || secondary.asset.betterThan(primary.asset, r.minResolution) {
				chosen = secondary
			}
		}
	}
	if chosen == nil {
		return false, nil
	}
	if baseline != nil && !chosen.asset.betterThan(*baseline, r.minResolution) {
		logger.Info("keeping current cover",
			logging.Args(append(logging.DecisionAttrs("cover_replace", "keep", "candidate is not better"),
				logging.String("current", baseline.String()),
				logging.String("candidate", chosen.asset.String()),
			)...)...)
		return false, nil
	}
	if err := r.promote(*chosen, r.CoverPath(destFolder)); err != nil {
		return false, err
	}
	logger.Info("cover downloaded",
		logging.String("url", chosen.url),
		logging.String("size", chosen.asset.String()),
		logging.Bool("square", chosen.asset.IsSquare()),
		logging.Bool("low_quality", chosen.asset.IsLowQuality(r.minResolution)),
	)
	return true, nil
}

// bestSecondary returns the first square candidate, otherwise the first one
// that downloaded.
func (r *Resolver) bestSecondary(ctx context.Context, logger *slog.Logger, title, author string, download func(string) (candidate, error)) *candidate {
	if r.secondary == nil {
		return nil
	}
	urls, err := r.secondary.CoverURLs(ctx, title, author)
	if err != nil {
		logger.Info("secondary cover search found nothing", logging.Error(err))
		return nil
	}
	var fallback *candidate
	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}
		c, err := download(rawURL)
		if err != nil {
			logger.Debug("secondary cover candidate skipped", logging.String("url", rawURL), logging.Error(err))
			continue
		}
		if c.asset.IsSquare() {
			return &c
		}
		if fallback == nil {
			fallback = &c
		}
	}
	return fallback
}

func (r *Resolver) downloadTo(ctx context.Context, rawURL, path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, downloadErr := r.downloader.Download(ctx, rawURL, file)
	closeErr := file.Close()
	if downloadErr != nil {
		return downloadErr
	}
	return closeErr
}

func (r *Resolver) promote(c candidate, dest string) error {
	if c.asset.MIME == "image/jpeg" {
		if err := os.Rename(c.path, dest); err != nil {
			return fmt.Errorf("promote cover: %w", err)
		}
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	converted, err := toJPEG(data, c.asset)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(dest, converted, 0o644)
}

package cover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"shelfsort/internal/audio"
	"shelfsort/internal/config"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/logging"
	"shelfsort/internal/metadata"
	"shelfsort/internal/naming"
)

// UpdateStats summarises a cover update pass.
type UpdateStats struct {
	Books         int `json:"books"`
	Replaced      int `json:"replaced"`
	Kept          int `json:"kept"`
	NotFound      int `json:"not_found"`
	Failed        int `json:"failed"`
	FilesEmbedded int `json:"files_embedded"`
}

// Updater replaces missing or poor covers across a finished library.
type Updater struct {
	resolver     *Resolver
	classifier   naming.Classifier
	metadataFile string
	markerFile   string
	logger       *slog.Logger
}

// NewUpdater builds an updater around resolver's external chain.
func NewUpdater(cfg *config.Config, resolver *Resolver, logger *slog.Logger) *Updater {
	return &Updater{
		resolver:     resolver,
		classifier:   naming.NewClassifier(cfg.Library.AudioExtensions, cfg.Library.ImageExtensions),
		metadataFile: cfg.Library.MetadataFile,
		markerFile:   cfg.Tagging.MarkerFile,
		logger:       logging.NewComponentLogger(logger, "cover-updater"),
	}
}

// Update walks every book under root. In smart mode a cover is replaced only
// when it is missing, unreadable, not square or below the resolution floor;
// force replaces every cover.
func (u *Updater) Update(ctx context.Context, root string, force bool) (UpdateStats, error) {
	var stats UpdateStats
	err := metadata.WalkBooks(root, u.metadataFile, func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Books++
		outcome, embedded, err := u.updateBook(ctx, dir, force)
		stats.FilesEmbedded += embedded
		switch {
		case err != nil:
			stats.Failed++
			logging.WarnWithContext(u.logger, "cover update failed", "cover_update_failed",
				logging.String(logging.FieldBook, dir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "book keeps its previous cover"),
			)
		case outcome == outcomeReplaced:
			stats.Replaced++
		case outcome == outcomeKept:
			stats.Kept++
		default:
			stats.NotFound++
		}
		return nil
	})
	return stats, err
}

type updateOutcome int

const (
	outcomeKept updateOutcome = iota
	outcomeReplaced
	outcomeNotFound
)

func (u *Updater) updateBook(ctx context.Context, dir string, force bool) (updateOutcome, int, error) {
	book, err := metadata.Load(filepath.Join(dir, u.metadataFile))
	if err != nil {
		return outcomeNotFound, 0, err
	}
	logger := u.logger.With(logging.String(logging.FieldBook, book.Title))
	coverPath := u.resolver.CoverPath(dir)

	var (
		baseline *Asset
		reason   string
	)
	asset, analyzeErr := AnalyzeFile(coverPath)
	switch {
	case force:
		reason = "forced"
	case errors.Is(analyzeErr, os.ErrNotExist):
		reason = "missing"
	case analyzeErr != nil:
		reason = "unreadable"
	case !asset.IsSquare():
		reason = "not square"
		baseline = &asset
	case asset.IsLowQuality(u.resolver.minResolution):
		reason = "low quality"
		baseline = &asset
	default:
		logger.Debug("cover kept", logging.String("size", asset.String()))
		return outcomeKept, 0, nil
	}

	logger.Info("replacing cover", logging.Args(logging.DecisionAttrs("cover_replace", "search", reason)...)...)
	replaced, err := u.resolver.FetchExternal(ctx, book.Title, book.FirstAuthor(), dir, baseline)
	if err != nil {
		return outcomeNotFound, 0, err
	}
	if !replaced {
		if baseline != nil {
			return outcomeKept, 0, nil
		}
		return outcomeNotFound, 0, nil
	}

	embedded, err := u.embed(dir, coverPath)
	if err != nil {
		return outcomeReplaced, embedded, err
	}
	if u.markerFile != "" {
		if err := fileutil.Touch(filepath.Join(dir, u.markerFile)); err != nil {
			return outcomeReplaced, embedded, fmt.Errorf("touch marker: %w", err)
		}
	}
	return outcomeReplaced, embedded, nil
}

// embed rewrites the pictures of every audio file in dir with the new cover.
func (u *Updater) embed(dir, coverPath string) (int, error) {
	data, err := os.ReadFile(coverPath)
	if err != nil {
		return 0, err
	}
	files, err := u.classifier.ListAudio(dir)
	if err != nil {
		return 0, err
	}
	tags := audio.Tags{Pictures: []audio.Picture{{MIME: "image/jpeg", Description: "Cover", Data: data}}}
	embedded := 0
	for _, path := range files {
		if err := EmbedPicture(path, tags); err != nil {
			if errors.Is(err, audio.ErrUnsupported) {
				continue
			}
			return embedded, fmt.Errorf("embed cover in %s: %w", filepath.Base(path), err)
		}
		embedded++
	}
	return embedded, nil
}

// EmbedPicture clears the pictures of the file at path and writes tags'
// pictures in their place, leaving text frames untouched.
func EmbedPicture(path string, tags audio.Tags) error {
	container, err := audio.Open(path)
	if err != nil {
		return err
	}
	defer container.Close()
	if err := container.ClearPictures(); err != nil {
		return err
	}
	if err := container.WriteTags(tags, audio.ScopeCover); err != nil {
		return err
	}
	return container.Save()
}

package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"shelfsort/internal/audio"
	"shelfsort/internal/authors"
	"shelfsort/internal/config"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/logging"
	"shelfsort/internal/metadata"
	"shelfsort/internal/naming"
	"shelfsort/internal/services"
	"shelfsort/internal/textutil"
)

// CoverResolver satisfies the has-a-cover invariant for a book directory.
type CoverResolver interface {
	Resolve(ctx context.Context, book metadata.Record, sourceFolder, destFolder string) bool
}

// Placement describes where a book ended up.
type Placement struct {
	Path        string                `json:"path"`
	Quarantined bool                  `json:"quarantined"`
	HasCover    bool                  `json:"has_cover"`
	Chapters    int                   `json:"chapters"`
	Metadata    metadata.BookMetadata `json:"-"`
}

// Placer moves staged books into the library.
type Placer struct {
	covers          CoverResolver
	authors         *authors.File
	classifier      naming.Classifier
	metadataFile    string
	coverFile       string
	noCoverDir      string
	unclassifiedDir string
	durationOf      func(path string) (float64, error)
	logger          *slog.Logger
}

// NewPlacer builds a placer. known may be nil to skip author bookkeeping.
func NewPlacer(cfg *config.Config, covers CoverResolver, known *authors.File, logger *slog.Logger) *Placer {
	return &Placer{
		covers:          covers,
		authors:         known,
		classifier:      naming.NewClassifier(cfg.Library.AudioExtensions, cfg.Library.ImageExtensions),
		metadataFile:    cfg.Library.MetadataFile,
		coverFile:       cfg.Library.CoverFile,
		noCoverDir:      cfg.Library.NoCoverDir,
		unclassifiedDir: cfg.Library.UnclassifiedDir,
		durationOf:      probeSeconds,
		logger:          logging.NewComponentLogger(logger, "library"),
	}
}

func probeSeconds(path string) (float64, error) {
	d, err := audio.Duration(path)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

// FolderName is the sanitized, title-cased directory name for value.
func FolderName(value string) string {
	name := textutil.Sanitize(textutil.TitleCase(value))
	if name == "" || name == "." || name == ".." {
		return textutil.Unknown
	}
	return name
}

// Plan returns the directory Place would create for rec, before collision
// handling.
func (p *Placer) Plan(rec metadata.Record, destRoot string) string {
	return filepath.Join(destRoot, FolderName(rec.Author), FolderName(rec.Title))
}

// Place commits the staged book at stagingFolder into destRoot.
func (p *Placer) Place(ctx context.Context, rec metadata.Record, stagingFolder, destRoot string) (Placement, error) {
	logger := logging.WithContext(ctx, p.logger)

	sources, err := p.classifier.ListAudio(stagingFolder)
	if err != nil {
		return Placement{}, services.Wrap(services.ErrValidation, "placement", "list audio", stagingFolder, err)
	}
	if len(sources) == 0 {
		return Placement{}, services.Wrap(services.ErrValidation, "placement", "list audio", "no audio files in "+stagingFolder, nil)
	}

	bookDir, err := fileutil.UniquePath(p.Plan(rec, destRoot))
	if err != nil {
		return Placement{}, fmt.Errorf("choose book directory: %w", err)
	}
	if err := os.MkdirAll(bookDir, 0o755); err != nil {
		return Placement{}, fmt.Errorf("create book directory: %w", err)
	}
	if filepath.Base(bookDir) != FolderName(rec.Title) {
		logger.Info("book directory already taken, using next free name",
			logging.String("path", bookDir),
			logging.String(logging.FieldEventType, "placement_collision"),
		)
	}

	for _, src := range sources {
		if err := fileutil.MoveFile(src, filepath.Join(bookDir, filepath.Base(src))); err != nil {
			return Placement{}, services.Wrap(services.ErrTransient, "placement", "move audio", filepath.Base(src), err)
		}
	}
	logger.Info("audio moved", logging.Int("files", len(sources)), logging.String("path", bookDir))

	var hasCover bool
	if p.covers != nil {
		hasCover = p.covers.Resolve(ctx, rec, stagingFolder, bookDir)
	} else {
		hasCover = fileutil.Exists(filepath.Join(bookDir, p.coverFile))
	}

	chapters := p.BuildChapters(logger, bookDir)
	book := metadata.FromRecord(rec, chapters)
	if err := book.Save(filepath.Join(bookDir, p.metadataFile)); err != nil {
		return Placement{}, services.Wrap(services.ErrTransient, "placement", "write metadata", bookDir, err)
	}

	placement := Placement{Path: bookDir, HasCover: hasCover, Chapters: len(chapters), Metadata: book}
	if !hasCover {
		target, err := p.quarantine(bookDir, destRoot, rec)
		if err != nil {
			return placement, services.Wrap(services.ErrTransient, "placement", "quarantine", bookDir, err)
		}
		placement.Path = target
		placement.Quarantined = true
		logging.WarnWithContext(logger, "book has no cover, moved to quarantine", "cover_missing",
			logging.String("path", target),
			logging.String(logging.FieldErrorHint, "add a cover.jpg and move the book back, or run covers update"),
			logging.String(logging.FieldImpact, "book is outside the main library"),
		)
	}

	p.cleanupStaging(logger, stagingFolder)

	if p.authors != nil {
		if _, err := p.authors.Add(rec.Author); err != nil {
			logging.WarnWithContext(logger, "could not update known authors", "authors_write_failed",
				logging.String("file", p.authors.Path()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "author list is incomplete"),
			)
		}
	}
	return placement, nil
}

// BuildChapters derives one chapter per audio file in natural order. Files
// whose duration cannot be read are logged and left out.
func (p *Placer) BuildChapters(logger *slog.Logger, bookDir string) []metadata.Chapter {
	files, err := p.classifier.ListAudio(bookDir)
	if err != nil {
		logging.WarnWithContext(logger, "could not list audio for chapters", "chapters_failed",
			logging.String("path", bookDir),
			logging.Error(err),
		)
		return nil
	}
	var (
		chapters []metadata.Chapter
		cursor   float64
	)
	for _, path := range files {
		seconds, err := p.durationOf(path)
		if err != nil {
			logging.WarnWithContext(logger, "could not read duration", "duration_failed",
				logging.String("file", filepath.Base(path)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file is missing from the chapter list"),
			)
			continue
		}
		chapters = append(chapters, metadata.Chapter{
			ID:    len(chapters),
			Start: cursor,
			End:   cursor + seconds,
			Title: ChapterTitle(filepath.Base(path)),
		})
		cursor += seconds
	}
	return chapters
}

// ChapterTitle turns a file name into a chapter title.
func ChapterTitle(filename string) string {
	return textutil.TitleCase(strings.ReplaceAll(naming.Stem(filename), "_", " "))
}

func (p *Placer) quarantine(bookDir, destRoot string, rec metadata.Record) (string, error) {
	target, err := fileutil.UniquePath(filepath.Join(destRoot, p.noCoverDir, FolderName(rec.Author), FolderName(rec.Title)))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := fileutil.MoveDir(bookDir, target); err != nil {
		return "", err
	}
	authorDir := filepath.Dir(bookDir)
	if empty, err := fileutil.IsEmptyDir(authorDir); err == nil && empty {
		_ = os.Remove(authorDir)
	}
	return target, nil
}

func (p *Placer) cleanupStaging(logger *slog.Logger, stagingFolder string) {
	empty, err := fileutil.IsEmptyDir(stagingFolder)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Debug("staging folder check failed", logging.Error(err))
		}
		return
	}
	if !empty {
		logging.WarnWithContext(logger, "staging folder not empty, leaving it for review", "staging_not_empty",
			logging.String("path", stagingFolder),
			logging.String(logging.FieldErrorHint, "inspect the leftover files manually"),
			logging.String(logging.FieldImpact, "staging directory is kept"),
		)
		return
	}
	if err := os.Remove(stagingFolder); err != nil {
		logger.Debug("remove staging folder failed", logging.Error(err))
	}
}

// Unclassified moves stagingFolder wholesale to
// destRoot/<unclassified>/<original name>, uniquified. No metadata is written.
func (p *Placer) Unclassified(ctx context.Context, stagingFolder, destRoot string) (string, error) {
	logger := logging.WithContext(ctx, p.logger)
	target, err := fileutil.UniquePath(filepath.Join(destRoot, p.unclassifiedDir, filepath.Base(stagingFolder)))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create unclassified directory: %w", err)
	}
	if err := fileutil.MoveDir(stagingFolder, target); err != nil {
		return "", services.Wrap(services.ErrTransient, "placement", "move unclassified", stagingFolder, err)
	}
	logger.Info("book moved to unclassified",
		logging.Args(append(logging.DecisionAttrs("placement", "unclassified", "no metadata source produced a title"),
			logging.String("path", target))...)...)
	return target, nil
}

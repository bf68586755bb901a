package tagging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shelfsort/internal/audio"
	"shelfsort/internal/config"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/logging"
	"shelfsort/internal/metadata"
	"shelfsort/internal/naming"
)

// Mode selects which books are tagged and which tag families are rewritten.
type Mode string

const (
	// ModeIncremental tags books without a marker, rewriting text and cover.
	ModeIncremental Mode = "incremental"
	// ModeAll rewrites text and cover for every book.
	ModeAll Mode = "all"
	// ModeText rewrites text frames only, preserving pictures.
	ModeText Mode = "text"
	// ModeCover rewrites pictures only, preserving text.
	ModeCover Mode = "cover"
)

// ParseMode validates a mode name. The empty string means incremental.
func ParseMode(value string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return ModeIncremental, nil
	case ModeIncremental, ModeAll, ModeText, ModeCover:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown tagging mode %q (want incremental, all, text or cover)", value)
	}
}

func (m Mode) scope() audio.WriteScope {
	switch m {
	case ModeText:
		return audio.ScopeText
	case ModeCover:
		return audio.ScopeCover
	default:
		return audio.ScopeAll
	}
}

// Options control a tagging pass.
type Options struct {
	Mode  Mode
	Force bool
}

// Stats counts what a pass did.
type Stats struct {
	BooksSeen        int           `json:"books_seen"`
	BooksTagged      int           `json:"books_tagged"`
	BooksSkipped     int           `json:"books_skipped"`
	BooksFailed      int           `json:"books_failed"`
	FilesTagged      int           `json:"files_tagged"`
	FilesFailed      int           `json:"files_failed"`
	FilesUnsupported int           `json:"files_unsupported"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Add accumulates other into s. Elapsed is left alone.
func (s *Stats) Add(other Stats) {
	s.BooksSeen += other.BooksSeen
	s.BooksTagged += other.BooksTagged
	s.BooksSkipped += other.BooksSkipped
	s.BooksFailed += other.BooksFailed
	s.FilesTagged += other.FilesTagged
	s.FilesFailed += other.FilesFailed
	s.FilesUnsupported += other.FilesUnsupported
}

// Writer tags books.
type Writer struct {
	classifier       naming.Classifier
	metadataFile     string
	coverFile        string
	markerFile       string
	albumTitleFormat string
	trackTitleFormat string
	logger           *slog.Logger
}

// NewWriter builds a writer from configuration.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return &Writer{
		classifier:       naming.NewClassifier(cfg.Library.AudioExtensions, cfg.Library.ImageExtensions),
		metadataFile:     cfg.Library.MetadataFile,
		coverFile:        cfg.Library.CoverFile,
		markerFile:       cfg.Tagging.MarkerFile,
		albumTitleFormat: cfg.Tagging.AlbumTitleFormat,
		trackTitleFormat: cfg.Tagging.TrackTitleFormat,
		logger:           logging.NewComponentLogger(logger, "tagging"),
	}
}

// MarkerPath returns the processing marker location for a book.
func (w *Writer) MarkerPath(bookDir string) string {
	return filepath.Join(bookDir, w.markerFile)
}

// WriteTags tags every book under root. Cancellation is honoured between
// books.
func (w *Writer) WriteTags(ctx context.Context, root string, opts Options) (Stats, error) {
	start := time.Now()
	var stats Stats
	if _, err := os.Stat(root); err != nil {
		return stats, fmt.Errorf("library root: %w", err)
	}
	err := metadata.WalkBooks(root, w.metadataFile, func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Add(w.book(ctx, dir, opts))
		return nil
	})
	stats.Elapsed = time.Since(start)
	w.logger.Info("tagging finished",
		logging.Int("books_seen", stats.BooksSeen),
		logging.Int("books_tagged", stats.BooksTagged),
		logging.Int("books_skipped", stats.BooksSkipped),
		logging.Int("books_failed", stats.BooksFailed),
		logging.Int("files_tagged", stats.FilesTagged),
		logging.Int("files_failed", stats.FilesFailed),
		logging.Duration("elapsed", stats.Elapsed),
	)
	return stats, err
}

// Book tags a single book directory.
func (w *Writer) Book(ctx context.Context, dir string, opts Options) (Stats, error) {
	start := time.Now()
	stats := w.book(ctx, dir, opts)
	stats.Elapsed = time.Since(start)
	if stats.BooksFailed > 0 {
		return stats, fmt.Errorf("tag %s: %d files failed", filepath.Base(dir), stats.FilesFailed)
	}
	return stats, nil
}

func (w *Writer) book(ctx context.Context, dir string, opts Options) Stats {
	stats := Stats{BooksSeen: 1}
	mode := opts.Mode
	if mode == "" {
		mode = ModeIncremental
	}
	logger := logging.WithContext(ctx, w.logger).With(logging.String(logging.FieldBook, dir))

	if mode == ModeIncremental && !opts.Force && fileutil.Exists(w.MarkerPath(dir)) {
		logger.Debug("book already tagged", logging.Args(logging.DecisionAttrs("tagging", "skip", "marker present")...)...)
		stats.BooksSkipped = 1
		return stats
	}

	book, err := metadata.Load(filepath.Join(dir, w.metadataFile))
	if err != nil {
		logging.WarnWithContext(logger, "cannot read metadata, skipping book", "metadata_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or regenerate metadata.json"),
			logging.String(logging.FieldImpact, "book is not tagged"),
		)
		stats.BooksFailed = 1
		return stats
	}

	var pictures []audio.Picture
	if data, err := os.ReadFile(filepath.Join(dir, w.coverFile)); err == nil && len(data) > 0 {
		pictures = []audio.Picture{{MIME: "image/jpeg", Description: "Cover", Data: data}}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("cannot read cover", logging.Error(err))
	}

	files, err := w.classifier.ListAudio(dir)
	if err != nil || len(files) == 0 {
		logger.Info("no audio files, skipping book", logging.String(logging.FieldEventType, "no_audio"))
		stats.BooksSkipped = 1
		return stats
	}

	album := albumTitle(book, w.albumTitleFormat)
	total := len(files)
	attempted := 0
	for i, path := range files {
		name := filepath.Base(path)
		tags := audio.Tags{
			Title:       trackTitle(name, album, w.trackTitleFormat, i+1, total),
			Artist:      book.FirstAuthor(),
			Album:       album,
			Genre:       book.FirstGenre(),
			Year:        book.Year(),
			Comment:     book.Synopsis(),
			Description: book.Synopsis(),
			Track:       i + 1,
			TrackTotal:  total,
			Pictures:    pictures,
		}
		err := writeFile(path, tags, mode.scope())
		switch {
		case errors.Is(err, audio.ErrUnsupported):
			stats.FilesUnsupported++
			logging.WarnWithContext(logger, "unsupported or corrupt audio container", "tag_unsupported",
				logging.String("file", name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file is left untagged"),
			)
		case err != nil:
			stats.FilesFailed++
			attempted++
			logging.WarnWithContext(logger, "tagging file failed", "tag_failed",
				logging.String("file", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check file permissions and free space"),
			)
		default:
			stats.FilesTagged++
			attempted++
		}
	}

	if err := fileutil.Touch(w.MarkerPath(dir)); err != nil {
		logging.WarnWithContext(logger, "cannot write processing marker", "marker_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "book will be tagged again on the next run"),
		)
	}

	switch {
	case stats.FilesTagged > 0:
		stats.BooksTagged = 1
	case attempted > 0:
		stats.BooksFailed = 1
	default:
		stats.BooksSkipped = 1
	}
	logger.Info("book tagged",
		logging.String("mode", string(mode)),
		logging.Int("files_tagged", stats.FilesTagged),
		logging.Int("files_failed", stats.FilesFailed),
		logging.Int("files_unsupported", stats.FilesUnsupported),
	)
	return stats
}

func writeFile(path string, tags audio.Tags, scope audio.WriteScope) error {
	container, err := audio.Open(path)
	if err != nil {
		return err
	}
	defer container.Close()
	if err := container.WriteTags(tags, scope); err != nil {
		return err
	}
	return container.Save()
}

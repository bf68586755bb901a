package cover

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shelfsort/internal/config"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/logging"
	"shelfsort/internal/metadata"
	"shelfsort/internal/textutil"
)

// Audit recommendations.
const (
	RecommendKeep        = "KEEP"
	RecommendReplace     = "REPLACE"
	RecommendReplaceErr  = "REPLACE (Error)"
	RecommendDownloadNew = "DOWNLOAD NEW"
)

// AuditEntry is one book's cover assessment.
type AuditEntry struct {
	Path           string `json:"path"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Status         string `json:"status"`
	Recommendation string `json:"recommendation"`
	PreviewURL     string `json:"preview_url,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
}

// Auditor inspects covers without changing anything.
type Auditor struct {
	primary       PrimarySearcher
	metadataFile  string
	coverFile     string
	minResolution int
	logger        *slog.Logger
}

// NewAuditor builds an auditor that looks up previews through resolver's
// primary image source.
func NewAuditor(cfg *config.Config, resolver *Resolver, logger *slog.Logger) *Auditor {
	a := &Auditor{
		metadataFile:  cfg.Library.MetadataFile,
		coverFile:     cfg.Library.CoverFile,
		minResolution: cfg.Covers.MinResolution,
		logger:        logging.NewComponentLogger(logger, "cover-audit"),
	}
	if resolver != nil {
		a.primary = resolver.primary
	}
	return a
}

// Audit assesses every book under root.
func (a *Auditor) Audit(ctx context.Context, root string) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := metadata.WalkBooks(root, a.metadataFile, func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries = append(entries, a.auditBook(ctx, root, dir))
		return nil
	})
	return entries, err
}

func (a *Auditor) auditBook(ctx context.Context, root, dir string) AuditEntry {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = dir
	}
	entry := AuditEntry{Path: filepath.ToSlash(rel), Title: filepath.Base(dir)}
	book, err := metadata.Load(filepath.Join(dir, a.metadataFile))
	if err == nil {
		entry.Title = book.Title
		entry.Author = book.FirstAuthor()
	}

	coverPath := filepath.Join(dir, a.coverFile)
	asset, err := AnalyzeFile(coverPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		entry.Status = "No cover.jpg found."
		entry.Recommendation = RecommendDownloadNew
	case err != nil:
		entry.Status = "Error: " + err.Error()
		entry.Recommendation = RecommendReplaceErr
	default:
		entry.Width, entry.Height = asset.Width, asset.Height
		entry.Status = describe(asset, a.minResolution)
		if asset.Passes(a.minResolution) {
			entry.Recommendation = RecommendKeep
		} else {
			entry.Recommendation = RecommendReplace
		}
	}

	if a.primary != nil && !textutil.IsUnknown(entry.Title) && !textutil.IsUnknown(entry.Author) {
		result, err := a.primary.SearchBook(ctx, entry.Title+" "+entry.Author)
		if err != nil {
			a.logger.Debug("no preview available", logging.String(logging.FieldBook, entry.Title), logging.Error(err))
		} else {
			entry.PreviewURL = result.ArtworkURL()
		}
	}
	return entry
}

func describe(asset Asset, minResolution int) string {
	shape := "square"
	if !asset.IsSquare() {
		shape = "not square"
	}
	quality := "good quality"
	if asset.IsLowQuality(minResolution) {
		quality = "low quality"
	}
	return fmt.Sprintf("%s (%s, %s)", asset, shape, quality)
}

//go:embed report.html.tmpl
var reportTemplate string

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"slug": func(s string) string {
		return strings.NewReplacer(" ", "-", "(", "", ")", "").Replace(strings.ToLower(s))
	},
}).Parse(reportTemplate))

type reportData struct {
	Generated string
	Entries   []AuditEntry
	Counts    map[string]int
}

// WriteReport renders entries as an HTML page at path.
func WriteReport(entries []AuditEntry, path string) error {
	data := reportData{
		Generated: time.Now().Format("2006-01-02 15:04"),
		Entries:   entries,
		Counts:    make(map[string]int),
	}
	for _, entry := range entries {
		data.Counts[entry.Recommendation]++
	}
	var buf strings.Builder
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render audit report: %w", err)
	}
	return fileutil.WriteFileAtomic(path, []byte(buf.String()), 0o644)
}

package cover_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"shelfsort/internal/audio"
	"shelfsort/internal/config"
	"shelfsort/internal/cover"
	"shelfsort/internal/logging"
	"shelfsort/internal/metadata"
	"shelfsort/internal/naming"
	"shelfsort/internal/testsupport"
)

// imageServer serves the iTunes and Open Library endpoints from fixed images.
type imageServer struct {
	*httptest.Server
	primary   []byte
	secondary [][]byte
	searches  atomic.Int32
}

func newImageServer(t *testing.T, primary []byte, secondary ...[]byte) *imageServer {
	t.Helper()
	s := &imageServer{primary: primary, secondary: secondary}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/itunes/search":
			s.searches.Add(1)
			results := []any{}
			if s.primary != nil {
				results = append(results, map[string]any{"trackName": "Book", "artworkUrl100": s.URL + "/art/100x100bb.jpg"})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"resultCount": len(results), "results": results})
		case r.URL.Path == "/art/1000x1000bb.jpg":
			_, _ = w.Write(s.primary)
		case r.URL.Path == "/openlibrary/search.json":
			docs := []any{}
			for i := range s.secondary {
				docs = append(docs, map[string]any{"title": "Book", "cover_i": i + 1})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"numFound": len(docs), "docs": docs})
		case strings.HasPrefix(r.URL.Path, "/covers/b/id/"):
			var id int
			switch r.URL.Path {
			case "/covers/b/id/1-L.jpg":
				id = 1
			case "/covers/b/id/2-L.jpg":
				id = 2
			case "/covers/b/id/3-L.jpg":
				id = 3
			}
			if id == 0 || id > len(s.secondary) {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(s.secondary[id-1])
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func newResolver(t *testing.T, server *imageServer) (*cover.Resolver, *config.Config) {
	t.Helper()
	url := "http://127.0.0.1:1"
	if server != nil {
		url = server.URL
	}
	cfg := testsupport.NewConfig(t, testsupport.WithCatalogServer(url))
	resolver, err := cover.NewResolver(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return resolver, cfg
}

func coverSize(t *testing.T, path string) cover.Asset {
	t.Helper()
	asset, err := cover.AnalyzeFile(path)
	if err != nil {
		t.Fatalf("analyze %s: %v", path, err)
	}
	if asset.MIME != "image/jpeg" {
		t.Fatalf("cover mime = %s, want image/jpeg", asset.MIME)
	}
	return asset
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, ".cover-*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

var book = metadata.Record{Title: "My Book", Author: "Jane Doe"}

func TestAnalyze(t *testing.T) {
	asset, err := cover.Analyze(testsupport.PNG(t, 600, 400))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if asset.Width != 600 || asset.Height != 400 || asset.MIME != "image/png" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.IsSquare() || !asset.IsLowQuality(500) || asset.Passes(500) {
		t.Fatalf("unexpected quality flags for %v", asset)
	}
	if _, err := cover.Analyze([]byte("plain text")); err == nil {
		t.Fatal("expected error for non-image data")
	}
}

func TestResolveMovesExistingImageAsJPEG(t *testing.T) {
	resolver, _ := newResolver(t, nil)
	src := t.TempDir()
	dest := t.TempDir()
	testsupport.WriteBytes(t, filepath.Join(src, "art.png"), testsupport.PNG(t, 700, 700))

	if !resolver.Resolve(context.Background(), book, src, dest) {
		t.Fatal("expected a cover")
	}
	if asset := coverSize(t, filepath.Join(dest, "cover.jpg")); asset.Width != 700 {
		t.Fatalf("unexpected cover %v", asset)
	}
	if _, err := os.Stat(filepath.Join(src, "art.png")); !os.IsNotExist(err) {
		t.Fatal("source image should have been consumed")
	}
}

func TestResolveKeepsExistingCoverAndDropsDuplicate(t *testing.T) {
	resolver, _ := newResolver(t, nil)
	src := t.TempDir()
	dest := t.TempDir()
	testsupport.WriteJPEG(t, filepath.Join(dest, "cover.jpg"), 900, 900)
	testsupport.WriteJPEG(t, filepath.Join(src, "cover.jpg"), 100, 100)

	if !resolver.Resolve(context.Background(), book, src, dest) {
		t.Fatal("expected a cover")
	}
	if asset := coverSize(t, filepath.Join(dest, "cover.jpg")); asset.Width != 900 {
		t.Fatalf("existing cover was overwritten: %v", asset)
	}
	if _, err := os.Stat(filepath.Join(src, "cover.jpg")); !os.IsNotExist(err) {
		t.Fatal("duplicate source image should be removed")
	}
}

func TestResolveStopsWhenDuplicateCleanupFails(t *testing.T) {
	resolver, _ := newResolver(t, nil)
	resolver.SetRemoveFile(func(string) error { return errors.New("read-only source") })
	src := t.TempDir()
	dest := t.TempDir()
	testsupport.WriteJPEG(t, filepath.Join(dest, "cover.jpg"), 900, 900)
	testsupport.WriteJPEG(t, filepath.Join(src, "cover.jpg"), 100, 100)
	track := filepath.Join(dest, "01.mp3")
	testsupport.WriteMP3(t, track, 5)
	err := cover.EmbedPicture(track, audio.Tags{Pictures: []audio.Picture{{MIME: "image/jpeg", Data: testsupport.JPEG(t, 640, 640)}}})
	if err != nil {
		t.Fatalf("EmbedPicture: %v", err)
	}

	if !resolver.Resolve(context.Background(), book, src, dest) {
		t.Fatal("expected the existing cover to count")
	}
	if asset := coverSize(t, filepath.Join(dest, "cover.jpg")); asset.Width != 900 {
		t.Fatalf("existing cover was replaced after a cleanup failure: %v", asset)
	}
	if _, err := os.Stat(filepath.Join(src, "cover.jpg")); err != nil {
		t.Fatalf("source image should be left in place: %v", err)
	}
}

func TestResolveUsesEmbeddedArtwork(t *testing.T) {
	resolver, _ := newResolver(t, nil)
	dest := t.TempDir()
	track := filepath.Join(dest, "01.mp3")
	testsupport.WriteMP3(t, track, 5)
	err := cover.EmbedPicture(track, audio.Tags{Pictures: []audio.Picture{{MIME: "image/jpeg", Data: testsupport.JPEG(t, 640, 640)}}})
	if err != nil {
		t.Fatalf("EmbedPicture: %v", err)
	}

	if !resolver.Resolve(context.Background(), book, t.TempDir(), dest) {
		t.Fatal("expected embedded artwork to become the cover")
	}
	if asset := coverSize(t, filepath.Join(dest, "cover.jpg")); asset.Width != 640 {
		t.Fatalf("unexpected cover %v", asset)
	}
}

func TestExternalPrefersSquareSecondaryOverFailingPrimary(t *testing.T) {
	server := newImageServer(t,
		testsupport.JPEG(t, 50, 40),
		testsupport.JPEG(t, 800, 600),
		testsupport.JPEG(t, 1000, 1000),
	)
	resolver, _ := newResolver(t, server)
	dest := t.TempDir()

	if !resolver.Resolve(context.Background(), book, t.TempDir(), dest) {
		t.Fatal("expected a cover")
	}
	if asset := coverSize(t, filepath.Join(dest, "cover.jpg")); asset.Width != 1000 || asset.Height != 1000 {
		t.Fatalf("cover = %v, want 1000x1000", asset)
	}
	assertNoTemps(t, dest)
}

func TestExternalPassingPrimarySkipsSecondary(t *testing.T) {
	server := newImageServer(t, testsupport.JPEG(t, 600, 600), testsupport.JPEG(t, 1200, 1200))
	resolver, _ := newResolver(t, server)
	dest := t.TempDir()

	if !resolver.Resolve(context.Background(), book, "", dest) {
		t.Fatal("expected a cover")
	}
	if asset := coverSize(t, filepath.Join(dest, "cover.jpg")); asset.Width != 600 {
		t.Fatalf("cover = %v, want the passing primary", asset)
	}
	assertNoTemps(t, dest)
}

func TestExternalKeepsFailingPrimaryWhenSecondaryIsEmpty(t *testing.T) {
	server := newImageServer(t, testsupport.JPEG(t, 300, 200))
	resolver, _ := newResolver(t, server)
	dest := t.TempDir()

	if !resolver.Resolve(context.Background(), book, "", dest) {
		t.Fatal("expected the low-quality primary to be kept")
	}
	if asset := coverSize(t, filepath.Join(dest, "cover.jpg")); asset.Width != 300 {
		t.Fatalf("cover = %v", asset)
	}
	assertNoTemps(t, dest)
}

func TestExternalSecondaryOnlyAndPNGConversion(t *testing.T) {
	server := newImageServer(t, nil, testsupport.PNG(t, 500, 500))
	resolver, _ := newResolver(t, server)
	dest := t.TempDir()

	if !resolver.Resolve(context.Background(), book, "", dest) {
		t.Fatal("expected the secondary cover")
	}
	if asset := coverSize(t, filepath.Join(dest, "cover.jpg")); asset.Width != 500 {
		t.Fatalf("cover = %v", asset)
	}
	assertNoTemps(t, dest)
}

func TestExternalSkippedForUnknownAuthor(t *testing.T) {
	server := newImageServer(t, testsupport.JPEG(t, 600, 600))
	resolver, _ := newResolver(t, server)
	dest := t.TempDir()

	if resolver.Resolve(context.Background(), metadata.Record{Title: "My Book", Author: "Unknown"}, "", dest) {
		t.Fatal("no cover expected")
	}
	if server.searches.Load() != 0 {
		t.Fatal("external search must be skipped for unknown authors")
	}
}

func writeBook(t *testing.T, dir string, rec metadata.Record) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := metadata.FromRecord(rec, nil).Save(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatal(err)
	}
}

func TestUpdaterReplacesPoorCoverAndReembeds(t *testing.T) {
	server := newImageServer(t, testsupport.JPEG(t, 1000, 1000))
	resolver, cfg := newResolver(t, server)
	root := t.TempDir()

	poor := filepath.Join(root, "Jane Doe", "My Book")
	writeBook(t, poor, book)
	testsupport.WriteJPEG(t, filepath.Join(poor, "cover.jpg"), 300, 200)
	testsupport.WriteMP3(t, filepath.Join(poor, "01.mp3"), 5)

	good := filepath.Join(root, "Jane Doe", "Good Book")
	writeBook(t, good, metadata.Record{Title: "Good Book", Author: "Jane Doe"})
	testsupport.WriteJPEG(t, filepath.Join(good, "cover.jpg"), 600, 600)

	stats, err := cover.NewUpdater(cfg, resolver, logging.NewNop()).Update(context.Background(), root, false)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if stats.Books != 2 || stats.Replaced != 1 || stats.Kept != 1 || stats.FilesEmbedded != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if asset := coverSize(t, filepath.Join(poor, "cover.jpg")); asset.Width != 1000 {
		t.Fatalf("cover not replaced: %v", asset)
	}
	pic, ok, err := audio.ReadPicture(filepath.Join(poor, "01.mp3"))
	if err != nil || !ok {
		t.Fatalf("expected embedded cover, ok=%v err=%v", ok, err)
	}
	cover1000, _ := os.ReadFile(filepath.Join(poor, "cover.jpg"))
	if !bytes.Equal(pic.Data, cover1000) {
		t.Fatal("embedded picture does not match the new cover")
	}
	if _, err := os.Stat(filepath.Join(poor, cfg.Tagging.MarkerFile)); err != nil {
		t.Fatalf("marker not touched: %v", err)
	}
}

func TestAuditAndReport(t *testing.T) {
	server := newImageServer(t, testsupport.JPEG(t, 1000, 1000))
	resolver, cfg := newResolver(t, server)
	root := t.TempDir()

	writeBook(t, filepath.Join(root, "A", "Missing"), metadata.Record{Title: "Missing", Author: "A"})
	writeBook(t, filepath.Join(root, "A", "Small"), metadata.Record{Title: "Small", Author: "A"})
	testsupport.WriteJPEG(t, filepath.Join(root, "A", "Small", "cover.jpg"), 100, 100)
	writeBook(t, filepath.Join(root, "A", "Broken"), metadata.Record{Title: "Broken", Author: "A"})
	testsupport.WriteBytes(t, filepath.Join(root, "A", "Broken", "cover.jpg"), []byte("garbage"))
	writeBook(t, filepath.Join(root, "A", "Fine"), metadata.Record{Title: "Fine", Author: "A"})
	testsupport.WriteJPEG(t, filepath.Join(root, "A", "Fine", "cover.jpg"), 800, 800)

	entries, err := cover.NewAuditor(cfg, resolver, logging.NewNop()).Audit(context.Background(), root)
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	got := map[string]string{}
	for _, entry := range entries {
		got[entry.Title] = entry.Recommendation
		if entry.PreviewURL == "" {
			t.Errorf("%s: expected a preview url", entry.Title)
		}
	}
	want := map[string]string{
		"Missing": cover.RecommendDownloadNew,
		"Small":   cover.RecommendReplace,
		"Broken":  cover.RecommendReplaceErr,
		"Fine":    cover.RecommendKeep,
	}
	for title, rec := range want {
		if got[title] != rec {
			t.Errorf("%s: recommendation = %q, want %q", title, got[title], rec)
		}
	}

	reportPath := filepath.Join(root, "cover_audit.html")
	if err := cover.WriteReport(entries, reportPath); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	html, _ := os.ReadFile(reportPath)
	if !strings.Contains(string(html), "No cover.jpg found.") || !strings.Contains(string(html), "REPLACE (Error)") {
		t.Fatalf("report missing expected content")
	}
}

func TestExtractEmbedded(t *testing.T) {
	dir := t.TempDir()
	withArt := filepath.Join(dir, "a.mp3")
	testsupport.WriteMP3(t, withArt, 5)
	if err := cover.EmbedPicture(withArt, audio.Tags{Pictures: []audio.Picture{{Data: testsupport.JPEG(t, 64, 64)}}}); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteMP3(t, filepath.Join(dir, "b.mp3"), 5)
	hasSidecar := filepath.Join(dir, "c.mp3")
	testsupport.WriteMP3(t, hasSidecar, 5)
	testsupport.WriteJPEG(t, filepath.Join(dir, "c.jpg"), 10, 10)

	classifier := naming.NewClassifier([]string{".mp3"}, []string{".jpg"})
	stats, err := cover.ExtractEmbedded(context.Background(), dir, classifier, logging.NewNop())
	if err != nil {
		t.Fatalf("ExtractEmbedded: %v", err)
	}
	if stats.Scanned != 3 || stats.Extracted != 1 || stats.Missing != 1 || stats.Existing != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if asset := coverSize(t, filepath.Join(dir, "a.jpg")); asset.Width != 64 {
		t.Fatalf("unexpected sidecar %v", asset)
	}
}

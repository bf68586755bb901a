package testsupport

import (
	"path/filepath"
	"strings"
	"testing"

	"shelfsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Cooldowns are zeroed and the lookup cache is disabled so tests never sleep
// or share state; options can turn either back on.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.AuthorsFile = filepath.Join(base, "known_authors.txt")
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.APICooldown = 0
	cfgVal.Cache.Enabled = false
	cfgVal.Catalog.RequestsPerSecond = 1000

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLLMKey sets the generative source API key on the test config.
func WithLLMKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = key
	}
}

// WithLLMServer points the generative source at a test server.
func WithLLMServer(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = strings.TrimRight(url, "/") + "/chat/completions"
	}
}

// WithCatalogServer points every catalog and image endpoint at a single test
// server, each under its own path.
func WithCatalogServer(url string) ConfigOption {
	return func(b *configBuilder) {
		base := strings.TrimRight(url, "/")
		b.cfg.Catalog.GoogleBooksURL = base + "/books/v1/volumes"
		b.cfg.Catalog.ITunesURL = base + "/itunes/search"
		b.cfg.Catalog.OpenLibraryURL = base + "/openlibrary/search.json"
		b.cfg.Catalog.OpenLibraryCoversURL = base + "/covers/b/id"
	}
}

// WithCache enables the SQLite lookup cache under the temp cache dir.
func WithCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = true
	}
}

// WithMinResolution overrides the cover quality gate.
func WithMinResolution(pixels int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Covers.MinResolution = pixels
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

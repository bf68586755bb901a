package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains locations for logs, caches and the known-authors list.
type Paths struct {
	LogDir      string `toml:"log_dir"`
	AuthorsFile string `toml:"authors_file"`
	CacheDir    string `toml:"cache_dir"`
}

// Library describes how books are recognised and laid out on disk.
type Library struct {
	AudioExtensions []string `toml:"audio_extensions"`
	ImageExtensions []string `toml:"image_extensions"`
	NoCoverDir      string   `toml:"no_cover_dir"`
	UnclassifiedDir string   `toml:"unclassified_dir"`
	MetadataFile    string   `toml:"metadata_file"`
	CoverFile       string   `toml:"cover_file"`
}

// Staging contains settings for the grouping phase.
type Staging struct {
	NormalizeNames bool   `toml:"normalize_names"`
	DirPrefix      string `toml:"dir_prefix"`
}

// LLM contains the generative-text fallback settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	Prompt         string `toml:"prompt"`
	APICooldown    int    `toml:"api_cooldown"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Catalog contains settings for the structured metadata and image sources.
type Catalog struct {
	GoogleBooksAPIKey    string  `toml:"google_books_api_key"`
	GoogleBooksURL       string  `toml:"google_books_url"`
	ITunesURL            string  `toml:"itunes_url"`
	OpenLibraryURL       string  `toml:"openlibrary_url"`
	OpenLibraryCoversURL string  `toml:"openlibrary_covers_url"`
	Country              string  `toml:"country"`
	RequestsPerSecond    float64 `toml:"requests_per_second"`
	TimeoutSeconds       int     `toml:"timeout_seconds"`
}

// Covers contains the cover quality gate settings.
type Covers struct {
	MinResolution       int `toml:"min_resolution"`
	SecondaryMaxResults int `toml:"secondary_max_results"`
}

// Tagging contains settings for the tag writer.
type Tagging struct {
	MarkerFile       string `toml:"marker_file"`
	AlbumTitleFormat string `toml:"album_title_format"`
	TrackTitleFormat string `toml:"track_title_format"`
}

// Inventory contains CSV export settings.
type Inventory struct {
	FileName  string `toml:"file_name"`
	Delimiter string `toml:"delimiter"`
}

// Cache contains settings for the metadata lookup cache.
type Cache struct {
	Enabled bool `toml:"enabled"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shelfsort.
//
// Configuration sections by subsystem:
//   - Paths: log, cache and known-authors locations
//   - Library: recognised extensions and the final tree layout
//   - Staging: grouping phase behaviour
//   - LLM: generative-text metadata fallback
//   - Catalog: Google Books, iTunes and Open Library endpoints and pacing
//   - Covers: quality gate thresholds
//   - Tagging: marker file and title formats
//   - Inventory: CSV export
//   - Cache: SQLite lookup cache
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Library       Library       `toml:"library"`
	Staging       Staging       `toml:"staging"`
	LLM           LLM           `toml:"llm"`
	Catalog       Catalog       `toml:"catalog"`
	Covers        Covers        `toml:"covers"`
	Tagging       Tagging       `toml:"tagging"`
	Inventory     Inventory     `toml:"inventory"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	// A .env file next to the working directory may carry API keys.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelfsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath returns the path of the persistent log file.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "shelfsort.log")
}

// CachePath returns the SQLite lookup cache location.
func (c *Config) CachePath() string {
	return filepath.Join(c.Paths.CacheDir, "lookups.db")
}

// APICooldown returns the pause applied after each generative call.
func (c *Config) APICooldown() time.Duration {
	return time.Duration(c.LLM.APICooldown) * time.Second
}

// CatalogTimeout returns the HTTP timeout for catalog and image requests.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the connection settings for the generative source.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// redactedMark replaces secret values in Redacted output.
const redactedMark = "********"

// Redacted returns a copy safe to print: API keys and the ntfy topic, which
// grants anyone who knows it the right to publish, are masked when set.
func (c *Config) Redacted() Config {
	out := *c
	mask := func(value string) string {
		if strings.TrimSpace(value) == "" {
			return value
		}
		return redactedMark
	}
	out.LLM.APIKey = mask(c.LLM.APIKey)
	out.Catalog.GoogleBooksAPIKey = mask(c.Catalog.GoogleBooksAPIKey)
	out.Notifications.NtfyTopic = mask(c.Notifications.NtfyTopic)
	return out
}

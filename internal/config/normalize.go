package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLibrary()
	c.normalizeStaging()
	c.normalizeLLM()
	c.normalizeCatalog()
	c.normalizeTagging()
	c.normalizeInventory()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AuthorsFile) == "" {
		c.Paths.AuthorsFile = defaultAuthorsFile
	}
	if c.Paths.AuthorsFile, err = expandPath(c.Paths.AuthorsFile); err != nil {
		return fmt.Errorf("paths.authors_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLibrary() {
	c.Library.AudioExtensions = normalizeExtensions(c.Library.AudioExtensions)
	if len(c.Library.AudioExtensions) == 0 {
		c.Library.AudioExtensions = append([]string(nil), defaultAudioExtensions...)
	}
	c.Library.ImageExtensions = normalizeExtensions(c.Library.ImageExtensions)
	if len(c.Library.ImageExtensions) == 0 {
		c.Library.ImageExtensions = append([]string(nil), defaultImageExtensions...)
	}
	c.Library.NoCoverDir = strings.TrimSpace(c.Library.NoCoverDir)
	if c.Library.NoCoverDir == "" {
		c.Library.NoCoverDir = defaultNoCoverDir
	}
	c.Library.UnclassifiedDir = strings.TrimSpace(c.Library.UnclassifiedDir)
	if c.Library.UnclassifiedDir == "" {
		c.Library.UnclassifiedDir = defaultUnclassifiedDir
	}
	c.Library.MetadataFile = strings.TrimSpace(c.Library.MetadataFile)
	if c.Library.MetadataFile == "" {
		c.Library.MetadataFile = defaultMetadataFile
	}
	c.Library.CoverFile = strings.TrimSpace(c.Library.CoverFile)
	if c.Library.CoverFile == "" {
		c.Library.CoverFile = defaultCoverFile
	}
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func (c *Config) normalizeStaging() {
	c.Staging.DirPrefix = strings.TrimSpace(c.Staging.DirPrefix)
	if c.Staging.DirPrefix == "" {
		c.Staging.DirPrefix = defaultStagingPrefix
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("SHELFSORT_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if strings.TrimSpace(c.LLM.Prompt) == "" {
		c.LLM.Prompt = DefaultPrompt
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.GoogleBooksAPIKey = strings.TrimSpace(c.Catalog.GoogleBooksAPIKey)
	if c.Catalog.GoogleBooksAPIKey == "" {
		if value, ok := os.LookupEnv("GOOGLE_BOOKS_API_KEY"); ok {
			c.Catalog.GoogleBooksAPIKey = strings.TrimSpace(value)
		}
	}
	c.Catalog.Country = strings.ToUpper(strings.TrimSpace(c.Catalog.Country))
	if c.Catalog.Country == "" {
		c.Catalog.Country = defaultCatalogCountry
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = defaultCatalogTimeout
	}
	c.Catalog.OpenLibraryCoversURL = strings.TrimRight(strings.TrimSpace(c.Catalog.OpenLibraryCoversURL), "/")
}

func (c *Config) normalizeTagging() {
	c.Tagging.MarkerFile = strings.TrimSpace(c.Tagging.MarkerFile)
	if c.Tagging.MarkerFile == "" {
		c.Tagging.MarkerFile = defaultMarkerFile
	}
	if strings.TrimSpace(c.Tagging.AlbumTitleFormat) == "" {
		c.Tagging.AlbumTitleFormat = defaultAlbumTitleFormat
	}
	if strings.TrimSpace(c.Tagging.TrackTitleFormat) == "" {
		c.Tagging.TrackTitleFormat = defaultTrackTitleFormat
	}
}

func (c *Config) normalizeInventory() {
	c.Inventory.FileName = strings.TrimSpace(c.Inventory.FileName)
	if c.Inventory.FileName == "" {
		c.Inventory.FileName = defaultInventoryFile
	}
	if c.Inventory.Delimiter == "" {
		c.Inventory.Delimiter = defaultInventoryDelimiter
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SHELFSORT_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateCovers(); err != nil {
		return err
	}
	if err := c.validateTagging(); err != nil {
		return err
	}
	if err := c.validateInventory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLibrary() error {
	for _, name := range []struct {
		key   string
		value string
	}{
		{"library.no_cover_dir", c.Library.NoCoverDir},
		{"library.unclassified_dir", c.Library.UnclassifiedDir},
		{"library.metadata_file", c.Library.MetadataFile},
		{"library.cover_file", c.Library.CoverFile},
	} {
		if err := ensurePlainName(name.key, name.value); err != nil {
			return err
		}
	}
	if c.Library.NoCoverDir == c.Library.UnclassifiedDir {
		return errors.New("library.no_cover_dir and library.unclassified_dir must differ")
	}
	for _, ext := range c.Library.AudioExtensions {
		for _, img := range c.Library.ImageExtensions {
			if ext == img {
				return fmt.Errorf("library: extension %q cannot be both audio and image", ext)
			}
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APICooldown < 0 {
		return errors.New("llm.api_cooldown must be zero or positive")
	}
	if !strings.Contains(c.LLM.Prompt, "{info_string}") {
		return errors.New("llm.prompt must contain the {info_string} placeholder")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.RequestsPerSecond <= 0 {
		return errors.New("catalog.requests_per_second must be positive")
	}
	for _, endpoint := range []struct {
		key   string
		value string
	}{
		{"catalog.google_books_url", c.Catalog.GoogleBooksURL},
		{"catalog.itunes_url", c.Catalog.ITunesURL},
		{"catalog.openlibrary_url", c.Catalog.OpenLibraryURL},
		{"catalog.openlibrary_covers_url", c.Catalog.OpenLibraryCoversURL},
	} {
		if strings.TrimSpace(endpoint.value) == "" {
			return fmt.Errorf("%s must be set", endpoint.key)
		}
	}
	return nil
}

func (c *Config) validateCovers() error {
	if c.Covers.MinResolution <= 0 {
		return errors.New("covers.min_resolution must be positive")
	}
	if c.Covers.SecondaryMaxResults <= 0 {
		return errors.New("covers.secondary_max_results must be positive")
	}
	return nil
}

func (c *Config) validateTagging() error {
	if err := ensurePlainName("tagging.marker_file", c.Tagging.MarkerFile); err != nil {
		return err
	}
	if !strings.Contains(c.Tagging.AlbumTitleFormat, "{title}") {
		return errors.New("tagging.album_title_format must contain {title}")
	}
	return nil
}

func (c *Config) validateInventory() error {
	if err := ensurePlainName("inventory.file_name", c.Inventory.FileName); err != nil {
		return err
	}
	if utf8.RuneCountInString(c.Inventory.Delimiter) != 1 {
		return errors.New("inventory.delimiter must be a single character")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePlainName(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	if strings.ContainsAny(value, `/\`) {
		return fmt.Errorf("%s must be a plain name without path separators", key)
	}
	return nil
}

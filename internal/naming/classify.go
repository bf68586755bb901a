package naming

import (
	"os"
	"path/filepath"
	"strings"
)

// MediaKind is the detected media type of a source item.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindImage MediaKind = "image"
	KindOther MediaKind = "other"
)

// Classifier recognises audio and image files by extension. Extensions are
// expected in canonical lowercase ".ext" form, as produced by config.
type Classifier struct {
	audio map[string]struct{}
	image map[string]struct{}
}

// NewClassifier builds a classifier from extension lists.
func NewClassifier(audioExts, imageExts []string) Classifier {
	c := Classifier{
		audio: make(map[string]struct{}, len(audioExts)),
		image: make(map[string]struct{}, len(imageExts)),
	}
	for _, ext := range audioExts {
		c.audio[strings.ToLower(ext)] = struct{}{}
	}
	for _, ext := range imageExts {
		c.image[strings.ToLower(ext)] = struct{}{}
	}
	return c
}

// Kind classifies name by its extension.
func (c Classifier) Kind(name string) MediaKind {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := c.audio[ext]; ok {
		return KindAudio
	}
	if _, ok := c.image[ext]; ok {
		return KindImage
	}
	return KindOther
}

// IsAudio reports whether name has a recognised audio extension.
func (c Classifier) IsAudio(name string) bool { return c.Kind(name) == KindAudio }

// IsImage reports whether name has a recognised image extension.
func (c Classifier) IsImage(name string) bool { return c.Kind(name) == KindImage }

// List returns the regular files of kind directly inside dir, as full paths in
// natural order. Hidden files are skipped.
func (c Classifier) List(dir string, kind MediaKind) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if c.Kind(name) == kind {
			names = append(names, name)
		}
	}
	SortNatural(names)
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// ListAudio lists the audio files in dir in natural order.
func (c Classifier) ListAudio(dir string) ([]string, error) { return c.List(dir, KindAudio) }

// ListImages lists the image files in dir in natural order.
func (c Classifier) ListImages(dir string) ([]string, error) { return c.List(dir, KindImage) }

package metadata

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SkipBook may be returned by a WalkBooks callback to move on quietly.
var SkipBook = errors.New("skip book")

// WalkBooks calls fn for every directory under root holding a file named
// metadataFile. Book directories are boundaries: their subdirectories are not
// visited. Hidden directories are ignored. Directories are visited in lexical
// order.
func WalkBooks(root, metadataFile string, fn func(dir string) error) error {
	if metadataFile == "" {
		metadataFile = "metadata.json"
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if info, err := os.Stat(filepath.Join(path, metadataFile)); err != nil || info.IsDir() {
			return nil
		}
		if err := fn(path); err != nil && !errors.Is(err, SkipBook) {
			return err
		}
		return filepath.SkipDir
	})
}

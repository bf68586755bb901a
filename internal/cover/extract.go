package cover

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"shelfsort/internal/audio"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/logging"
	"shelfsort/internal/naming"
)

// ExtractStats summarises an extraction pass.
type ExtractStats struct {
	Scanned   int `json:"scanned"`
	Extracted int `json:"extracted"`
	Existing  int `json:"existing"`
	Missing   int `json:"missing"`
	Failed    int `json:"failed"`
}

// ExtractEmbedded writes the embedded picture of every audio file under dir
// to a sibling <base>.jpg, skipping files that already have one.
func ExtractEmbedded(ctx context.Context, dir string, classifier naming.Classifier, logger *slog.Logger) (ExtractStats, error) {
	logger = logging.NewComponentLogger(logger, "cover-extract")
	var stats ExtractStats
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !classifier.IsAudio(d.Name()) {
			return nil
		}
		stats.Scanned++
		sidecar := filepath.Join(filepath.Dir(path), naming.Stem(d.Name())+".jpg")
		if fileutil.Exists(sidecar) {
			stats.Existing++
			return nil
		}
		pic, ok, err := audio.ReadPicture(path)
		switch {
		case errors.Is(err, audio.ErrUnsupported):
			stats.Missing++
			return nil
		case err != nil:
			stats.Failed++
			logging.WarnWithContext(logger, "read embedded picture failed", "cover_extract_failed",
				logging.String("file", path),
				logging.Error(err),
			)
			return nil
		case !ok:
			stats.Missing++
			return nil
		}
		data := pic.Data
		if asset, err := Analyze(data); err == nil {
			if converted, err := toJPEG(data, asset); err == nil {
				data = converted
			}
		}
		if err := fileutil.WriteFileAtomic(sidecar, data, 0o644); err != nil {
			stats.Failed++
			logging.WarnWithContext(logger, "write extracted cover failed", "cover_extract_failed",
				logging.String("file", sidecar),
				logging.Error(err),
			)
			return nil
		}
		stats.Extracted++
		logger.Info("extracted embedded cover", logging.String("file", sidecar))
		return nil
	})
	return stats, err
}

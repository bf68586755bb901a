package cover

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 92

// ErrNotImage is returned for data that does not decode as a supported image.
var ErrNotImage = errors.New("not a supported image")

// Asset describes a cover candidate.
type Asset struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	MIME   string `json:"mime"`
}

// IsSquare reports whether both sides match.
func (a Asset) IsSquare() bool {
	return a.Width > 0 && a.Width == a.Height
}

// IsLowQuality reports whether either side is under minResolution pixels.
func (a Asset) IsLowQuality(minResolution int) bool {
	return a.Width < minResolution || a.Height < minResolution
}

// Passes reports whether the asset clears the quality gate.
func (a Asset) Passes(minResolution int) bool {
	return a.IsSquare() && !a.IsLowQuality(minResolution)
}

// betterThan ranks candidates: passing the gate first, then squareness, then
// the shorter side.
func (a Asset) betterThan(other Asset, minResolution int) bool {
	if a.Passes(minResolution) != other.Passes(minResolution) {
		return a.Passes(minResolution)
	}
	if a.IsSquare() != other.IsSquare() {
		return a.IsSquare()
	}
	return min(a.Width, a.Height) > min(other.Width, other.Height)
}

func (a Asset) String() string {
	return fmt.Sprintf("%dx%d", a.Width, a.Height)
}

// Analyze sniffs the content type and decodes the image dimensions.
func Analyze(data []byte) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, ErrNotImage
	}
	detected := mimetype.Detect(data)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Asset{}, fmt.Errorf("%w (%s): %v", ErrNotImage, detected.String(), err)
	}
	return Asset{Width: cfg.Width, Height: cfg.Height, MIME: detected.String()}, nil
}

// AnalyzeFile reads and analyzes the image at path.
func AnalyzeFile(path string) (Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, err
	}
	return Analyze(data)
}

// toJPEG re-encodes non-JPEG images so cover.jpg always holds JPEG data.
func toJPEG(data []byte, asset Asset) ([]byte, error) {
	if asset.MIME == "image/jpeg" {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", asset.MIME, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

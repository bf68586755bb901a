package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported marks files whose container cannot be tagged or probed.
var ErrUnsupported = errors.New("unsupported audio container")

// Format identifies an audio container.
type Format string

const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatMP4     Format = "mp4"
	FormatFLAC    Format = "flac"
	FormatWAV     Format = "wav"
)

// Picture is an embedded image.
type Picture struct {
	MIME        string
	Description string
	Data        []byte
}

// Tags is the container-neutral view of the fields shelfsort writes.
type Tags struct {
	Title       string
	Artist      string
	Album       string
	Genre       string
	Year        string
	Comment     string
	Description string
	Track       int
	TrackTotal  int
	Pictures    []Picture
}

// FirstPicture returns the first embedded picture, if any.
func (t Tags) FirstPicture() (Picture, bool) {
	for _, pic := range t.Pictures {
		if len(pic.Data) > 0 {
			return pic, true
		}
	}
	return Picture{}, false
}

// WriteScope selects which tag families WriteTags replaces.
type WriteScope uint8

const (
	// ScopeText replaces text frames and leaves pictures alone.
	ScopeText WriteScope = 1 << iota
	// ScopeCover replaces pictures and leaves text frames alone.
	ScopeCover
	// ScopeAll clears every existing tag and picture, then writes both.
	ScopeAll = ScopeText | ScopeCover
)

// Has reports whether s includes other.
func (s WriteScope) Has(other WriteScope) bool {
	return s&other != 0
}

// Container is an opened audio file whose tags can be read and rewritten.
// Changes are held in memory until Save.
type Container interface {
	Format() Format
	ReadTags() (Tags, error)
	WriteTags(tags Tags, scope WriteScope) error
	ClearPictures() error
	Save() error
	Close() error
}

// Open detects the container format of path and opens it for tagging.
func Open(path string) (Container, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatMP3:
		return openMP3(path)
	case FormatMP4:
		return openMP4(path)
	case FormatFLAC:
		return openFLAC(path)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
}

// ReadPicture returns the first embedded picture of the file at path.
func ReadPicture(path string) (Picture, bool, error) {
	container, err := Open(path)
	if err != nil {
		return Picture{}, false, err
	}
	defer container.Close()
	tags, err := container.ReadTags()
	if err != nil {
		return Picture{}, false, err
	}
	pic, ok := tags.FirstPicture()
	return pic, ok, nil
}

// DetectFormat sniffs the leading bytes of path. The extension is only
// consulted for MP3 streams that carry junk before the first frame.
func DetectFormat(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer file.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	head = head[:n]

	if format := formatFromSignature(head); format != FormatUnknown {
		return format, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return FormatMP3, nil
	}
	return FormatUnknown, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

func formatFromSignature(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, []byte("ID3")):
		return FormatMP3
	case bytes.HasPrefix(head, []byte("fLaC")):
		return FormatFLAC
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return FormatWAV
	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		return FormatMP4
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

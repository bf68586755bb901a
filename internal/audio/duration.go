package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Duration probes the playback length of the file at path.
func Duration(path string) (time.Duration, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return 0, err
	}
	switch format {
	case FormatMP3:
		return mp3Duration(path)
	case FormatMP4:
		return mp4Duration(path)
	case FormatFLAC:
		return flacDuration(path)
	case FormatWAV:
		return wavDuration(path)
	default:
		return 0, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// wavDuration reads the fmt and data chunks of a RIFF/WAVE file.
func wavDuration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	header := make([]byte, 12)
	if _, err := io.ReadFull(file, header); err != nil {
		return 0, fmt.Errorf("%s: read riff header: %w", filepath.Base(path), ErrUnsupported)
	}
	if !bytes.Equal(header[0:4], []byte("RIFF")) || !bytes.Equal(header[8:12], []byte("WAVE")) {
		return 0, fmt.Errorf("%s: not a wave file: %w", filepath.Base(path), ErrUnsupported)
	}

	var byteRate uint32
	chunk := make([]byte, 8)
	for {
		if _, err := io.ReadFull(file, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, fmt.Errorf("%s: data chunk not found: %w", filepath.Base(path), ErrUnsupported)
			}
			return 0, err
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(file, body); err != nil || size < 12 {
				return 0, fmt.Errorf("%s: truncated fmt chunk: %w", filepath.Base(path), ErrUnsupported)
			}
			byteRate = binary.LittleEndian.Uint32(body[8:12])
			if size%2 == 1 {
				if _, err := file.Seek(1, io.SeekCurrent); err != nil {
					return 0, err
				}
			}
		case "data":
			if byteRate == 0 {
				return 0, fmt.Errorf("%s: data chunk before fmt: %w", filepath.Base(path), ErrUnsupported)
			}
			return secondsToDuration(float64(size) / float64(byteRate)), nil
		default:
			if _, err := file.Seek(size+size%2, io.SeekCurrent); err != nil {
				return 0, err
			}
		}
	}
}

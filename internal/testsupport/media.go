package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"testing"
)

// MP3FrameSeconds is the playback length of one fixture MP3 frame
// (MPEG-1 Layer III, 44.1 kHz, 1152 samples).
const MP3FrameSeconds = 1152.0 / 44100.0

// mp3Frame is a 128 kbps MPEG-1 Layer III frame header; frames are 417 bytes.
var mp3Frame = []byte{0xFF, 0xFB, 0x90, 0x64}

const mp3FrameLength = 417

// MP3 returns a bare MPEG stream of the given number of silent frames.
func MP3(frames int) []byte {
	buf := make([]byte, 0, frames*mp3FrameLength)
	for i := 0; i < frames; i++ {
		frame := make([]byte, mp3FrameLength)
		copy(frame, mp3Frame)
		buf = append(buf, frame...)
	}
	return buf
}

// WriteMP3 writes an MP3 fixture with the given frame count.
func WriteMP3(t testing.TB, path string, frames int) {
	t.Helper()
	WriteBytes(t, path, MP3(frames))
}

// FLAC returns a minimal stream: the fLaC marker, a STREAMINFO block and a
// few frame bytes. Only the metadata is meaningful.
func FLAC(sampleRate, samples int) []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write([]byte{0x80, 0x00, 0x00, 34}) // last block, STREAMINFO, 34 bytes

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096)
	binary.BigEndian.PutUint16(info[2:4], 4096)
	const channels, bitsPerSample = 2, 16
	packed := uint64(sampleRate)<<44 | uint64(channels-1)<<41 | uint64(bitsPerSample-1)<<36 | uint64(samples)&0xFFFFFFFFF
	binary.BigEndian.PutUint64(info[10:18], packed)
	buf.Write(info)

	buf.Write([]byte{0xFF, 0xF8, 0x69, 0x08, 0x00, 0x00, 0x00, 0x00})
	return buf.Bytes()
}

// WriteFLAC writes a FLAC fixture.
func WriteFLAC(t testing.TB, path string, sampleRate, samples int) {
	t.Helper()
	WriteBytes(t, path, FLAC(sampleRate, samples))
}

// MP4Payload is the mdat content of the MP4 fixture. Its stco entry points at
// the first byte of it.
var MP4Payload = []byte("shelfsort-mdat-payload")

// MP4 returns an ftyp/moov/mdat file with moov ahead of mdat. The movie header
// carries the given timescale and duration; a single stco entry addresses
// MP4Payload.
func MP4(timescale, duration uint32) []byte {
	ftyp := box("ftyp", append(append([]byte("M4B "), 0, 0, 0, 0), []byte("M4B mp42isom")...))

	mvhd := make([]byte, 100)
	binary.BigEndian.PutUint32(mvhd[12:16], timescale)
	binary.BigEndian.PutUint32(mvhd[16:20], duration)
	binary.BigEndian.PutUint32(mvhd[20:24], 0x00010000)
	binary.BigEndian.PutUint16(mvhd[24:26], 0x0100)
	binary.BigEndian.PutUint32(mvhd[36:40], 0x00010000)
	binary.BigEndian.PutUint32(mvhd[52:56], 0x00010000)
	binary.BigEndian.PutUint32(mvhd[68:72], 0x40000000)
	binary.BigEndian.PutUint32(mvhd[96:100], 2)

	stcoBody := make([]byte, 12)
	binary.BigEndian.PutUint32(stcoBody[4:8], 1)
	stco := box("stco", stcoBody)
	trak := box("trak", box("mdia", box("minf", box("stbl", stco))))
	moov := box("moov", append(box("mvhd", mvhd), trak...))

	payloadOffset := uint32(len(ftyp) + len(moov) + 8)
	// patch the stco entry in place: moov(8) mvhd(108) trak(8) mdia(8) minf(8) stbl(8) stco(8) + 8
	entryAt := 8 + 108 + 8*5 + 8
	binary.BigEndian.PutUint32(moov[entryAt:entryAt+4], payloadOffset)

	out := append([]byte(nil), ftyp...)
	out = append(out, moov...)
	out = append(out, box("mdat", MP4Payload)...)
	return out
}

// WriteMP4 writes an MP4 fixture.
func WriteMP4(t testing.TB, path string, timescale, duration uint32) {
	t.Helper()
	WriteBytes(t, path, MP4(timescale, duration))
}

// WAV returns a 16-bit mono PCM file holding the given number of samples.
func WAV(sampleRate, samples int) []byte {
	dataSize := samples * 2
	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	return buf
}

// WriteWAV writes a WAV fixture.
func WriteWAV(t testing.TB, path string, sampleRate, samples int) {
	t.Helper()
	WriteBytes(t, path, WAV(sampleRate, samples))
}

func box(kind string, content []byte) []byte {
	buf := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)))
	copy(buf[4:8], kind)
	copy(buf[8:], content)
	return buf
}

func gradient(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 0x80, A: 0xFF})
		}
	}
	return img
}

// JPEG encodes a width x height test image.
func JPEG(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(width, height), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// PNG encodes a width x height test image.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(width, height)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WriteJPEG writes a JPEG fixture of the given size.
func WriteJPEG(t testing.TB, path string, width, height int) {
	t.Helper()
	WriteBytes(t, path, JPEG(t, width, height))
}

// Touch creates each named file under dir with a single byte.
func Touch(t testing.TB, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		WriteFile(t, filepath.Join(dir, name), 1)
	}
}

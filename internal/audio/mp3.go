package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2"
)

const (
	frameArtist  = "TPE1"
	frameAlbum   = "TALB"
	frameTitle   = "TIT2"
	frameGenre   = "TCON"
	frameTrack   = "TRCK"
	frameDate    = "TDRC"
	frameYear    = "TYER"
	frameComment = "COMM"
	framePicture = "APIC"

	synopsisDescription = "Synopsis"
	coverDescription    = "Cover"
)

var mp3TextFrames = []string{frameArtist, frameAlbum, frameTitle, frameGenre, frameTrack, frameDate, frameYear, frameComment}

type mp3Container struct {
	path string
	tag  *id3v2.Tag
}

func openMP3(path string) (*mp3Container, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("%s: parse id3: %v: %w", filepath.Base(path), err, ErrUnsupported)
	}
	tag.SetVersion(4)
	return &mp3Container{path: path, tag: tag}, nil
}

func (c *mp3Container) Format() Format { return FormatMP3 }

func (c *mp3Container) ReadTags() (Tags, error) {
	tags := Tags{
		Title:  c.tag.Title(),
		Artist: c.tag.Artist(),
		Album:  c.tag.Album(),
		Genre:  c.tag.Genre(),
		Year:   c.tag.GetTextFrame(frameDate).Text,
	}
	if tags.Year == "" {
		tags.Year = c.tag.GetTextFrame(frameYear).Text
	}
	tags.Track, tags.TrackTotal = parseTrackPair(c.tag.GetTextFrame(frameTrack).Text)

	for _, framer := range c.tag.GetFrames(frameComment) {
		comment, ok := framer.(id3v2.CommentFrame)
		if !ok {
			continue
		}
		switch comment.Description {
		case "":
			tags.Comment = comment.Text
		case synopsisDescription:
			tags.Description = comment.Text
		}
	}
	for _, framer := range c.tag.GetFrames(framePicture) {
		pic, ok := framer.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		tags.Pictures = append(tags.Pictures, Picture{
			MIME:        pic.MimeType,
			Description: pic.Description,
			Data:        pic.Picture,
		})
	}
	return tags, nil
}

// WriteTags under ScopeAll drops every existing frame first, including
// frames shelfsort never writes such as TPE2, TPOS, TXXX and chapters.
func (c *mp3Container) WriteTags(tags Tags, scope WriteScope) error {
	if scope == ScopeAll {
		c.tag.DeleteAllFrames()
	}
	if scope.Has(ScopeText) {
		for _, id := range mp3TextFrames {
			c.tag.DeleteFrames(id)
		}
		c.addText(frameArtist, tags.Artist)
		c.addText(frameAlbum, tags.Album)
		c.addText(frameTitle, tags.Title)
		c.addText(frameGenre, tags.Genre)
		c.addText(frameTrack, formatTrackPair(tags.Track, tags.TrackTotal))
		c.addText(frameDate, tags.Year)
		if tags.Comment != "" {
			c.tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding: id3v2.EncodingUTF8,
				Language: "eng",
				Text:     tags.Comment,
			})
		}
		if tags.Description != "" {
			c.tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding:    id3v2.EncodingUTF8,
				Language:    "eng",
				Description: synopsisDescription,
				Text:        tags.Description,
			})
		}
	}
	if scope.Has(ScopeCover) {
		c.tag.DeleteFrames(framePicture)
		for _, pic := range tags.Pictures {
			if len(pic.Data) == 0 {
				continue
			}
			c.tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    pictureMIME(pic),
				PictureType: id3v2.PTFrontCover,
				Description: pictureDescription(pic),
				Picture:     pic.Data,
			})
		}
	}
	return nil
}

func (c *mp3Container) addText(id, value string) {
	if value == "" {
		return
	}
	c.tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
}

func (c *mp3Container) ClearPictures() error {
	c.tag.DeleteFrames(framePicture)
	return nil
}

func (c *mp3Container) Save() error {
	if err := c.tag.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}

func (c *mp3Container) Close() error {
	return c.tag.Close()
}

func parseTrackPair(value string) (int, int) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0
	}
	number, total, _ := strings.Cut(value, "/")
	n, _ := strconv.Atoi(strings.TrimSpace(number))
	t, _ := strconv.Atoi(strings.TrimSpace(total))
	return n, t
}

func formatTrackPair(track, total int) string {
	switch {
	case track <= 0:
		return ""
	case total <= 0:
		return strconv.Itoa(track)
	default:
		return strconv.Itoa(track) + "/" + strconv.Itoa(total)
	}
}

func pictureMIME(pic Picture) string {
	if pic.MIME != "" {
		return pic.MIME
	}
	return "image/jpeg"
}

func pictureDescription(pic Picture) string {
	if pic.Description != "" {
		return pic.Description
	}
	return coverDescription
}

// MPEG audio frame tables, indexed by [mpeg1?][layer-1][bitrate index].
var mp3Bitrates = [2][3][16]int{
	{ // MPEG-2 and 2.5
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},
	},
	{ // MPEG-1
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0},
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0},
		{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0},
	},
}

var mp3SampleRates = map[int][3]int{
	3: {44100, 48000, 32000}, // MPEG-1
	2: {22050, 24000, 16000}, // MPEG-2
	0: {11025, 12000, 8000},  // MPEG-2.5
}

// maxLeadingJunk bounds how far the scanner searches for the first frame.
const maxLeadingJunk = 1 << 20

type mp3Frame struct {
	length     int
	samples    int
	sampleRate int
	mpeg1      bool
	mono       bool
}

func parseMP3Header(h []byte) (mp3Frame, bool) {
	if len(h) < 4 || h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
		return mp3Frame{}, false
	}
	version := int(h[1]>>3) & 0x3
	layer := 4 - int(h[1]>>1)&0x3
	bitrateIndex := int(h[2] >> 4)
	rateIndex := int(h[2]>>2) & 0x3
	padding := int(h[2]>>1) & 0x1
	if version == 1 || layer == 4 || bitrateIndex == 0 || bitrateIndex == 15 || rateIndex == 3 {
		return mp3Frame{}, false
	}

	mpeg1 := version == 3
	table := 0
	if mpeg1 {
		table = 1
	}
	bitrate := mp3Bitrates[table][layer-1][bitrateIndex] * 1000
	sampleRate := mp3SampleRates[version][rateIndex]

	frame := mp3Frame{sampleRate: sampleRate, mpeg1: mpeg1, mono: h[3]>>6 == 3}
	switch {
	case layer == 1:
		frame.samples = 384
		frame.length = (12*bitrate/sampleRate + padding) * 4
	case layer == 3 && !mpeg1:
		frame.samples = 576
		frame.length = 72*bitrate/sampleRate + padding
	default:
		frame.samples = 1152
		frame.length = 144*bitrate/sampleRate + padding
	}
	if frame.length < 4 {
		return mp3Frame{}, false
	}
	return frame, true
}

// xingFrameCount reads the VBR frame count from a Xing/Info header in the
// first frame, when one is present.
func xingFrameCount(frame []byte, info mp3Frame) (int, bool) {
	offset := 4
	switch {
	case info.mpeg1 && !info.mono:
		offset += 32
	case info.mpeg1 || !info.mono:
		offset += 17
	default:
		offset += 9
	}
	if len(frame) < offset+12 {
		return 0, false
	}
	marker := frame[offset : offset+4]
	if !bytes.Equal(marker, []byte("Xing")) && !bytes.Equal(marker, []byte("Info")) {
		return 0, false
	}
	flags := binary.BigEndian.Uint32(frame[offset+4 : offset+8])
	if flags&0x1 == 0 {
		return 0, false
	}
	return int(binary.BigEndian.Uint32(frame[offset+8 : offset+12])), true
}

func skipID3v2(r *bufio.Reader) error {
	header, err := r.Peek(10)
	if err != nil || !bytes.HasPrefix(header, []byte("ID3")) {
		return nil
	}
	size := int(header[6]&0x7F)<<21 | int(header[7]&0x7F)<<14 | int(header[8]&0x7F)<<7 | int(header[9]&0x7F)
	skip := 10 + size
	if header[5]&0x10 != 0 {
		skip += 10
	}
	_, err = r.Discard(skip)
	return err
}

func mp3Duration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	r := bufio.NewReaderSize(file, 64*1024)
	if err := skipID3v2(r); err != nil {
		return 0, fmt.Errorf("skip id3 header: %w", err)
	}

	var (
		seconds float64
		frames  int
		junk    int
	)
	for {
		header, err := r.Peek(4)
		if err != nil {
			break
		}
		info, ok := parseMP3Header(header)
		if !ok {
			if frames > 0 && bytes.HasPrefix(header, []byte("TAG")) {
				break
			}
			junk++
			if frames == 0 && junk > maxLeadingJunk {
				break
			}
			if _, err := r.Discard(1); err != nil {
				break
			}
			continue
		}
		if frames == 0 {
			if body, _ := r.Peek(info.length); len(body) == info.length {
				if count, ok := xingFrameCount(body, info); ok && count > 0 {
					seconds = float64(count*info.samples) / float64(info.sampleRate)
					return secondsToDuration(seconds), nil
				}
			}
		}
		seconds += float64(info.samples) / float64(info.sampleRate)
		frames++
		if _, err := r.Discard(info.length); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
	}
	if frames == 0 {
		return 0, fmt.Errorf("%s: no mpeg audio frames: %w", filepath.Base(path), ErrUnsupported)
	}
	return secondsToDuration(seconds), nil
}

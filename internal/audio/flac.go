package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

const (
	vorbisArtist      = "ARTIST"
	vorbisAlbum       = "ALBUM"
	vorbisTitle       = "TITLE"
	vorbisGenre       = "GENRE"
	vorbisTrackNumber = "TRACKNUMBER"
	vorbisTrackTotal  = "TRACKTOTAL"
	vorbisDate        = "DATE"
	vorbisComment     = "COMMENT"
	vorbisDescription = "DESCRIPTION"

	defaultVendor = "shelfsort"
)

var flacTextFields = []string{vorbisArtist, vorbisAlbum, vorbisTitle, vorbisGenre, vorbisTrackNumber, vorbisTrackTotal, vorbisDate, vorbisComment, vorbisDescription}

type flacContainer struct {
	path   string
	source *os.File
	file   *flac.File
}

func openFLAC(path string) (*flacContainer, error) {
	c := &flacContainer{path: path}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *flacContainer) load() error {
	source, err := os.Open(c.path)
	if err != nil {
		return err
	}
	parsed, err := flac.ParseBytes(source)
	if err != nil {
		_ = source.Close()
		return fmt.Errorf("%s: parse flac: %v: %w", filepath.Base(c.path), err, ErrUnsupported)
	}
	c.source = source
	c.file = parsed
	return nil
}

func (c *flacContainer) Format() Format { return FormatFLAC }

func (c *flacContainer) ReadTags() (Tags, error) {
	var tags Tags
	for _, block := range c.file.Meta {
		switch block.Type {
		case flac.VorbisComment:
			comment, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return Tags{}, fmt.Errorf("parse vorbis comment: %w", err)
			}
			tags.Artist = firstVorbis(comment, vorbisArtist)
			tags.Album = firstVorbis(comment, vorbisAlbum)
			tags.Title = firstVorbis(comment, vorbisTitle)
			tags.Genre = firstVorbis(comment, vorbisGenre)
			tags.Year = firstVorbis(comment, vorbisDate)
			tags.Comment = firstVorbis(comment, vorbisComment)
			tags.Description = firstVorbis(comment, vorbisDescription)
			tags.Track, _ = strconv.Atoi(firstVorbis(comment, vorbisTrackNumber))
			tags.TrackTotal, _ = strconv.Atoi(firstVorbis(comment, vorbisTrackTotal))
		case flac.Picture:
			pic, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil {
				continue
			}
			tags.Pictures = append(tags.Pictures, Picture{
				MIME:        pic.MIME,
				Description: pic.Description,
				Data:        pic.ImageData,
			})
		}
	}
	return tags, nil
}

func firstVorbis(comment *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := comment.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}

func (c *flacContainer) WriteTags(tags Tags, scope WriteScope) error {
	if scope == ScopeAll {
		c.dropBlocks(flac.VorbisComment)
		c.dropBlocks(flac.Picture)
	}
	if scope.Has(ScopeText) {
		if err := c.rewriteComment(tags); err != nil {
			return err
		}
	}
	if scope.Has(ScopeCover) {
		c.dropBlocks(flac.Picture)
		for _, pic := range tags.Pictures {
			if len(pic.Data) == 0 {
				continue
			}
			picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, pictureDescription(pic), pic.Data, pictureMIME(pic))
			if err != nil {
				return fmt.Errorf("build picture block: %w", err)
			}
			block := picture.Marshal()
			c.file.Meta = append(c.file.Meta, &block)
		}
	}
	return nil
}

// rewriteComment replaces the fields shelfsort owns and carries every other
// comment over, keeping the original vendor string. Under ScopeAll the old
// block is already gone and the comment starts empty.
func (c *flacContainer) rewriteComment(tags Tags) error {
	comment := flacvorbis.New()
	comment.Vendor = defaultVendor
	for _, block := range c.file.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		existing, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			break
		}
		if existing.Vendor != "" {
			comment.Vendor = existing.Vendor
		}
		for _, entry := range existing.Comments {
			key, _, _ := strings.Cut(entry, "=")
			if !ownedVorbisField(key) {
				comment.Comments = append(comment.Comments, entry)
			}
		}
		break
	}

	add := func(field, value string) error {
		if value == "" {
			return nil
		}
		return comment.Add(field, value)
	}
	fields := []struct{ key, value string }{
		{vorbisArtist, tags.Artist},
		{vorbisAlbum, tags.Album},
		{vorbisTitle, tags.Title},
		{vorbisGenre, tags.Genre},
		{vorbisDate, tags.Year},
		{vorbisComment, tags.Comment},
		{vorbisDescription, tags.Description},
	}
	if tags.Track > 0 {
		fields = append(fields, struct{ key, value string }{vorbisTrackNumber, strconv.Itoa(tags.Track)})
	}
	if tags.TrackTotal > 0 {
		fields = append(fields, struct{ key, value string }{vorbisTrackTotal, strconv.Itoa(tags.TrackTotal)})
	}
	for _, field := range fields {
		if err := add(field.key, field.value); err != nil {
			return fmt.Errorf("add %s: %w", field.key, err)
		}
	}

	c.dropBlocks(flac.VorbisComment)
	block := comment.Marshal()
	c.file.Meta = append(c.file.Meta, &block)
	return nil
}

func ownedVorbisField(key string) bool {
	for _, field := range flacTextFields {
		if strings.EqualFold(key, field) {
			return true
		}
	}
	return false
}

func (c *flacContainer) dropBlocks(kind flac.BlockType) {
	kept := c.file.Meta[:0]
	for _, block := range c.file.Meta {
		if block.Type != kind {
			kept = append(kept, block)
		}
	}
	c.file.Meta = kept
}

func (c *flacContainer) ClearPictures() error {
	c.dropBlocks(flac.Picture)
	return nil
}

// Save writes the stream to a sibling temp file, renames it over the original
// and re-parses so the container keeps pointing at live data.
func (c *flacContainer) Save() error {
	info, err := os.Stat(c.path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := c.file.Save(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save flac: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(c.path), err)
	}
	if err := c.Close(); err != nil {
		return err
	}
	return c.load()
}

func (c *flacContainer) Close() error {
	if c.source == nil {
		return nil
	}
	err := c.source.Close()
	c.source = nil
	return err
}

func flacDuration(path string) (time.Duration, error) {
	c, err := openFLAC(path)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	info, err := c.file.GetStreamInfo()
	if err != nil {
		return 0, fmt.Errorf("%s: read streaminfo: %v: %w", filepath.Base(path), err, ErrUnsupported)
	}
	if info.SampleRate <= 0 {
		return 0, fmt.Errorf("%s: invalid sample rate: %w", filepath.Base(path), ErrUnsupported)
	}
	return secondsToDuration(float64(info.SampleCount) / float64(info.SampleRate)), nil
}

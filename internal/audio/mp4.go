package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/dhowden/tag"
)

// iTunes data atom value types.
const (
	dataTypeUTF8 = 1
	dataTypeJPEG = 13
	dataTypePNG  = 14
)

var (
	atomTitle           = [4]byte{0xA9, 'n', 'a', 'm'}
	atomArtist          = [4]byte{0xA9, 'A', 'R', 'T'}
	atomAlbum           = [4]byte{0xA9, 'a', 'l', 'b'}
	atomGenre           = [4]byte{0xA9, 'g', 'e', 'n'}
	atomComment         = [4]byte{0xA9, 'c', 'm', 't'}
	atomYear            = [4]byte{0xA9, 'd', 'a', 'y'}
	atomDescription     = [4]byte{'d', 'e', 's', 'c'}
	atomLongDescription = [4]byte{'l', 'd', 'e', 's'}
	atomTrack           = [4]byte{'t', 'r', 'k', 'n'}
	atomCover           = [4]byte{'c', 'o', 'v', 'r'}
)

var mp4TextAtoms = [][4]byte{atomTitle, atomArtist, atomAlbum, atomGenre, atomComment, atomYear, atomDescription, atomLongDescription, atomTrack}

// Boxes whose children may hold chunk offset tables.
var chunkOffsetPath = map[string]bool{"trak": true, "mdia": true, "minf": true, "stbl": true}

type ilstItem struct {
	kind [4]byte
	body []byte // atom payload, the child data boxes
}

type mp4Container struct {
	path  string
	boxes []gomp4.BoxInfo
	moov  gomp4.BoxInfo
	body  []byte // moov payload
	items []ilstItem
	dirty bool
}

func openMP4(path string) (*mp4Container, error) {
	c := &mp4Container{path: path}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *mp4Container) load() error {
	file, err := os.Open(c.path)
	if err != nil {
		return err
	}
	defer file.Close()

	var moovFound bool
	var body bytes.Buffer
	_, err = gomp4.ReadBoxStructure(file, func(h *gomp4.ReadHandle) (interface{}, error) {
		c.boxes = append(c.boxes, h.BoxInfo)
		if h.BoxInfo.Type == gomp4.BoxTypeMoov() {
			moovFound = true
			c.moov = h.BoxInfo
			if _, err := h.ReadData(&body); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%s: read box structure: %v: %w", filepath.Base(c.path), err, ErrUnsupported)
	}
	if !moovFound {
		return fmt.Errorf("%s: moov box not found: %w", filepath.Base(c.path), ErrUnsupported)
	}
	c.body = body.Bytes()
	c.items = parseIlst(findIlst(c.body))
	return nil
}

func (c *mp4Container) Format() Format { return FormatMP4 }

// ReadTags reads the common atoms with dhowden/tag. desc and ldes are not
// mapped by that library, so the description always comes from the parsed
// ilst. Files the library rejects, such as genre data of an unknown type,
// fall back to the ilst for every field.
func (c *mp4Container) ReadTags() (Tags, error) {
	fallback := c.ilstTags()
	if c.dirty {
		// Unsaved edits live only in the parsed ilst.
		return fallback, nil
	}
	file, err := os.Open(c.path)
	if err != nil {
		return Tags{}, err
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		return fallback, nil
	}
	tags := Tags{
		Title:       meta.Title(),
		Artist:      meta.Artist(),
		Album:       meta.Album(),
		Genre:       meta.Genre(),
		Comment:     meta.Comment(),
		Description: fallback.Description,
	}
	if year := meta.Year(); year > 0 {
		tags.Year = strconv.Itoa(year)
	}
	tags.Track, tags.TrackTotal = meta.Track()
	if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
		tags.Pictures = []Picture{{MIME: pic.MIMEType, Description: pic.Description, Data: pic.Data}}
	}
	return tags, nil
}

func (c *mp4Container) ilstTags() Tags {
	var tags Tags
	for _, item := range c.items {
		_, value, ok := firstDataValue(item.body)
		if !ok {
			continue
		}
		switch item.kind {
		case atomTitle:
			tags.Title = string(value)
		case atomArtist:
			tags.Artist = string(value)
		case atomAlbum:
			tags.Album = string(value)
		case atomGenre:
			tags.Genre = string(value)
		case atomYear:
			tags.Year = string(value)
		case atomComment:
			tags.Comment = string(value)
		case atomDescription:
			tags.Description = string(value)
		case atomLongDescription:
			if tags.Description == "" {
				tags.Description = string(value)
			}
		case atomTrack:
			if len(value) >= 6 {
				tags.Track = int(binary.BigEndian.Uint16(value[2:4]))
				tags.TrackTotal = int(binary.BigEndian.Uint16(value[4:6]))
			}
		case atomCover:
			for _, data := range dataValues(item.body) {
				tags.Pictures = append(tags.Pictures, Picture{MIME: coverMIME(data.kind), Data: data.value})
			}
		}
	}
	return tags
}

// WriteTags under ScopeAll starts from an empty ilst. The narrower scopes
// keep every atom they do not own.
func (c *mp4Container) WriteTags(tags Tags, scope WriteScope) error {
	if scope == ScopeAll {
		c.items = nil
	}
	if scope.Has(ScopeText) {
		c.dropItems(mp4TextAtoms...)
		c.addText(atomArtist, tags.Artist)
		c.addText(atomAlbum, tags.Album)
		c.addText(atomTitle, tags.Title)
		c.addText(atomGenre, tags.Genre)
		c.addText(atomYear, tags.Year)
		c.addText(atomComment, tags.Comment)
		c.addText(atomDescription, tags.Description)
		c.addText(atomLongDescription, tags.Description)
		if tags.Track > 0 {
			value := make([]byte, 8)
			binary.BigEndian.PutUint16(value[2:4], uint16(tags.Track))
			binary.BigEndian.PutUint16(value[4:6], uint16(max(tags.TrackTotal, 0)))
			c.items = append(c.items, ilstItem{kind: atomTrack, body: buildDataBox(0, value)})
		}
	}
	if scope.Has(ScopeCover) {
		c.dropItems(atomCover)
		var body []byte
		for _, pic := range tags.Pictures {
			if len(pic.Data) == 0 {
				continue
			}
			kind := dataTypeJPEG
			if pictureMIME(pic) == "image/png" {
				kind = dataTypePNG
			}
			body = append(body, buildDataBox(kind, pic.Data)...)
		}
		if len(body) > 0 {
			c.items = append(c.items, ilstItem{kind: atomCover, body: body})
		}
	}
	c.dirty = true
	return nil
}

func (c *mp4Container) addText(kind [4]byte, value string) {
	if value == "" {
		return
	}
	c.items = append(c.items, ilstItem{kind: kind, body: buildDataBox(dataTypeUTF8, []byte(value))})
}

func (c *mp4Container) dropItems(kinds ...[4]byte) {
	kept := c.items[:0]
	for _, item := range c.items {
		drop := false
		for _, kind := range kinds {
			if item.kind == kind {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

func (c *mp4Container) ClearPictures() error {
	c.dropItems(atomCover)
	c.dirty = true
	return nil
}

// Save rewrites the file through a sibling temp file. Only moov changes; every
// other top-level box is streamed through untouched.
func (c *mp4Container) Save() error {
	if !c.dirty {
		return nil
	}
	ilst := buildBox("ilst", c.encodeItems())
	newBody := replaceUdta(c.body, ilst)

	oldSize := int64(c.moov.Size)
	newSize := int64(8 + len(newBody))
	delta := newSize - oldSize
	moovEnd := c.moov.Offset + c.moov.Size
	if delta != 0 && c.dataFollowsMoov() {
		var err error
		newBody, err = shiftChunkOffsets(newBody, moovEnd, delta)
		if err != nil {
			return fmt.Errorf("shift chunk offsets: %w", err)
		}
	}

	if err := c.writeFile(buildBox("moov", newBody)); err != nil {
		return err
	}
	c.boxes = nil
	c.dirty = false
	return c.load()
}

func (c *mp4Container) dataFollowsMoov() bool {
	for _, box := range c.boxes {
		if box.Type == gomp4.BoxTypeMdat() && box.Offset > c.moov.Offset {
			return true
		}
	}
	return false
}

func (c *mp4Container) writeFile(moov []byte) error {
	src, err := os.Open(c.path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	for _, box := range c.boxes {
		if box.Offset == c.moov.Offset && box.Type == c.moov.Type {
			if _, err := tmp.Write(moov); err != nil {
				return fail(fmt.Errorf("write moov: %w", err))
			}
			continue
		}
		section := io.NewSectionReader(src, int64(box.Offset), int64(box.Size))
		if _, err := io.Copy(tmp, section); err != nil {
			return fail(fmt.Errorf("copy %s box: %w", box.Type.String(), err))
		}
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(c.path), err)
	}
	return nil
}

func (c *mp4Container) Close() error { return nil }

func (c *mp4Container) encodeItems() []byte {
	var out bytes.Buffer
	for _, item := range c.items {
		out.Write(buildBox(string(item.kind[:]), item.body))
	}
	return out.Bytes()
}

type rawBox struct {
	kind   string
	header []byte
	body   []byte
}

// splitBoxes walks sibling boxes in content. A malformed tail is returned as
// an opaque box so it round-trips unchanged.
func splitBoxes(content []byte) []rawBox {
	var boxes []rawBox
	for offset := 0; offset < len(content); {
		rest := content[offset:]
		if len(rest) < 8 {
			boxes = append(boxes, rawBox{body: rest})
			break
		}
		size := int(binary.BigEndian.Uint32(rest[0:4]))
		headerSize := 8
		switch size {
		case 0:
			size = len(rest)
		case 1:
			if len(rest) < 16 {
				boxes = append(boxes, rawBox{body: rest})
				return boxes
			}
			size = int(binary.BigEndian.Uint64(rest[8:16]))
			headerSize = 16
		}
		if size < headerSize || size > len(rest) {
			boxes = append(boxes, rawBox{body: rest})
			break
		}
		boxes = append(boxes, rawBox{
			kind:   string(rest[4:8]),
			header: rest[:headerSize],
			body:   rest[headerSize:size],
		})
		offset += size
	}
	return boxes
}

func (b rawBox) bytes() []byte {
	if b.kind == "" {
		return b.body
	}
	return buildBox(b.kind, b.body)
}

// findIlst returns the ilst payload under moov/udta/meta, or nil.
func findIlst(moovBody []byte) []byte {
	for _, udta := range splitBoxes(moovBody) {
		if udta.kind != "udta" {
			continue
		}
		for _, meta := range splitBoxes(udta.body) {
			if meta.kind != "meta" || len(meta.body) < 4 {
				continue
			}
			for _, ilst := range splitBoxes(meta.body[4:]) {
				if ilst.kind == "ilst" {
					return ilst.body
				}
			}
		}
	}
	return nil
}

func parseIlst(body []byte) []ilstItem {
	var items []ilstItem
	for _, box := range splitBoxes(body) {
		if box.kind == "" {
			continue
		}
		var kind [4]byte
		copy(kind[:], box.kind)
		items = append(items, ilstItem{kind: kind, body: box.body})
	}
	return items
}

type dataValue struct {
	kind  int
	value []byte
}

func dataValues(itemBody []byte) []dataValue {
	var values []dataValue
	for _, box := range splitBoxes(itemBody) {
		if box.kind != "data" || len(box.body) < 8 {
			continue
		}
		kind := int(box.body[1])<<16 | int(box.body[2])<<8 | int(box.body[3])
		values = append(values, dataValue{kind: kind, value: box.body[8:]})
	}
	return values
}

func firstDataValue(itemBody []byte) (int, []byte, bool) {
	values := dataValues(itemBody)
	if len(values) == 0 {
		return 0, nil, false
	}
	return values[0].kind, values[0].value, true
}

func coverMIME(kind int) string {
	if kind == dataTypePNG {
		return "image/png"
	}
	return "image/jpeg"
}

func buildDataBox(kind int, value []byte) []byte {
	content := make([]byte, 8+len(value))
	content[1] = byte(kind >> 16)
	content[2] = byte(kind >> 8)
	content[3] = byte(kind)
	copy(content[8:], value)
	return buildBox("data", content)
}

func buildBox(kind string, content []byte) []byte {
	buf := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)))
	copy(buf[4:8], kind)
	copy(buf[8:], content)
	return buf
}

// metadataHandler is the hdlr box iTunes-style players expect ahead of ilst.
func metadataHandler() []byte {
	content := make([]byte, 25)
	copy(content[8:12], "mdir")
	copy(content[12:16], "appl")
	return buildBox("hdlr", content)
}

// replaceUdta swaps the ilst under moov/udta/meta, creating udta and meta
// when the file has none. Sibling boxes keep their order.
func replaceUdta(moovBody, ilst []byte) []byte {
	var out bytes.Buffer
	replaced := false
	for _, box := range splitBoxes(moovBody) {
		if box.kind == "udta" && !replaced {
			out.Write(buildBox("udta", replaceMeta(box.body, ilst)))
			replaced = true
			continue
		}
		out.Write(box.bytes())
	}
	if !replaced {
		out.Write(buildBox("udta", replaceMeta(nil, ilst)))
	}
	return out.Bytes()
}

func replaceMeta(udtaBody, ilst []byte) []byte {
	var out bytes.Buffer
	replaced := false
	for _, box := range splitBoxes(udtaBody) {
		if box.kind == "meta" && !replaced && len(box.body) >= 4 {
			out.Write(buildBox("meta", replaceIlst(box.body, ilst)))
			replaced = true
			continue
		}
		out.Write(box.bytes())
	}
	if !replaced {
		var meta bytes.Buffer
		meta.Write([]byte{0, 0, 0, 0})
		meta.Write(metadataHandler())
		meta.Write(ilst)
		out.Write(buildBox("meta", meta.Bytes()))
	}
	return out.Bytes()
}

func replaceIlst(metaBody, ilst []byte) []byte {
	var out bytes.Buffer
	out.Write(metaBody[:4])
	replaced := false
	for _, box := range splitBoxes(metaBody[4:]) {
		if box.kind == "ilst" {
			if !replaced {
				out.Write(ilst)
				replaced = true
			}
			continue
		}
		out.Write(box.bytes())
	}
	if !replaced {
		out.Write(ilst)
	}
	return out.Bytes()
}

// shiftChunkOffsets adds delta to every stco/co64 entry that points at or
// beyond threshold, the original end of moov.
func shiftChunkOffsets(content []byte, threshold uint64, delta int64) ([]byte, error) {
	var out bytes.Buffer
	for _, box := range splitBoxes(content) {
		switch {
		case chunkOffsetPath[box.kind]:
			inner, err := shiftChunkOffsets(box.body, threshold, delta)
			if err != nil {
				return nil, err
			}
			out.Write(buildBox(box.kind, inner))
		case box.kind == "stco" || box.kind == "co64":
			patched, err := patchOffsetTable(box.kind, box.body, threshold, delta)
			if err != nil {
				return nil, err
			}
			out.Write(buildBox(box.kind, patched))
		default:
			out.Write(box.bytes())
		}
	}
	return out.Bytes(), nil
}

func patchOffsetTable(kind string, body []byte, threshold uint64, delta int64) ([]byte, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%s box too short", kind)
	}
	patched := append([]byte(nil), body...)
	count := int(binary.BigEndian.Uint32(patched[4:8]))
	width := 4
	if kind == "co64" {
		width = 8
	}
	if len(patched) < 8+count*width {
		return nil, fmt.Errorf("%s box truncated: %d entries", kind, count)
	}
	for i := 0; i < count; i++ {
		at := patched[8+i*width:]
		if width == 4 {
			value := uint64(binary.BigEndian.Uint32(at))
			if value < threshold {
				continue
			}
			shifted := int64(value) + delta
			if shifted < 0 || shifted > int64(^uint32(0)) {
				return nil, errors.New("chunk offset overflows stco; file needs co64")
			}
			binary.BigEndian.PutUint32(at, uint32(shifted))
			continue
		}
		value := binary.BigEndian.Uint64(at)
		if value < threshold {
			continue
		}
		binary.BigEndian.PutUint64(at, uint64(int64(value)+delta))
	}
	return patched, nil
}

func mp4Duration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var (
		timescale uint32
		units     uint64
		found     bool
	)
	_, err = gomp4.ReadBoxStructure(file, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case gomp4.BoxTypeMoov():
			return h.Expand()
		case gomp4.BoxTypeMvhd():
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			mvhd, ok := payload.(*gomp4.Mvhd)
			if !ok {
				return nil, nil
			}
			found = true
			timescale = mvhd.Timescale
			if mvhd.GetVersion() == 0 {
				units = uint64(mvhd.DurationV0)
			} else {
				units = mvhd.DurationV1
			}
		}
		return nil, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: read mvhd: %v: %w", filepath.Base(path), err, ErrUnsupported)
	}
	if !found || timescale == 0 {
		return 0, fmt.Errorf("%s: no movie header: %w", filepath.Base(path), ErrUnsupported)
	}
	return secondsToDuration(float64(units) / float64(timescale)), nil
}

package icon

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"os"

	ico "github.com/sergeymakinen/go-ico"

	"imgzap/pkg/imgutil"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// DecodeLargest reads an icon file and decodes the entry with the largest
// pixel area. Ties go to the entry listed first.
func DecodeLargest(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.ErrCodeIO, err, "read %s", path)
	}
	img, err := DecodeLargestBytes(data)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.GetCode(err), err, "decode %s", path)
	}
	return img, nil
}

func DecodeLargestBytes(data []byte) (image.Image, error) {
	entries, err := ReadDirectory(data)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, imgutil.Wrap(imgutil.ErrCodeDecode, imgutil.ErrEmptyContainer, "icon directory")
	}

	best := Largest(entries)
	return decodeEntry(data, entries[best])
}

// Largest returns the index of the entry with the maximum area, or -1 for
// an empty list.
func Largest(entries []Entry) int {
	best := -1
	for i, e := range entries {
		if best < 0 || e.Area() > entries[best].Area() {
			best = i
		}
	}
	return best
}

func decodeEntry(data []byte, e Entry) (image.Image, error) {
	start := uint64(e.Offset)
	end := start + uint64(e.Length)
	if e.Length == 0 || end > uint64(len(data)) {
		return nil, imgutil.New(imgutil.ErrCodeDecode,
			"%dx%d entry points outside the file (offset %d, length %d)", e.Width, e.Height, e.Offset, e.Length)
	}
	payload := data[start:end]

	if bytes.HasPrefix(payload, pngSignature) {
		img, err := png.Decode(bytes.NewReader(payload))
		if err != nil {
			return nil, imgutil.Wrap(imgutil.ErrCodeDecode, err, "%dx%d png entry", e.Width, e.Height)
		}
		return img, nil
	}

	img, err := ico.Decode(bytes.NewReader(singleEntry(e, payload)))
	if err != nil {
		return nil, imgutil.Wrap(imgutil.ErrCodeDecode, err, "%dx%d bitmap entry", e.Width, e.Height)
	}
	return img, nil
}

// singleEntry wraps one BMP payload in a minimal icon container.
func singleEntry(e Entry, payload []byte) []byte {
	le := binary.LittleEndian
	buf := make([]byte, headerSize+entrySize, headerSize+entrySize+len(payload))
	le.PutUint16(buf[2:4], typeIcon)
	le.PutUint16(buf[4:6], 1)

	raw := buf[headerSize:]
	raw[0] = byte(e.Width % MaxSize)
	raw[1] = byte(e.Height % MaxSize)
	raw[2] = byte(e.ColorCount)
	le.PutUint16(raw[4:6], uint16(e.Planes))
	le.PutUint16(raw[6:8], uint16(e.BitCount))
	le.PutUint32(raw[8:12], uint32(len(payload)))
	le.PutUint32(raw[12:16], headerSize+entrySize)

	return append(buf, payload...)
}

package icon

import (
	"encoding/binary"
	"io"

	"imgzap/pkg/imgutil"
)

const (
	headerSize = 6
	entrySize  = 16

	typeIcon   = 1
	typeCursor = 2

	// MaxSize is the largest edge an icon directory entry can describe.
	MaxSize = 256
)

// Entry is one ICONDIRENTRY. Width and Height are already expanded, so a
// stored 0 reads as 256.
type Entry struct {
	Width      int
	Height     int
	ColorCount int
	Planes     int
	BitCount   int
	Length     uint32
	Offset     uint32
}

func (e Entry) Area() int {
	return e.Width * e.Height
}

// ReadDirectory parses the ICONDIR header and its entries. Payload offsets
// are not checked here.
func ReadDirectory(data []byte) ([]Entry, error) {
	if len(data) < headerSize {
		return nil, imgutil.New(imgutil.ErrCodeDecode, "icon header truncated (%d bytes)", len(data))
	}
	le := binary.LittleEndian
	reserved := le.Uint16(data[0:2])
	kind := le.Uint16(data[2:4])
	count := int(le.Uint16(data[4:6]))
	if reserved != 0 || (kind != typeIcon && kind != typeCursor) {
		return nil, imgutil.New(imgutil.ErrCodeDecode, "not an icon container")
	}
	if len(data) < headerSize+count*entrySize {
		return nil, imgutil.New(imgutil.ErrCodeDecode, "icon directory truncated: %d entries declared", count)
	}

	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		raw := data[headerSize+i*entrySize : headerSize+(i+1)*entrySize]
		entries = append(entries, Entry{
			Width:      dimension(raw[0]),
			Height:     dimension(raw[1]),
			ColorCount: int(raw[2]),
			Planes:     int(le.Uint16(raw[4:6])),
			BitCount:   int(le.Uint16(raw[6:8])),
			Length:     le.Uint32(raw[8:12]),
			Offset:     le.Uint32(raw[12:16]),
		})
	}
	return entries, nil
}

func dimension(b byte) int {
	if b == 0 {
		return MaxSize
	}
	return int(b)
}

// writeDirectory emits the header and one entry per frame. Payloads follow
// the directory in frame order.
func writeDirectory(w io.Writer, frames []Frame) error {
	le := binary.LittleEndian
	buf := make([]byte, headerSize+len(frames)*entrySize)
	le.PutUint16(buf[0:2], 0)
	le.PutUint16(buf[2:4], typeIcon)
	le.PutUint16(buf[4:6], uint16(len(frames)))

	offset := uint32(len(buf))
	for i, frame := range frames {
		raw := buf[headerSize+i*entrySize : headerSize+(i+1)*entrySize]
		edge := byte(frame.Size)
		if frame.Size >= MaxSize {
			edge = 0
		}
		bits := frame.BitCount
		if bits == 0 {
			bits = 32
		}
		raw[0] = edge
		raw[1] = edge
		raw[2] = byte(frame.ColorCount)
		le.PutUint16(raw[4:6], 1)
		le.PutUint16(raw[6:8], uint16(bits))
		le.PutUint32(raw[8:12], uint32(len(frame.Data)))
		le.PutUint32(raw[12:16], offset)
		offset += uint32(len(frame.Data))
	}

	_, err := w.Write(buf)
	return err
}

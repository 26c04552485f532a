package processor

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// PNGText is the textual metadata found in a PNG stream.
type PNGText struct {
	// Entries holds uncompressed tEXt chunks as "keyword=value".
	Entries []string
	// Modified is the tIME chunk, formatted as YYYY-MM-DD hh:mm:ss.
	Modified string
}

// readPNGText walks the chunk list up to IEND. zTXt and iTXt chunks are
// reported by keyword only.
func readPNGText(r io.Reader) (PNGText, error) {
	var text PNGText
	br := bufio.NewReader(r)

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil {
		return text, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return text, errors.New("invalid PNG signature")
	}

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(br, header); err != nil {
			if errors.Is(err, io.EOF) {
				return text, nil
			}
			return text, err
		}
		length := binary.BigEndian.Uint32(header[:4])
		name := string(header[4:8])

		switch name {
		case "tEXt", "zTXt", "iTXt", "tIME":
			if length > 1<<20 {
				return text, fmt.Errorf("%s chunk too large (%d bytes)", name, length)
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return text, err
			}
			if _, err := br.Discard(4); err != nil {
				return text, err
			}
			text.add(name, data)
		default:
			if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
				return text, err
			}
		}

		if name == "IEND" {
			return text, nil
		}
	}
}

func (t *PNGText) add(name string, data []byte) {
	if name == "tIME" {
		if len(data) == 7 {
			t.Modified = fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
				binary.BigEndian.Uint16(data[0:2]), data[2], data[3], data[4], data[5], data[6])
		}
		return
	}

	idx := bytes.IndexByte(data, 0)
	if idx <= 0 {
		return
	}
	key := string(data[:idx])
	if name != "tEXt" {
		t.Entries = append(t.Entries, key+"=("+name+")")
		return
	}
	t.Entries = append(t.Entries, key+"="+string(data[idx+1:]))
}

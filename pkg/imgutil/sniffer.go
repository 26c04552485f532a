package imgutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// sniffLen is how much of a file the detector looks at.
const sniffLen = 512

var (
	pngSig    = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig   = []byte{0xff, 0xd8, 0xff}
	tiffSigLE = []byte{0x49, 0x49, 0x2a, 0x00}
	tiffSigBE = []byte{0x4d, 0x4d, 0x00, 0x2a}
	icoSig    = []byte{0x00, 0x00, 0x01, 0x00}
	bmpSig    = []byte("BM")
	riffSig   = []byte("RIFF")
	webpSig   = []byte("WEBP")
	ftypSig   = []byte("ftyp")
	utf8BOM   = []byte{0xef, 0xbb, 0xbf}
)

// DetectHeader classifies a file from its leading bytes. It never looks at
// the file name.
func DetectHeader(header []byte) Format {
	switch {
	case hasPrefix(header, pngSig):
		return FormatPNG
	case hasPrefix(header, jpegSig):
		return FormatJPEG
	case len(header) >= 12 && hasPrefix(header, riffSig) && bytes.Equal(header[8:12], webpSig):
		return FormatWEBP
	case hasPrefix(header, tiffSigLE) || hasPrefix(header, tiffSigBE):
		return FormatTIFF
	case hasPrefix(header, icoSig) && len(header) >= 6:
		return FormatICO
	case isBMP(header):
		return FormatBMP
	case isAVIF(header):
		return FormatAVIF
	case isSVG(header):
		return FormatSVG
	}
	return FormatUnknown
}

// SniffFile reads the head of a file to determine its format.
func SniffFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, Wrap(ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()

	return SniffReader(f)
}

// SniffReader reads up to 512 bytes from r and determines the format.
func SniffReader(r io.Reader) (Format, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, Wrap(ErrCodeIO, err, "read header")
	}
	return DetectHeader(header[:n]), nil
}

func isBMP(header []byte) bool {
	if !hasPrefix(header, bmpSig) || len(header) < 18 {
		return false
	}
	switch binary.LittleEndian.Uint32(header[14:18]) {
	case 12, 40, 52, 56, 64, 108, 124:
		return true
	}
	return false
}

// isAVIF checks the ISO-BMFF ftyp box for an avif/avis brand, major or
// compatible.
func isAVIF(header []byte) bool {
	if len(header) < 16 || !bytes.Equal(header[4:8], ftypSig) {
		return false
	}
	boxLen := int(binary.BigEndian.Uint32(header[0:4]))
	if boxLen < 16 || boxLen > len(header) {
		boxLen = len(header)
	}
	for off := 8; off+4 <= boxLen; off += 4 {
		if off == 12 {
			continue // minor version
		}
		brand := string(header[off : off+4])
		if brand == "avif" || brand == "avis" {
			return true
		}
	}
	return false
}

func isSVG(header []byte) bool {
	h := bytes.TrimPrefix(header, utf8BOM)
	h = bytes.TrimLeft(h, " \t\r\n")
	if len(h) == 0 || h[0] != '<' {
		return false
	}
	return bytes.Contains(bytes.ToLower(h), []byte("<svg"))
}

func hasPrefix(buf, prefix []byte) bool {
	return len(buf) >= len(prefix) && bytes.Equal(buf[:len(prefix)], prefix)
}

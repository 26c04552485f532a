package imgutil

import (
	"fmt"
	"strings"
)

// Format identifies one of the supported image formats.
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatJPEG
	FormatWEBP
	FormatTIFF
	FormatBMP
	FormatICO
	FormatAVIF
	FormatSVG
)

type formatInfo struct {
	name      string
	ext       string
	mime      string
	generic   bool
	container bool
	vector    bool
}

var registry = map[Format]formatInfo{
	FormatPNG:  {name: "PNG", ext: "png", mime: "image/png", generic: true},
	FormatJPEG: {name: "JPEG", ext: "jpeg", mime: "image/jpeg", generic: true},
	FormatWEBP: {name: "WEBP", ext: "webp", mime: "image/webp", generic: true},
	FormatTIFF: {name: "TIFF", ext: "tiff", mime: "image/tiff", generic: true},
	FormatBMP:  {name: "BMP", ext: "bmp", mime: "image/bmp", generic: true},
	FormatICO:  {name: "ICO", ext: "ico", mime: "image/x-icon", container: true},
	FormatAVIF: {name: "AVIF", ext: "avif", mime: "image/avif", generic: true},
	FormatSVG:  {name: "SVG", ext: "svg", mime: "image/svg+xml", vector: true},
}

var aliases = map[string]Format{
	"png":  FormatPNG,
	"jpeg": FormatJPEG,
	"jpg":  FormatJPEG,
	"webp": FormatWEBP,
	"tiff": FormatTIFF,
	"tif":  FormatTIFF,
	"bmp":  FormatBMP,
	"ico":  FormatICO,
	"avif": FormatAVIF,
	"svg":  FormatSVG,
}

// Formats returns every supported format in declaration order.
func Formats() []Format {
	return []Format{
		FormatPNG,
		FormatJPEG,
		FormatWEBP,
		FormatTIFF,
		FormatBMP,
		FormatICO,
		FormatAVIF,
		FormatSVG,
	}
}

// ParseFormat resolves a user supplied name such as "jpg" or ".PNG".
func ParseFormat(name string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if f, ok := aliases[key]; ok {
		return f, nil
	}
	return FormatUnknown, New(ErrCodeUnsupported, "unknown image format %q", name)
}

// FormatFromMIME maps a content type to a format.
func FormatFromMIME(mime string) Format {
	if mime == "image/vnd.microsoft.icon" {
		return FormatICO
	}
	for f, info := range registry {
		if info.mime == mime {
			return f
		}
	}
	return FormatUnknown
}

func (f Format) String() string {
	if info, ok := registry[f]; ok {
		return info.name
	}
	return "UNKNOWN"
}

// Ext is the canonical lowercase extension, without the dot.
func (f Format) Ext() string {
	return registry[f].ext
}

func (f Format) MIME() string {
	return registry[f].mime
}

// GenericEncodable reports whether a single bitmap can be written in this
// format directly. ICO and SVG need their own encode paths.
func (f Format) GenericEncodable() bool {
	return registry[f].generic
}

// IsContainer reports whether the format stores several frames.
func (f Format) IsContainer() bool {
	return registry[f].container
}

func (f Format) IsVector() bool {
	return registry[f].vector
}

func (f Format) Valid() bool {
	_, ok := registry[f]
	return ok
}

// MarshalText lets formats appear as names in TOML and log output.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid format %d", int(f))
	}
	return []byte(f.Ext()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

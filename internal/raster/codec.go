package raster

import (
	"bufio"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"imgzap/pkg/imgutil"
)

const (
	DefaultJPEGQuality = 90
	DefaultWebPQuality = 90
	DefaultAVIFQuality = 60
	DefaultAVIFSpeed   = 10
)

// Options controls encoder settings and decode-time adjustments.
type Options struct {
	JPEGQuality  int
	WebPLossless bool
	WebPQuality  float32
	AVIFQuality  int
	AVIFSpeed    int
	// Background is composited under transparent pixels for formats
	// without an alpha channel. Nil means white.
	Background color.Color
	AutoOrient bool
}

func DefaultOptions() Options {
	return Options{
		JPEGQuality:  DefaultJPEGQuality,
		WebPLossless: true,
		WebPQuality:  DefaultWebPQuality,
		AVIFQuality:  DefaultAVIFQuality,
		AVIFSpeed:    DefaultAVIFSpeed,
		Background:   color.White,
	}
}

// Codec decodes and encodes the bitmap formats that have a direct
// single-image representation. It is safe for concurrent use.
type Codec struct {
	opts Options
}

func New(opts Options) *Codec {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.WebPQuality <= 0 || opts.WebPQuality > 100 {
		opts.WebPQuality = DefaultWebPQuality
	}
	if opts.AVIFQuality <= 0 || opts.AVIFQuality > 100 {
		opts.AVIFQuality = DefaultAVIFQuality
	}
	if opts.AVIFSpeed <= 0 || opts.AVIFSpeed > 10 {
		opts.AVIFSpeed = DefaultAVIFSpeed
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	return &Codec{opts: opts}
}

func (c *Codec) Options() Options {
	return c.opts
}

type decodeFunc func(io.Reader) (image.Image, error)

var decoders = map[imgutil.Format]decodeFunc{
	imgutil.FormatPNG:  png.Decode,
	imgutil.FormatJPEG: jpeg.Decode,
	imgutil.FormatBMP:  bmp.Decode,
	imgutil.FormatTIFF: tiff.Decode,
	imgutil.FormatWEBP: webp.Decode,
	imgutil.FormatAVIF: avif.Decode,
}

var configDecoders = map[imgutil.Format]func(io.Reader) (image.Config, error){
	imgutil.FormatPNG:  png.DecodeConfig,
	imgutil.FormatJPEG: jpeg.DecodeConfig,
	imgutil.FormatBMP:  bmp.DecodeConfig,
	imgutil.FormatTIFF: tiff.DecodeConfig,
	imgutil.FormatWEBP: webp.DecodeConfig,
	imgutil.FormatAVIF: avif.DecodeConfig,
}

// DecodeConfig reads only the dimensions and color model of a bitmap file.
func DecodeConfig(path string) (image.Config, imgutil.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, imgutil.FormatUnknown, imgutil.Wrap(imgutil.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, _ := br.Peek(512)
	format := imgutil.DetectHeader(header)
	decode, ok := configDecoders[format]
	if !ok {
		return image.Config{}, format, imgutil.New(imgutil.ErrCodeDecode, "no bitmap decoder for %s content", format)
	}
	cfg, err := decode(br)
	if err != nil {
		return image.Config{}, format, imgutil.Wrap(imgutil.ErrCodeDecode, err, "read %s header of %s", format, path)
	}
	return cfg, format, nil
}

// Decode reads a bitmap file. The decoder is chosen from the file content.
func (c *Codec) Decode(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.ErrCodeIO, err, "read %s", path)
	}
	img, err := c.DecodeBytes(data)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.GetCode(err), err, "decode %s", path)
	}
	return img, nil
}

func (c *Codec) DecodeBytes(data []byte) (image.Image, error) {
	format := imgutil.DetectHeader(data)
	decode, ok := decoders[format]
	if !ok {
		return nil, imgutil.New(imgutil.ErrCodeDecode, "no bitmap decoder for %s content", format)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, imgutil.Wrap(imgutil.ErrCodeDecode, err, "%s payload", format)
	}

	if c.opts.AutoOrient && (format == imgutil.FormatJPEG || format == imgutil.FormatTIFF) {
		if info, err := ReadExif(bytes.NewReader(data)); err == nil {
			img = Orient(img, info.Orientation)
		}
	}
	return img, nil
}

// Encode writes img to path in the given format. The destination only
// appears once the encoded bytes are fully on disk.
func (c *Codec) Encode(img image.Image, path string, format imgutil.Format) error {
	if !format.GenericEncodable() {
		return imgutil.New(imgutil.ErrCodeUnsupported, "%s has no direct bitmap encoder", format)
	}
	return imgutil.WriteFileAtomic(path, func(w io.Writer) error {
		return c.EncodeTo(w, img, format)
	})
}

// EncodeTo streams the encoded image to w.
func (c *Codec) EncodeTo(w io.Writer, img image.Image, format imgutil.Format) error {
	var err error
	switch format {
	case imgutil.FormatJPEG:
		err = jpeg.Encode(w, Flatten(img, c.opts.Background), &jpeg.Options{Quality: c.opts.JPEGQuality})
	case imgutil.FormatPNG:
		err = png.Encode(w, img)
	case imgutil.FormatWEBP:
		err = webp.Encode(w, img, &webp.Options{
			Lossless: c.opts.WebPLossless,
			Quality:  c.opts.WebPQuality,
		})
	case imgutil.FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case imgutil.FormatBMP:
		err = bmp.Encode(w, img)
	case imgutil.FormatAVIF:
		err = avif.Encode(w, img, avif.Options{
			Quality:      c.opts.AVIFQuality,
			QualityAlpha: c.opts.AVIFQuality,
			Speed:        c.opts.AVIFSpeed,
		})
	default:
		return imgutil.New(imgutil.ErrCodeUnsupported, "%s has no direct bitmap encoder", format)
	}
	if err != nil {
		return imgutil.Wrap(imgutil.ErrCodeEncode, err, "encode %s", format)
	}
	return nil
}

// Flatten composites img over an opaque background of the same size. The
// result has no transparent pixels.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	if bg == nil {
		bg = color.White
	}
	r, g, b, _ := bg.RGBA()
	opaque := color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xff}

	size := img.Bounds().Size()
	base := imaging.New(size.X, size.Y, opaque)
	return imaging.Overlay(base, img, image.Pt(0, 0), 1.0)
}

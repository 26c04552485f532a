package raster

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"imgzap/pkg/imgutil"
)

func TestEncodeDecodeGenericFormats(t *testing.T) {
	dir := t.TempDir()
	codec := New(DefaultOptions())
	src := gradient(8, 6, 0xff)

	for _, format := range imgutil.Formats() {
		if !format.GenericEncodable() {
			continue
		}
		t.Run(format.String(), func(t *testing.T) {
			path := filepath.Join(dir, "out."+format.Ext())
			if err := codec.Encode(src, path, format); err != nil {
				t.Fatalf("encode: %v", err)
			}

			sniffed, err := imgutil.SniffFile(path)
			if err != nil {
				t.Fatalf("sniff: %v", err)
			}
			if sniffed != format {
				t.Fatalf("expected %v content, sniffed %v", format, sniffed)
			}

			img, err := codec.Decode(path)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := img.Bounds().Size(); got != image.Pt(8, 6) {
				t.Fatalf("expected 8x6, got %v", got)
			}
		})
	}
}

func TestEncodeJPEGFlattensAlpha(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alpha.jpeg")

	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				src.SetNRGBA(x, y, color.NRGBA{R: 0xff, A: 0x80})
			}
		}
	}

	if err := New(DefaultOptions()).Encode(src, path, imgutil.FormatJPEG); err != nil {
		t.Fatalf("encode: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := img.(*image.YCbCr); !ok {
		t.Fatalf("expected a 3-channel YCbCr image, got %T", img)
	}

	r, g, b, _ := img.At(14, 8).RGBA()
	if r>>8 < 0xf0 || g>>8 < 0xf0 || b>>8 < 0xf0 {
		t.Fatalf("expected transparent area to become white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestFlatten(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 2, 4, 4))
	src.SetNRGBA(3, 3, color.NRGBA{G: 0xff, A: 0xff})

	out := Flatten(src, color.NRGBA{R: 0xff, A: 0xff})
	if out.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{R: 0xff, A: 0xff}) {
		t.Fatalf("expected background under transparent pixel, got %v", got)
	}
	if got := out.NRGBAAt(1, 1); got != (color.NRGBA{G: 0xff, A: 0xff}) {
		t.Fatalf("expected opaque pixel to win, got %v", got)
	}
}

func TestEncodeNonGenericUnsupported(t *testing.T) {
	dir := t.TempDir()
	codec := New(DefaultOptions())
	for _, format := range []imgutil.Format{imgutil.FormatICO, imgutil.FormatSVG} {
		path := filepath.Join(dir, "out."+format.Ext())
		err := codec.Encode(gradient(2, 2, 0xff), path, format)
		if !imgutil.Is(err, imgutil.ErrCodeUnsupported) {
			t.Fatalf("%v: expected UNSUPPORTED, got %v", format, err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%v: expected no output file", format)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	codec := New(DefaultOptions())

	if _, err := codec.Decode(filepath.Join(dir, "missing.png")); !imgutil.Is(err, imgutil.ErrCodeIO) {
		t.Fatalf("expected IO_ERROR, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("definitely not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := codec.Decode(garbage); !imgutil.Is(err, imgutil.ErrCodeDecode) {
		t.Fatalf("expected DECODE_ERROR, got %v", err)
	}

	truncated := filepath.Join(dir, "truncated.bmp")
	header := make([]byte, 30)
	copy(header, "BM")
	binary.LittleEndian.PutUint32(header[14:18], 40)
	if err := os.WriteFile(truncated, header, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := codec.Decode(truncated); !imgutil.Is(err, imgutil.ErrCodeDecode) {
		t.Fatalf("expected DECODE_ERROR for truncated BMP, got %v", err)
	}
}

func TestEncodeMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.png")
	err := New(DefaultOptions()).Encode(gradient(2, 2, 0xff), path, imgutil.FormatPNG)
	if !imgutil.Is(err, imgutil.ErrCodeIO) {
		t.Fatalf("expected IO_ERROR, got %v", err)
	}
}

func TestOrient(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	red := color.NRGBA{R: 0xff, A: 0xff}
	src.SetNRGBA(0, 0, red)

	tests := []struct {
		orientation int
		size        image.Point
		at          image.Point
	}{
		{1, image.Pt(3, 2), image.Pt(0, 0)},
		{2, image.Pt(3, 2), image.Pt(2, 0)},
		{3, image.Pt(3, 2), image.Pt(2, 1)},
		{4, image.Pt(3, 2), image.Pt(0, 1)},
		{5, image.Pt(2, 3), image.Pt(0, 0)},
		{6, image.Pt(2, 3), image.Pt(1, 0)},
		{7, image.Pt(2, 3), image.Pt(1, 2)},
		{8, image.Pt(2, 3), image.Pt(0, 2)},
	}

	for _, tt := range tests {
		out := Orient(src, tt.orientation)
		if got := out.Bounds().Size(); got != tt.size {
			t.Fatalf("orientation %d: expected size %v, got %v", tt.orientation, tt.size, got)
		}
		if got := color.NRGBAModel.Convert(out.At(tt.at.X, tt.at.Y)); got != red {
			t.Fatalf("orientation %d: expected red at %v, got %v", tt.orientation, tt.at, got)
		}
	}
}

func TestReadExif(t *testing.T) {
	data := withExif(t, encodeJPEG(t, gradient(4, 2, 0xff)), 6)

	info, err := ReadExif(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read exif: %v", err)
	}
	if info.Model != "TestCam" {
		t.Fatalf("expected model TestCam, got %q", info.Model)
	}
	if info.Timestamp != "2024:01:02 03:04:05" {
		t.Fatalf("unexpected timestamp %q", info.Timestamp)
	}
	if info.Orientation != 6 {
		t.Fatalf("expected orientation 6, got %d", info.Orientation)
	}
}

func TestReadExifAbsent(t *testing.T) {
	var buf bytes.Buffer
	if err := New(DefaultOptions()).EncodeTo(&buf, gradient(2, 2, 0xff), imgutil.FormatPNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	info, err := ReadExif(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("expected no error without exif, got %v", err)
	}
	if info.Orientation != 0 || info.TagCount != 0 {
		t.Fatalf("expected empty info, got %+v", info)
	}
}

func TestDecodeAutoOrient(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotated.jpeg")
	data := withExif(t, encodeJPEG(t, gradient(4, 2, 0xff)), 6)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	plain, err := New(DefaultOptions()).Decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if plain.Bounds().Size() != image.Pt(4, 2) {
		t.Fatalf("expected stored orientation without auto-orient, got %v", plain.Bounds().Size())
	}

	opts := DefaultOptions()
	opts.AutoOrient = true
	upright, err := New(opts).Decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if upright.Bounds().Size() != image.Pt(2, 4) {
		t.Fatalf("expected rotated 2x4 image, got %v", upright.Bounds().Size())
	}
}

func gradient(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: 0x40,
				A: alpha,
			})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// withExif inserts an APP1 segment right after the SOI marker.
func withExif(t *testing.T, jpegData []byte, orientation uint16) []byte {
	t.Helper()
	if len(jpegData) < 2 || jpegData[0] != 0xff || jpegData[1] != 0xd8 {
		t.Fatalf("not a JPEG stream")
	}
	payload := append([]byte("Exif\x00\x00"), buildExifTIFF(orientation)...)

	var buf bytes.Buffer
	buf.Write(jpegData[:2])
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write(jpegData[2:])
	return buf.Bytes()
}

func buildExifTIFF(orientation uint16) []byte {
	var tiff bytes.Buffer
	le := binary.LittleEndian
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, le, uint32(8))
	_ = binary.Write(&tiff, le, uint16(3))
	// Model, ASCII
	_ = binary.Write(&tiff, le, uint16(0x0110))
	_ = binary.Write(&tiff, le, uint16(2))
	_ = binary.Write(&tiff, le, uint32(8))
	_ = binary.Write(&tiff, le, uint32(50))
	// Orientation, SHORT stored inline
	_ = binary.Write(&tiff, le, uint16(0x0112))
	_ = binary.Write(&tiff, le, uint16(3))
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, orientation)
	_ = binary.Write(&tiff, le, uint16(0))
	// DateTime, ASCII
	_ = binary.Write(&tiff, le, uint16(0x0132))
	_ = binary.Write(&tiff, le, uint16(2))
	_ = binary.Write(&tiff, le, uint32(20))
	_ = binary.Write(&tiff, le, uint32(58))
	_ = binary.Write(&tiff, le, uint32(0))
	tiff.Write([]byte("TestCam\x00"))
	tiff.Write([]byte("2024:01:02 03:04:05\x00"))
	return tiff.Bytes()
}

package icon

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"imgzap/pkg/imgutil"
)

// DefaultSizes is the ladder used when no sizes are configured.
var DefaultSizes = []int{16, 32, 48, 64, 128, 256}

// Frame is one PNG-compressed square image of an icon. BitCount and
// ColorCount describe the PNG payload for the directory entry; zero
// BitCount is written as 32.
type Frame struct {
	Size       int
	BitCount   int
	ColorCount int
	Data       []byte
}

// EncodeFrames renders one frame per size. Frames come back in the order of
// sizes regardless of which finishes first.
func EncodeFrames(src image.Image, sizes []int) ([]Frame, error) {
	if err := ValidateSizes(sizes); err != nil {
		return nil, err
	}
	if b := src.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, imgutil.New(imgutil.ErrCodeEncode, "source image is empty")
	}

	frames := make([]Frame, len(sizes))
	var g errgroup.Group
	for i, size := range sizes {
		i, size := i, size
		g.Go(func() error {
			frame, err := encodeFrame(src, size)
			if err != nil {
				return imgutil.Wrap(imgutil.ErrCodeEncode, err, "%dx%d frame", size, size)
			}
			frames[i] = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

func ValidateSizes(sizes []int) error {
	if len(sizes) == 0 {
		return imgutil.New(imgutil.ErrCodeEncode, "no icon sizes requested")
	}
	for _, s := range sizes {
		if s < 1 || s > MaxSize {
			return imgutil.New(imgutil.ErrCodeEncode, "icon size %d outside 1..%d", s, MaxSize)
		}
	}
	return nil
}

func encodeFrame(src image.Image, size int) (Frame, error) {
	resized := imaging.Resize(src, size, size, imaging.Lanczos)
	img := matchLayout(src, resized)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Frame{}, err
	}
	bits, colors := depthOf(img)
	return Frame{Size: size, BitCount: bits, ColorCount: colors, Data: buf.Bytes()}, nil
}

// matchLayout converts the resampled frame back to the source's pixel
// layout where the PNG encoder would otherwise widen it. Resampling runs at
// 8 bits per channel, so 16-bit sources come out as their 8-bit layout.
func matchLayout(src image.Image, resized *image.NRGBA) image.Image {
	bounds := resized.Bounds()
	switch s := src.(type) {
	case *image.Gray, *image.Gray16:
		gray := image.NewGray(bounds)
		draw.Draw(gray, bounds, resized, bounds.Min, draw.Src)
		return gray
	case *image.Paletted:
		if len(s.Palette) == 0 {
			return resized
		}
		pal := image.NewPaletted(bounds, s.Palette)
		draw.Draw(pal, bounds, resized, bounds.Min, draw.Src)
		return pal
	}
	return resized
}

// depthOf reports the bits per pixel image/png writes for img, and the
// palette length for paletted frames (0 when it is 256 or more).
func depthOf(img image.Image) (bits, colors int) {
	switch m := img.(type) {
	case *image.Gray:
		return 8, 0
	case *image.Paletted:
		n := len(m.Palette)
		switch {
		case n <= 2:
			bits = 1
		case n <= 4:
			bits = 2
		case n <= 16:
			bits = 4
		default:
			bits = 8
		}
		if n < 256 {
			colors = n
		}
		return bits, colors
	}
	return 32, 0
}

// Encode writes a complete icon container to w.
func Encode(w io.Writer, src image.Image, sizes []int) error {
	frames, err := EncodeFrames(src, sizes)
	if err != nil {
		return err
	}
	return writeFrames(w, frames)
}

// WriteFile encodes every frame before touching the destination, so a
// failed frame never leaves a partial container behind.
func WriteFile(path string, src image.Image, sizes []int) error {
	frames, err := EncodeFrames(src, sizes)
	if err != nil {
		return err
	}
	return imgutil.WriteFileAtomic(path, func(w io.Writer) error {
		return writeFrames(w, frames)
	})
}

func writeFrames(w io.Writer, frames []Frame) error {
	if err := writeDirectory(w, frames); err != nil {
		return imgutil.Wrap(imgutil.ErrCodeEncode, err, "write icon directory")
	}
	for _, frame := range frames {
		if _, err := w.Write(frame.Data); err != nil {
			return imgutil.Wrap(imgutil.ErrCodeEncode, err, "write %dx%d frame", frame.Size, frame.Size)
		}
	}
	return nil
}

// Package trace turns bitmaps into SVG documents made of flat-colored
// rectangles.
package trace

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"imgzap/pkg/imgutil"
)

const (
	DefaultColorPrecision = 6
	DefaultAlphaThreshold = 128
)

// Options tunes the tracer. Zero values select the defaults.
type Options struct {
	// ColorPrecision is the number of significant bits kept per channel.
	ColorPrecision int
	// Pixels with alpha below AlphaThreshold are left out of the document.
	AlphaThreshold int
}

func (o Options) normalized() (Options, error) {
	if o.ColorPrecision == 0 {
		o.ColorPrecision = DefaultColorPrecision
	}
	if o.AlphaThreshold == 0 {
		o.AlphaThreshold = DefaultAlphaThreshold
	}
	if o.ColorPrecision < 1 || o.ColorPrecision > 8 {
		return o, imgutil.New(imgutil.ErrCodeTracing, "color precision %d outside 1..8", o.ColorPrecision)
	}
	if o.AlphaThreshold < 0 || o.AlphaThreshold > 255 {
		return o, imgutil.New(imgutil.ErrCodeTracing, "alpha threshold %d outside 0..255", o.AlphaThreshold)
	}
	return o, nil
}

type rect struct {
	x, y, w, h int
	color      uint32
}

type runKey struct {
	x0, x1 int
	color  uint32
}

const transparent = ^uint32(0)

// Trace builds an SVG document covering img. Horizontal runs of one color
// are merged, and runs repeating on the following rows grow into taller
// rectangles. Each color becomes a single path, in order of first
// appearance.
func Trace(img image.Image, opts Options) ([]byte, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, imgutil.New(imgutil.ErrCodeTracing, "image is empty")
	}

	src := imaging.Clone(img)
	rects := collectRects(src, opts)

	var order []uint32
	paths := make(map[uint32]*bytes.Buffer)
	for _, r := range rects {
		buf, ok := paths[r.color]
		if !ok {
			buf = &bytes.Buffer{}
			paths[r.color] = buf
			order = append(order, r.color)
		}
		fmt.Fprintf(buf, "M%d %dh%dv%dh-%dz", r.x, r.y, r.w, r.h, r.w)
	}

	var doc bytes.Buffer
	w, h := b.Dx(), b.Dy()
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&doc, `<svg xmlns="http://www.w3.org/2000/svg" version="1.1" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", w, h, w, h)
	for _, c := range order {
		fmt.Fprintf(&doc, `<path fill="#%06x" d="%s"/>`+"\n", c, paths[c].String())
	}
	doc.WriteString("</svg>\n")
	return doc.Bytes(), nil
}

func collectRects(src *image.NRGBA, opts Options) []rect {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	var rects []rect
	open := make(map[runKey]int)

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		next := make(map[runKey]int)

		for x := 0; x < w; {
			c := quantize(row[x*4:x*4+4], opts)
			end := x + 1
			for end < w && quantize(row[end*4:end*4+4], opts) == c {
				end++
			}
			if c != transparent {
				key := runKey{x0: x, x1: end, color: c}
				if idx, ok := open[key]; ok {
					rects[idx].h++
					next[key] = idx
				} else {
					rects = append(rects, rect{x: x, y: y, w: end - x, h: 1, color: c})
					next[key] = len(rects) - 1
				}
			}
			x = end
		}
		open = next
	}
	return rects
}

func quantize(px []uint8, opts Options) uint32 {
	if int(px[3]) < opts.AlphaThreshold {
		return transparent
	}
	p := uint(opts.ColorPrecision)
	return uint32(expand(px[0], p))<<16 | uint32(expand(px[1], p))<<8 | uint32(expand(px[2], p))
}

// expand drops the low bits of v and refills them by repeating the kept
// ones, so full intensity stays 0xff.
func expand(v uint8, precision uint) uint8 {
	kept := v & (0xff << (8 - precision))
	out := kept
	for s := precision; s < 8; s += precision {
		out |= kept >> s
	}
	return out
}

// WriteFile traces img and writes the document to dest. Nothing is written
// when tracing fails.
func WriteFile(img image.Image, dest string, opts Options) error {
	doc, err := Trace(img, opts)
	if err != nil {
		return err
	}
	err = imgutil.WriteFileAtomic(dest, func(w io.Writer) error {
		if _, err := w.Write(doc); err != nil {
			return imgutil.Wrap(imgutil.ErrCodeTracing, err, "write %s", dest)
		}
		return nil
	})
	if err != nil && imgutil.GetCode(err) != imgutil.ErrCodeTracing {
		return imgutil.Wrap(imgutil.ErrCodeTracing, err, "write %s", dest)
	}
	return err
}

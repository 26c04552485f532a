// Package vector renders SVG documents onto fixed-size square canvases.
//
// Only shapes are drawn. No fonts are loaded and image references are not
// resolved, so text and embedded raster images are skipped. A non-square
// document is stretched to fill the canvas rather than letterboxed.
package vector

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/sync/errgroup"

	"imgzap/pkg/imgutil"
)

const (
	DefaultCanvasSize = 256
	MaxCanvasSize     = 16384

	// fallbackUnits sizes documents that declare neither a viewBox nor
	// width and height.
	fallbackUnits = 100
)

// Rasterize renders the SVG at path onto a size×size canvas.
func Rasterize(path string, size int) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()

	img, err := RasterizeReader(f, size)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.GetCode(err), err, "rasterize %s", path)
	}
	return img, nil
}

// RasterizeReader is Rasterize for a document already in memory or in
// flight. The returned image starts at the origin with a tight stride.
func RasterizeReader(r io.Reader, size int) (*image.NRGBA, error) {
	if size <= 0 || size > MaxCanvasSize {
		return nil, imgutil.New(imgutil.ErrCodeAllocation, "canvas size %d outside 1..%d", size, MaxCanvasSize)
	}

	icon, err := parse(r)
	if err != nil {
		return nil, err
	}

	// Independent x and y scales: the whole view box always covers the
	// canvas.
	icon.SetTarget(0, 0, float64(size), float64(size))

	surface := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, surface, surface.Bounds())
	dasher := rasterx.NewDasher(size, size, scanner)
	icon.Draw(dasher, 1.0)

	return unpremultiply(surface)
}

// rootGeometry is what the <svg> element declares about its own size. Zero
// fields were absent or not plain user units.
type rootGeometry struct {
	viewBox       [4]float64
	width, height float64
}

func (g rootGeometry) hasViewBox() bool {
	return g.viewBox[2] > 0 && g.viewBox[3] > 0
}

// readRootGeometry takes viewBox and numeric width and height from the root
// attributes. Relative lengths such as "100%" or "1em" are left at zero.
func readRootGeometry(attrs []xml.Attr) rootGeometry {
	var g rootGeometry
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "viewBox":
			fields := strings.FieldsFunc(attr.Value, func(r rune) bool {
				return r == ',' || unicode.IsSpace(r)
			})
			if len(fields) != 4 {
				continue
			}
			var box [4]float64
			ok := true
			for i, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					ok = false
					break
				}
				box[i] = v
			}
			if ok {
				g.viewBox = box
			}
		case "width":
			g.width = userUnits(attr.Value)
		case "height":
			g.height = userUnits(attr.Value)
		}
	}
	return g
}

func userUnits(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "px"), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

// checkRoot requires well-formed XML whose first element is <svg> and
// returns that element's geometry.
func checkRoot(data []byte) (rootGeometry, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return rootGeometry{}, fmt.Errorf("%w: no root element", imgutil.ErrParse)
			}
			return rootGeometry{}, fmt.Errorf("%w: %v", imgutil.ErrParse, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			if !strings.EqualFold(start.Name.Local, "svg") {
				return rootGeometry{}, fmt.Errorf("%w: root element is <%s>", imgutil.ErrParse, start.Name.Local)
			}
			return readRootGeometry(start.Attr), nil
		}
	}
}

// unpremultiply converts the rendered surface to straight alpha. Rows are
// split into bands handled concurrently; each band owns its slice of Pix.
func unpremultiply(src *image.RGBA) (*image.NRGBA, error) {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	height := bounds.Dy()
	rowBytes := bounds.Dx() * 4

	bands := runtime.GOMAXPROCS(0)
	if bands > height {
		bands = height
	}
	per := (height + bands - 1) / bands

	var g errgroup.Group
	for start := 0; start < height; start += per {
		start, end := start, min(start+per, height)
		g.Go(func() error {
			for y := start; y < end; y++ {
				in := src.Pix[y*src.Stride : y*src.Stride+rowBytes]
				out := dst.Pix[y*dst.Stride : y*dst.Stride+rowBytes]
				for i := 0; i < rowBytes; i += 4 {
					a := in[i+3]
					switch a {
					case 0:
						out[i], out[i+1], out[i+2], out[i+3] = 0, 0, 0, 0
					case 0xff:
						copy(out[i:i+4], in[i:i+4])
					default:
						out[i] = unmul(in[i], a)
						out[i+1] = unmul(in[i+1], a)
						out[i+2] = unmul(in[i+2], a)
						out[i+3] = a
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dst, nil
}

func unmul(c, a uint8) uint8 {
	v := (uint32(c)*0xff + uint32(a)/2) / uint32(a)
	if v > 0xff {
		v = 0xff
	}
	return uint8(v)
}

// Size reports the document's intrinsic size in user units, falling back
// to 100x100 when it declares none.
func Size(r io.Reader) (w, h float64, err error) {
	icon, err := parse(r)
	if err != nil {
		return 0, 0, err
	}
	return icon.ViewBox.W, icon.ViewBox.H, nil
}

func parse(r io.Reader) (*oksvg.SvgIcon, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.ErrCodeIO, err, "read document")
	}
	geom, err := checkRoot(data)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.ErrCodeDecode, err, "parse document")
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, imgutil.Wrap(imgutil.ErrCodeDecode, fmt.Errorf("%w: %v", imgutil.ErrParse, err), "parse document")
	}

	// oksvg stops reading the root attributes at the first length it cannot
	// parse, which drops a viewBox declared after width="100%".
	switch {
	case geom.hasViewBox():
		icon.ViewBox.X, icon.ViewBox.Y = geom.viewBox[0], geom.viewBox[1]
		icon.ViewBox.W, icon.ViewBox.H = geom.viewBox[2], geom.viewBox[3]
	case geom.width > 0 && geom.height > 0:
		icon.ViewBox.X, icon.ViewBox.Y = 0, 0
		icon.ViewBox.W, icon.ViewBox.H = geom.width, geom.height
	case icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0:
		icon.ViewBox.X, icon.ViewBox.Y = 0, 0
		icon.ViewBox.W, icon.ViewBox.H = fallbackUnits, fallbackUnits
	}
	return icon, nil
}

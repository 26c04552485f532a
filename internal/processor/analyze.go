package processor

import (
	"bytes"
	"fmt"
	"os"

	"imgzap/internal/icon"
	"imgzap/internal/raster"
	"imgzap/internal/vector"
	"imgzap/pkg/imgutil"
)

// Report describes one file for the inspect command.
type Report struct {
	Path   string
	Format imgutil.Format
	Width  int
	Height int
	// Frames lists icon directory entries in file order.
	Frames []icon.Entry
	Exif   raster.ExifInfo
	Text   PNGText
}

func (r Report) Dimensions() string {
	if r.Width == 0 && r.Height == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Inspect reads what can be learned about a file without converting it.
func Inspect(path string) (Report, error) {
	report := Report{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return report, imgutil.Wrap(imgutil.ErrCodeIO, err, "read %s", path)
	}
	report.Format = imgutil.DetectHeader(data)

	switch {
	case report.Format == imgutil.FormatUnknown:
		return report, imgutil.New(imgutil.ErrCodeUnsupported, "%s is not a supported image", path)
	case report.Format.IsVector():
		w, h, err := vector.Size(bytes.NewReader(data))
		if err != nil {
			return report, err
		}
		report.Width, report.Height = int(w), int(h)
	case report.Format.IsContainer():
		entries, err := icon.ReadDirectory(data)
		if err != nil {
			return report, err
		}
		report.Frames = entries
		if best := icon.Largest(entries); best >= 0 {
			report.Width, report.Height = entries[best].Width, entries[best].Height
		}
	default:
		cfg, _, err := raster.DecodeConfig(path)
		if err != nil {
			return report, err
		}
		report.Width, report.Height = cfg.Width, cfg.Height
	}

	switch report.Format {
	case imgutil.FormatJPEG, imgutil.FormatTIFF, imgutil.FormatPNG, imgutil.FormatWEBP:
		if info, err := raster.ReadExif(bytes.NewReader(data)); err == nil {
			report.Exif = info
		}
	}
	if report.Format == imgutil.FormatPNG {
		if text, err := readPNGText(bytes.NewReader(data)); err == nil {
			report.Text = text
		}
	}
	return report, nil
}

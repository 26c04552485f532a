package raster

import (
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
)

// ExifInfo holds the handful of EXIF fields the converter cares about.
type ExifInfo struct {
	Model       string
	Timestamp   string
	Orientation int
	TagCount    int
}

// ReadExif searches rs for an EXIF block. A file without one yields a zero
// ExifInfo and no error.
func ReadExif(rs io.ReadSeeker) (ExifInfo, error) {
	info := ExifInfo{}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return info, err
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		if isNoExif(err) {
			return info, nil
		}
		return info, fmt.Errorf("read exif: %w", err)
	}

	info.TagCount = len(tags)
	for _, tag := range tags {
		switch tag.TagName {
		case "Model", "CameraModelName":
			if info.Model == "" {
				info.Model = strings.TrimSpace(strings.TrimRight(tag.Formatted, "\x00"))
			}
		case "DateTimeOriginal", "DateTimeDigitized", "DateTime":
			if info.Timestamp == "" || tag.TagName == "DateTimeOriginal" {
				info.Timestamp = strings.TrimSpace(tag.Formatted)
			}
		case "Orientation":
			if tag.IfdPath == "IFD" || info.Orientation == 0 {
				info.Orientation = orientationValue(tag)
			}
		}
	}

	return info, nil
}

func orientationValue(tag exif.ExifTag) int {
	switch v := tag.Value.(type) {
	case []uint16:
		if len(v) > 0 {
			return int(v[0])
		}
	case uint16:
		return int(v)
	}
	raw := strings.Trim(tag.Formatted, "[] ")
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return 0
}

func isNoExif(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no exif")
}

// Orient applies an EXIF orientation (1-8) so the image displays upright.
// Unknown values leave the image untouched.
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

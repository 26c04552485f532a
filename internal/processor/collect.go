package processor

import (
	"io/fs"
	"os"
	"path/filepath"

	"imgzap/pkg/imgutil"
)

// Collect builds a selection from files and directories. Directories are
// walked one level deep, or fully when recursive is set. Every file is
// classified by content; files that are not a supported image, or cannot be
// read, are returned as ignored.
func Collect(paths []string, recursive bool) (Selection, []string, error) {
	sel := Selection{}
	var ignored []string

	add := func(path string) {
		format, err := imgutil.SniffFile(path)
		if err != nil || format == imgutil.FormatUnknown {
			ignored = append(ignored, path)
			return
		}
		sel[path] = Entry{Format: format, Included: true}
	}

	for _, root := range paths {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil {
			return nil, nil, imgutil.Wrap(imgutil.ErrCodeIO, err, "stat %s", root)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = fs.WalkDir(os.DirFS(root), ".", func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != "." && !recursive {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			add(filepath.Join(root, filepath.FromSlash(path)))
			return nil
		})
		if err != nil {
			return nil, nil, imgutil.Wrap(imgutil.ErrCodeIO, err, "walk %s", root)
		}
	}

	return sel, ignored, nil
}

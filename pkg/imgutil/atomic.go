package imgutil

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic produces dest through a temporary file in the same
// directory. If write or any file operation fails, dest is left untouched
// and the temporary file is removed. Errors returned by write are passed
// through unchanged so callers keep their own error codes.
func WriteFileAtomic(dest string, write func(w io.Writer) error) error {
	dir := filepath.Dir(dest)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return Wrap(ErrCodeIO, err, "create temp file in %s", dir)
	}
	defer os.Remove(tmpFile.Name())

	bw := bufio.NewWriter(tmpFile)
	if err := write(bw); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmpFile.Close()
		return Wrap(ErrCodeIO, err, "write %s", dest)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return Wrap(ErrCodeIO, err, "chmod %s", tmpFile.Name())
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return Wrap(ErrCodeIO, err, "sync %s", dest)
	}
	if err := tmpFile.Close(); err != nil {
		return Wrap(ErrCodeIO, err, "close %s", dest)
	}

	if err := replaceFile(tmpFile.Name(), dest); err != nil {
		return Wrap(ErrCodeIO, err, "rename into %s", dest)
	}
	return nil
}

// WriteBytesAtomic is WriteFileAtomic for an in-memory payload.
func WriteBytesAtomic(dest string, data []byte) error {
	return WriteFileAtomic(dest, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return Wrap(ErrCodeIO, err, "write %s", dest)
		}
		return nil
	})
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

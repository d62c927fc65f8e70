package rf2

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is a release file on disk.
type File struct {
	path string
}

func NewFile(path string) File { return File{path: path} }

func (f File) Name() string { return f.path }

func (f File) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// ZipEntry is a file inside a release archive. Each Open reopens the archive.
type ZipEntry struct {
	archive string
	entry   string
}

func NewZipEntry(archive, entry string) ZipEntry {
	return ZipEntry{archive: archive, entry: entry}
}

func (z ZipEntry) Name() string { return z.entry }

func (z ZipEntry) String() string { return filepath.Base(z.archive) + ":" + z.entry }

type zipReadCloser struct {
	io.ReadCloser
	zr *zip.ReadCloser
}

func (z zipReadCloser) Close() error {
	err := z.ReadCloser.Close()
	if zerr := z.zr.Close(); err == nil {
		err = zerr
	}
	return err
}

func (z ZipEntry) Open() (io.ReadCloser, error) {
	zr, err := zip.OpenReader(z.archive)
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name != z.entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, err
		}
		return zipReadCloser{ReadCloser: rc, zr: zr}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("entry %q not found in %s: %w", z.entry, z.archive, os.ErrNotExist)
}

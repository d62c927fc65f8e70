// Package rf2 reads terminology release content: files and archive
// entries, delimited rows in batches, and RF2 field values.
package rf2

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/TermGraph/importspec"
	slog "github.com/TermGraph/syslog"
)

const logid = "rf2: "

func syslog(s string) {
	slog.Log(logid, s)
}

// Discover builds the specifications of every importable file under root,
// a directory or a zip archive, in import order. Only RF2 files of release
// type want are imported; files of another release type and unrecognised
// files are returned in ignored. A malformed dynamic reference set name is
// an error.
func Discover(root string, want importspec.Release) (specs []*importspec.Spec, ignored []string, err error) {

	add := func(src importspec.Source) error {
		if r := importspec.ReleaseOf(src.Name()); r != importspec.Unversioned && r != want {
			ignored = append(ignored, src.Name())
			syslog(fmt.Sprintf("ignore %s release %s", src.Name(), r))
			return nil
		}
		s, err := importspec.Detect(src)
		if errors.Is(err, importspec.ErrUnknown) {
			ignored = append(ignored, src.Name())
			syslog(fmt.Sprintf("ignore %s", src.Name()))
			return nil
		}
		if err != nil {
			return err
		}
		syslog(fmt.Sprintf("found %s", s))
		specs = append(specs, s)
		return nil
	}

	if strings.EqualFold(filepath.Ext(root), ".zip") {
		zr, err := zip.OpenReader(root)
		if err != nil {
			return nil, nil, err
		}
		defer zr.Close()
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			if err := add(NewZipEntry(root, f.Name)); err != nil {
				return nil, nil, err
			}
		}
	} else {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			return add(NewFile(path))
		})
		if err != nil {
			return nil, nil, err
		}
	}

	importspec.Sort(specs)
	return specs, ignored, nil
}

package rf2

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TermGraph/importspec"
	"github.com/TermGraph/importunit"
)

// Format is the row layout of a content stream.
type Format struct {
	Delim  rune
	Header bool
	// Quoted fields (CSV) are decoded with encoding/csv
	Quoted bool
}

var (
	// RF2 release files and ClinVar summaries
	Tab = Format{Delim: '\t', Header: true}
	// RRF (RxNorm) and CVX
	Pipe = Format{Delim: '|'}
	// LOINC and LIVD exports
	CSV = Format{Delim: ',', Header: true, Quoted: true}
)

// FormatOf returns the row layout of kind.
func FormatOf(k importunit.Kind) Format {
	switch k {
	case importunit.RxNormConso, importunit.Cvx:
		return Pipe
	case importunit.Loinc, importunit.Livd:
		return CSV
	}
	return Tab
}

const maxLine = 4 << 20

// Reader reads rows of a content stream in batches.
type Reader struct {
	sc   *bufio.Scanner
	csvr *csv.Reader
	f    Format
	line int
}

func NewReader(r io.Reader, f Format) (*Reader, error) {
	rdr := &Reader{f: f}
	if f.Quoted {
		rdr.csvr = csv.NewReader(r)
		rdr.csvr.Comma = f.Delim
		rdr.csvr.FieldsPerRecord = -1
		rdr.csvr.LazyQuotes = true
	} else {
		rdr.sc = bufio.NewScanner(r)
		rdr.sc.Buffer(make([]byte, 64*1024), maxLine)
	}
	if f.Header {
		if _, err := rdr.row(); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading header: %w", err)
		}
	}
	return rdr, nil
}

func (r *Reader) row() ([]string, error) {
	r.line++
	if r.csvr != nil {
		return r.csvr.Read()
	}
	for r.sc.Scan() {
		l := strings.TrimRight(r.sc.Text(), "\r")
		if len(l) == 0 {
			r.line++
			continue
		}
		return strings.Split(l, string(r.f.Delim)), nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Next returns up to n rows. It returns io.EOF, with no rows, once the
// stream is exhausted.
func (r *Reader) Next(n int) ([][]string, error) {
	rows := make([][]string, 0, n)
	for len(rows) < n {
		row, err := r.row()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("line %d: %w", r.line, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}
	return rows, nil
}

// Batches streams the rows of spec in batches of size and calls fn for
// each batch, in file order.
func Batches(spec *importspec.Spec, size int, fn func(rows [][]string) error) error {
	rc, err := spec.Source.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	rdr, err := NewReader(rc, FormatOf(spec.Kind))
	if err != nil {
		return fmt.Errorf("%s: %w", spec.Name(), err)
	}
	for {
		rows, err := rdr.Next(size)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Name(), err)
		}
		if err := fn(rows); err != nil {
			return err
		}
	}
}

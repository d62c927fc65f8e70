// Package importspec pairs content sources with their import unit kind and
// puts them in import order.
package importspec

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/importunit"
)

// Source is a named content stream that can be read more than once.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

var (
	// ErrNoMarker: a dynamic source name has no reference set marker.
	ErrNoMarker = errors.New("source name has no reference set marker")
	// ErrTypeCode: a type code letter is not one of i, c, s, b, f.
	ErrTypeCode = errors.New("unrecognised type code")
	// ErrUnknown: a source name does not match any import unit kind.
	ErrUnknown = errors.New("unrecognised content source")
)

// Naming convention markers. Release files name the column type code
// immediately before the marker, e.g. der2_cciRefset_... or
// der2_cciAssemblage_... (solor).
const (
	refsetMarker     = "refset_"
	assemblageMarker = "assemblage_"
)

// Spec is one content source to import. Specs are equal when kind and
// source name are equal.
type Spec struct {
	Source Source
	Kind   importunit.Kind
	// Solor is set when the source follows the "assemblage_" naming convention.
	Solor bool

	types []ds.DataType
}

// New returns the specification of a non-dynamic source.
func New(src Source, kind importunit.Kind, solor bool) (*Spec, error) {
	if kind == importunit.Dynamic {
		return nil, fmt.Errorf("source %q: dynamic units must be created with NewDynamic", src.Name())
	}
	return &Spec{Source: src, Kind: kind, Solor: solor}, nil
}

// NewDynamic returns the specification of a dynamic reference set whose
// column types are read from name.
func NewDynamic(src Source, name string, solor bool) (*Spec, error) {
	types, err := ParseTypeCodes(name, solor)
	if err != nil {
		return nil, err
	}
	return &Spec{Source: src, Kind: importunit.Dynamic, Solor: solor, types: types}, nil
}

func (s *Spec) Name() string { return s.Source.Name() }

// Types returns the column types of a dynamic unit, nil otherwise.
func (s *Spec) Types() []ds.DataType { return s.types }

// Shape returns the version shape rows of this unit are written with.
func (s *Spec) Shape() (ds.VersionShape, error) {
	if s.Kind == importunit.Dynamic {
		return ds.VersionShape{Name: s.Kind.String(), Fields: s.types}, nil
	}
	return importunit.Shape(s.Kind)
}

func (s *Spec) Equal(o *Spec) bool {
	return s.Kind == o.Kind && s.Name() == o.Name()
}

func (s *Spec) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Name())
}

// ParseTypeCodes returns the column types encoded in name: the letters
// between the preceding underscore and the naming convention's marker.
// i is an integer, c an internal reference, s a string, b a boolean and
// f a float.
func ParseTypeCodes(name string, solor bool) ([]ds.DataType, error) {
	marker := refsetMarker
	if solor {
		marker = assemblageMarker
	}
	lname := strings.ToLower(name)
	m := strings.Index(lname, marker)
	if m < 0 {
		return nil, fmt.Errorf("%q (expected %q): %w", name, marker, ErrNoMarker)
	}
	token := lname[strings.LastIndex(lname[:m], "_")+1 : m]

	types := make([]ds.DataType, 0, len(token))
	for _, r := range token {
		switch r {
		case 'i':
			types = append(types, ds.I)
		case 'c':
			types = append(types, ds.Nd)
		case 's':
			types = append(types, ds.S)
		case 'b':
			types = append(types, ds.Bl)
		case 'f':
			types = append(types, ds.F)
		default:
			return nil, fmt.Errorf("%q in %q: %w", r, name, ErrTypeCode)
		}
	}
	return types, nil
}

// IsDescriptor reports whether name is the reference set descriptor, the
// stream that defines the layout of every other reference set.
func IsDescriptor(name string) bool {
	l := strings.ToLower(name)
	return strings.Contains(l, "refsetdescriptor") || strings.Contains(l, "assemblagedescriptor")
}

// Compare orders specs by kind precedence. Within a kind the descriptor
// comes first, then source names in lexical order.
func Compare(a, b *Spec) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	ad, bd := IsDescriptor(a.Name()), IsDescriptor(b.Name())
	switch {
	case ad && !bd:
		return -1
	case bd && !ad:
		return 1
	}
	return strings.Compare(a.Name(), b.Name())
}

func Less(a, b *Spec) bool { return Compare(a, b) < 0 }

// Sort puts specs in import order. It performs no I/O.
func Sort(specs []*Spec) {
	sort.SliceStable(specs, func(i, j int) bool { return Less(specs[i], specs[j]) })
}

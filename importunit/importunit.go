// Package importunit catalogues the kinds of content stream a load imports.
// Declaration order of Kind is import precedence: a row referencing a
// concept is never written before that concept.
package importunit

import (
	"errors"
	"fmt"

	"github.com/TermGraph/ds"
)

type Kind int

const (
	Concept Kind = iota
	Description
	Dialect
	StatedRelationship
	InferredRelationship
	AlternativeIdentifier

	// fixed-shape reference sets
	Member
	Nid1
	Int1
	Str1
	Nid1Nid2
	Nid1Int2
	Nid1Str2
	Nid1Nid2Int3
	Nid1Nid2Str3
	Str1Str2
	Str1Str2Nid3Nid4
	Str1Str2Nid3Nid4Nid5
	Int1Int2Str3Str4Str5Nid6Nid7
	Str1Str2Str3Str4Str5Str6Str7

	Dynamic

	// external vocabularies
	RxNormConso
	Loinc
	ClinVar
	Cvx
	Livd

	nKinds
)

var names = [nKinds]string{
	"Concept", "Description", "Dialect", "StatedRelationship", "InferredRelationship", "AlternativeIdentifier",
	"Member", "Nid1", "Int1", "Str1", "Nid1Nid2", "Nid1Int2", "Nid1Str2", "Nid1Nid2Int3", "Nid1Nid2Str3",
	"Str1Str2", "Str1Str2Nid3Nid4", "Str1Str2Nid3Nid4Nid5", "Int1Int2Str3Str4Str5Nid6Nid7", "Str1Str2Str3Str4Str5Str6Str7",
	"Dynamic",
	"RxNormConso", "Loinc", "ClinVar", "Cvx", "Livd",
}

func (k Kind) String() string {
	if k < 0 || k >= nKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return names[k]
}

// Kinds returns every kind in import order.
func Kinds() []Kind {
	ks := make([]Kind, nKinds)
	for i := range ks {
		ks[i] = Kind(i)
	}
	return ks
}

// Refset reports whether k is a fixed-shape reference set.
func (k Kind) Refset() bool { return k >= Member && k <= Str1Str2Str3Str4Str5Str6Str7 }

// Vocabulary reports whether k is an external vocabulary.
func (k Kind) Vocabulary() bool { return k >= RxNormConso && k < nKinds }

// ErrNoShape is returned for kinds that are not written as a single field tuple.
var ErrNoShape = errors.New("import unit kind has no version shape")

const (
	i = ds.I
	c = ds.Nd
	s = ds.S
)

var shapes = map[Kind][]ds.DataType{
	Member:                       {},
	Nid1:                         {c},
	Int1:                         {i},
	Str1:                         {s},
	Nid1Nid2:                     {c, c},
	Nid1Int2:                     {c, i},
	Nid1Str2:                     {c, s},
	Nid1Nid2Int3:                 {c, c, i},
	Nid1Nid2Str3:                 {c, c, s},
	Str1Str2:                     {s, s},
	Str1Str2Nid3Nid4:             {s, s, c, c},
	Str1Str2Nid3Nid4Nid5:         {s, s, c, c, c},
	Int1Int2Str3Str4Str5Nid6Nid7: {i, i, s, s, s, c, c},
	Str1Str2Str3Str4Str5Str6Str7: {s, s, s, s, s, s, s},

	// identifier semantics of vocabulary concepts
	AlternativeIdentifier: {s},
	RxNormConso:           {s},
	Loinc:                 {s},
	ClinVar:               {s},
	Cvx:                   {s},
	Livd:                  {s},
}

// Shape returns the version shape of a fixed-shape kind. The shape of a
// Dynamic unit comes from its specification.
func Shape(k Kind) (ds.VersionShape, error) {
	f, ok := shapes[k]
	if !ok {
		return ds.VersionShape{}, fmt.Errorf("%s: %w", k, ErrNoShape)
	}
	fields := make([]ds.DataType, len(f))
	copy(fields, f)
	return ds.VersionShape{Name: k.String(), Fields: fields}, nil
}

// Codes returns the RF2 file name type code of a fixed-shape reference set,
// e.g. "cci" for Nid1Nid2Int3.
func Codes(k Kind) (string, bool) {
	if !k.Refset() {
		return "", false
	}
	b := make([]byte, 0, len(shapes[k]))
	for _, dt := range shapes[k] {
		b = append(b, code(dt))
	}
	return string(b), true
}

func code(dt ds.DataType) byte {
	switch dt {
	case ds.I:
		return 'i'
	case ds.Nd:
		return 'c'
	case ds.S:
		return 's'
	case ds.Bl:
		return 'b'
	case ds.F:
		return 'f'
	}
	return '?'
}

// ByCodes returns the fixed-shape reference set kind for an RF2 type code.
func ByCodes(codes string) (Kind, bool) {
	for k := Member; k <= Str1Str2Str3Str4Str5Str6Str7; k++ {
		if c, _ := Codes(k); c == codes {
			return k, true
		}
	}
	return 0, false
}

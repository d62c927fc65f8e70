package ds

import (
	"fmt"
	"strings"

	"github.com/TermGraph/uuid"
)

// Nid is the compact internal identifier the identity service assigns to a UUID.
type Nid int32

// Stamp is the handle returned by the stamp service for a
// (status, time, author, module, path) tuple.
type Stamp int32

// DataType is the type of a single field of a version. The codes follow the
// type letters used in dynamic reference set file names.
type DataType byte

const (
	I  DataType = iota + 1 // integer
	Nd                     // internal reference (nid)
	S                      // string
	Bl                     // boolean
	F                      // float
)

func (d DataType) String() string {
	switch d {
	case I:
		return "I"
	case Nd:
		return "Nd"
	case S:
		return "S"
	case Bl:
		return "Bl"
	case F:
		return "F"
	}
	return "NA"
}

// VersionType identifies the layout of a semantic's versions.
type VersionType byte

const (
	Member VersionType = iota + 1 // membership only, no fields
	Description
	String
	Relationship
	Fields // generic typed field tuple, layout given by a VersionShape
)

func (v VersionType) String() string {
	switch v {
	case Member:
		return "Member"
	case Description:
		return "Description"
	case String:
		return "String"
	case Relationship:
		return "Relationship"
	case Fields:
		return "Fields"
	}
	return "NA"
}

// VersionShape is the ordered tuple of typed fields a version carries.
type VersionShape struct {
	Name   string
	Fields []DataType
}

func (v VersionShape) String() string {
	var s strings.Builder
	s.WriteString(v.Name)
	s.WriteByte('[')
	for i, f := range v.Fields {
		if i > 0 {
			s.WriteByte(',')
		}
		s.WriteString(f.String())
	}
	s.WriteByte(']')
	return s.String()
}

// Field is a single typed value. Value holds int64, Nid, string, bool or float64
// according to DT.
type Field struct {
	DT    DataType
	Value interface{}
}

func Int(i int64) Field        { return Field{DT: I, Value: i} }
func NidField(n Nid) Field     { return Field{DT: Nd, Value: n} }
func Str(s string) Field       { return Field{DT: S, Value: s} }
func Bool(b bool) Field        { return Field{DT: Bl, Value: b} }
func Float(f float64) Field    { return Field{DT: F, Value: f} }
func (f Field) String() string { return fmt.Sprintf("%s:%v", f.DT, f.Value) }

// Version is one stamped state of a chronology.
type Version struct {
	Stamp  Stamp
	Fields []Field
}

// Concept is a concept chronology. Concept versions carry no fields.
type Concept struct {
	Nid        Nid
	UUID       uuid.UID
	Assemblage Nid
	Versions   []Version
}

func (c *Concept) AddVersion(st Stamp) {
	c.Versions = append(c.Versions, Version{Stamp: st})
}

// Semantic is a semantic chronology: a typed annotation on a referenced
// component, owned by an assemblage (reference set).
type Semantic struct {
	Nid        Nid
	UUID       uuid.UID
	Type       VersionType
	Assemblage Nid
	Component  Nid
	Versions   []Version
}

func (s *Semantic) AddVersion(st Stamp, fields ...Field) {
	s.Versions = append(s.Versions, Version{Stamp: st, Fields: fields})
}

// Description field positions
const (
	DescCaseSignificance = iota
	DescType
	DescLanguage
	DescText
)

// Relationship field positions
const (
	RelDestination = iota
	RelType
	RelGroup
	RelCharacteristic
	RelModifier
)

// NewDescriptionVersion lays out the fields of a description version.
func NewDescriptionVersion(caseSig, descType, lang Nid, text string) []Field {
	return []Field{NidField(caseSig), NidField(descType), NidField(lang), Str(text)}
}

// NewRelationshipVersion lays out the fields of an RF2 relationship version.
func NewRelationshipVersion(dest, relType Nid, group int64, characteristic, modifier Nid) []Field {
	return []Field{NidField(dest), NidField(relType), Int(group), NidField(characteristic), NidField(modifier)}
}

// Text returns the string content of the latest version, used for indexing.
func (s *Semantic) Text() string {
	if len(s.Versions) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range s.Versions[len(s.Versions)-1].Fields {
		if v, ok := f.Value.(string); ok {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(v)
		}
	}
	return b.String()
}

// Conforms reports whether fields match the data types of shape.
func (v VersionShape) Conforms(fields []Field) error {
	if len(fields) != len(v.Fields) {
		return fmt.Errorf("shape %s expects %d fields, got %d", v, len(v.Fields), len(fields))
	}
	for i, f := range fields {
		if f.DT != v.Fields[i] {
			return fmt.Errorf("shape %s field %d expects %s, got %s", v, i, v.Fields[i], f.DT)
		}
	}
	return nil
}

package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/TermGraph/ds"
)

// Store is the graph write contract used by writers and the regrouping pass.
// Writes are durable per call and idempotent: writing a chronology again
// merges its versions by stamp. Implementations are safe for concurrent use.
type Store interface {
	WriteConcept(ctx context.Context, c *ds.Concept) error
	WriteSemantic(ctx context.Context, s *ds.Semantic) error
	// ConceptNids calls fn, in nid order, for every concept in assemblage.
	ConceptNids(ctx context.Context, assemblage ds.Nid, fn func(ds.Nid) error) error
	// SemanticNids returns the nids of the semantics in assemblage that reference component.
	SemanticNids(ctx context.Context, component, assemblage ds.Nid) ([]ds.Nid, error)
	Close() error
}

// Chronology kinds as stored
const (
	KindConcept  = "C"
	KindSemantic = "S"
)

// EncodeVersion renders a version as a single string: the stamp followed by
// each field as <type>:<value>, separated by '|'. String values are quoted.
func EncodeVersion(v ds.Version) string {
	var s strings.Builder
	s.WriteString(strconv.FormatInt(int64(v.Stamp), 10))
	for _, f := range v.Fields {
		s.WriteByte('|')
		s.WriteString(f.DT.String())
		s.WriteByte(':')
		switch x := f.Value.(type) {
		case string:
			s.WriteString(strconv.Quote(x))
		case ds.Nid:
			s.WriteString(strconv.FormatInt(int64(x), 10))
		case int64:
			s.WriteString(strconv.FormatInt(x, 10))
		case bool:
			s.WriteString(strconv.FormatBool(x))
		case float64:
			s.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		default:
			s.WriteString(strconv.Quote(fmt.Sprint(x)))
		}
	}
	return s.String()
}

func encodeVersions(vs []ds.Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = EncodeVersion(v)
	}
	return out
}

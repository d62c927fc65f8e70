// Package regroup gathers the relationships of each concept by premise and
// dispatches them, in batches, for logical definition transformation.
package regroup

import (
	"sort"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/termaux"
)

type Premise byte

const (
	Stated Premise = iota
	Inferred
)

func (p Premise) String() string {
	if p == Stated {
		return "stated"
	}
	return "inferred"
}

// Assemblage is the relationship assemblage of the premise.
func (p Premise) Assemblage() termaux.Concept {
	if p == Stated {
		return termaux.StatedAssemblage
	}
	return termaux.InferredAssemblage
}

// Key identifies a group. A concept has one group per premise.
type Key struct {
	Concept ds.Nid
	Premise Premise
}

// Group is the set of relationships of a concept under one premise.
// Groups are immutable.
type Group struct {
	concept ds.Nid
	rels    []ds.Nid
	premise Premise
}

// NewGroup copies rels into ascending order without duplicates.
func NewGroup(concept ds.Nid, rels []ds.Nid, premise Premise) Group {
	rs := append([]ds.Nid(nil), rels...)
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
	out := rs[:0]
	for i, r := range rs {
		if i == 0 || r != rs[i-1] {
			out = append(out, r)
		}
	}
	return Group{concept: concept, rels: out, premise: premise}
}

func (g Group) Concept() ds.Nid    { return g.concept }
func (g Group) Premise() Premise   { return g.premise }
func (g Group) Len() int           { return len(g.rels) }
func (g Group) Key() Key           { return Key{g.concept, g.premise} }
func (g Group) Equal(o Group) bool { return g.Key() == o.Key() }

// Relationships returns a copy of the relationship nids.
func (g Group) Relationships() []ds.Nid {
	return append([]ds.Nid(nil), g.rels...)
}

package db

import (
	"context"
	"sort"
	"sync"

	"github.com/TermGraph/ds"
)

type refKey struct {
	component  ds.Nid
	assemblage ds.Nid
}

// Memory is an in-process Store.
type Memory struct {
	sync.RWMutex
	concepts  map[ds.Nid]*ds.Concept
	semantics map[ds.Nid]*ds.Semantic
	byAsm     map[ds.Nid]map[ds.Nid]struct{}
	byRef     map[refKey]map[ds.Nid]struct{}
	writes    int
}

func NewMemory() *Memory {
	return &Memory{
		concepts:  make(map[ds.Nid]*ds.Concept),
		semantics: make(map[ds.Nid]*ds.Semantic),
		byAsm:     make(map[ds.Nid]map[ds.Nid]struct{}),
		byRef:     make(map[refKey]map[ds.Nid]struct{}),
	}
}

// mergeVersions appends the versions of in whose stamp is not already held.
func mergeVersions(have, in []ds.Version) []ds.Version {
	for _, v := range in {
		dup := false
		for _, h := range have {
			if h.Stamp == v.Stamp {
				dup = true
				break
			}
		}
		if !dup {
			have = append(have, v)
		}
	}
	return have
}

func add(m map[ds.Nid]struct{}, n ds.Nid) map[ds.Nid]struct{} {
	if m == nil {
		m = make(map[ds.Nid]struct{})
	}
	m[n] = struct{}{}
	return m
}

func (m *Memory) WriteConcept(ctx context.Context, c *ds.Concept) error {
	m.Lock()
	defer m.Unlock()
	m.writes++
	if have, ok := m.concepts[c.Nid]; ok {
		have.Versions = mergeVersions(have.Versions, c.Versions)
		return nil
	}
	cp := *c
	cp.Versions = append([]ds.Version(nil), c.Versions...)
	m.concepts[c.Nid] = &cp
	m.byAsm[c.Assemblage] = add(m.byAsm[c.Assemblage], c.Nid)
	return nil
}

func (m *Memory) WriteSemantic(ctx context.Context, s *ds.Semantic) error {
	m.Lock()
	defer m.Unlock()
	m.writes++
	if have, ok := m.semantics[s.Nid]; ok {
		have.Versions = mergeVersions(have.Versions, s.Versions)
		return nil
	}
	cp := *s
	cp.Versions = append([]ds.Version(nil), s.Versions...)
	m.semantics[s.Nid] = &cp
	k := refKey{s.Component, s.Assemblage}
	m.byRef[k] = add(m.byRef[k], s.Nid)
	return nil
}

func sortedNids(set map[ds.Nid]struct{}) []ds.Nid {
	nids := make([]ds.Nid, 0, len(set))
	for n := range set {
		nids = append(nids, n)
	}
	sort.Slice(nids, func(i, j int) bool { return nids[i] < nids[j] })
	return nids
}

func (m *Memory) ConceptNids(ctx context.Context, assemblage ds.Nid, fn func(ds.Nid) error) error {
	m.RLock()
	nids := sortedNids(m.byAsm[assemblage])
	m.RUnlock()
	for _, n := range nids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) SemanticNids(ctx context.Context, component, assemblage ds.Nid) ([]ds.Nid, error) {
	m.RLock()
	defer m.RUnlock()
	return sortedNids(m.byRef[refKey{component, assemblage}]), nil
}

func (m *Memory) Close() error { return nil }

// Concept returns a copy of the concept chronology nid.
func (m *Memory) Concept(nid ds.Nid) (ds.Concept, bool) {
	m.RLock()
	defer m.RUnlock()
	c, ok := m.concepts[nid]
	if !ok {
		return ds.Concept{}, false
	}
	cp := *c
	cp.Versions = append([]ds.Version(nil), c.Versions...)
	return cp, true
}

// Semantic returns a copy of the semantic chronology nid.
func (m *Memory) Semantic(nid ds.Nid) (ds.Semantic, bool) {
	m.RLock()
	defer m.RUnlock()
	s, ok := m.semantics[nid]
	if !ok {
		return ds.Semantic{}, false
	}
	return copySemantic(s), true
}

func copySemantic(s *ds.Semantic) ds.Semantic {
	cp := *s
	cp.Versions = append([]ds.Version(nil), s.Versions...)
	return cp
}

// Semantics returns copies of every semantic in assemblage, in nid order.
func (m *Memory) Semantics(assemblage ds.Nid) []ds.Semantic {
	m.RLock()
	defer m.RUnlock()
	var out []ds.Semantic
	for _, s := range m.semantics {
		if s.Assemblage == assemblage {
			out = append(out, copySemantic(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nid < out[j].Nid })
	return out
}

// Counts returns the number of concepts, semantics and write calls.
func (m *Memory) Counts() (concepts, semantics, writes int) {
	m.RLock()
	defer m.RUnlock()
	return len(m.concepts), len(m.semantics), m.writes
}

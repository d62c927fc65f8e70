// Package stamp allocates version stamps.
package stamp

import (
	"sync"
	"time"

	"github.com/TermGraph/ds"
)

type Status byte

const (
	Inactive Status = iota
	Active
)

func (s Status) String() string {
	if s == Active {
		return "Active"
	}
	return "Inactive"
}

// StatusOf returns Active for true.
func StatusOf(active bool) Status {
	if active {
		return Active
	}
	return Inactive
}

// Record is the content a stamp stands for.
type Record struct {
	Status Status
	Time   time.Time
	Author ds.Nid
	Module ds.Nid
	Path   ds.Nid
}

// Service hands out the stamp of a record. Implementations that persist
// stamps return the same stamp for a record across loads.
type Service interface {
	Stamp(status Status, t time.Time, author, module, path ds.Nid) (ds.Stamp, error)
}

type key struct {
	status Status
	time   int64
	author ds.Nid
	module ds.Nid
	path   ds.Nid
}

func (k key) args() []any {
	return []any{int8(k.status), k.time, int32(k.author), int32(k.module), int32(k.path)}
}

// Memory hands out one stamp per distinct record. Every row of a release
// with the same status, effective time and module shares a stamp.
type Memory struct {
	sync.RWMutex
	stamps map[key]ds.Stamp
	recs   []Record
}

func NewMemory() *Memory {
	return &Memory{stamps: make(map[key]ds.Stamp)}
}

func (m *Memory) Stamp(status Status, t time.Time, author, module, path ds.Nid) (ds.Stamp, error) {
	k := key{status, t.UnixNano(), author, module, path}

	m.RLock()
	s, ok := m.stamps[k]
	m.RUnlock()
	if ok {
		return s, nil
	}

	m.Lock()
	defer m.Unlock()
	if s, ok = m.stamps[k]; ok {
		return s, nil
	}
	m.recs = append(m.recs, Record{status, t.UTC(), author, module, path})
	s = ds.Stamp(len(m.recs))
	m.stamps[k] = s
	return s, nil
}

func (m *Memory) Get(s ds.Stamp) (Record, bool) {
	m.RLock()
	defer m.RUnlock()
	if s < 1 || int(s) > len(m.recs) {
		return Record{}, false
	}
	return m.recs[s-1], true
}

func (m *Memory) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.recs)
}

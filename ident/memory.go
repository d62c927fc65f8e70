package ident

import (
	"sync"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/uuid"
)

// Memory is an in-process identity service. Nids are assigned sequentially from 1.
type Memory struct {
	sync.RWMutex
	nids map[[16]byte]ds.Nid
	uids []uuid.UID // uids[nid-1]
}

func NewMemory() *Memory {
	return &Memory{nids: make(map[[16]byte]ds.Nid)}
}

func (m *Memory) Resolve(u uuid.UID) (ds.Nid, error) {
	m.RLock()
	n, ok := m.nids[u.Key()]
	m.RUnlock()
	if !ok {
		return 0, notFound(u)
	}
	return n, nil
}

func (m *Memory) HasIdentity(u uuid.UID) bool {
	m.RLock()
	_, ok := m.nids[u.Key()]
	m.RUnlock()
	return ok
}

func (m *Memory) Assign(u uuid.UID) (ds.Nid, error) {
	k := u.Key()
	m.RLock()
	n, ok := m.nids[k]
	m.RUnlock()
	if ok {
		return n, nil
	}
	m.Lock()
	defer m.Unlock()
	if n, ok = m.nids[k]; ok {
		return n, nil
	}
	m.uids = append(m.uids, append(uuid.UID(nil), u...))
	n = ds.Nid(len(m.uids))
	m.nids[k] = n
	return n, nil
}

// UID returns the UUID assigned nid n.
func (m *Memory) UID(n ds.Nid) (uuid.UID, bool) {
	m.RLock()
	defer m.RUnlock()
	if n < 1 || int(n) > len(m.uids) {
		return nil, false
	}
	return m.uids[n-1], true
}

func (m *Memory) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.uids)
}

package ident

import (
	"errors"
	"sync"
	"testing"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMiss(t *testing.T) {
	m := NewMemory()
	u := uuid.FromSCTID("138875005")

	_, err := m.Resolve(u)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, m.HasIdentity(u))
}

func TestAssignIsGetOrCreate(t *testing.T) {
	m := NewMemory()
	a := uuid.FromSCTID("138875005")
	b := uuid.FromSCTID("900000000000207008")

	na, err := m.Assign(a)
	require.NoError(t, err)
	nb, err := m.Assign(b)
	require.NoError(t, err)
	again, err := m.Assign(a)
	require.NoError(t, err)

	assert.Equal(t, ds.Nid(1), na)
	assert.Equal(t, ds.Nid(2), nb)
	assert.Equal(t, na, again)

	r, err := m.Resolve(b)
	require.NoError(t, err)
	assert.Equal(t, nb, r)
	assert.True(t, m.HasIdentity(a))

	u, ok := m.UID(nb)
	require.True(t, ok)
	assert.True(t, u.Equal(b))
	_, ok = m.UID(3)
	assert.False(t, ok)
}

func TestConcurrentAssignUnique(t *testing.T) {
	m := NewMemory()
	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}

	var wg sync.WaitGroup
	results := make([][]ds.Nid, 16)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for _, id := range ids {
				n, _ := m.Assign(uuid.FromSCTID(id))
				results[g] = append(results[g], n)
			}
		}(g)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, len(ids), m.Len())
}

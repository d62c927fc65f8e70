package stamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStampSharedForSameTuple(t *testing.T) {
	m := NewMemory()
	et := time.Date(2021, 7, 31, 0, 0, 0, 0, time.UTC)

	a, err := m.Stamp(Active, et, 1, 2, 3)
	require.NoError(t, err)
	b, err := m.Stamp(Active, et, 1, 2, 3)
	require.NoError(t, err)
	c, err := m.Stamp(Inactive, et, 1, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, m.Len())

	rec, ok := m.Get(c)
	require.True(t, ok)
	assert.Equal(t, Inactive, rec.Status)
	assert.True(t, et.Equal(rec.Time))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, Active, StatusOf(true))
	assert.Equal(t, "Inactive", StatusOf(false).String())
}

var _ Service = (*MySQL)(nil)

func TestKeyArgsIgnoreZone(t *testing.T) {
	utc := time.Date(2021, 7, 31, 0, 0, 0, 0, time.UTC)
	syd := utc.In(time.FixedZone("AEST", 10*3600))

	a := key{Active, utc.UnixNano(), 1, 2, 3}.args()
	b := key{Active, syd.UnixNano(), 1, 2, 3}.args()
	assert.Equal(t, a, b)
	assert.Equal(t, []any{int8(1), utc.UnixNano(), int32(1), int32(2), int32(3)}, a)
}

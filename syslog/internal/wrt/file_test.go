package wrt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileRotatesId(t *testing.T) {
	dir := t.TempDir()

	f, name, err := NewFile(dir, "TermGraph")
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, filepath.Join(dir, "TermGraph.a.log"), name)

	f, name, err = NewFile(dir, "TermGraph")
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, filepath.Join(dir, "TermGraph.b.log"), name)
}

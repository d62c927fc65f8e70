package monitor

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowsAndBatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Row("Description", Written)
	m.Row("Description", Written)
	m.Row("Description", Skipped)
	m.Batch("Description", Done, 0.25)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rows.WithLabelValues("Description", Written)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rows.WithLabelValues("Description", Skipped)))
	assert.Equal(t, int64(2), m.Total("rows.written"))
	assert.Equal(t, int64(1), m.Total("batches.done"))
}

func TestTransformUnits(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.TransformUnit("stated", 10240)
	m.TransformUnit("stated", 4520)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transformUnits.WithLabelValues("stated")))
	assert.Equal(t, int64(14760), m.Total("transform.groups"))
}

func TestPermitGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	running := 3
	m.Permits("writer", func() int { return running }, func() int { return 16 })

	n, err := testutil.GatherAndCount(reg, "termgraph_permits_in_use", "termgraph_permits")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReport(t *testing.T) {
	m := New(nil)
	m.Row("Concept", Written)
	var buf bytes.Buffer
	m.Report(&buf)
	assert.Contains(t, buf.String(), "rows.written")
}

package loader

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TermGraph/db"
	"github.com/TermGraph/ds"
	elog "github.com/TermGraph/errlog"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/histogram"
	"github.com/TermGraph/ident"
	"github.com/TermGraph/importspec"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/monitor"
	"github.com/TermGraph/regroup"
	"github.com/TermGraph/rf2"
	"github.com/TermGraph/stamp"
	"github.com/TermGraph/tasks"
	"github.com/TermGraph/termaux"
	"github.com/TermGraph/uuid"
	"github.com/TermGraph/writer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	root     = "138875005"
	lung     = "39607008"
	disorder = "64572001"
	core     = "900000000000207008"
	isa      = "116680003"
)

func tsv(rows ...string) string {
	return strings.Join(rows, "\n") + "\n"
}

func release(t *testing.T) string {
	dir := t.TempDir()
	files := map[string]string{
		"Terminology/sct2_Concept_Snapshot_INT_20230131.txt": tsv(
			"id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId",
			root+"\t20020131\t1\t"+core+"\t900000000000074008",
			lung+"\t20020131\t1\t"+core+"\t900000000000074008",
			disorder+"\t20020131\t0\t"+core+"\t900000000000074008",
		),
		"Terminology/sct2_Description_Snapshot-en_INT_20230131.txt": tsv(
			"id\teffectiveTime\tactive\tmoduleId\tconceptId\tlanguageCode\ttypeId\tterm\tcaseSignificanceId",
			"680946014\t20170731\t1\t"+core+"\t"+root+"\ten\t900000000000013009\tSNOMED CT Concept\t900000000000448009",
			"66001014\t20020131\t1\t"+core+"\t"+lung+"\ten\t900000000000013009\tLung structure\t900000000000448009",
			"106511014\t20020131\t1\t"+core+"\t"+disorder+"\ten\t900000000000013009\tDisorder\t900000000000448009",
		),
		"Terminology/sct2_StatedRelationship_Snapshot_INT_20230131.txt": tsv(
			"id\teffectiveTime\tactive\tmoduleId\tsourceId\tdestinationId\trelationshipGroup\ttypeId\tcharacteristicTypeId\tmodifierId",
			"100022\t20020131\t1\t"+core+"\t"+lung+"\t"+root+"\t0\t"+isa+"\t900000000000010007\t900000000000451002",
		),
		"Refset/Language/der2_cRefset_LanguageSnapshot-en_INT_20230131.txt": tsv(
			"id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId\tacceptabilityId",
			"a2a63a4f-0a4e-5c8e-9a4c-2a6f3b8e1d11\t20020131\t1\t"+core+"\t900000000000509007\t680946014\t900000000000548007",
		),
		"RxNorm/RXNCONSO.RRF": "161|ENG|P|L|PF|S|Y|A|||SCUI|SNOMEDCT_US|PT|" + root + "|SNOMED CT Concept|4|N||\n",
		"cvx.txt":             "03|MMR|measles, mumps and rubella virus vaccine||Active|False|2010/05/28\n",
		"Readme.txt":          "release notes",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

type notified struct {
	sync.Mutex
	n int
}

func (l *notified) NotifyRefresh() {
	l.Lock()
	l.n++
	l.Unlock()
}

func startErrlog(t *testing.T) *elog.Service {
	errs := elog.New()
	ctx, cancel := context.WithCancel(context.Background())
	var wpStart, wgEnd sync.WaitGroup
	wpStart.Add(1)
	wgEnd.Add(1)
	go errs.PowerOn(ctx, &wpStart, &wgEnd)
	wpStart.Wait()
	t.Cleanup(func() {
		cancel()
		wgEnd.Wait()
	})
	return errs
}

func TestImportActiveOnly(t *testing.T) {
	errs := startErrlog(t)

	ids, store := ident.NewMemory(), db.NewMemory()
	env := &writer.Env{
		Ident:   ids,
		Stamps:  stamp.NewMemory(),
		Store:   store,
		Errs:    errs,
		Tracker: tasks.NewRegistry(),
		Monitor: monitor.New(prometheus.NewRegistry()),
		Hist:    histogram.NewSet(60000),
		Mode:    writer.ActiveOnly,
		Release: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	specs, ignored, err := rf2.Discover(release(t), env.Mode.Release())
	require.NoError(t, err)
	require.Len(t, specs, 6)
	require.Len(t, ignored, 1)

	permits := grmgr.New("writers", 2, nil)
	ex := tasks.NewExecutor(context.Background(), 2, 2, errs)
	defer ex.Shutdown()

	logic := &regroup.Counter{}
	ls := &notified{}
	im := New(env, permits, ex)
	im.BatchSize = 1
	im.Transformer = regroup.New(store, ids, permits, ex, logic, ls)

	require.NoError(t, im.Import(context.Background(), specs))

	nid := func(u uuid.UID) ds.Nid {
		n, err := ids.Resolve(u)
		require.NoError(t, err)
		return n
	}

	// concepts: root, lung and the CVX vaccine. The inactive concept is not imported.
	concepts, _, _ := store.Counts()
	assert.Equal(t, 3, concepts)
	assert.False(t, ids.HasIdentity(uuid.FromSCTID(disorder)))

	// every description of an imported concept is written because concepts
	// complete before descriptions start
	en := store.Semantics(nid(termaux.EnglishDescriptionAssemblage.UUID))
	var texts []string
	for _, s := range en {
		texts = append(texts, s.Text())
	}
	assert.ElementsMatch(t, []string{"SNOMED CT Concept", "Lung structure", "MMR", "measles, mumps and rubella virus vaccine"}, texts)

	rels := store.Semantics(nid(termaux.StatedAssemblage.UUID))
	require.Len(t, rels, 1)
	assert.Equal(t, nid(uuid.FromSCTID(lung)), rels[0].Component)

	dialect := store.Semantics(nid(uuid.FromSCTID("900000000000509007")))
	require.Len(t, dialect, 1)
	assert.Equal(t, nid(uuid.FromSCTID("680946014")), dialect[0].Component)

	rx := store.Semantics(nid(termaux.RxNormCuiAssemblage.UUID))
	require.Len(t, rx, 1)
	assert.Equal(t, nid(uuid.FromSCTID(root)), rx[0].Component)

	// regrouping saw every concept under both premises
	assert.Equal(t, int64(2), logic.Units.Load())
	assert.Equal(t, int64(6), logic.Groups.Load())
	assert.Equal(t, int64(1), logic.Relationships.Load())
	assert.Equal(t, 1, ls.n)
	assert.Equal(t, 0, permits.Running())

	sum := errs.Summary()
	assert.Equal(t, 0, sum.TotalErrors())
	assert.Equal(t, 1, sum.Skips["writer.description"])

	var out bytes.Buffer
	im.Report(&out)
	assert.Contains(t, out.String(), "ERRORS : 0  SKIPPED : 1")
	assert.Contains(t, out.String(), "LOAD STATISTICS")
	assert.Contains(t, out.String(), "BATCH LATENCY")
}

type unreadable string

func (u unreadable) Name() string { return string(u) }
func (u unreadable) Open() (io.ReadCloser, error) {
	return nil, os.ErrPermission
}

func TestUnreadableSourceIsReported(t *testing.T) {
	errs := startErrlog(t)
	store := db.NewMemory()
	env := &writer.Env{Ident: ident.NewMemory(), Stamps: stamp.NewMemory(), Store: store, Errs: errs, Mode: writer.Snapshot}

	dir := release(t)
	bad, err := importspec.New(unreadable("sct2_Concept_Snapshot_A.txt"), importunit.Concept, false)
	require.NoError(t, err)
	good, err := importspec.New(rf2.NewFile(filepath.Join(dir, "Terminology", "sct2_Concept_Snapshot_INT_20230131.txt")), importunit.Concept, false)
	require.NoError(t, err)

	permits := grmgr.New("writers", 2, nil)
	ex := tasks.NewExecutor(context.Background(), 2, 2, errs)
	defer ex.Shutdown()

	require.NoError(t, New(env, permits, ex).Import(context.Background(), []*importspec.Spec{good, bad}))

	concepts, _, _ := store.Counts()
	assert.Equal(t, 3, concepts)
	assert.Equal(t, 1, errs.Summary().Errors["loader"])
}

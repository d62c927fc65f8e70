package rf2

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/importspec"
	"github.com/TermGraph/importunit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const concepts = "id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId\n" +
	"138875005\t20020131\t1\t900000000000207008\t900000000000074008\n" +
	"\n" +
	"404684003\t20020131\t1\t900000000000207008\t900000000000074008\r\n" +
	"123037004\t20020131\t0\t900000000000207008\t900000000000074008\n"

func TestReaderBatches(t *testing.T) {
	rdr, err := NewReader(strings.NewReader(concepts), Tab)
	require.NoError(t, err)

	rows, err := rdr.Next(2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "138875005", rows[0][0])
	assert.Equal(t, "900000000000074008", rows[1][4])

	rows, err = rdr.Next(2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0", rows[0][2])

	_, err = rdr.Next(2)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReaderPipe(t *testing.T) {
	rrf := "1|ENG|P|L|PF|S|Y|A|||SCUI|SNOMEDCT_US|PT|22298006|Myocardial infarction|4|N||\n"
	rdr, err := NewReader(strings.NewReader(rrf), Pipe)
	require.NoError(t, err)
	rows, err := rdr.Next(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SNOMEDCT_US", rows[0][11])
	assert.Equal(t, "22298006", rows[0][13])
	assert.Equal(t, "N", rows[0][16])
}

func TestReaderCSV(t *testing.T) {
	in := "\"LOINC_NUM\",\"COMPONENT\"\n\"1-8\",\"Acyclovir, \"\"free\"\"\"\n"
	rdr, err := NewReader(strings.NewReader(in), CSV)
	require.NoError(t, err)
	rows, err := rdr.Next(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1-8", `Acyclovir, "free"`}, rows[0])
}

func TestReaderHeaderOnly(t *testing.T) {
	rdr, err := NewReader(strings.NewReader("id\tname\n"), Tab)
	require.NoError(t, err)
	_, err = rdr.Next(5)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, Tab, FormatOf(importunit.Concept))
	assert.Equal(t, Tab, FormatOf(importunit.ClinVar))
	assert.Equal(t, Pipe, FormatOf(importunit.RxNormConso))
	assert.Equal(t, CSV, FormatOf(importunit.Loinc))
}

func TestParseEffectiveTime(t *testing.T) {
	tm, err := ParseEffectiveTime("20230131")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), tm)
	assert.Equal(t, "2023-01-31T00:00:00Z", tm.Format(time.RFC3339))

	_, err = ParseEffectiveTime("2023-01-31")
	assert.Error(t, err)
}

func TestParseActive(t *testing.T) {
	a, err := ParseActive("1")
	require.NoError(t, err)
	assert.True(t, a)
	a, err = ParseActive("0")
	require.NoError(t, err)
	assert.False(t, a)
	_, err = ParseActive("y")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	resolve := func(s string) (ds.Nid, error) {
		if s == "404684003" {
			return 7, nil
		}
		return 0, errors.New("unknown")
	}
	f, err := ParseValue(ds.I, "42", resolve)
	require.NoError(t, err)
	assert.Equal(t, ds.Int(42), f)

	f, err = ParseValue(ds.Nd, "404684003", resolve)
	require.NoError(t, err)
	assert.Equal(t, ds.NidField(7), f)

	f, err = ParseValue(ds.F, "1.5", resolve)
	require.NoError(t, err)
	assert.Equal(t, ds.Float(1.5), f)

	f, err = ParseValue(ds.Bl, "true", resolve)
	require.NoError(t, err)
	assert.Equal(t, ds.Bool(true), f)

	_, err = ParseValue(ds.I, "x", resolve)
	assert.Error(t, err)
	_, err = ParseValue(ds.Nd, "1", resolve)
	assert.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func kindsOf(specs []*importspec.Spec) []importunit.Kind {
	var ks []importunit.Kind
	for _, s := range specs {
		ks = append(ks, s.Kind)
	}
	return ks
}

func TestDiscoverDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Refset", "der2_cRefset_LanguageSnapshot-en_INT_20230131.txt"), "h\n")
	writeFile(t, filepath.Join(dir, "Terminology", "sct2_Description_Snapshot-en_INT_20230131.txt"), "h\n")
	writeFile(t, filepath.Join(dir, "Terminology", "sct2_Concept_Snapshot_INT_20230131.txt"), concepts)
	writeFile(t, filepath.Join(dir, "Readme.txt"), "x")

	specs, ignored, err := Discover(dir, importspec.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, []importunit.Kind{importunit.Concept, importunit.Description, importunit.Dialect}, kindsOf(specs))
	require.Len(t, ignored, 1)
	assert.Contains(t, ignored[0], "Readme.txt")

	var n int
	err = Batches(specs[0], 2, func(rows [][]string) error {
		n += len(rows)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDiscoverBadDynamicName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "der2_ixRefset_BadSnapshot.txt"), "h\n")
	_, _, err := Discover(dir, importspec.Snapshot)
	assert.True(t, errors.Is(err, importspec.ErrTypeCode))
}

func TestDiscoverZip(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "release.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"Snapshot/Terminology/sct2_Concept_Snapshot_INT_20230131.txt": concepts,
		"Snapshot/Refset/der2_iissscRefset_MRCMSnapshot.txt":          "h\n",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	specs, _, err := Discover(archive, importspec.Snapshot)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, importunit.Concept, specs[0].Kind)
	assert.Equal(t, importunit.Dynamic, specs[1].Kind)
	assert.Len(t, specs[1].Types(), 6)

	var batches [][][]string
	err = Batches(specs[0], 10, func(rows [][]string) error {
		batches = append(batches, rows)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)

	_, err = NewZipEntry(archive, "missing.txt").Open()
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDiscoverSelectsRelease(t *testing.T) {
	dir := t.TempDir()
	for _, r := range []string{"Full", "Snapshot", "Delta"} {
		writeFile(t, filepath.Join(dir, r, "Terminology", "sct2_Concept_"+r+"_INT_20230131.txt"), concepts)
		writeFile(t, filepath.Join(dir, r, "Refset", "Language", "der2_cRefset_Language"+r+"-en_INT_20230131.txt"), "h\n")
	}
	writeFile(t, filepath.Join(dir, "cvx.txt"), "03|MMR|measles||Active|False|2010/05/28\n")

	for _, tc := range []struct {
		want importspec.Release
		dir  string
	}{
		{importspec.Snapshot, "Snapshot"},
		{importspec.Full, "Full"},
	} {
		specs, ignored, err := Discover(dir, tc.want)
		require.NoError(t, err)
		assert.Equal(t, []importunit.Kind{importunit.Concept, importunit.Dialect, importunit.Cvx}, kindsOf(specs), tc.dir)
		for _, s := range specs[:2] {
			assert.Contains(t, s.Name(), string(filepath.Separator)+tc.dir+string(filepath.Separator))
		}
		assert.Len(t, ignored, 4)
	}
}

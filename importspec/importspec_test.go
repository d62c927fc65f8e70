package importspec

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/importunit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type src string

func (s src) Name() string                 { return string(s) }
func (s src) Open() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("")), nil }

func spec(t *testing.T, name string, kind importunit.Kind) *Spec {
	s, err := New(src(name), kind, false)
	require.NoError(t, err)
	return s
}

func TestParseTypeCodesRefset(t *testing.T) {
	types, err := ParseTypeCodes("der2_iissscRefset_MRCMAttributeRangeSnapshot_INT_20230131.txt", false)
	require.NoError(t, err)
	assert.Equal(t, []ds.DataType{ds.I, ds.I, ds.S, ds.S, ds.S, ds.Nd}, types)
}

func TestParseTypeCodesAssemblage(t *testing.T) {
	types, err := ParseTypeCodes("der2_bfAssemblage_ExampleSnapshot.txt", true)
	require.NoError(t, err)
	assert.Equal(t, []ds.DataType{ds.Bl, ds.F}, types)

	// the flag selects the convention
	_, err = ParseTypeCodes("der2_bfAssemblage_ExampleSnapshot.txt", false)
	assert.True(t, errors.Is(err, ErrNoMarker))
}

func TestParseTypeCodesEmptyToken(t *testing.T) {
	types, err := ParseTypeCodes("der2_Refset_SimpleSnapshot.txt", false)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestNewDynamicErrors(t *testing.T) {
	_, err := NewDynamic(src("x"), "der2_iisxscRefset_Bad.txt", false)
	assert.True(t, errors.Is(err, ErrTypeCode))

	_, err = NewDynamic(src("x"), "sct2_Concept_Snapshot.txt", false)
	assert.True(t, errors.Is(err, ErrNoMarker))

	_, err = New(src("x"), importunit.Dynamic, false)
	assert.Error(t, err)
}

func TestDynamicShape(t *testing.T) {
	s, err := NewDynamic(src("a"), "der2_ciRefset_A.txt", false)
	require.NoError(t, err)
	sh, err := s.Shape()
	require.NoError(t, err)
	assert.Equal(t, []ds.DataType{ds.Nd, ds.I}, sh.Fields)

	_, err = spec(t, "c", importunit.Concept).Shape()
	assert.True(t, errors.Is(err, importunit.ErrNoShape))
}

func TestEquality(t *testing.T) {
	a := spec(t, "one", importunit.Description)
	b, _ := New(src("one"), importunit.Description, true)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(spec(t, "one", importunit.Concept)))
	assert.False(t, a.Equal(spec(t, "two", importunit.Description)))
}

func TestSortByKindPrecedence(t *testing.T) {
	specs := []*Spec{
		spec(t, "a", importunit.RxNormConso),
		spec(t, "b", importunit.Nid1),
		spec(t, "c", importunit.StatedRelationship),
		spec(t, "d", importunit.Description),
		spec(t, "e", importunit.Concept),
	}
	Sort(specs)
	var kinds []importunit.Kind
	for _, s := range specs {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []importunit.Kind{importunit.Concept, importunit.Description, importunit.StatedRelationship, importunit.Nid1, importunit.RxNormConso}, kinds)
}

func TestDescriptorSortsFirstWithinKind(t *testing.T) {
	specs := []*Spec{
		spec(t, "der2_cciRefset_AAA.txt", importunit.Nid1Nid2Int3),
		spec(t, "der2_cciRefset_ZZZ.txt", importunit.Nid1Nid2Int3),
		spec(t, "der2_cciRefset_RefsetDescriptorSnapshot.txt", importunit.Nid1Nid2Int3),
		spec(t, "der2_cRefset_Z.txt", importunit.Nid1),
	}
	Sort(specs)
	assert.Equal(t, "der2_cRefset_Z.txt", specs[0].Name())
	assert.Equal(t, "der2_cciRefset_RefsetDescriptorSnapshot.txt", specs[1].Name())
	assert.Equal(t, "der2_cciRefset_AAA.txt", specs[2].Name())
	assert.Equal(t, "der2_cciRefset_ZZZ.txt", specs[3].Name())
}

func TestCompareDescriptorRule(t *testing.T) {
	d := spec(t, "zzz_AssemblageDescriptor", importunit.Member)
	o := spec(t, "aaa", importunit.Member)
	assert.Equal(t, -1, Compare(d, o))
	assert.Equal(t, 1, Compare(o, d))
	assert.Equal(t, 0, Compare(o, o))
	assert.True(t, IsDescriptor("der2_cciRefset_RefsetDescriptorFull_INT.txt"))
	assert.False(t, IsDescriptor("der2_cciRefset_Other.txt"))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		kind  importunit.Kind
		solor bool
	}{
		{"Snapshot/Terminology/sct2_Concept_Snapshot_INT_20230131.txt", importunit.Concept, false},
		{"sct2_Description_Snapshot-en_INT_20230131.txt", importunit.Description, false},
		{"sct2_TextDefinition_Snapshot-en_INT_20230131.txt", importunit.Description, false},
		{"sct2_StatedRelationship_Snapshot_INT_20230131.txt", importunit.StatedRelationship, false},
		{"sct2_Relationship_Snapshot_INT_20230131.txt", importunit.InferredRelationship, false},
		{"sct2_Identifier_Snapshot_INT_20230131.txt", importunit.AlternativeIdentifier, false},
		{"der2_cRefset_LanguageSnapshot-en_INT_20230131.txt", importunit.Dialect, false},
		{"der2_Refset_SimpleSnapshot_INT_20230131.txt", importunit.Member, false},
		{"der2_cciRefset_RefsetDescriptorSnapshot_INT_20230131.txt", importunit.Nid1Nid2Int3, false},
		{"der2_iissscRefset_MRCMAttributeRangeSnapshot.txt", importunit.Dynamic, false},
		{"der2_ssAssemblage_MapSnapshot.txt", importunit.Str1Str2, true},
		{"RXNCONSO.RRF", importunit.RxNormConso, false},
		{"Loinc.csv", importunit.Loinc, false},
		{"variant_summary.txt", importunit.ClinVar, false},
		{"cvx.txt", importunit.Cvx, false},
		{"LIVD_SARS-CoV-2.csv", importunit.Livd, false},
	}
	for _, c := range cases {
		k, solor, ok := Classify(c.name)
		require.True(t, ok, c.name)
		assert.Equal(t, c.kind, k, c.name)
		assert.Equal(t, c.solor, solor, c.name)
	}

	_, _, ok := Classify("readme.txt")
	assert.False(t, ok)
}

func TestDetect(t *testing.T) {
	s, err := Detect(src("der2_iissscRefset_MRCMAttributeRangeSnapshot.txt"))
	require.NoError(t, err)
	assert.Equal(t, importunit.Dynamic, s.Kind)
	assert.Len(t, s.Types(), 6)

	_, err = Detect(src("notes.md"))
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestReleaseOf(t *testing.T) {
	for name, want := range map[string]Release{
		"SnomedCT/Full/Terminology/sct2_Concept_Full_INT_20230131.txt":         Full,
		"Snapshot/Terminology/sct2_Description_Snapshot-en_INT_20230131.txt":   Snapshot,
		"Delta/Refset/Language/der2_cRefset_LanguageDelta-en_INT_20230131.txt": Delta,
		"der2_iissscRefset_MRCMAttributeRangeSnapshot_INT_20230131.txt":        Snapshot,
		`C:\Release\Full\sct2_StatedRelationship_Snapshot_INT_20230131.txt`:    Snapshot,
		"RxNorm/RXNCONSO.RRF":  Unversioned,
		"Loinc/Full/loinc.csv": Unversioned,
		"sct2_Concept_INT.txt": Unversioned,
	} {
		assert.Equal(t, want, ReleaseOf(name), name)
	}
	assert.Equal(t, "Delta", Delta.String())
}

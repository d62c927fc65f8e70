package importspec

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/TermGraph/importunit"
)

var rf2Prefixes = []struct {
	prefix string
	kind   importunit.Kind
}{
	{"sct2_concept_", importunit.Concept},
	{"sct2_description_", importunit.Description},
	{"sct2_textdefinition_", importunit.Description},
	{"sct2_statedrelationship_", importunit.StatedRelationship},
	{"sct2_relationship_", importunit.InferredRelationship},
	{"sct2_identifier_", importunit.AlternativeIdentifier},
}

// Classify returns the import unit kind of a release file name and whether
// it follows the "assemblage_" naming convention. ok is false for files
// that are not imported.
func Classify(name string) (kind importunit.Kind, solor bool, ok bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	l := strings.ToLower(base)

	for _, p := range rf2Prefixes {
		if strings.HasPrefix(l, p.prefix) {
			return p.kind, false, true
		}
	}

	if strings.HasPrefix(l, "der2_") {
		rest := l[len("der2_"):]
		m := strings.Index(rest, refsetMarker)
		if a := strings.Index(rest, assemblageMarker); a >= 0 && (m < 0 || a < m) {
			m, solor = a, true
		}
		if m < 0 || strings.Contains(rest[:m], "_") {
			return 0, false, false
		}
		codes := rest[:m]
		if codes == "c" && strings.Contains(l, "language") {
			return importunit.Dialect, solor, true
		}
		if k, ok := importunit.ByCodes(codes); ok {
			return k, solor, true
		}
		return importunit.Dynamic, solor, true
	}

	switch {
	case l == "rxnconso.rrf":
		return importunit.RxNormConso, false, true
	case l == "loinc.csv":
		return importunit.Loinc, false, true
	case strings.HasPrefix(l, "variant_summary"):
		return importunit.ClinVar, false, true
	case strings.HasPrefix(l, "cvx"):
		return importunit.Cvx, false, true
	case strings.Contains(l, "livd"):
		return importunit.Livd, false, true
	}
	return 0, false, false
}

// Release is the release type of an RF2 file: every row version (Full),
// the latest version of each component (Snapshot) or the changes since the
// previous release (Delta). Vocabulary files are Unversioned.
type Release byte

const (
	Unversioned Release = iota
	Full
	Snapshot
	Delta
)

func (r Release) String() string {
	switch r {
	case Full:
		return "Full"
	case Snapshot:
		return "Snapshot"
	case Delta:
		return "Delta"
	}
	return "Unversioned"
}

// sct2_Concept_Full_INT_..., der2_cRefset_LanguageSnapshot-en_INT_...
var releaseRx = regexp.MustCompile(`(full|snapshot|delta)(?:[-_.]|$)`)

// ReleaseOf returns the release type named in an RF2 file name.
func ReleaseOf(name string) Release {
	l := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if !strings.HasPrefix(l, "sct2_") && !strings.HasPrefix(l, "der2_") {
		return Unversioned
	}
	m := releaseRx.FindAllStringSubmatch(l, -1)
	if len(m) == 0 {
		return Unversioned
	}
	switch m[len(m)-1][1] {
	case "full":
		return Full
	case "snapshot":
		return Snapshot
	}
	return Delta
}

// Detect builds the specification of src from its name.
func Detect(src Source) (*Spec, error) {
	kind, solor, ok := Classify(src.Name())
	if !ok {
		return nil, fmt.Errorf("%q: %w", src.Name(), ErrUnknown)
	}
	if kind == importunit.Dynamic {
		return NewDynamic(src, path.Base(src.Name()), solor)
	}
	return New(src, kind, solor)
}

package writer

import (
	"context"
	"sort"
	"strings"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/stamp"
	"github.com/TermGraph/termaux"
	"github.com/TermGraph/uuid"
)

// Vocabulary describes the layout of an external vocabulary file whose rows
// are concepts.
type Vocabulary struct {
	Kind       importunit.Kind
	Assemblage termaux.Concept
	Arity      int
	// Code returns the native code of a row
	Code func(r []string) string
	// Active reports the status of a row. nil: every row is active.
	Active func(r []string) bool
	// Descriptions maps a column to the SCTID of the description type its
	// text is written as.
	Descriptions map[int]string
}

func col(i int) func([]string) string {
	return func(r []string) string { return strings.TrimSpace(r[i]) }
}

// Vocabularies are the external vocabularies imported as concepts.
var Vocabularies = map[importunit.Kind]Vocabulary{
	importunit.Loinc: {
		Kind:       importunit.Loinc,
		Assemblage: termaux.LoincAssemblage,
		Arity:      26,
		Code:       col(0),
		Active: func(r []string) bool {
			s := strings.ToUpper(strings.TrimSpace(r[11]))
			return s == "ACTIVE" || s == "TRIAL"
		},
		// LONG_COMMON_NAME, SHORTNAME
		Descriptions: map[int]string{25: termaux.SctFullySpecifiedName, 20: termaux.SctSynonym},
	},
	importunit.ClinVar: {
		Kind:         importunit.ClinVar,
		Assemblage:   termaux.ClinVarAssemblage,
		Arity:        3,
		Code:         col(0),
		Descriptions: map[int]string{2: termaux.SctFullySpecifiedName},
	},
	importunit.Cvx: {
		Kind:       importunit.Cvx,
		Assemblage: termaux.CvxAssemblage,
		Arity:      5,
		Code:       col(0),
		Active: func(r []string) bool {
			return strings.EqualFold(strings.TrimSpace(r[4]), "Active")
		},
		// full vaccine name, short description
		Descriptions: map[int]string{2: termaux.SctFullySpecifiedName, 1: termaux.SctSynonym},
	},
	importunit.Livd: {
		Kind:       importunit.Livd,
		Assemblage: termaux.LivdAssemblage,
		Arity:      7,
		// manufacturer, model, vendor analyte code
		Code: func(r []string) string {
			return uuid.Composite(strings.TrimSpace(r[0]), strings.TrimSpace(r[1]), strings.TrimSpace(r[6]))
		},
		// vendor analyte name
		Descriptions: map[int]string{2: termaux.SctFullySpecifiedName},
	},
}

func (v Vocabulary) status(b *Batch, r []string) error {
	if v.Active != nil && !v.Active(r) && b.env.Mode == ActiveOnly {
		return errSkip
	}
	return nil
}

func (v Vocabulary) active(r []string) bool {
	return v.Active == nil || v.Active(r)
}

// concept returns the UUID and nid of the concept of code.
func (v Vocabulary) concept(b *Batch, code string) (uuid.UID, ds.Nid, error) {
	u, err := uuid.FromAssemblage(v.Assemblage.UUID, code)
	if err != nil {
		return nil, 0, err
	}
	nid, err := b.nid(u)
	return u, nid, err
}

func (v Vocabulary) vocabStamp(b *Batch, r []string) (ds.Stamp, error) {
	module, err := b.nid(termaux.VocabularyModule.UUID)
	if err != nil {
		return 0, err
	}
	return b.stamp(stamp.StatusOf(v.active(r)), b.env.Release, module)
}

type genericConceptRow struct {
	v Vocabulary
}

func (w genericConceptRow) arity() int            { return w.v.Arity }
func (w genericConceptRow) key(r []string) string { return w.v.Code(r) }

// NewGenericConceptWriter writes one concept per vocabulary row, with the
// row's code as an identifier semantic in the vocabulary's assemblage.
func NewGenericConceptWriter(env *Env, permits *grmgr.Limiter, v Vocabulary, rows [][]string) *Batch {
	return newBatch(env, permits, v.Kind, "concept."+strings.ToLower(v.Kind.String()), rows, genericConceptRow{v: v})
}

func (w genericConceptRow) write(ctx context.Context, b *Batch, r []string) error {

	if err := w.v.status(b, r); err != nil {
		return err
	}
	code := w.v.Code(r)
	if len(code) == 0 {
		return malformed("empty code")
	}
	u, nid, err := w.v.concept(b, code)
	if err != nil {
		return err
	}
	stamp, err := w.v.vocabStamp(b, r)
	if err != nil {
		return err
	}
	asm, err := b.nid(termaux.ConceptAssemblage.UUID)
	if err != nil {
		return err
	}
	c := &ds.Concept{Nid: nid, UUID: u, Assemblage: asm}
	c.AddVersion(stamp)
	if err := b.writeConcept(ctx, c); err != nil {
		return err
	}

	idAsm, err := b.nid(w.v.Assemblage.UUID)
	if err != nil {
		return err
	}
	return b.identifier(ctx, termaux.IdentifierNamespace.UUID, uuid.Composite(w.v.Assemblage.Name, code), idAsm, nid, code, stamp)
}

type descriptionsFromMapRow struct {
	v    Vocabulary
	cols []int
}

func (w descriptionsFromMapRow) arity() int            { return w.v.Arity }
func (w descriptionsFromMapRow) key(r []string) string { return w.v.Code(r) }

// NewDescriptionsFromMapWriter writes English descriptions of vocabulary
// concepts from the columns of v.Descriptions.
func NewDescriptionsFromMapWriter(env *Env, permits *grmgr.Limiter, v Vocabulary, rows [][]string) *Batch {
	w := descriptionsFromMapRow{v: v}
	for c := range v.Descriptions {
		w.cols = append(w.cols, c)
	}
	sort.Ints(w.cols)
	return newBatch(env, permits, v.Kind, "description."+strings.ToLower(v.Kind.String()), rows, w)
}

func (w descriptionsFromMapRow) write(ctx context.Context, b *Batch, r []string) error {

	if err := w.v.status(b, r); err != nil {
		return err
	}
	code := w.v.Code(r)
	if len(code) == 0 {
		return malformed("empty code")
	}
	// the concept may be written by a concurrent batch: assign, never resolve
	_, concept, err := w.v.concept(b, code)
	if err != nil {
		return err
	}
	stamp, err := w.v.vocabStamp(b, r)
	if err != nil {
		return err
	}
	caseSig, err := b.sct(termaux.SctNotCaseSensitive)
	if err != nil {
		return err
	}
	lang, err := b.nid(termaux.English.UUID)
	if err != nil {
		return err
	}
	asm, err := b.nid(termaux.EnglishDescriptionAssemblage.UUID)
	if err != nil {
		return err
	}

	for _, c := range w.cols {
		text := strings.TrimSpace(r[c])
		if len(text) == 0 {
			continue
		}
		typeId := w.v.Descriptions[c]
		descType, err := b.sct(typeId)
		if err != nil {
			return err
		}
		u, err := uuid.FromAssemblage(termaux.DescriptionNamespace.UUID, uuid.Composite(w.v.Assemblage.Name, code, typeId))
		if err != nil {
			return err
		}
		nid, err := b.nid(u)
		if err != nil {
			return err
		}
		d := &ds.Semantic{Nid: nid, UUID: u, Type: ds.Description, Assemblage: asm, Component: concept}
		d.AddVersion(stamp, ds.NewDescriptionVersion(caseSig, descType, lang, text)...)
		if err := b.writeSemantic(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

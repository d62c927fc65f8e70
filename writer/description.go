package writer

import (
	"context"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/termaux"
	"github.com/TermGraph/uuid"
)

// RF2 description columns
const (
	descId = iota
	descEffectiveTime
	descActive
	descModule
	descConcept
	descLanguage
	descType
	descTerm
	descCaseSignificance
)

type descriptionRow struct{}

func (descriptionRow) arity() int            { return 9 }
func (descriptionRow) key(r []string) string { return r[descId] }

// NewDescriptionWriter writes description semantics, in the description
// assemblage of their language, with their SCTID semantics.
func NewDescriptionWriter(env *Env, permits *grmgr.Limiter, rows [][]string) *Batch {
	return newBatch(env, permits, importunit.Description, "description", rows, descriptionRow{})
}

func (descriptionRow) write(ctx context.Context, b *Batch, r []string) error {

	// inactive rows are dropped before any lookup
	st, err := b.status(r[descActive])
	if err != nil {
		return err
	}

	u := uuid.FromSCTID(r[descId])
	cu := uuid.FromSCTID(r[descConcept])
	if b.env.Mode == ActiveOnly && !b.env.Ident.HasIdentity(cu) {
		return notFound("concept", r[descConcept])
	}

	t, err := effectiveTime(r[descEffectiveTime])
	if err != nil {
		return err
	}
	nid, err := b.nid(u)
	if err != nil {
		return err
	}
	module, err := b.sct(r[descModule])
	if err != nil {
		return err
	}
	concept, err := b.ref(cu)
	if err != nil {
		return err
	}
	caseSig, err := b.sct(r[descCaseSignificance])
	if err != nil {
		return err
	}
	descType, err := b.sct(r[descType])
	if err != nil {
		return err
	}
	lang, err := b.nid(termaux.Language(r[descLanguage]).UUID)
	if err != nil {
		return err
	}
	asm, err := b.nid(termaux.DescriptionAssemblage(r[descLanguage]).UUID)
	if err != nil {
		return err
	}
	stamp, err := b.stamp(st, t, module)
	if err != nil {
		return err
	}

	d := &ds.Semantic{Nid: nid, UUID: u, Type: ds.Description, Assemblage: asm, Component: concept}
	d.AddVersion(stamp, ds.NewDescriptionVersion(caseSig, descType, lang, r[descTerm])...)
	if err := b.writeSemantic(ctx, d); err != nil {
		return err
	}

	sctAsm, err := b.nid(termaux.SctidAssemblage.UUID)
	if err != nil {
		return err
	}
	return b.identifier(ctx, termaux.IdentifierNamespace.UUID, r[descId], sctAsm, nid, r[descId], stamp)
}

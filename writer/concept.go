package writer

import (
	"context"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/termaux"
	"github.com/TermGraph/uuid"
)

// RF2 concept columns
const (
	conceptId = iota
	conceptEffectiveTime
	conceptActive
	conceptModule
	conceptDefinitionStatus
)

type conceptRow struct{}

func (conceptRow) arity() int            { return 5 }
func (conceptRow) key(r []string) string { return r[conceptId] }

// NewConceptWriter writes concept chronologies with their definition status
// and SCTID semantics.
func NewConceptWriter(env *Env, permits *grmgr.Limiter, rows [][]string) *Batch {
	return newBatch(env, permits, importunit.Concept, "concept", rows, conceptRow{})
}

func (conceptRow) write(ctx context.Context, b *Batch, r []string) error {

	st, err := b.status(r[conceptActive])
	if err != nil {
		return err
	}
	t, err := effectiveTime(r[conceptEffectiveTime])
	if err != nil {
		return err
	}
	u := uuid.FromSCTID(r[conceptId])
	nid, err := b.nid(u)
	if err != nil {
		return err
	}
	module, err := b.sct(r[conceptModule])
	if err != nil {
		return err
	}
	stamp, err := b.stamp(st, t, module)
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

	// definition status
	defStatus, err := b.sct(r[conceptDefinitionStatus])
	if err != nil {
		return err
	}
	dsAsm, err := b.nid(termaux.DefinitionStatusAssemblage.UUID)
	if err != nil {
		return err
	}
	du, err := uuid.FromAssemblage(termaux.DefinitionStatusAssemblage.UUID, r[conceptId])
	if err != nil {
		return err
	}
	dnid, err := b.nid(du)
	if err != nil {
		return err
	}
	d := &ds.Semantic{Nid: dnid, UUID: du, Type: ds.Fields, Assemblage: dsAsm, Component: nid}
	d.AddVersion(stamp, ds.NidField(defStatus))
	if err := b.writeSemantic(ctx, d); err != nil {
		return err
	}

	sctAsm, err := b.nid(termaux.SctidAssemblage.UUID)
	if err != nil {
		return err
	}
	return b.identifier(ctx, termaux.IdentifierNamespace.UUID, r[conceptId], sctAsm, nid, r[conceptId], stamp)
}

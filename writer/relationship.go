package writer

import (
	"context"
	"strconv"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/termaux"
	"github.com/TermGraph/uuid"
)

// RF2 relationship columns
const (
	relId = iota
	relEffectiveTime
	relActive
	relModule
	relSource
	relDestination
	relGroup
	relType
	relCharacteristic
	relModifier
)

type relationshipRow struct {
	assemblage termaux.Concept
}

func (relationshipRow) arity() int            { return 10 }
func (relationshipRow) key(r []string) string { return r[relId] }

// NewRelationshipWriter writes stated or inferred relationships as
// relationship semantics of their source concept, in the premise's
// assemblage.
func NewRelationshipWriter(env *Env, permits *grmgr.Limiter, kind importunit.Kind, rows [][]string) *Batch {
	w := relationshipRow{assemblage: termaux.InferredAssemblage}
	name := "relationship.inferred"
	if kind == importunit.StatedRelationship {
		w.assemblage = termaux.StatedAssemblage
		name = "relationship.stated"
	}
	return newBatch(env, permits, kind, name, rows, w)
}

func (w relationshipRow) write(ctx context.Context, b *Batch, r []string) error {

	st, err := b.status(r[relActive])
	if err != nil {
		return err
	}
	t, err := effectiveTime(r[relEffectiveTime])
	if err != nil {
		return err
	}
	group, err := strconv.ParseInt(r[relGroup], 10, 64)
	if err != nil {
		return malformed("relationship group %q", r[relGroup])
	}
	source, err := b.ref(uuid.FromSCTID(r[relSource]))
	if err != nil {
		return err
	}
	dest, err := b.ref(uuid.FromSCTID(r[relDestination]))
	if err != nil {
		return err
	}

	u := uuid.FromSCTID(r[relId])
	nid, err := b.nid(u)
	if err != nil {
		return err
	}
	relType, err := b.sct(r[relType])
	if err != nil {
		return err
	}
	characteristic, err := b.sct(r[relCharacteristic])
	if err != nil {
		return err
	}
	modifier, err := b.sct(r[relModifier])
	if err != nil {
		return err
	}
	module, err := b.sct(r[relModule])
	if err != nil {
		return err
	}
	asm, err := b.nid(w.assemblage.UUID)
	if err != nil {
		return err
	}
	stamp, err := b.stamp(st, t, module)
	if err != nil {
		return err
	}

	s := &ds.Semantic{Nid: nid, UUID: u, Type: ds.Relationship, Assemblage: asm, Component: source}
	s.AddVersion(stamp, ds.NewRelationshipVersion(dest, relType, group, characteristic, modifier)...)
	return b.writeSemantic(ctx, s)
}

package writer

import (
	"context"

	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/uuid"
)

// RF2 identifier columns
const (
	altId = iota
	altEffectiveTime
	altActive
	altModule
	altScheme
	altComponent
)

type identifierRow struct{}

func (identifierRow) arity() int            { return 6 }
func (identifierRow) key(r []string) string { return uuid.Composite(r[altScheme], r[altId]) }

// NewAlternativeIdentifierWriter writes alternate identifiers as string
// semantics in the assemblage of their identifier scheme.
func NewAlternativeIdentifierWriter(env *Env, permits *grmgr.Limiter, rows [][]string) *Batch {
	return newBatch(env, permits, importunit.AlternativeIdentifier, "identifier", rows, identifierRow{})
}

func (identifierRow) write(ctx context.Context, b *Batch, r []string) error {

	st, err := b.status(r[altActive])
	if err != nil {
		return err
	}
	t, err := effectiveTime(r[altEffectiveTime])
	if err != nil {
		return err
	}
	component, err := b.ref(uuid.FromSCTID(r[altComponent]))
	if err != nil {
		return err
	}
	scheme := uuid.FromSCTID(r[altScheme])
	asm, err := b.nid(scheme)
	if err != nil {
		return err
	}
	module, err := b.sct(r[altModule])
	if err != nil {
		return err
	}
	stamp, err := b.stamp(st, t, module)
	if err != nil {
		return err
	}
	return b.identifier(ctx, scheme, r[altId], asm, component, r[altId], stamp)
}

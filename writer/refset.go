package writer

import (
	"context"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/importspec"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/rf2"
	"github.com/TermGraph/uuid"
)

// RF2 reference set columns. Typed columns follow refsetComponent.
const (
	refsetId = iota
	refsetEffectiveTime
	refsetActive
	refsetModule
	refsetAssemblage
	refsetComponent
	refsetFields
)

// dialectShape is the language reference set: one acceptability column.
var dialectShape = ds.VersionShape{Name: importunit.Dialect.String(), Fields: []ds.DataType{ds.Nd}}

type refsetRow struct {
	shape ds.VersionShape
}

func (w refsetRow) arity() int          { return refsetFields + len(w.shape.Fields) }
func (refsetRow) key(r []string) string { return r[refsetId] }

// NewDialectWriter writes language reference set members.
func NewDialectWriter(env *Env, permits *grmgr.Limiter, rows [][]string) *Batch {
	return newBatch(env, permits, importunit.Dialect, "dialect", rows, refsetRow{shape: dialectShape})
}

// NewRefsetWriter writes the members of a fixed-shape or dynamic reference
// set. The shape comes from spec.
func NewRefsetWriter(env *Env, permits *grmgr.Limiter, spec *importspec.Spec, rows [][]string) (*Batch, error) {
	shape, err := spec.Shape()
	if err != nil {
		return nil, err
	}
	return newBatch(env, permits, spec.Kind, "refset."+shape.Name, rows, refsetRow{shape: shape}), nil
}

func (w refsetRow) write(ctx context.Context, b *Batch, r []string) error {

	st, err := b.status(r[refsetActive])
	if err != nil {
		return err
	}
	u, err := uuid.FromString(r[refsetId])
	if err != nil {
		return malformed("member id %q: %s", r[refsetId], err)
	}
	t, err := effectiveTime(r[refsetEffectiveTime])
	if err != nil {
		return err
	}
	component, err := b.ref(uuid.FromSCTID(r[refsetComponent]))
	if err != nil {
		return err
	}
	fields := make([]ds.Field, len(w.shape.Fields))
	for i, dt := range w.shape.Fields {
		col := r[refsetFields+i]
		f, err := rf2.ParseValue(dt, col, b.sct)
		if err != nil {
			if dt == ds.Nd {
				return err
			}
			return malformed("column %d: %s", refsetFields+i, err)
		}
		fields[i] = f
	}
	if err := w.shape.Conforms(fields); err != nil {
		return malformed("%s", err)
	}

	nid, err := b.nid(u)
	if err != nil {
		return err
	}
	module, err := b.sct(r[refsetModule])
	if err != nil {
		return err
	}
	asm, err := b.sct(r[refsetAssemblage])
	if err != nil {
		return err
	}
	stamp, err := b.stamp(st, t, module)
	if err != nil {
		return err
	}

	typ := ds.Fields
	if len(fields) == 0 {
		typ = ds.Member
	}
	s := &ds.Semantic{Nid: nid, UUID: u, Type: typ, Assemblage: asm, Component: component}
	s.AddVersion(stamp, fields...)
	return b.writeSemantic(ctx, s)
}

package writer

import (
	"context"
	"fmt"

	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/stamp"
	"github.com/TermGraph/termaux"
	"github.com/TermGraph/uuid"
)

// RXNCONSO.RRF columns
const (
	rxCui      = 0
	rxSab      = 11
	rxCode     = 13
	rxSuppress = 16
)

const snomedSab = "SNOMEDCT_US"

type drugCrossRefRow struct{}

func (drugCrossRefRow) arity() int { return 17 }
func (drugCrossRefRow) key(r []string) string {
	return fmt.Sprintf("RXCUI=%s CODE=%s", r[rxCui], r[rxCode])
}

// NewDrugCrossRefWriter maps SNOMED CT concepts to RxNorm concepts: every
// RXNCONSO row with a SNOMED CT source code adds the RXCUI as a string
// semantic of the SNOMED CT concept.
func NewDrugCrossRefWriter(env *Env, permits *grmgr.Limiter, rows [][]string) *Batch {
	return newBatch(env, permits, importunit.RxNormConso, "rxnorm", rows, drugCrossRefRow{})
}

// suppressed RXNCONSO rows: obsolete, suppressible or explicitly suppressed
func suppressed(s string) bool {
	return s == "O" || s == "Y" || s == "E"
}

func (drugCrossRefRow) write(ctx context.Context, b *Batch, r []string) error {

	if r[rxSab] != snomedSab {
		return errSkip
	}
	active := !suppressed(r[rxSuppress])
	if !active && b.env.Mode == ActiveOnly {
		return errSkip
	}

	// the SNOMED CT concept must have been imported
	concept, err := b.env.Ident.Resolve(uuid.FromSCTID(r[rxCode]))
	if err != nil {
		return fmt.Errorf("SNOMED CT concept %s of RXCUI %s: %w", r[rxCode], r[rxCui], err)
	}
	asm, err := b.nid(termaux.RxNormCuiAssemblage.UUID)
	if err != nil {
		return err
	}
	module, err := b.nid(termaux.VocabularyModule.UUID)
	if err != nil {
		return err
	}
	stm, err := b.stamp(stamp.StatusOf(active), b.env.Release, module)
	if err != nil {
		return err
	}
	return b.identifier(ctx, termaux.RxNormCuiAssemblage.UUID, uuid.Composite(r[rxCui], r[rxCode]), asm, concept, r[rxCui], stm)
}

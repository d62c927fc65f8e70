// Package loader imports a set of content sources: each is read in batches
// and handed to the writer of its kind, in import order.
package loader

import (
	"context"
	"fmt"
	"io"
	"time"

	param "github.com/TermGraph/dygparam"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/importspec"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/regroup"
	"github.com/TermGraph/rf2"
	slog "github.com/TermGraph/syslog"
	"github.com/TermGraph/writer"
)

const logid = "loader"

func syslog(s string) {
	slog.Log(logid, s)
}

// Importer schedules specifications and dispatches their batches.
type Importer struct {
	env     *writer.Env
	permits *grmgr.Limiter
	exec    regroup.Submitter

	// BatchSize is the number of rows handed to one writer
	BatchSize int
	// Transformer runs after all content is written. nil skips it.
	Transformer *regroup.Transformer
}

func New(env *writer.Env, permits *grmgr.Limiter, exec regroup.Submitter) *Importer {
	return &Importer{env: env, permits: permits, exec: exec, BatchSize: param.BatchSize}
}

// Import writes every spec. Specs are submitted in import order and all
// writers of a kind complete before the first writer of the next kind
// starts. A spec that cannot be read is reported and the import continues.
func (im *Importer) Import(ctx context.Context, specs []*importspec.Spec) error {

	importspec.Sort(specs)
	t0 := time.Now()

	var (
		kind    importunit.Kind
		started bool
	)
	for _, s := range specs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if started && s.Kind != kind {
			im.permits.Drain()
			syslog(fmt.Sprintf("%s complete. Elapsed: %s", kind, time.Since(t0)))
		}
		kind, started = s.Kind, true

		var batches int
		err := rf2.Batches(s, im.BatchSize, func(rows [][]string) error {
			batches++
			return im.submit(s, rows)
		})
		if err != nil {
			im.fail(fmt.Errorf("import %s: %w", s, err))
			continue
		}
		syslog(fmt.Sprintf("%s submitted in %d batches", s, batches))
	}
	im.permits.Drain()
	syslog(fmt.Sprintf("content written. Elapsed: %s", time.Since(t0)))

	if im.Transformer != nil {
		if err := im.Transformer.Run(ctx); err != nil {
			return err
		}
	}
	syslog(fmt.Sprintf("import complete. Duration: %s", time.Since(t0)))
	return nil
}

func (im *Importer) fail(err error) {
	if im.env.Errs != nil {
		im.env.Errs.Add(logid, err)
		return
	}
	slog.LogErr(logid, err)
}

// submit constructs the writers of a batch and hands each to the executor.
// Construction blocks until the writer holds a permit, so a writer is
// submitted before the next is constructed.
func (im *Importer) submit(s *importspec.Spec, rows [][]string) error {

	switch k := s.Kind; k {
	case importunit.Concept:
		im.exec.Submit(writer.NewConceptWriter(im.env, im.permits, rows))
	case importunit.Description:
		im.exec.Submit(writer.NewDescriptionWriter(im.env, im.permits, rows))
	case importunit.Dialect:
		im.exec.Submit(writer.NewDialectWriter(im.env, im.permits, rows))
	case importunit.StatedRelationship, importunit.InferredRelationship:
		im.exec.Submit(writer.NewRelationshipWriter(im.env, im.permits, k, rows))
	case importunit.AlternativeIdentifier:
		im.exec.Submit(writer.NewAlternativeIdentifierWriter(im.env, im.permits, rows))
	case importunit.RxNormConso:
		im.exec.Submit(writer.NewDrugCrossRefWriter(im.env, im.permits, rows))
	case importunit.Loinc, importunit.ClinVar, importunit.Cvx, importunit.Livd:
		v := writer.Vocabularies[k]
		im.exec.Submit(writer.NewGenericConceptWriter(im.env, im.permits, v, rows))
		im.exec.Submit(writer.NewDescriptionsFromMapWriter(im.env, im.permits, v, rows))
	default:
		b, err := writer.NewRefsetWriter(im.env, im.permits, s, rows)
		if err != nil {
			return err
		}
		im.exec.Submit(b)
	}
	return nil
}

// Report prints the error summary, load statistics and batch latencies.
func (im *Importer) Report(w io.Writer) {
	if im.env.Errs != nil {
		im.env.Errs.PrintErrors(w)
	}
	if im.env.Monitor != nil {
		im.env.Monitor.Report(w)
	}
	if im.env.Hist != nil {
		fmt.Fprintf(w, " ==================== BATCH LATENCY (ms) ==============\n%s", im.env.Hist)
	}
}

// Package writer converts batches of release rows into versioned graph
// writes. Every writer is a Batch: it holds one permit of the shared pool
// from construction until its Run returns.
package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TermGraph/db"
	"github.com/TermGraph/ds"
	elog "github.com/TermGraph/errlog"
	"github.com/TermGraph/es"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/histogram"
	"github.com/TermGraph/ident"
	"github.com/TermGraph/importspec"
	"github.com/TermGraph/importunit"
	"github.com/TermGraph/monitor"
	"github.com/TermGraph/rf2"
	"github.com/TermGraph/stamp"
	slog "github.com/TermGraph/syslog"
	"github.com/TermGraph/tasks"
	"github.com/TermGraph/termaux"
	"github.com/TermGraph/uuid"
)

// Mode selects which rows of a release are imported.
type Mode int

const (
	// Full imports every row of a full release
	Full Mode = iota
	// Snapshot imports every row of a snapshot release
	Snapshot
	// ActiveOnly imports the active rows of a snapshot release. Rows that
	// reference a component that was not imported are skipped.
	ActiveOnly
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case Snapshot:
		return "snapshot"
	case ActiveOnly:
		return "active"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Release is the RF2 release type the mode reads.
func (m Mode) Release() importspec.Release {
	if m == Full {
		return importspec.Full
	}
	return importspec.Snapshot
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "full":
		return Full, nil
	case "snapshot":
		return Snapshot, nil
	case "active", "activeonly":
		return ActiveOnly, nil
	}
	return 0, fmt.Errorf("unknown import mode %q", s)
}

// Env is the set of services shared by every writer of a load.
type Env struct {
	Ident  ident.Service
	Stamps stamp.Service
	Store  db.Store
	// Index may be nil
	Index es.Indexer
	// Errs may be nil
	Errs *elog.Service
	// Tracker may be nil
	Tracker tasks.Tracker
	// Monitor may be nil
	Monitor *monitor.Monitor
	// Hist records batch run times in milliseconds. May be nil.
	Hist *histogram.Set
	Mode Mode
	// Release is the effective time of vocabulary rows, which carry none.
	Release time.Time

	once   sync.Once
	err    error
	author ds.Nid
	path   ds.Nid
}

func (e *Env) prepare() error {
	e.once.Do(func() {
		if e.Tracker == nil {
			e.Tracker = tasks.Nop{}
		}
		if e.Index == nil {
			e.Index = es.Indexers{}
		}
		if e.Monitor == nil {
			e.Monitor = monitor.New(nil)
		}
		if e.Release.IsZero() {
			e.Release = time.Now().UTC().Truncate(24 * time.Hour)
		}
		if e.author, e.err = e.Ident.Assign(termaux.UserAuthor.UUID); e.err != nil {
			return
		}
		e.path, e.err = e.Ident.Assign(termaux.DevelopmentPath.UUID)
	})
	return e.err
}

var (
	// errSkip marks a row that is deliberately not imported
	errSkip      = errors.New("row not imported")
	errMalformed = errors.New("malformed row")
)

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errMalformed, fmt.Sprintf(format, args...))
}

// RowErr is a failure to import one row, identified by its natural key.
type RowErr struct {
	Kind importunit.Kind
	Key  string
	Row  int
	Err  error
}

func (e *RowErr) Error() string {
	return fmt.Sprintf("%s row %d key %q: %s", e.Kind, e.Row, e.Key, e.Err)
}

func (e *RowErr) Unwrap() error { return e.Err }

// rowWriter converts one row into graph writes.
type rowWriter interface {
	// arity is the minimum number of columns of a row
	arity() int
	// key is the natural key of a row, for error reporting
	key(r []string) string
	write(ctx context.Context, b *Batch, r []string) error
}

type stampKey struct {
	status stamp.Status
	time   int64
	module ds.Nid
}

var batchSeq atomic.Int64

// Batch is the shared core of all writers.
type Batch struct {
	env     *Env
	permits *grmgr.Limiter
	kind    importunit.Kind
	name    string
	logid   string
	rows    [][]string
	w       rowWriter

	stamps map[stampKey]ds.Stamp

	completed atomic.Int64
	written   atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// newBatch blocks until a permit is available.
func newBatch(env *Env, permits *grmgr.Limiter, kind importunit.Kind, name string, rows [][]string, w rowWriter) *Batch {
	permits.Ask()
	return &Batch{
		env:     env,
		permits: permits,
		kind:    kind,
		name:    fmt.Sprintf("writer.%s#%d", name, batchSeq.Add(1)),
		logid:   "writer." + name,
		rows:    rows,
		w:       w,
		stamps:  make(map[stampKey]ds.Stamp),
	}
}

func (b *Batch) Name() string { return b.name }

func (b *Batch) Kind() importunit.Kind { return b.kind }

// Completed is the number of rows processed, whether written, skipped or failed.
func (b *Batch) Completed() int { return int(b.completed.Load()) }

func (b *Batch) Written() int { return int(b.written.Load()) }
func (b *Batch) Skipped() int { return int(b.skipped.Load()) }
func (b *Batch) Failed() int  { return int(b.failed.Load()) }

// Run writes every row of the batch in order. A row that references a
// missing component, or cannot be parsed, is reported and skipped. Any
// other error ends the batch. The permit is always released.
func (b *Batch) Run(ctx context.Context) (err error) {

	t0 := time.Now()
	defer func() {
		outcome := monitor.Done
		if err != nil {
			outcome = monitor.Failed
		}
		b.env.Monitor.Batch(b.kind.String(), outcome, time.Since(t0).Seconds())
		if b.env.Hist != nil {
			b.env.Hist.RecordValue(b.kind.String(), time.Since(t0).Milliseconds())
		}
		b.env.Tracker.Remove(b)
		b.permits.EndR()
	}()

	if err = b.env.prepare(); err != nil {
		return err
	}
	b.env.Tracker.Add(b)

	for i, r := range b.rows {
		err = b.row(ctx, i, r)
		b.completed.Add(1)
		if err != nil {
			return err
		}
	}
	slog.Log(b.logid, fmt.Sprintf("%s: rows %d written %d skipped %d failed %d  Duration: %s", b.name, len(b.rows), b.Written(), b.Skipped(), b.Failed(), time.Since(t0)))
	return nil
}

// row returns only errors that end the batch.
func (b *Batch) row(ctx context.Context, i int, r []string) error {
	var err error
	if len(r) < b.w.arity() {
		err = malformed("expected %d columns got %d", b.w.arity(), len(r))
	} else {
		err = b.w.write(ctx, b, r)
	}
	if err == nil {
		b.written.Add(1)
		b.env.Monitor.Row(b.kind.String(), monitor.Written)
		return nil
	}

	var key string
	if len(r) > 0 && len(r) >= b.w.arity() {
		key = b.w.key(r)
	} else if len(r) > 0 {
		key = r[0]
	}
	rerr := &RowErr{Kind: b.kind, Key: key, Row: i, Err: err}

	switch {
	case errors.Is(err, errSkip):
		b.skipped.Add(1)
		b.env.Monitor.Row(b.kind.String(), monitor.Skipped)
		return nil
	case errors.Is(err, ident.ErrNotFound):
		b.skipped.Add(1)
		b.env.Monitor.Row(b.kind.String(), monitor.Skipped)
		if b.env.Errs != nil {
			b.env.Errs.Skip(b.logid, rerr)
		}
		return nil
	case errors.Is(err, errMalformed):
		b.failed.Add(1)
		b.env.Monitor.Row(b.kind.String(), monitor.Failed)
		if b.env.Errs != nil {
			b.env.Errs.Add(b.logid, rerr)
		}
		return nil
	}
	b.failed.Add(1)
	b.env.Monitor.Row(b.kind.String(), monitor.Failed)
	return rerr
}

// status parses the active column. Inactive rows are skipped in ActiveOnly mode.
func (b *Batch) status(active string) (stamp.Status, error) {
	a, err := parseActive(active)
	if err != nil {
		return 0, err
	}
	if !a && b.env.Mode == ActiveOnly {
		return 0, errSkip
	}
	return stamp.StatusOf(a), nil
}

// stamp returns the stamp of (status, t, module) with the fixed author and
// path. Rows of a batch with the same values share a stamp.
func (b *Batch) stamp(st stamp.Status, t time.Time, module ds.Nid) (ds.Stamp, error) {
	k := stampKey{st, t.UnixNano(), module}
	if s, ok := b.stamps[k]; ok {
		return s, nil
	}
	s, err := b.env.Stamps.Stamp(st, t, b.env.author, module, b.env.path)
	if err != nil {
		return 0, err
	}
	b.stamps[k] = s
	return s, nil
}

// nid returns the nid of u, assigning one on first sight.
func (b *Batch) nid(u uuid.UID) (ds.Nid, error) {
	return b.env.Ident.Assign(u)
}

func (b *Batch) sct(id string) (ds.Nid, error) {
	return b.nid(uuid.FromSCTID(id))
}

// ref returns the nid of a referenced component. In ActiveOnly mode the
// component must already be registered.
func (b *Batch) ref(u uuid.UID) (ds.Nid, error) {
	if b.env.Mode == ActiveOnly {
		return b.env.Ident.Resolve(u)
	}
	return b.env.Ident.Assign(u)
}

func (b *Batch) writeConcept(ctx context.Context, c *ds.Concept) error {
	if err := b.env.Index.IndexConcept(ctx, c); err != nil {
		b.indexErr(err)
	}
	return b.env.Store.WriteConcept(ctx, c)
}

func (b *Batch) writeSemantic(ctx context.Context, s *ds.Semantic) error {
	if err := b.env.Index.IndexSemantic(ctx, s); err != nil {
		b.indexErr(err)
	}
	return b.env.Store.WriteSemantic(ctx, s)
}

// index failures are reported but do not stop the write
func (b *Batch) indexErr(err error) {
	if b.env.Errs != nil {
		b.env.Errs.Add("index", err)
		return
	}
	slog.LogErr(b.logid, err)
}

// identifier writes a string semantic carrying value, a native identifier
// of component, in assemblage asm. Its UUID is key scoped to namespace ns.
func (b *Batch) identifier(ctx context.Context, ns uuid.UID, key string, asm ds.Nid, component ds.Nid, value string, st ds.Stamp) error {
	u, err := uuid.FromAssemblage(ns, key)
	if err != nil {
		return err
	}
	nid, err := b.nid(u)
	if err != nil {
		return err
	}
	s := &ds.Semantic{Nid: nid, UUID: u, Type: ds.String, Assemblage: asm, Component: component}
	s.AddVersion(st, ds.Str(value))
	return b.writeSemantic(ctx, s)
}

func parseActive(s string) (bool, error) {
	a, err := rf2.ParseActive(s)
	if err != nil {
		return false, malformed("%s", err)
	}
	return a, nil
}

func effectiveTime(s string) (time.Time, error) {
	t, err := rf2.ParseEffectiveTime(s)
	if err != nil {
		return time.Time{}, malformed("%s", err)
	}
	return t, nil
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ident.ErrNotFound)
}

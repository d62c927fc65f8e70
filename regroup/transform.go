package regroup

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/TermGraph/db"
	"github.com/TermGraph/ds"
	param "github.com/TermGraph/dygparam"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/ident"
	"github.com/TermGraph/monitor"
	slog "github.com/TermGraph/syslog"
	"github.com/TermGraph/tasks"
	"github.com/TermGraph/termaux"
)

const logid = "regroup"

func syslog(s string) {
	slog.Log(logid, s)
}

// LogicTransformer builds logical definitions from relationship groups.
type LogicTransformer interface {
	Transform(ctx context.Context, groups []Group) error
}

type Submitter interface {
	Submit(t tasks.Task)
}

// Notifier is told when derived relationship structure has changed.
type Notifier interface {
	NotifyRefresh()
}

// Transformer streams every concept, builds its relationship group for
// each premise and dispatches the groups in units of Threshold.
//
// Run must not be called from a unit holding a permit of the pool: it
// waits for the whole pool to drain.
type Transformer struct {
	store     db.Store
	ids       ident.Service
	permits   *grmgr.Limiter
	exec      Submitter
	logic     LogicTransformer
	listeners Notifier

	// Threshold is the number of groups per dispatched unit
	Threshold int
	Tracker   tasks.Tracker
	Monitor   *monitor.Monitor

	seq atomic.Int64
}

func New(store db.Store, ids ident.Service, permits *grmgr.Limiter, exec Submitter, logic LogicTransformer, listeners Notifier) *Transformer {
	return &Transformer{
		store:     store,
		ids:       ids,
		permits:   permits,
		exec:      exec,
		logic:     logic,
		listeners: listeners,
		Threshold: param.TransformBatchSize,
		Tracker:   tasks.Nop{},
		Monitor:   monitor.New(nil),
	}
}

func (t *Transformer) Name() string { return "regroup" }

// Run dispatches the stated then the inferred groups, waits for every
// dispatched unit to complete and notifies listeners once.
func (t *Transformer) Run(ctx context.Context) error {

	t.Tracker.Add(t)
	defer t.Tracker.Remove(t)

	t0 := time.Now()
	concepts, err := t.ids.Assign(termaux.ConceptAssemblage.UUID)
	if err != nil {
		return err
	}
	for _, p := range []Premise{Stated, Inferred} {
		if err := t.premise(ctx, concepts, p); err != nil {
			t.permits.Drain()
			return fmt.Errorf("regroup %s: %w", p, err)
		}
	}

	syslog("waiting on transformation units...")
	t.permits.Drain()
	syslog(fmt.Sprintf("transformation complete. Duration: %s", time.Since(t0)))

	t.listeners.NotifyRefresh()
	return nil
}

func (t *Transformer) premise(ctx context.Context, concepts ds.Nid, p Premise) error {

	asm, err := t.ids.Assign(p.Assemblage().UUID)
	if err != nil {
		return err
	}
	acc := make([]Group, 0, t.Threshold)

	err = t.store.ConceptNids(ctx, concepts, func(c ds.Nid) error {
		rels, err := t.store.SemanticNids(ctx, c, asm)
		if err != nil {
			return err
		}
		acc = append(acc, NewGroup(c, rels, p))
		if len(acc) >= t.Threshold {
			t.dispatch(p, clone(acc))
			acc = acc[:0]
		}
		return nil
	})
	if err != nil {
		return err
	}
	// remainder, possibly empty
	t.dispatch(p, clone(acc))
	return nil
}

func clone(gs []Group) []Group {
	return append(make([]Group, 0, len(gs)), gs...)
}

// dispatch blocks until a permit is available.
func (t *Transformer) dispatch(p Premise, groups []Group) {
	t.permits.Ask()
	t.Monitor.TransformUnit(p.String(), len(groups))
	u := &unit{
		name:    fmt.Sprintf("regroup.%s#%d", p, t.seq.Add(1)),
		groups:  groups,
		logic:   t.logic,
		permits: t.permits,
		tracker: t.Tracker,
	}
	syslog(fmt.Sprintf("dispatch %s groups: %d", u.name, len(groups)))
	t.exec.Submit(u)
}

// unit is one dispatched batch of groups. It holds a permit until Run returns.
type unit struct {
	name    string
	groups  []Group
	logic   LogicTransformer
	permits *grmgr.Limiter
	tracker tasks.Tracker
}

func (u *unit) Name() string { return u.name }

func (u *unit) Run(ctx context.Context) error {
	u.tracker.Add(u)
	defer func() {
		u.tracker.Remove(u)
		u.permits.EndR()
	}()
	return u.logic.Transform(ctx, u.groups)
}

// Counter is a LogicTransformer that only counts what it is given.
type Counter struct {
	Units         atomic.Int64
	Groups        atomic.Int64
	Relationships atomic.Int64
}

func (c *Counter) Transform(ctx context.Context, groups []Group) error {
	c.Units.Add(1)
	c.Groups.Add(int64(len(groups)))
	for _, g := range groups {
		c.Relationships.Add(int64(g.Len()))
	}
	return nil
}

package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	elog "github.com/TermGraph/errlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fn struct {
	name string
	run  func() error
}

func (f *fn) Name() string                  { return f.name }
func (f *fn) Run(ctx context.Context) error { return f.run() }

func startErrlog(t *testing.T) *elog.Service {
	s := elog.New()
	ctx, cancel := context.WithCancel(context.Background())
	var wpStart, wgEnd sync.WaitGroup
	wpStart.Add(1)
	wgEnd.Add(1)
	go s.PowerOn(ctx, &wpStart, &wgEnd)
	wpStart.Wait()
	t.Cleanup(func() {
		cancel()
		wgEnd.Wait()
	})
	return s
}

func TestExecutorRunsEveryTask(t *testing.T) {
	e := NewExecutor(context.Background(), 4, 8, nil)
	var n atomic.Int64
	for i := 0; i < 100; i++ {
		e.Submit(&fn{name: "inc", run: func() error { n.Add(1); return nil }})
	}
	e.Shutdown()
	assert.Equal(t, int64(100), n.Load())
	// second shutdown is a no-op
	e.Shutdown()
}

func TestExecutorIsolatesFailures(t *testing.T) {
	errs := startErrlog(t)
	e := NewExecutor(context.Background(), 2, 4, errs)

	var ok atomic.Int64
	e.Submit(&fn{name: "panics", run: func() error { panic("bad row") }})
	e.Submit(&fn{name: "fails", run: func() error { return errors.New("store down") }})
	for i := 0; i < 10; i++ {
		e.Submit(&fn{name: "ok", run: func() error { ok.Add(1); return nil }})
	}
	e.Shutdown()

	assert.Equal(t, int64(10), ok.Load())
	sum := errs.Summary()
	assert.Equal(t, 1, sum.Errors["panics"])
	assert.Equal(t, 1, sum.Errors["fails"])
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, b := &fn{name: "a"}, &fn{name: "b"}
	r.Add(b)
	r.Add(a)
	assert.Equal(t, []string{"a", "b"}, r.Active())

	r.Remove(a)
	r.Remove(a)
	assert.Equal(t, []string{"b"}, r.Active())
	added, finished := r.Counts()
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, finished)

	var tr Tracker = Nop{}
	tr.Add(a)
	tr.Remove(a)
}

func TestListeners(t *testing.T) {
	var l Listeners
	var calls int
	l.Register(func() { calls++ })
	l.Register(func() { calls++ })
	l.NotifyRefresh()
	require.Equal(t, 2, calls)
	assert.Equal(t, 1, l.Notified())
}

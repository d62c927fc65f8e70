// Package tasks runs dispatched units of work and tracks the units that are
// active.
package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	elog "github.com/TermGraph/errlog"
	slog "github.com/TermGraph/syslog"

	"go.uber.org/zap"
)

const logid = "tasks"

// Task is a unit of work submitted to an Executor.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Executor runs submitted tasks on a fixed pool of workers. A task that
// fails or panics is logged and counted, and never affects other tasks.
type Executor struct {
	ctx    context.Context
	queue  chan Task
	wg     sync.WaitGroup
	once   sync.Once
	elog   *elog.Service
	logger *zap.Logger
}

// NewExecutor starts workers goroutines. queued is the number of submitted
// tasks that may wait for a worker before Submit blocks. errs may be nil.
func NewExecutor(ctx context.Context, workers, queued int, errs *elog.Service) *Executor {
	if workers < 1 {
		workers = 1
	}
	e := &Executor{
		ctx:    ctx,
		queue:  make(chan Task, queued),
		elog:   errs,
		logger: slog.Logger(logid),
	}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	e.logger.Info("executor started", zap.Int("workers", workers))
	return e
}

// Submit queues t for execution.
func (e *Executor) Submit(t Task) {
	e.queue <- t
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for t := range e.queue {
		e.run(t)
	}
}

func (e *Executor) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s: %v", t.Name(), r)
			e.logger.Error("task panic", zap.String("task", t.Name()), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			e.fail(t, err)
		}
	}()
	if err := t.Run(e.ctx); err != nil {
		e.logger.Error("task failed", zap.String("task", t.Name()), zap.Error(err))
		e.fail(t, err)
	}
}

func (e *Executor) fail(t Task, err error) {
	if e.elog != nil {
		e.elog.Add(t.Name(), err)
	}
}

// Shutdown stops accepting tasks and waits for queued tasks to finish.
func (e *Executor) Shutdown() {
	e.once.Do(func() { close(e.queue) })
	e.wg.Wait()
	e.logger.Info("executor stopped")
}

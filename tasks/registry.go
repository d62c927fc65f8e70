package tasks

import (
	"sort"
	"sync"
	"time"

	slog "github.com/TermGraph/syslog"

	"go.uber.org/zap"
)

// Named is anything with a name that can be tracked.
type Named interface {
	Name() string
}

// Tracker observes units of work starting and finishing.
type Tracker interface {
	Add(t Named)
	Remove(t Named)
}

// Nop is a Tracker that does nothing.
type Nop struct{}

func (Nop) Add(Named)    {}
func (Nop) Remove(Named) {}

// Registry is the set of active units of work.
type Registry struct {
	sync.Mutex
	active   map[Named]time.Time
	added    int
	finished int
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[Named]time.Time)}
}

func (r *Registry) Add(t Named) {
	r.Lock()
	r.active[t] = time.Now()
	r.added++
	r.Unlock()
}

func (r *Registry) Remove(t Named) {
	r.Lock()
	start, ok := r.active[t]
	delete(r.active, t)
	if ok {
		r.finished++
	}
	r.Unlock()
	if ok {
		slog.Logger(logid).Debug("task finished", zap.String("task", t.Name()), zap.Duration("elapsed", time.Since(start)))
	}
}

// Active returns the names of the active units, sorted.
func (r *Registry) Active() []string {
	r.Lock()
	defer r.Unlock()
	names := make([]string, 0, len(r.active))
	for t := range r.active {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}

// Counts returns the number of units added and finished.
func (r *Registry) Counts() (added, finished int) {
	r.Lock()
	defer r.Unlock()
	return r.added, r.finished
}

// Listeners is the set of consumers notified when derived relationship
// structure changes.
type Listeners struct {
	sync.Mutex
	fns      []func()
	notified int
}

func (l *Listeners) Register(fn func()) {
	l.Lock()
	l.fns = append(l.fns, fn)
	l.Unlock()
}

func (l *Listeners) NotifyRefresh() {
	l.Lock()
	fns := make([]func(), len(l.fns))
	copy(fns, l.fns)
	l.notified++
	l.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Notified returns the number of refresh notifications sent.
func (l *Listeners) Notified() int {
	l.Lock()
	defer l.Unlock()
	return l.notified
}

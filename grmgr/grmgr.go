package grmgr

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	param "github.com/TermGraph/dygparam"
	slog "github.com/TermGraph/syslog"

	"golang.org/x/sync/semaphore"
)

const logid = "grmgr: "

type Routine = string

type Ceiling = int

// Limiter is a counting permit pool. It sets a ceiling on the number of
// concurrently running units of a routine. Ask blocks until a permit is free,
// EndR returns it.
//
// A permit, once asked for, cannot be abandoned: Ask is not cancellable,
// as a unit that has started writing rows must run to completion.
type Limiter struct {
	c   Ceiling
	r   Routine
	sem *semaphore.Weighted

	running atomic.Int64
	peak    atomic.Int64
	waiting atomic.Int64

	m *Manager
}

func syslog(s string) {
	slog.Log(logid, s)
}

// New returns a limiter with c permits. If m is non-nil the limiter is
// registered for snapshot reporting.
func New(r string, c Ceiling, m *Manager) *Limiter {
	if c < 1 {
		c = 1
	}
	l := &Limiter{c: c, r: Routine(r), sem: semaphore.NewWeighted(int64(c)), m: m}
	if m != nil {
		ack := make(chan struct{})
		m.registerCh <- regReq{l, ack}
		<-ack
	}
	syslog(fmt.Sprintf("New Routine %q   Ceiling: %d ", r, c))
	return l
}

// Ask acquires one permit, blocking until one is available.
func (l *Limiter) Ask() {
	l.waiting.Add(1)
	// Background context: acquisition is never cancelled
	l.sem.Acquire(context.Background(), 1)
	l.waiting.Add(-1)

	n := l.running.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
}

// EndR releases one permit.
func (l *Limiter) EndR() {
	l.running.Add(-1)
	l.sem.Release(1)
}

// Drain blocks until every permit has been returned. New permits may be
// handed out once Drain returns.
func (l *Limiter) Drain() {
	l.sem.Acquire(context.Background(), int64(l.c))
	l.sem.Release(int64(l.c))
}

func (l *Limiter) Unregister() {
	if l.m != nil {
		l.m.unRegisterCh <- l.r
	}
}

func (l *Limiter) Routine() Routine { return l.r }
func (l *Limiter) Ceiling() Ceiling { return l.c }
func (l *Limiter) Running() int     { return int(l.running.Load()) }
func (l *Limiter) Waiting() int     { return int(l.waiting.Load()) }

// Peak is the highest number of permits held at one time.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }

// PermitCount is the pool size for hardware parallelism n.
func PermitCount(n int) Ceiling {
	return param.PermitMultiplier * n
}

// Reporter receives the running-count averages of each limiter, keyed by
// routine then report interval in seconds.
type Reporter func(avg map[Routine]map[int]float64)

var (
	// keep live averages at the following reportInterval's (in seconds)
	reportInterval = []int{10, 20, 40, 60, 120, 180, 300, 600, 1200, 2400, 3600, 7200}
)

// Manager samples the running count of every registered limiter every
// snapInterval and reports averages every reportEvery samples.
// It runs as a single goroutine with sole access to its maps. Clients
// register and unregister via channels.
type Manager struct {
	snapInterval time.Duration
	reportEvery  int
	report       Reporter

	registerCh   chan regReq
	unRegisterCh chan Routine
}

type regReq struct {
	l   *Limiter
	ack chan struct{}
}

func NewManager(snapInterval time.Duration, reportEvery int, report Reporter) *Manager {
	if reportEvery < 1 {
		reportEvery = 1
	}
	return &Manager{
		snapInterval: snapInterval,
		reportEvery:  reportEvery,
		report:       report,
		registerCh:   make(chan regReq),
		unRegisterCh: make(chan Routine),
	}
}

// numSamples returns the number of snapshots in each report interval.
func (m *Manager) numSamples() []int {
	secs := int(m.snapInterval / time.Second)
	if secs < 1 {
		secs = 1
	}
	ns := make([]int, len(reportInterval))
	for i, v := range reportInterval {
		ns[i] = v / secs
		if ns[i] < 1 {
			ns[i] = 1
		}
	}
	return ns
}

func (m *Manager) PowerOn(ctx context.Context, wpStart *sync.WaitGroup, wgEnd *sync.WaitGroup) {

	defer wgEnd.Done()

	var (
		s      int
		rLimit = make(map[Routine]*Limiter)
		csnap  = make(map[Routine][]int) // cumulative snapshots
		ns     = m.numSamples()
		keep   = ns[len(ns)-1]
	)

	ticker := time.NewTicker(m.snapInterval)
	defer ticker.Stop()

	slog.Log(logid, "Fully powered up...")
	wpStart.Done()

	for {

		select {

		case req := <-m.registerCh:

			// generate unique label
			l := req.l
			r := l.r
			for e := byte('A'); ; e++ {
				if _, ok := rLimit[r]; !ok {
					break
				}
				r = l.r + string(e)
			}
			l.r = r
			rLimit[r] = l
			close(req.ack)

		case r := <-m.unRegisterCh:

			delete(rLimit, r)
			delete(csnap, r)

		case <-ticker.C:

			s++
			for k, l := range rLimit {
				v := append(csnap[k], l.Running())
				// drop expired entries
				if len(v) > keep {
					v = v[len(v)-keep:]
				}
				csnap[k] = v
			}
			if s == m.reportEvery {
				if m.report != nil {
					rep := make(map[Routine]map[int]float64, len(csnap))
					for k, v := range csnap {
						rep[k] = averages(v, ns, reportInterval)
					}
					m.report(rep)
				}
				syslog("gr report completed...")
				s = 0
			}

		case <-ctx.Done():
			slog.Log(logid, fmt.Sprintf("Number of limiters not unregistered: %d", len(rLimit)))
			slog.Log(logid, "Shutdown.")
			return

		}
	}
}

// averages computes, for each report interval, the mean of the latest
// ns[i] samples of snap. Intervals with fewer samples are omitted.
func averages(snap []int, ns []int, interval []int) map[int]float64 {

	avg := make(map[int]float64, len(ns))
	ii, sum := 0, 0
	// latest to oldest snapshot
	for i := len(snap); i > 0; i-- {
		ii++
		sum += snap[i-1]
		for j, n := range ns {
			if n == ii {
				avg[interval[j]] = float64(sum) / float64(n)
			}
		}
	}
	return avg
}

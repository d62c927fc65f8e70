package grmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterCeiling(t *testing.T) {

	const ceiling = 4
	l := New("writer", ceiling, nil)

	var (
		wg      sync.WaitGroup
		current atomic.Int64
		maxSeen atomic.Int64
	)
	for i := 0; i < 50; i++ {
		l.Ask()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer l.EndR()
			n := current.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen.Load(), int64(ceiling))
	assert.LessOrEqual(t, l.Peak(), ceiling)
	assert.Equal(t, 0, l.Running())
}

func TestDrainWaitsForAllPermits(t *testing.T) {

	l := New("transform", 3, nil)

	release := make(chan struct{})
	var done atomic.Int64
	for i := 0; i < 3; i++ {
		l.Ask()
		go func() {
			defer l.EndR()
			<-release
			done.Add(1)
		}()
	}

	drained := make(chan struct{})
	go func() {
		l.Drain()
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatal("Drain returned while permits were held")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-drained
	assert.Equal(t, int64(3), done.Load())

	// pool is usable after a drain
	l.Ask()
	l.EndR()
}

func TestPermitCount(t *testing.T) {
	assert.Equal(t, 16, PermitCount(8))
}

func TestAverages(t *testing.T) {
	// oldest .. latest
	snap := []int{0, 0, 2, 2, 4, 4}
	avg := averages(snap, []int{2, 4, 10}, []int{10, 20, 40})
	assert.Equal(t, 4.0, avg[10])
	assert.Equal(t, 3.0, avg[20])
	_, ok := avg[40]
	assert.False(t, ok)
}

func TestManagerReports(t *testing.T) {

	reports := make(chan map[Routine]map[int]float64, 4)
	m := NewManager(5*time.Millisecond, 2, func(avg map[Routine]map[int]float64) {
		select {
		case reports <- avg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wpStart, wgEnd sync.WaitGroup
	wpStart.Add(1)
	wgEnd.Add(1)
	go m.PowerOn(ctx, &wpStart, &wgEnd)
	wpStart.Wait()

	a := New("writer", 2, m)
	b := New("writer", 2, m)
	assert.NotEqual(t, a.Routine(), b.Routine())

	a.Ask()
	timeout := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case rep := <-reports:
			_, found = rep[a.Routine()]
		case <-timeout:
			t.Fatal("no report for registered limiter")
		}
	}
	a.EndR()

	a.Unregister()
	b.Unregister()
	cancel()
	wgEnd.Wait()
}

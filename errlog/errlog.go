package errlog

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	slog "github.com/TermGraph/syslog"
)

type Errors_ []*payload

type payload struct {
	Id   string
	Err  error
	skip bool
}

const (
	logid = "errlog"
	// errors retained per id for PrintErrors. All errors are counted.
	defaultKeep = 50
)

// Summary is the aggregate of a run: failures and skipped rows by id.
type Summary struct {
	Errors map[string]int
	Skips  map[string]int
}

func (s Summary) TotalErrors() int { return total(s.Errors) }
func (s Summary) TotalSkips() int  { return total(s.Skips) }

func total(m map[string]int) int {
	var n int
	for _, v := range m {
		n += v
	}
	return n
}

type cntReq struct {
	id   string
	resp chan int
}

// Service collects errors and skipped rows from concurrently running units.
// All state is owned by the PowerOn goroutine.
type Service struct {
	keep int

	addCh        chan *payload
	printCh      chan io.Writer
	printDoneCh  chan struct{}
	summaryCh    chan chan Summary
	errCntByIdCh chan cntReq
	resetCntCh   chan string
}

func New() *Service {
	return &Service{
		keep:         defaultKeep,
		addCh:        make(chan *payload),
		printCh:      make(chan io.Writer),
		printDoneCh:  make(chan struct{}),
		summaryCh:    make(chan chan Summary),
		errCntByIdCh: make(chan cntReq),
		resetCntCh:   make(chan string),
	}
}

// Add multiple errors (atleast one err) grouped under a logid
func (s *Service) Add(logid string, err ...error) {

	if len(err) == 0 {
		panic(fmt.Errorf("elog Add had no second (error) argument"))
	}

	logid = strings.TrimRight(logid, " :")

	for _, e := range err {
		s.addCh <- &payload{Id: logid, Err: e}
	}
}

// Skip records a row that was skipped under logid, with the reason.
func (s *Service) Skip(logid string, reason error) {
	s.addCh <- &payload{Id: strings.TrimRight(logid, " :"), Err: reason, skip: true}
}

// ErrCnt returns the number of errors and skips under id, or -1 if none were recorded.
func (s *Service) ErrCnt(id string) int {
	resp := make(chan int)
	s.errCntByIdCh <- cntReq{id, resp}
	return <-resp
}

func (s *Service) ResetCnt(id string) {
	s.resetCntCh <- id
}

func (s *Service) Summary() Summary {
	resp := make(chan Summary)
	s.summaryCh <- resp
	return <-resp
}

// Errors reports whether any error (not skip) has been recorded.
func (s *Service) Errors() bool {
	return s.Summary().TotalErrors() > 0
}

func (s *Service) PrintErrors(w io.Writer) {
	s.printCh <- w
	<-s.printDoneCh
}

func (s *Service) PowerOn(ctx context.Context, wpStart *sync.WaitGroup, wgEnd *sync.WaitGroup) {

	defer wgEnd.Done()
	var (
		pld    *payload
		errors Errors_
		kept   = make(map[string]int)
	)

	errCnt := make(map[string]int)  // count errors by Id
	skipCnt := make(map[string]int) // count skips by Id

	wpStart.Done()
	slog.LogAlert(logid, "Powering up...")

	for {

		select {

		case pld = <-s.addCh:

			if pld.skip {
				skipCnt[pld.Id]++
				slog.Log(pld.Id, fmt.Sprintf("skip: %s", pld.Err))
			} else {
				errCnt[pld.Id]++
				// log to log file or CW logs
				slog.LogErr(pld.Id, pld.Err)
			}

			if kept[pld.Id] < s.keep {
				kept[pld.Id]++
				errors = append(errors, pld)
			}

		case r := <-s.errCntByIdCh:

			e, eok := errCnt[r.id]
			k, kok := skipCnt[r.id]
			if !eok && !kok {
				r.resp <- -1
			} else {
				r.resp <- e + k
			}

		case id := <-s.resetCntCh:

			if _, ok := errCnt[id]; ok {
				errCnt[id] = 0
			}
			if _, ok := skipCnt[id]; ok {
				skipCnt[id] = 0
			}

		case resp := <-s.summaryCh:

			sum := Summary{Errors: make(map[string]int, len(errCnt)), Skips: make(map[string]int, len(skipCnt))}
			for k, v := range errCnt {
				sum.Errors[k] = v
			}
			for k, v := range skipCnt {
				sum.Skips[k] = v
			}
			resp <- sum

		case w := <-s.printCh:

			sum := Summary{Errors: errCnt, Skips: skipCnt}
			hdr := fmt.Sprintf(" ==================== ERRORS : %d  SKIPPED : %d ==============", sum.TotalErrors(), sum.TotalSkips())
			slog.LogAlert(logid, hdr)
			fmt.Fprintln(w, hdr)
			for _, e := range errors {
				if e.skip {
					continue
				}
				slog.LogAlert(logid, fmt.Sprintf(" %s %s", e.Id, e.Err))
				fmt.Fprintln(w, e.Id, e.Err)
			}
			for _, id := range sortedKeys(skipCnt) {
				fmt.Fprintf(w, " %s skipped %d\n", id, skipCnt[id])
			}
			for _, id := range sortedKeys(errCnt) {
				fmt.Fprintf(w, " %s errors %d\n", id, errCnt[id])
			}
			s.printDoneCh <- struct{}{}

		case <-ctx.Done():
			slog.LogAlert(logid, "Shutdown.")
			return

		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

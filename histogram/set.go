package histogram

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	hdr "github.com/HdrHistogram/hdrhistogram-go"
)

/*
 s := histogram.NewSet(int(maxVal))
 s.RecordValue("event_name", int64(micros))
 fmt.Printf("Stats:-\n%s", s)
*/

// Set is a named collection of HDR histograms, safe for concurrent use.
type Set struct {
	sync.Mutex
	maxval int64
	m      map[string]*hdr.Histogram
}

func NewSet(maxval int64) *Set {
	return &Set{
		maxval: maxval,
		m:      map[string]*hdr.Histogram{},
	}
}

// RecordValue records val under name. Values above maxval are clamped.
func (s *Set) RecordValue(name string, val int64) {
	if val > s.maxval {
		val = s.maxval
	}
	if val < 0 {
		val = 0
	}
	s.Lock()
	defer s.Unlock()
	h, ok := s.m[name]
	if !ok {
		h = hdr.New(1, s.maxval, 2)
		s.m[name] = h
	}
	h.RecordValue(val)
}

func (s *Set) Count(name string) int64 {
	s.Lock()
	defer s.Unlock()
	if h, ok := s.m[name]; ok {
		return h.TotalCount()
	}
	return 0
}

func (s *Set) String() string {
	s.Lock()
	defer s.Unlock()

	names := make([]string, 0, len(s.m))
	for name := range s.m {
		names = append(names, name)
	}
	sort.Strings(names)

	var str strings.Builder
	for _, name := range names {
		h := s.m[name]
		fmt.Fprintf(&str, "%-20.20s: n=%6d mean=%8d 50%%=%8d 95%%=%8d max=%8d %s\n",
			name, h.TotalCount(), int64(h.Mean()), h.ValueAtQuantile(50), h.ValueAtQuantile(95), h.Max(),
			HDR2ASCII(h, 40, 0, s.maxval))
	}
	return str.String()
}

var sparks = []rune(" ▁▂▃▄▅▆▇█")

// HDR2ASCII renders the distribution of h between min and max as a
// sparkline of width characters. Anything larger than max goes into the
// last bucket.
func HDR2ASCII(h *hdr.Histogram, width int, min, max int64) string {

	if width < 1 || max <= min {
		return ""
	}
	buckets := make([]int64, width)
	span := max - min
	for _, b := range h.Distribution() {
		if b.Count == 0 {
			continue
		}
		i := int((b.From - min) * int64(width) / span)
		if i < 0 {
			i = 0
		}
		if i >= width {
			i = width - 1
		}
		buckets[i] += b.Count
	}
	var top int64
	for _, c := range buckets {
		if c > top {
			top = c
		}
	}
	r := make([]rune, width)
	for i, c := range buckets {
		if top == 0 {
			r[i] = sparks[0]
			continue
		}
		r[i] = sparks[int(c*int64(len(sparks)-1)/top)]
		if c > 0 && r[i] == sparks[0] {
			r[i] = sparks[1]
		}
	}
	return "[" + string(r) + "]"
}

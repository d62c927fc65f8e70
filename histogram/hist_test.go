package histogram

import (
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	hdr "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/stretchr/testify/assert"
)

func TestSetConcurrentRecord(t *testing.T) {
	s := NewSet(1000000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordValue("description", int64(j*100))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), s.Count("description"))
	assert.Equal(t, int64(0), s.Count("concept"))
	assert.True(t, strings.HasPrefix(s.String(), "description"))
}

func TestRecordClampsToMax(t *testing.T) {
	s := NewSet(1000)
	s.RecordValue("x", 5000)
	s.RecordValue("x", -1)
	assert.Equal(t, int64(2), s.Count("x"))
}

func TestHDR2Ascii(t *testing.T) {

	h := hdr.New(1, 100000000, 2)

	vals := []int64{5909882, 3189743, 10585013, 25458318, 3966783, 3422098, 4231117, 9340752, 3170300, 25994673, 3153782, 3380580, 7610163, 24063752, 3102519, 2591986, 2954410, 9289574, 3921115, 2884490, 3327049, 6709453, 5604132, 6667225, 27533068, 4140877, 3602332, 27568251, 4309190, 9028662, 5588669, 3986636, 8253459, 3196435, 24053134, 4055653, 3816716, 25768547, 2908715, 2671722, 3123276, 2721086, 29713278, 5433067, 4357616, 2487014, 4132033, 20854844, 3402966}
	for _, val := range vals {
		if err := h.RecordValue(val); err != nil {
			t.Errorf("RecordValue error: %v\n", err)
		}
	}
	s := HDR2ASCII(h, 30, 0, 30000000)
	assert.Equal(t, 32, utf8.RuneCountInString(s))
	// most values sit in the low buckets
	assert.Contains(t, s, "█")
	assert.Equal(t, "", HDR2ASCII(h, 0, 0, 10))
}

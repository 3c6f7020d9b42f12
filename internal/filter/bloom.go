package filter

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// IssuedCodes remembers every code handed out. A negative Test is
// definitive; a positive one only means the code may be taken.
type IssuedCodes struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

func NewIssuedCodes(capacity uint, fpRate float64) *IssuedCodes {
	return &IssuedCodes{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

func (f *IssuedCodes) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(code)
}

func (f *IssuedCodes) AddBatch(codes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range codes {
		f.filter.AddString(c)
	}
}

func (f *IssuedCodes) Test(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(code)
}

package datamap

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// VendorScanner reports the vendors that set cookies on a website domain
type VendorScanner interface {
	ScanVendors(ctx context.Context, domain string, known []string) ([]string, error)
}

// RandomVendorScanner simulates a cookie scan by picking a random non-empty
// sample of the known vendors
type RandomVendorScanner struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomVendorScanner creates a scanner; seed 0 seeds from the clock
func NewRandomVendorScanner(seed int64) *RandomVendorScanner {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomVendorScanner{rnd: rand.New(rand.NewSource(seed))}
}

func (s *RandomVendorScanner) ScanVendors(ctx context.Context, domain string, known []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(known) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 1 + s.rnd.Intn(len(known))
	perm := s.rnd.Perm(len(known))
	out := make([]string, 0, count)
	for _, i := range perm[:count] {
		out = append(out, known[i])
	}
	return out, nil
}

// FixedVendorScanner always reports the same vendors
type FixedVendorScanner []string

func (s FixedVendorScanner) ScanVendors(ctx context.Context, domain string, known []string) ([]string, error) {
	return copyStrings(s), nil
}

package payments

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ReferenceGenerator mints `<PREFIX>-<ULID>` transaction references. The ULID
// timestamp never moves backwards within a process and the 80-bit suffix comes
// from crypto/rand, incremented monotonically for calls in the same millisecond.
type ReferenceGenerator struct {
	prefix string
	maxLen int

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	lastMS  uint64
	now     func() time.Time
}

// NewReferenceGenerator validates the prefix against the gateway length limit.
func NewReferenceGenerator(prefix string, maxLen int) (*ReferenceGenerator, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, errors.New("reference prefix is required")
	}
	for _, r := range prefix {
		if r > 127 || r == '-' {
			return nil, fmt.Errorf("reference prefix %q must be ascii without dashes", prefix)
		}
	}
	if maxLen > 0 && len(prefix)+1+ulid.EncodedSize > maxLen {
		return nil, fmt.Errorf("reference prefix %q exceeds gateway limit of %d characters", prefix, maxLen)
	}
	return &ReferenceGenerator{
		prefix:  prefix,
		maxLen:  maxLen,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}, nil
}

// Length is the fixed size of every generated reference.
func (g *ReferenceGenerator) Length() int {
	return len(g.prefix) + 1 + ulid.EncodedSize
}

// Generate is safe for concurrent use.
func (g *ReferenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(g.now())
	if ms < g.lastMS {
		ms = g.lastMS
	}
	for {
		id, err := ulid.New(ms, g.entropy)
		if err == nil {
			g.lastMS = ms
			return g.prefix + "-" + id.String(), nil
		}
		if !errors.Is(err, ulid.ErrMonotonicOverflow) {
			return "", fmt.Errorf("generate reference: %w", err)
		}
		// random suffix space for this millisecond is exhausted
		ms++
	}
}

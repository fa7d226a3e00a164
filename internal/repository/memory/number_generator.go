package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fieldops/maintenance-desk/internal/repository"
)

var _ repository.NumberGenerator = (*NumberGenerator)(nil)

// NumberGenerator counts per prefix and day in process memory.
type NumberGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewNumberGenerator returns a generator starting every day at 0001.
func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{counters: make(map[string]int64)}
}

func (g *NumberGenerator) Next(_ context.Context, prefix string, at time.Time) (string, error) {
	day := at.UTC().Format("20060102")
	g.mu.Lock()
	defer g.mu.Unlock()
	key := prefix + ":" + day
	g.counters[key]++
	return repository.FormatNumber(prefix, day, g.counters[key]), nil
}

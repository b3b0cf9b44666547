package benchmark

import (
	"context"
	"sort"
	"sync"
)

// Snapshot is a frozen view of one contract type's reference scores.
// Scores are sorted ascending and never mutated after the snapshot is
// taken.
type Snapshot struct {
	ContractType string
	Scores       []float64
}

// Provider supplies reference populations for percentile ranking.
type Provider interface {
	// Snapshot returns a frozen copy of the population for the contract
	// type. An unknown type yields an empty snapshot, not an error.
	Snapshot(ctx context.Context, contractType string) (Snapshot, error)

	// Record adds a benchmarked score to the population.
	Record(ctx context.Context, contractType, documentID string, score float64) error
}

// MemoryPopulation is an in-memory Provider, used in tests and local runs.
type MemoryPopulation struct {
	mu     sync.RWMutex
	scores map[string][]float64
}

// NewMemoryPopulation creates an empty in-memory population.
func NewMemoryPopulation() *MemoryPopulation {
	return &MemoryPopulation{scores: make(map[string][]float64)}
}

// Seed bulk-loads scores for a contract type.
func (p *MemoryPopulation) Seed(contractType string, scores ...float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores[contractType] = append(p.scores[contractType], scores...)
}

// Snapshot returns a sorted copy of the contract type's scores.
func (p *MemoryPopulation) Snapshot(_ context.Context, contractType string) (Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	src := p.scores[contractType]
	out := make([]float64, len(src))
	copy(out, src)
	sort.Float64s(out)
	return Snapshot{ContractType: contractType, Scores: out}, nil
}

// Record appends one score.
func (p *MemoryPopulation) Record(_ context.Context, contractType, _ string, score float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores[contractType] = append(p.scores[contractType], score)
	return nil
}

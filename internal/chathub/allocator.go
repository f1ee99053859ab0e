package chathub

import (
	"fmt"
	"math/rand/v2"
	"pairlab/backend/internal/config"
	"sync"
)

// ConfederateAllocator draws distinct confederate identities for new rooms.
// It is safe for concurrent use.
type ConfederateAllocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewConfederateAllocator returns an allocator drawing from src.
// A nil src seeds a PCG source from the runtime's random generator.
func NewConfederateAllocator(src rand.Source) *ConfederateAllocator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &ConfederateAllocator{rng: rand.New(src)}
}

// Allocate assigns len(cfg.Slots) distinct names from cfg.Pool, drawn without
// replacement. The first draw goes to the primary slot (cfg.Slots[0]) and the
// rest follow slot order. Types without slots get a nil map.
func (a *ConfederateAllocator) Allocate(cfg config.RoomTypeConfig) (map[string]string, error) {
	k := len(cfg.Slots)
	if k == 0 {
		return nil, nil
	}
	n := len(cfg.Pool)
	if n < k {
		return nil, fmt.Errorf("room type %s needs %d confederates but the pool has %d names", cfg.Type, k, n)
	}

	names := make([]string, n)
	copy(names, cfg.Pool)

	// Partial Fisher-Yates: names[:k] is a uniform k-permutation of the pool.
	a.mu.Lock()
	for i := 0; i < k; i++ {
		j := i + a.rng.IntN(n-i)
		names[i], names[j] = names[j], names[i]
	}
	a.mu.Unlock()

	assignments := make(map[string]string, k)
	for i, slot := range cfg.Slots {
		assignments[slot] = names[i]
	}
	return assignments, nil
}

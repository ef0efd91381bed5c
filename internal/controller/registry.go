package controller

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry tracks one controller per pool, keyed by pool address. Map
// access is guarded; per-pool call serialization remains the caller's job.
type Registry struct {
	mu    sync.RWMutex
	pools map[common.Address]Engine
}

func NewRegistry() *Registry {
	return &Registry{pools: make(map[common.Address]Engine)}
}

func (r *Registry) Get(addr common.Address) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eng, ok := r.pools[addr]
	return eng, ok
}

func (r *Registry) Put(addr common.Address, eng Engine) {
	r.mu.Lock()
	r.pools[addr] = eng
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Addresses returns the registered pool addresses in a stable order.
func (r *Registry) Addresses() []common.Address {
	r.mu.RLock()
	addrs := make([]common.Address, 0, len(r.pools))
	for addr := range r.pools {
		addrs = append(addrs, addr)
	}
	r.mu.RUnlock()

	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}

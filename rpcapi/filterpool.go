package rpcapi

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/eth/filters"
)

// MaxStoredFilters bounds the filter pool (spec.md §4.9's
// MAX_STORED_FILTERS).
const MaxStoredFilters = 256

// RetainThreshold is how many blocks past its at_block a filter survives
// before the cleaner reaps it, polled or not (spec.md §4.9's
// RETAIN_THRESHOLD).
const RetainThreshold = 64

// CleanerInterval is how often the background cleaner sweeps the pool.
const CleanerInterval = 2 * time.Second

type filterKind int

const (
	filterLogs filterKind = iota
	filterNewHeads
	filterPendingTx
)

// filterEntry is the (last_poll_height, filter_type, at_block) tuple
// spec.md §4.9 keys a filter ID to.
type filterEntry struct {
	id            *big.Int
	kind          filterKind
	criteria      filters.FilterCriteria
	atBlock       uint32
	lastPollBlock uint32
}

// filterPool is the ordered mapping from monotonically-increasing
// filter IDs to filterEntry, with a background cleaner removing stale
// entries. Bounded by MaxStoredFilters (spec.md §4.9).
type filterPool struct {
	mu      sync.Mutex
	nextID  *big.Int
	order   []*big.Int
	entries map[string]*filterEntry
}

func newFilterPool() *filterPool {
	return &filterPool{
		nextID:  new(big.Int),
		entries: make(map[string]*filterEntry),
	}
}

// newFilterID allocates a fresh monotonically-increasing filter ID,
// evicting the oldest entry first if the pool is at capacity.
func (p *filterPool) newFilterID() (*big.Int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	evicted := false
	if len(p.order) >= MaxStoredFilters {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.entries, oldest.String())
		evicted = true
	}

	p.nextID = new(big.Int).Add(p.nextID, big.NewInt(1))
	id := new(big.Int).Set(p.nextID)
	p.order = append(p.order, id)
	return id, evicted
}

func (p *filterPool) install(id *big.Int, entry *filterEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry.id = id
	p.entries[id.String()] = entry
}

// get returns the entry for id, or (nil, false) if unknown — the
// FilterError("filter ID unknown") condition (spec.md §7).
func (p *filterPool) get(id *big.Int) (*filterEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id.String()]
	return e, ok
}

// touch records a poll at currentHeight, updating last_poll_height.
func (p *filterPool) touch(id *big.Int, currentHeight uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[id.String()]; ok {
		e.lastPollBlock = currentHeight
	}
}

// remove deletes a filter by ID (eth_uninstallFilter).
func (p *filterPool) remove(id *big.Int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := id.String()
	if _, ok := p.entries[key]; !ok {
		return false
	}
	delete(p.entries, key)
	for i, existing := range p.order {
		if existing.Cmp(id) == 0 {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// runCleaner sweeps the pool at CleanerInterval, removing any entry
// whose at_block + RetainThreshold <= latestHeight(), per spec.md §4.9.
// It stops when ctx is cancelled.
func (p *filterPool) runCleaner(ctx context.Context, latestHeight func(context.Context) (uint32, error)) {
	ticker := time.NewTicker(CleanerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h, err := latestHeight(ctx)
			if err != nil {
				continue
			}
			p.sweep(h)
		}
	}
}

func (p *filterPool) sweep(latest uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.order[:0:0]
	for _, id := range p.order {
		e := p.entries[id.String()]
		if e != nil && uint64(e.atBlock)+uint64(RetainThreshold) <= uint64(latest) {
			delete(p.entries, id.String())
			continue
		}
		kept = append(kept, id)
	}
	p.order = kept
}

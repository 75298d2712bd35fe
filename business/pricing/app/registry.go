package app

import (
	"sort"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

type registryEntry struct {
	liquidity domain.Liquidity
	updatedAt time.Time
}

// Registry stores the latest liquidity snapshot per venue and pair. For each
// venue only one orientation of a pair may be registered; the other is
// derived at pricing time. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	venues map[string]map[domain.Pair]registryEntry
	now    func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		venues: make(map[string]map[domain.Pair]registryEntry),
		now:    time.Now,
	}
}

// RegisterOrderBook stores book under venue and pair, replacing any previous
// snapshot for that exact pair.
func (r *Registry) RegisterOrderBook(venue string, pair domain.Pair, book domain.OrderBook) error {
	return r.register(venue, pair, book)
}

// RegisterReserves stores pool under venue and pair, replacing any previous
// snapshot for that exact pair.
func (r *Registry) RegisterReserves(venue string, pair domain.Pair, pool domain.ReservePool) error {
	return r.register(venue, pair, pool)
}

func (r *Registry) register(venue string, pair domain.Pair, liq domain.Liquidity) error {
	if err := pair.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pairs := r.venues[venue]
	if _, exists := pairs[pair.Reverse()]; exists {
		return apperror.New(apperror.CodeDuplicateReverseLiquidity,
			apperror.WithContextf("%s %s already registered as %s", venue, pair, pair.Reverse()))
	}

	if pairs == nil {
		pairs = make(map[domain.Pair]registryEntry)
		r.venues[venue] = pairs
	}
	pairs[pair] = registryEntry{liquidity: liq.Clone(), updatedAt: r.now()}
	return nil
}

// Lookup returns the liquidity registered under exactly venue and pair. The
// reverse pair is not consulted. The result must not be modified.
func (r *Registry) Lookup(venue string, pair domain.Pair) (domain.Liquidity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.venues[venue][pair]
	if !ok {
		return nil, false
	}
	return e.liquidity, true
}

// LookupOrderBook returns the order book under venue and pair, if that is
// what is registered there.
func (r *Registry) LookupOrderBook(venue string, pair domain.Pair) (domain.OrderBook, bool) {
	liq, ok := r.Lookup(venue, pair)
	if !ok {
		return domain.OrderBook{}, false
	}
	book, ok := liq.(domain.OrderBook)
	return book, ok
}

// LookupReserves returns the pool under venue and pair, if that is what is
// registered there.
func (r *Registry) LookupReserves(venue string, pair domain.Pair) (domain.ReservePool, bool) {
	liq, ok := r.Lookup(venue, pair)
	if !ok {
		return domain.ReservePool{}, false
	}
	pool, ok := liq.(domain.ReservePool)
	return pool, ok
}

// Remove deletes the entry for venue and pair. It reports whether one existed.
func (r *Registry) Remove(venue string, pair domain.Pair) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairs := r.venues[venue]
	if _, ok := pairs[pair]; !ok {
		return false
	}
	delete(pairs, pair)
	if len(pairs) == 0 {
		delete(r.venues, venue)
	}
	return true
}

// UpdatedAt returns when venue and pair were last registered.
func (r *Registry) UpdatedAt(venue string, pair domain.Pair) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.venues[venue][pair]
	return e.updatedAt, ok
}

// Venues lists venues with at least one entry, sorted.
func (r *Registry) Venues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.venues))
	for v := range r.venues {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Pairs lists the registered pairs of venue, sorted by identifier.
func (r *Registry) Pairs(venue string) []domain.Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Pair, 0, len(r.venues[venue]))
	for p := range r.venues[venue] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of registered entries across all venues.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, pairs := range r.venues {
		n += len(pairs)
	}
	return n
}

// Snapshot returns an independent copy for point-in-time pricing. Later
// registrations on r do not affect it.
func (r *Registry) Snapshot() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := &Registry{
		venues: make(map[string]map[domain.Pair]registryEntry, len(r.venues)),
		now:    r.now,
	}
	// Entries are cloned on register and never mutated, so sharing them is safe.
	for venue, pairs := range r.venues {
		m := make(map[domain.Pair]registryEntry, len(pairs))
		for p, e := range pairs {
			m[p] = e
		}
		cp.venues[venue] = m
	}
	return cp
}

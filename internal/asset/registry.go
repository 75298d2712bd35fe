package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type symbolKey struct {
	chainID uint64
	symbol  string
}

// Registry is a thread-safe index of known tokens by symbol and address.
type Registry struct {
	mu        sync.RWMutex
	bySymbol  map[symbolKey]*Asset
	byAddress map[common.Address]*Asset
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		bySymbol:  make(map[symbolKey]*Asset),
		byAddress: make(map[common.Address]*Asset),
	}
}

// Register adds a token. Registering the same token twice is a no-op; a
// different token under a taken symbol or address is an error.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return fmt.Errorf("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := symbolKey{a.chainID, strings.ToUpper(a.symbol)}
	if existing, ok := r.bySymbol[key]; ok {
		if existing.Equals(a) {
			return nil
		}
		return fmt.Errorf("asset: symbol %s already registered on chain %d as %s", a.symbol, a.chainID, existing.address.Hex())
	}
	if existing, ok := r.byAddress[a.address]; ok && a.address != (common.Address{}) {
		return fmt.Errorf("asset: address %s already registered as %s", a.address.Hex(), existing.symbol)
	}

	r.bySymbol[key] = a
	if a.address != (common.Address{}) {
		r.byAddress[a.address] = a
	}
	return nil
}

// BySymbol looks a token up by chain and symbol, case-insensitively.
func (r *Registry) BySymbol(chainID uint64, symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.bySymbol[symbolKey{chainID, strings.ToUpper(symbol)}]
	return a, ok
}

// ByAddress looks a token up by contract address.
func (r *Registry) ByAddress(address common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byAddress[address]
	return a, ok
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySymbol)
}

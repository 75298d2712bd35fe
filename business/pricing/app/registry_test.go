package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

func book(bidPrice, bidSize, askPrice, askSize string) domain.OrderBook {
	return domain.OrderBook{
		Bids: []domain.PriceLevel{{Price: decimal.RequireFromString(bidPrice), Size: decimal.RequireFromString(bidSize)}},
		Asks: []domain.PriceLevel{{Price: decimal.RequireFromString(askPrice), Size: decimal.RequireFromString(askSize)}},
	}
}

func pool(r0, r1 string) domain.ReservePool {
	return domain.ReservePool{R0: decimal.RequireFromString(r0), R1: decimal.RequireFromString(r1)}
}

func register(r *Registry, venue, pair string, liq domain.Liquidity) error {
	switch l := liq.(type) {
	case domain.OrderBook:
		return r.RegisterOrderBook(venue, domain.MustParsePair(pair), l)
	case domain.ReservePool:
		return r.RegisterReserves(venue, domain.MustParsePair(pair), l)
	}
	return nil
}

func TestRegistry_CanonicalDirection(t *testing.T) {
	tests := []struct {
		name       string
		venue      string
		pair       string
		liq        domain.Liquidity
		reverse    string
		reverseLiq domain.Liquidity
	}{
		{"book_then_reverse_book", "bitkub", "BTC_THB", book("1", "1", "2", "1"), "THB_BTC", book("1", "1", "2", "1")},
		{"pool_then_reverse_pool", "uniswap", "WETH_USDC", pool("10", "20000"), "USDC_WETH", pool("20000", "10")},
		{"book_then_reverse_pool", "dex", "A_B", book("1", "1", "2", "1"), "B_A", pool("1", "1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if err := register(r, tt.venue, tt.pair, tt.liq); err != nil {
				t.Fatalf("first registration failed: %v", err)
			}
			err := register(r, tt.venue, tt.reverse, tt.reverseLiq)
			if !apperror.IsCode(err, apperror.CodeDuplicateReverseLiquidity) {
				t.Fatalf("reverse registration error = %v, want DUPLICATE_REVERSE_LIQUIDITY", err)
			}
			if r.Len() != 1 {
				t.Errorf("Len() = %d after failed registration, want 1", r.Len())
			}
		})
	}
}

func TestRegistry_ReverseAllowedOnOtherVenue(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterOrderBook("binance", domain.MustParsePair("BTC_USDT"), book("1", "1", "2", "1")); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterOrderBook("bitkub", domain.MustParsePair("USDT_BTC"), book("1", "1", "2", "1")); err != nil {
		t.Errorf("reverse pair on a different venue should register: %v", err)
	}
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	pair := domain.MustParsePair("BTC_USDT")

	if err := r.RegisterOrderBook("binance", pair, book("30000", "1", "31000", "1")); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterOrderBook("binance", pair, book("32000", "2", "33000", "2")); err != nil {
		t.Fatalf("re-registering the same pair should succeed: %v", err)
	}

	got, ok := r.LookupOrderBook("binance", pair)
	if !ok {
		t.Fatal("LookupOrderBook() not found")
	}
	if bid, _ := got.BestBid(); !bid.Price.Equal(decimal.NewFromInt(32000)) {
		t.Errorf("best bid = %s, want 32000", bid.Price)
	}
}

func TestRegistry_LookupDoesNotSearchReverse(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterReserves("uni", domain.MustParsePair("BTC_USDT"), pool("1", "2")); err != nil {
		t.Fatal(err)
	}

	if _, ok := r.LookupReserves("uni", domain.MustParsePair("USDT_BTC")); ok {
		t.Error("LookupReserves() found reverse pair, want not found")
	}
	if _, ok := r.LookupOrderBook("uni", domain.MustParsePair("BTC_USDT")); ok {
		t.Error("LookupOrderBook() returned a pool entry")
	}
	if p, ok := r.LookupReserves("uni", domain.MustParsePair("BTC_USDT")); !ok || !p.R1.Equal(decimal.NewFromInt(2)) {
		t.Errorf("LookupReserves() = %+v, %v", p, ok)
	}
	if _, ok := r.Lookup("other", domain.MustParsePair("BTC_USDT")); ok {
		t.Error("Lookup() on unknown venue should be not found")
	}
}

func TestRegistry_InvalidPair(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterOrderBook("binance", domain.NewPair("", "USDT"), domain.OrderBook{})
	if !apperror.IsCode(err, apperror.CodeInvalidPair) {
		t.Errorf("error = %v, want INVALID_PAIR", err)
	}
}

func TestRegistry_RegisterCopiesLevels(t *testing.T) {
	r := NewRegistry()
	pair := domain.MustParsePair("BTC_USDT")
	b := book("100", "1", "101", "1")

	if err := r.RegisterOrderBook("binance", pair, b); err != nil {
		t.Fatal(err)
	}
	b.Bids[0].Price = decimal.NewFromInt(1)

	got, _ := r.LookupOrderBook("binance", pair)
	if !got.Bids[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("stored bid changed to %s after caller mutation", got.Bids[0].Price)
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	pair := domain.MustParsePair("BTC_USDT")
	if err := r.RegisterReserves("uni", pair, pool("1", "2")); err != nil {
		t.Fatal(err)
	}

	snap := r.Snapshot()
	if err := r.RegisterReserves("uni", pair, pool("5", "6")); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterReserves("uni", domain.MustParsePair("ETH_USDT"), pool("1", "1")); err != nil {
		t.Fatal(err)
	}

	got, _ := snap.LookupReserves("uni", pair)
	if !got.R0.Equal(decimal.NewFromInt(1)) {
		t.Errorf("snapshot R0 = %s, want 1", got.R0)
	}
	if snap.Len() != 1 {
		t.Errorf("snapshot Len() = %d, want 1", snap.Len())
	}
	if r.Len() != 2 {
		t.Errorf("registry Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_Listing(t *testing.T) {
	r := NewRegistry()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	_ = r.RegisterOrderBook("bitkub", domain.MustParsePair("USDT_THB"), domain.OrderBook{})
	_ = r.RegisterOrderBook("bitkub", domain.MustParsePair("BTC_THB"), domain.OrderBook{})
	_ = r.RegisterOrderBook("binance", domain.MustParsePair("BTC_USDT"), domain.OrderBook{})

	venues := r.Venues()
	if len(venues) != 2 || venues[0] != "binance" || venues[1] != "bitkub" {
		t.Errorf("Venues() = %v, want [binance bitkub]", venues)
	}

	pairs := r.Pairs("bitkub")
	if len(pairs) != 2 || pairs[0].String() != "BTC_THB" || pairs[1].String() != "USDT_THB" {
		t.Errorf("Pairs(bitkub) = %v", pairs)
	}

	at, ok := r.UpdatedAt("bitkub", domain.MustParsePair("BTC_THB"))
	if !ok || !at.Equal(fixed) {
		t.Errorf("UpdatedAt() = %v, %v; want %v", at, ok, fixed)
	}

	if !r.Remove("binance", domain.MustParsePair("BTC_USDT")) {
		t.Error("Remove() = false for existing entry")
	}
	if r.Remove("binance", domain.MustParsePair("BTC_USDT")) {
		t.Error("Remove() = true for missing entry")
	}
	if got := r.Venues(); len(got) != 1 {
		t.Errorf("Venues() after remove = %v", got)
	}
}

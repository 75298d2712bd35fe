package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
	pricingDomain "github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func level(price, size string) []pricingDomain.PriceLevel {
	return []pricingDomain.PriceLevel{{Price: dec(price), Size: dec(size)}}
}

func newRegistry(t *testing.T, books map[string]map[string]pricingDomain.OrderBook) *pricingApp.Registry {
	t.Helper()
	r := pricingApp.NewRegistry()
	for venue, pairs := range books {
		for pair, b := range pairs {
			if err := r.RegisterOrderBook(venue, pricingDomain.MustParsePair(pair), b); err != nil {
				t.Fatal(err)
			}
		}
	}
	return r
}

func TestSelector_CalculatePureArb_Middle(t *testing.T) {
	r := newRegistry(t, map[string]map[string]pricingDomain.OrderBook{
		"binance": {
			"BTC_USDT": {Bids: level("30000", "10000"), Asks: level("40000", "10000")},
		},
		"bitkub": {
			"BTC_THB":  {Bids: level("900000", "10000"), Asks: level("1000000", "10000")},
			"USDT_THB": {Bids: level("30", "10000"), Asks: level("40", "10000")},
		},
	})
	s := NewSelector(pricingApp.NewEngine(r))

	best, all, err := s.CalculatePureArbAll(domain.PureArbParams{
		Venue0: "bitkub", Venue1: "binance",
		Token0: "USDT", Token1: "BTC", Middle: "THB",
		AmountIn: dec("100"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d candidates, want 2", len(all))
	}

	// Forward: USDT>THB>BTC>USDT = 100, 3000, 0.003, 90
	if !all[0].FinalAmount().Equal(dec("90")) {
		t.Errorf("forward final = %s, want 90", all[0].FinalAmount())
	}
	// Reverse: USDT>BTC>THB>USDT = 100, 0.0025, 2250, 56.25
	if !all[1].FinalAmount().Equal(dec("56.25")) {
		t.Errorf("reverse final = %s, want 56.25", all[1].FinalAmount())
	}

	if best.Direction != domain.DirectionForward {
		t.Errorf("best direction = %s, want %s", best.Direction, domain.DirectionForward)
	}
	if !best.PNL.Equal(dec("-10")) {
		t.Errorf("best PNL = %s, want -10", best.PNL)
	}
}

func TestSelector_CalculatePureArb_TwoVenues(t *testing.T) {
	r := newRegistry(t, map[string]map[string]pricingDomain.OrderBook{
		"cheap": {"BTC_USDT": {Bids: level("29000", "10"), Asks: level("30000", "10")}},
		"rich":  {"BTC_USDT": {Bids: level("31000", "10"), Asks: level("32000", "10")}},
	})
	s := NewSelector(pricingApp.NewEngine(r))

	best, err := s.CalculatePureArb(domain.PureArbParams{
		Venue0: "rich", Venue1: "cheap",
		Token0: "USDT", Token1: "BTC",
		AmountIn: dec("3000"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Buy 0.1 BTC on cheap for 3000, sell on rich for 3100.
	if best.Direction != domain.DirectionReverse {
		t.Errorf("direction = %s, want %s", best.Direction, domain.DirectionReverse)
	}
	if !best.PNL.Equal(dec("100")) {
		t.Errorf("PNL = %s, want 100", best.PNL)
	}
	if best.Route.Exchanges[1] != "cheap" {
		t.Errorf("first venue = %s, want cheap", best.Route.Exchanges[1])
	}
}

func TestSelector_TieKeepsFirst(t *testing.T) {
	b := pricingDomain.OrderBook{Bids: level("100", "10"), Asks: level("100", "10")}
	r := newRegistry(t, map[string]map[string]pricingDomain.OrderBook{
		"a": {"X_Y": b},
		"b": {"X_Y": b},
	})
	s := NewSelector(pricingApp.NewEngine(r))

	best, err := s.CalculatePureArb(domain.PureArbParams{
		Venue0: "a", Venue1: "b", Token0: "Y", Token1: "X", AmountIn: dec("100"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.Direction != domain.DirectionForward {
		t.Errorf("tie should keep the first candidate, got %s", best.Direction)
	}
}

func TestSelector_PropagatesPricingErrors(t *testing.T) {
	r := newRegistry(t, map[string]map[string]pricingDomain.OrderBook{
		"a": {"X_Y": {Bids: level("1", "1"), Asks: level("1", "1")}},
	})
	s := NewSelector(pricingApp.NewEngine(r))

	_, err := s.CalculatePureArb(domain.PureArbParams{
		Venue0: "a", Venue1: "missing", Token0: "Y", Token1: "X", AmountIn: dec("1"),
	})
	if !apperror.IsCode(err, apperror.CodeNoLiquidityFound) {
		t.Errorf("error = %v, want NO_LIQUIDITY_FOUND", err)
	}
}

package static

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/config"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func TestFeed_RegistersConfiguredLiquidity(t *testing.T) {
	cfg := config.StaticConfig{
		OrderBooks: []config.StaticBook{{
			Venue: "binance",
			Pair:  "ETH_USDT",
			Bids:  []config.StaticLevel{{Price: "2999", Size: "1"}, {Price: "3000", Size: "2"}},
			Asks:  []config.StaticLevel{{Price: "3002", Size: "1"}, {Price: "3001", Size: "3"}},
		}},
		Pools: []config.StaticPool{{Venue: "uniswap_v2", Pair: "ETH_USDT", R0: "1000", R1: "3050000"}},
	}

	feed, err := NewFeed(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	registry := app.NewRegistry()
	if err := feed.Start(context.Background(), registry); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	pair := domain.MustParsePair("ETH_USDT")
	book, ok := registry.LookupOrderBook("binance", pair)
	if !ok {
		t.Fatal("order book not registered")
	}
	if !book.Bids[0].Price.Equal(decimal.RequireFromString("3000")) {
		t.Errorf("best bid = %s, want 3000", book.Bids[0].Price)
	}
	if !book.Asks[0].Price.Equal(decimal.RequireFromString("3001")) {
		t.Errorf("best ask = %s, want 3001", book.Asks[0].Price)
	}

	pool, ok := registry.LookupReserves("uniswap_v2", pair)
	if !ok {
		t.Fatal("pool not registered")
	}
	if !pool.R1.Equal(decimal.RequireFromString("3050000")) {
		t.Errorf("R1 = %s, want 3050000", pool.R1)
	}

	if err := feed.Refresh(context.Background(), registry); err != nil {
		t.Errorf("second Refresh() error = %v", err)
	}
}

func TestNewFeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StaticConfig
		code apperror.Code
	}{
		{
			name: "bad pair",
			cfg:  config.StaticConfig{Pools: []config.StaticPool{{Venue: "v", Pair: "ETHUSDT", R0: "1", R1: "1"}}},
			code: apperror.CodeInvalidPair,
		},
		{
			name: "bad reserve",
			cfg:  config.StaticConfig{Pools: []config.StaticPool{{Venue: "v", Pair: "ETH_USDT", R0: "x", R1: "1"}}},
			code: apperror.CodeInvalidReserveOrAmount,
		},
		{
			name: "bad level",
			cfg: config.StaticConfig{OrderBooks: []config.StaticBook{{
				Venue: "v", Pair: "ETH_USDT", Bids: []config.StaticLevel{{Price: "abc", Size: "1"}},
			}}},
			code: apperror.CodeInvalidOrderbook,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFeed(tt.cfg, testLogger())
			if !apperror.IsCode(err, tt.code) {
				t.Errorf("NewFeed() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestFeed_ReverseConflict(t *testing.T) {
	cfg := config.StaticConfig{Pools: []config.StaticPool{
		{Venue: "v", Pair: "ETH_USDT", R0: "1", R1: "3000"},
		{Venue: "v", Pair: "USDT_ETH", R0: "3000", R1: "1"},
	}}
	feed, err := NewFeed(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	err = feed.Start(context.Background(), app.NewRegistry())
	if !apperror.IsCode(err, apperror.CodeDuplicateReverseLiquidity) {
		t.Errorf("Start() error = %v, want DUPLICATE_REVERSE_LIQUIDITY", err)
	}
}

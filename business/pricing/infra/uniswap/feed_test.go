package uniswap

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/asset"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

var poolAddr = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")

// fakeCaller answers eth_call with ABI-encoded pair outputs.
type fakeCaller struct {
	token0   common.Address
	reserve0 *big.Int
	reserve1 *big.Int
	err      error
	calls    map[string]int
}

func (c *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	method, err := pairABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[method.Name]++

	switch method.Name {
	case methodToken0:
		return method.Outputs.Pack(c.token0)
	case methodGetReserves:
		return method.Outputs.Pack(c.reserve0, c.reserve1, uint32(1700000000))
	}
	return nil, errors.New("unexpected method " + method.Name)
}

func units(n int64, decimals int) *big.Int {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(n), exp)
}

func newTestFeed(t *testing.T, caller ethereum.ContractCaller) *Feed {
	t.Helper()
	feed, err := NewFeed(caller, FeedConfig{
		Pools: []PoolConfig{{Pair: domain.MustParsePair("ETH_USDC"), Address: poolAddr}},
	}, asset.DefaultRegistry(), logger.New(io.Discard, logger.LevelDebug, "test", nil))
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	return feed
}

func TestFeed_RegistersScaledReserves(t *testing.T) {
	tests := []struct {
		name     string
		token0   common.Address
		reserve0 *big.Int
		reserve1 *big.Int
	}{
		{
			name:     "token0 is base",
			token0:   asset.AddrWETHEthereum,
			reserve0: units(1000, 18),
			reserve1: units(3_000_000, 6),
		},
		{
			name:     "token0 is quote",
			token0:   asset.AddrUSDCEthereum,
			reserve0: units(3_000_000, 6),
			reserve1: units(1000, 18),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{token0: tt.token0, reserve0: tt.reserve0, reserve1: tt.reserve1}
			feed := newTestFeed(t, caller)
			registry := app.NewRegistry()

			if err := feed.Start(context.Background(), registry); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			pool, ok := registry.LookupReserves("uniswap_v2", domain.MustParsePair("ETH_USDC"))
			if !ok {
				t.Fatal("reserves not registered under ETH_USDC")
			}
			if !pool.R0.Equal(decimal.NewFromInt(1000)) {
				t.Errorf("R0 = %s, want 1000", pool.R0)
			}
			if !pool.R1.Equal(decimal.NewFromInt(3_000_000)) {
				t.Errorf("R1 = %s, want 3000000", pool.R1)
			}
			if !feed.Connected() {
				t.Error("Connected() = false after a clean refresh")
			}
		})
	}
}

func TestFeed_Token0ResolvedOnce(t *testing.T) {
	caller := &fakeCaller{token0: asset.AddrWETHEthereum, reserve0: units(1, 18), reserve1: units(3000, 6)}
	feed := newTestFeed(t, caller)
	registry := app.NewRegistry()

	for i := 0; i < 3; i++ {
		if err := feed.Refresh(context.Background(), registry); err != nil {
			t.Fatalf("Refresh() #%d error = %v", i+1, err)
		}
	}
	if caller.calls[methodToken0] != 1 {
		t.Errorf("token0 calls = %d, want 1", caller.calls[methodToken0])
	}
	if caller.calls[methodGetReserves] != 3 {
		t.Errorf("getReserves calls = %d, want 3", caller.calls[methodGetReserves])
	}
}

func TestFeed_Errors(t *testing.T) {
	t.Run("foreign token0", func(t *testing.T) {
		caller := &fakeCaller{token0: asset.AddrDAIEthereum, reserve0: units(1, 18), reserve1: units(1, 18)}
		feed := newTestFeed(t, caller)
		err := feed.Refresh(context.Background(), app.NewRegistry())
		if !apperror.IsCode(err, apperror.CodeInvalidPair) {
			t.Errorf("Refresh() error = %v, want INVALID_PAIR", err)
		}
		if feed.Connected() {
			t.Error("Connected() = true after a failed refresh")
		}
	})

	t.Run("unregistered token0", func(t *testing.T) {
		caller := &fakeCaller{token0: common.HexToAddress("0xdead"), reserve0: units(1, 18), reserve1: units(1, 6)}
		feed := newTestFeed(t, caller)
		err := feed.Refresh(context.Background(), app.NewRegistry())
		if !apperror.IsCode(err, apperror.CodeInvalidPair) {
			t.Errorf("Refresh() error = %v, want INVALID_PAIR", err)
		}
		if !strings.Contains(err.Error(), "not a known token") {
			t.Errorf("error %q should name the unknown token0", err)
		}
	})

	t.Run("node failure", func(t *testing.T) {
		feed := newTestFeed(t, &fakeCaller{err: errors.New("connection refused")})
		err := feed.Refresh(context.Background(), app.NewRegistry())
		if !apperror.IsCode(err, apperror.CodeContractCallFailed) {
			t.Errorf("Refresh() error = %v, want CONTRACT_CALL_FAILED", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		feed, err := NewFeed(&fakeCaller{}, FeedConfig{
			Pools: []PoolConfig{{Pair: domain.MustParsePair("PEPE_USDC"), Address: poolAddr}},
		}, asset.DefaultRegistry(), logger.New(io.Discard, logger.LevelDebug, "test", nil))
		if err != nil {
			t.Fatal(err)
		}
		err = feed.Refresh(context.Background(), app.NewRegistry())
		if !apperror.IsCode(err, apperror.CodeConfigurationError) {
			t.Errorf("Refresh() error = %v, want CONFIGURATION_ERROR", err)
		}
	})

	t.Run("no pools", func(t *testing.T) {
		_, err := NewFeed(&fakeCaller{}, FeedConfig{}, nil, logger.New(io.Discard, logger.LevelDebug, "test", nil))
		if !apperror.IsCode(err, apperror.CodeConfigurationError) {
			t.Errorf("NewFeed() error = %v, want CONFIGURATION_ERROR", err)
		}
	})
}

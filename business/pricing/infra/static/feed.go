// Package static registers liquidity declared in configuration. It backs
// offline runs and deterministic checks where no market connection exists.
package static

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/config"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

var _ app.LiquidityFeed = (*Feed)(nil)

type bookEntry struct {
	venue string
	pair  domain.Pair
	book  domain.OrderBook
}

type poolEntry struct {
	venue string
	pair  domain.Pair
	pool  domain.ReservePool
}

// Feed replays a fixed set of books and pools on every refresh.
type Feed struct {
	books  []bookEntry
	pools  []poolEntry
	logger logger.LoggerInterface
}

// NewFeed parses cfg up front so bad numbers fail at startup.
func NewFeed(cfg config.StaticConfig, log logger.LoggerInterface) (*Feed, error) {
	f := &Feed{logger: log}

	for _, b := range cfg.OrderBooks {
		pair, err := domain.ParsePair(b.Pair)
		if err != nil {
			return nil, err
		}
		bids, err := parseLevels(b.Bids)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidOrderbook, b.Venue+" "+b.Pair+" bids")
		}
		asks, err := parseLevels(b.Asks)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidOrderbook, b.Venue+" "+b.Pair+" asks")
		}
		sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })
		sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })
		f.books = append(f.books, bookEntry{venue: b.Venue, pair: pair, book: domain.OrderBook{Bids: bids, Asks: asks}})
	}

	for _, p := range cfg.Pools {
		pair, err := domain.ParsePair(p.Pair)
		if err != nil {
			return nil, err
		}
		r0, err := decimal.NewFromString(p.R0)
		if err != nil {
			return nil, apperror.New(apperror.CodeInvalidReserveOrAmount, apperror.WithContext(p.Venue+" "+p.Pair+" r0"), apperror.WithCause(err))
		}
		r1, err := decimal.NewFromString(p.R1)
		if err != nil {
			return nil, apperror.New(apperror.CodeInvalidReserveOrAmount, apperror.WithContext(p.Venue+" "+p.Pair+" r1"), apperror.WithCause(err))
		}
		f.pools = append(f.pools, poolEntry{venue: p.Venue, pair: pair, pool: domain.ReservePool{R0: r0, R1: r1}})
	}

	return f, nil
}

func parseLevels(raw []config.StaticLevel) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, l := range raw {
		level, err := domain.NewPriceLevel(l.Price, l.Size)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func (f *Feed) Name() string { return "static" }

func (f *Feed) Start(ctx context.Context, sink app.LiquiditySink) error {
	if err := f.Refresh(ctx, sink); err != nil {
		return err
	}
	f.logger.Info(ctx, "static liquidity loaded", "orderbooks", len(f.books), "pools", len(f.pools))
	return nil
}

// Refresh registers everything again. Re-registering the same pair only
// replaces it, so this is idempotent.
func (f *Feed) Refresh(_ context.Context, sink app.LiquiditySink) error {
	for _, b := range f.books {
		if err := sink.RegisterOrderBook(b.venue, b.pair, b.book); err != nil {
			return err
		}
	}
	for _, p := range f.pools {
		if err := sink.RegisterReserves(p.venue, p.pair, p.pool); err != nil {
			return err
		}
	}
	return nil
}

func (f *Feed) Connected() bool { return true }

func (f *Feed) Stop() error { return nil }

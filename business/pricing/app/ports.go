// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
)

// LiquiditySink receives normalized liquidity from feeds. *Registry
// implements it.
type LiquiditySink interface {
	RegisterOrderBook(venue string, pair domain.Pair, book domain.OrderBook) error
	RegisterReserves(venue string, pair domain.Pair, pool domain.ReservePool) error
}

// LiquidityFeed pushes one venue's liquidity into a sink. Feeds never price
// routes; they only register.
type LiquidityFeed interface {
	// Name identifies the feed in logs, metrics and health checks.
	Name() string

	// Start begins streaming into sink. It must not block past the initial
	// connection attempt.
	Start(ctx context.Context, sink LiquiditySink) error

	// Refresh pulls one full snapshot into sink. Push-only feeds may return nil.
	Refresh(ctx context.Context, sink LiquiditySink) error

	// Connected reports whether the feed currently has a live source.
	Connected() bool

	Stop() error
}

var _ LiquiditySink = (*Registry)(nil)

// Package di holds the typed container tokens of the pricing context.
package di

import (
	"github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/internal/di"
)

// PricingService is what other contexts resolve. Registry and Feeds are
// only read inside pricing.
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
	Registry       = di.NewToken[*app.Registry]("pricing:registry")
	Feeds          = di.NewToken[[]app.LiquidityFeed]("pricing:feeds")
)

func GetPricingService(sr di.ServiceRegistry) *app.PricingService {
	return di.GetToken(sr, PricingService)
}

func GetRegistry(sr di.ServiceRegistry) *app.Registry { return di.GetToken(sr, Registry) }

func GetFeeds(sr di.ServiceRegistry) []app.LiquidityFeed { return di.GetToken(sr, Feeds) }

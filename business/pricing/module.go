// Package pricing implements the pricing bounded context: the liquidity
// registry, the route pricing engine and the feeds that keep it current.
package pricing

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arbitrage-engine/business/pricing/app"
	pricingDI "github.com/fd1az/arbitrage-engine/business/pricing/di"
	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/business/pricing/infra/binance"
	"github.com/fd1az/arbitrage-engine/business/pricing/infra/static"
	"github.com/fd1az/arbitrage-engine/business/pricing/infra/uniswap"
	"github.com/fd1az/arbitrage-engine/internal/asset"
	"github.com/fd1az/arbitrage-engine/internal/config"
	"github.com/fd1az/arbitrage-engine/internal/di"
	"github.com/fd1az/arbitrage-engine/internal/logger"
	"github.com/fd1az/arbitrage-engine/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		return app.NewRegistry()
	})

	// Feeds are built from whichever config sections are enabled.
	di.RegisterToken(c, pricingDI.Feeds, func(sr di.ServiceRegistry) []app.LiquidityFeed {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		ethClient, _ := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)
		tokens := sr.Get(monolith.ServiceAssetRegistry).(*asset.Registry)

		feeds, err := buildFeeds(cfg, log, ethClient, tokens)
		if err != nil {
			panic("failed to create liquidity feeds: " + err.Error())
		}
		return feeds
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		svc, err := app.NewPricingService(
			pricingDI.GetRegistry(sr),
			log,
			cfg.Engine.DefaultPrecision,
			pricingDI.GetFeeds(sr)...,
		)
		if err != nil {
			panic("failed to create pricing service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup starts every feed. Streaming feeds that fail to connect keep
// retrying in the background, so only a total failure stops the app.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := pricingDI.GetPricingService(mono.Services())

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start pricing feeds: %w", err)
	}

	log.Info(ctx, "pricing module started",
		"feeds", len(svc.Feeds()),
		"liquidity", svc.Registry().Len(),
	)
	return nil
}

func buildFeeds(cfg *config.Config, log logger.LoggerInterface, ethClient *ethclient.Client, tokens *asset.Registry) ([]app.LiquidityFeed, error) {
	var feeds []app.LiquidityFeed

	if !cfg.Static.Empty() {
		feed, err := static.NewFeed(cfg.Static, log)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}

	if cfg.Binance.Enabled {
		markets := make(map[string]domain.Pair, len(cfg.Binance.Markets))
		for _, mk := range cfg.Binance.Markets {
			pair, err := domain.ParsePair(mk.Pair)
			if err != nil {
				return nil, err
			}
			markets[mk.Symbol] = pair
		}
		feed, err := binance.NewFeed(binance.FeedConfig{
			Venue:             cfg.Binance.Venue,
			Markets:           markets,
			WebSocketURL:      cfg.Binance.WebSocketURL,
			HTTPURL:           cfg.Binance.RESTURL,
			DepthLimit:        cfg.Binance.DepthLimit,
			DepthSpeedMs:      cfg.Binance.DepthSpeedMs,
			StaleTimeout:      cfg.Binance.StaleTimeout,
			EnableFallback:    cfg.Binance.RESTFallback,
			RequestsPerMinute: cfg.Binance.RequestsPerMinute,
			RequestTimeout:    cfg.Binance.RequestTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}

	if cfg.Uniswap.Enabled {
		if ethClient == nil {
			return nil, fmt.Errorf("uniswap feed needs an ethereum endpoint")
		}
		pools := make([]uniswap.PoolConfig, 0, len(cfg.Uniswap.Pools))
		for _, p := range cfg.Uniswap.Pools {
			pair, err := domain.ParsePair(p.Pair)
			if err != nil {
				return nil, err
			}
			pools = append(pools, uniswap.PoolConfig{Pair: pair, Address: common.HexToAddress(p.Address)})
		}
		feed, err := uniswap.NewFeed(ethClient, uniswap.FeedConfig{
			Venue:       cfg.Uniswap.Venue,
			ChainID:     cfg.Ethereum.ChainID,
			Pools:       pools,
			CallTimeout: cfg.Ethereum.CallTimeout,
		}, tokens, log)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}

	return feeds, nil
}

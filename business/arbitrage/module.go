// Package arbitrage implements the arbitrage bounded context: it scans the
// configured pure-arbitrage templates and reports the best route of each.
package arbitrage

import (
	"context"
	"os"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/arbitrage-engine/business/arbitrage/di"
	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-engine/business/arbitrage/infra"
	"github.com/fd1az/arbitrage-engine/business/blockchain"
	blockchainDI "github.com/fd1az/arbitrage-engine/business/blockchain/di"
	pricingDI "github.com/fd1az/arbitrage-engine/business/pricing/di"
	"github.com/fd1az/arbitrage-engine/internal/config"
	"github.com/fd1az/arbitrage-engine/internal/di"
	"github.com/fd1az/arbitrage-engine/internal/logger"
	"github.com/fd1az/arbitrage-engine/internal/monolith"
)

// Module implements the arbitrage bounded context. The scanner is started by
// the caller once every module is up.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Strategies, func(sr di.ServiceRegistry) []domain.Strategy {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		strategies, err := app.BuildStrategies(cfg.Arbitrage, cfg.Engine.DefaultPrecision)
		if err != nil {
			panic("invalid strategies: " + err.Error())
		}
		return strategies
	})

	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		if cfg.Arbitrage.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter(os.Stdout, cfg.Arbitrage.Verbose)
	})

	// Register Scanner (public)
	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		// Without a chain the scanner falls back to its ticker.
		var blocks app.BlockTrigger
		if blockchain.Enabled(cfg) {
			blocks = blockchainDI.GetBlockchainService(sr)
		}

		scanner, err := app.NewScanner(
			pricingDI.GetPricingService(sr),
			blocks,
			arbitrageDI.GetReporter(sr),
			app.ScannerConfig{
				Strategies:   arbitrageDI.GetStrategies(sr),
				ScanInterval: cfg.Arbitrage.ScanInterval,
			},
			log,
		)
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return scanner
	})

	return nil
}

// Startup resolves the scanner so configuration errors surface before the
// first scan.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	strategies := arbitrageDI.GetStrategies(mono.Services())
	_ = arbitrageDI.GetScanner(mono.Services())

	trigger := "ticker"
	if blockchain.Enabled(mono.Config()) {
		trigger = "blocks"
	}
	for _, s := range strategies {
		log.Debug(ctx, "strategy loaded", "name", s.Name, "amount_in", s.Params.AmountIn.String())
	}
	log.Info(ctx, "arbitrage module started",
		"strategies", len(strategies),
		"trigger", trigger,
		"min_pnl", mono.Config().Arbitrage.MinPNL,
		"min_pnl_bps", mono.Config().Arbitrage.MinPNLBps,
	)
	return nil
}

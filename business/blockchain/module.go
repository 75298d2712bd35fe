// Package blockchain implements the blockchain bounded context: chain heads
// that tell the scanner when pool reserves may have changed.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arbitrage-engine/business/blockchain/app"
	blockchainDI "github.com/fd1az/arbitrage-engine/business/blockchain/di"
	"github.com/fd1az/arbitrage-engine/business/blockchain/infra/ethereum"
	"github.com/fd1az/arbitrage-engine/internal/config"
	"github.com/fd1az/arbitrage-engine/internal/di"
	"github.com/fd1az/arbitrage-engine/internal/logger"
	"github.com/fd1az/arbitrage-engine/internal/monolith"
)

// Module implements the blockchain bounded context. Its services are lazy
// and only resolved when an Ethereum endpoint is configured.
type Module struct{}

// Enabled reports whether cfg gives the module a node to talk to.
func Enabled(cfg *config.Config) bool {
	return cfg.Ethereum.Enabled()
}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.BlockSource, func(sr di.ServiceRegistry) app.BlockSource {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		ethClient, _ := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)
		if ethClient == nil {
			panic("head watcher needs an ethereum endpoint")
		}

		watcherCfg := ethereum.DefaultWatcherConfig()
		if cfg.Ethereum.InitialBackoff > 0 {
			watcherCfg.ReconnectDelay = cfg.Ethereum.InitialBackoff
		}
		watcherCfg.MaxReconnects = cfg.Ethereum.MaxReconnects

		watcher, err := ethereum.NewWatcher(ethClient, watcherCfg, log)
		if err != nil {
			panic("failed to create head watcher: " + err.Error())
		}
		return watcher
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetBlockSource(sr))
	})

	return nil
}

// Startup checks the node answers before the scanner subscribes.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	if !Enabled(mono.Config()) {
		log.Info(ctx, "blockchain module disabled, no ethereum endpoint")
		return nil
	}

	svc := blockchainDI.GetBlockchainService(mono.Services())
	block, err := svc.LatestBlock(ctx)
	if err != nil {
		// Not fatal: the watcher keeps retrying once subscribed.
		log.Warn(ctx, "failed to fetch latest block", "error", err)
	} else {
		log.Info(ctx, "blockchain module started", "block", block.Number)
	}
	return nil
}

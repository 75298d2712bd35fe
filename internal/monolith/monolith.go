// Package monolith holds the process-wide infrastructure shared by the
// bounded contexts and drives their lifecycle.
package monolith

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/asset"
	"github.com/fd1az/arbitrage-engine/internal/config"
	"github.com/fd1az/arbitrage-engine/internal/di"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

// Names of the shared entries every module can resolve from the container.
const (
	ServiceConfig        = "config"
	ServiceLogger        = "logger"
	ServiceEthClient     = "ethClient"
	ServiceAssetRegistry = "assetRegistry"
)

// Monolith is what a module sees during Startup.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	// EthClient is nil when no Ethereum endpoint is configured.
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module is a bounded context: it registers factories first, then starts
// once every module has registered.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type App struct {
	cfg       *config.Config
	log       logger.LoggerInterface
	eth       *ethclient.Client
	assets    *asset.Registry
	container di.Container
	closeOnce sync.Once
}

// New builds the shared infrastructure. The Ethereum client is dialed only
// when an endpoint is configured so offline runs work without one.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*App, error) {
	assets, err := buildAssetRegistry(cfg)
	if err != nil {
		return nil, err
	}

	var eth *ethclient.Client
	if cfg.Ethereum.Enabled() {
		eth, err = ethclient.DialContext(ctx, cfg.Ethereum.RPCURL())
		if err != nil {
			return nil, apperror.New(apperror.CodeEthereumConnectionFailed, apperror.WithCause(err))
		}
	}

	c := di.NewContainer()
	c.Register(ServiceConfig, cfg)
	c.Register(ServiceLogger, log)
	c.Register(ServiceEthClient, eth)
	c.Register(ServiceAssetRegistry, assets)

	return &App{cfg: cfg, log: log, eth: eth, assets: assets, container: c}, nil
}

// buildAssetRegistry extends the well-known tokens with the ones declared
// for pool pricing.
func buildAssetRegistry(cfg *config.Config) (*asset.Registry, error) {
	registry := asset.DefaultRegistry()
	chainID := cfg.Ethereum.ChainID
	if chainID == 0 {
		chainID = asset.ChainIDEthereum
	}
	for _, t := range cfg.Uniswap.Tokens {
		token, err := asset.NewToken(chainID, common.HexToAddress(t.Address), t.Symbol, t.Symbol, t.Decimals)
		if err == nil {
			err = registry.Register(token)
		}
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeConfigurationError, "uniswap token "+t.Symbol)
		}
	}
	return registry, nil
}

func (a *App) Config() *config.Config         { return a.cfg }
func (a *App) Logger() logger.LoggerInterface { return a.log }
func (a *App) EthClient() *ethclient.Client   { return a.eth }
func (a *App) AssetRegistry() *asset.Registry { return a.assets }
func (a *App) Services() di.ServiceRegistry   { return a.container }

// RegisterModules lets every module add its factories to the container.
func (a *App) RegisterModules(modules ...Module) error {
	for i, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register module %d: %w", i, err)
		}
	}
	return nil
}

// StartModules runs Startup in order and stops at the first failure.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the Ethereum client. Safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.eth != nil {
			a.eth.Close()
		}
	})
	return nil
}

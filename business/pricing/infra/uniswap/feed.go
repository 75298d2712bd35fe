// Package uniswap feeds Uniswap V2 pair reserves into the pricing registry.
package uniswap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/asset"
	"github.com/fd1az/arbitrage-engine/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

const (
	tracerName = "uniswap"
	meterName  = "uniswap"

	defaultCallTimeout = 5 * time.Second
)

var _ app.LiquidityFeed = (*Feed)(nil)

// PoolConfig binds a pair contract to the canonical pair it is registered as.
type PoolConfig struct {
	Pair    domain.Pair
	Address common.Address
}

// FeedConfig holds configuration for the reserves feed.
type FeedConfig struct {
	Venue       string
	ChainID     uint64
	Pools       []PoolConfig
	CallTimeout time.Duration
}

type feedMetrics struct {
	calls       metric.Int64Counter
	callErrors  metric.Int64Counter
	callLatency metric.Float64Histogram
}

// poolState caches what never changes for a pair contract.
type poolState struct {
	base     *asset.Asset
	quote    *asset.Asset
	reversed bool // token0 is the quote token
}

// Feed reads getReserves on every Refresh and registers each pool as a
// ReservePool oriented BASE_QUOTE.
type Feed struct {
	caller  ethereum.ContractCaller
	config  FeedConfig
	tokens  *asset.Registry
	logger  logger.LoggerInterface
	breaker *circuitbreaker.CircuitBreaker[[]byte]

	mu      sync.Mutex
	pools   map[common.Address]*poolState
	healthy bool

	tracer  trace.Tracer
	metrics *feedMetrics
}

// NewFeed creates a reserves feed. caller is usually an *ethclient.Client.
func NewFeed(caller ethereum.ContractCaller, cfg FeedConfig, tokens *asset.Registry, log logger.LoggerInterface) (*Feed, error) {
	if caller == nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("uniswap: nil contract caller"))
	}
	if len(cfg.Pools) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("uniswap: no pools configured"))
	}
	if cfg.Venue == "" {
		cfg.Venue = "uniswap_v2"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = asset.ChainIDEthereum
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if tokens == nil {
		tokens = asset.DefaultRegistry()
	}
	for _, p := range cfg.Pools {
		if err := p.Pair.Validate(); err != nil {
			return nil, err
		}
	}

	f := &Feed{
		caller: caller,
		config: cfg,
		tokens: tokens,
		logger: log,
		pools:  make(map[common.Address]*poolState, len(cfg.Pools)),
		tracer: otel.Tracer(tracerName),
	}

	breakerCfg := circuitbreaker.DefaultConfig("uniswap-eth-call")
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	f.breaker = circuitbreaker.New[[]byte](breakerCfg)

	if err := f.initMetrics(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "uniswap metrics")
	}
	return f, nil
}

func (f *Feed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &feedMetrics{}

	f.metrics.calls, err = meter.Int64Counter(
		"uniswap_calls_total",
		metric.WithDescription("Total eth_call requests"),
	)
	if err != nil {
		return err
	}

	f.metrics.callErrors, err = meter.Int64Counter(
		"uniswap_call_errors_total",
		metric.WithDescription("Failed eth_call requests"),
	)
	if err != nil {
		return err
	}

	f.metrics.callLatency, err = meter.Float64Histogram(
		"uniswap_call_latency_ms",
		metric.WithDescription("eth_call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Name implements app.LiquidityFeed.
func (f *Feed) Name() string { return "uniswap" }

// Start loads the first set of reserves. Pools are pulled, so there is
// nothing to keep running between refreshes.
func (f *Feed) Start(ctx context.Context, sink app.LiquiditySink) error {
	return f.Refresh(ctx, sink)
}

// Refresh reads and registers reserves for every configured pool. A failing
// pool does not stop the others; the first error is returned.
func (f *Feed) Refresh(ctx context.Context, sink app.LiquiditySink) error {
	ctx, span := f.tracer.Start(ctx, "uniswap.refresh",
		trace.WithAttributes(attribute.Int("pools", len(f.config.Pools))),
	)
	defer span.End()

	var firstErr error
	for _, pool := range f.config.Pools {
		if err := f.refreshPool(ctx, sink, pool); err != nil {
			f.logger.Warn(ctx, "uniswap pool refresh failed",
				"pool", pool.Address.Hex(), "pair", pool.Pair.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	f.mu.Lock()
	f.healthy = firstErr == nil
	f.mu.Unlock()

	if firstErr != nil {
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, firstErr.Error())
	}
	return firstErr
}

// Connected reports whether the last refresh read every pool.
func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

// Stop implements app.LiquidityFeed. The caller owns the node client.
func (f *Feed) Stop() error { return nil }

func (f *Feed) refreshPool(ctx context.Context, sink app.LiquiditySink, pool PoolConfig) error {
	state, err := f.poolState(ctx, pool)
	if err != nil {
		return err
	}

	data, err := f.call(ctx, pool.Address, methodGetReserves)
	if err != nil {
		return apperror.New(apperror.CodeReservesFetchFailed, apperror.WithContext(pool.Address.Hex()), apperror.WithCause(err))
	}
	raw, err := unpackReserves(data)
	if err != nil {
		return apperror.New(apperror.CodeReservesFetchFailed, apperror.WithContext(pool.Address.Hex()), apperror.WithCause(err))
	}

	rawBase, rawQuote := raw.Reserve0, raw.Reserve1
	if state.reversed {
		rawBase, rawQuote = rawQuote, rawBase
	}
	r0, err := state.base.FromRaw(rawBase)
	if err != nil {
		return err
	}
	r1, err := state.quote.FromRaw(rawQuote)
	if err != nil {
		return err
	}

	f.logger.Debug(ctx, "uniswap reserves",
		"pair", pool.Pair.String(), "r0", r0.String(), "r1", r1.String(), "block_ts", raw.BlockTimestampLast)

	return sink.RegisterReserves(f.config.Venue, pool.Pair, domain.ReservePool{R0: r0, R1: r1})
}

// poolState resolves token metadata and orientation once per pool.
func (f *Feed) poolState(ctx context.Context, pool PoolConfig) (*poolState, error) {
	f.mu.Lock()
	state, ok := f.pools[pool.Address]
	f.mu.Unlock()
	if ok {
		return state, nil
	}

	base, err := f.resolveToken(pool.Pair.Base)
	if err != nil {
		return nil, err
	}
	quote, err := f.resolveToken(pool.Pair.Quote)
	if err != nil {
		return nil, err
	}

	data, err := f.call(ctx, pool.Address, methodToken0)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithContext(pool.Address.Hex()+" token0"), apperror.WithCause(err))
	}
	token0, err := unpackAddress(methodToken0, data)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithContext(pool.Address.Hex()+" token0"), apperror.WithCause(err))
	}

	first, ok := f.tokens.ByAddress(token0)
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidPair,
			apperror.WithContextf("pool %s token0 %s is not a known token", pool.Address.Hex(), token0.Hex()))
	}

	state = &poolState{base: base, quote: quote}
	switch {
	case first.Equals(base):
	case first.Equals(quote):
		state.reversed = true
	default:
		return nil, apperror.New(apperror.CodeInvalidPair,
			apperror.WithContextf("pool %s token0 is %s, want %s or %s",
				pool.Address.Hex(), first.Symbol(), base.Symbol(), quote.Symbol()))
	}

	f.mu.Lock()
	f.pools[pool.Address] = state
	f.mu.Unlock()
	return state, nil
}

// resolveToken looks the symbol up on the configured chain. Native symbols
// fall back to their wrapped token (ETH -> WETH).
func (f *Feed) resolveToken(symbol string) (*asset.Asset, error) {
	if a, ok := f.tokens.BySymbol(f.config.ChainID, symbol); ok {
		return a, nil
	}
	if a, ok := f.tokens.BySymbol(f.config.ChainID, "W"+symbol); ok {
		return a, nil
	}
	return nil, apperror.New(apperror.CodeConfigurationError,
		apperror.WithContextf("unknown token %s on chain %d", symbol, f.config.ChainID))
}

func (f *Feed) call(ctx context.Context, to common.Address, method string) ([]byte, error) {
	input, err := packCall(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.CallTimeout)
	defer cancel()

	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("method", method))
	f.metrics.calls.Add(ctx, 1, attrs)

	out, err := f.breaker.Execute(func() ([]byte, error) {
		return f.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	})
	f.metrics.callLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, attrs)
	if err != nil {
		f.metrics.callErrors.Add(ctx, 1, attrs)
		return nil, err
	}
	return out, nil
}

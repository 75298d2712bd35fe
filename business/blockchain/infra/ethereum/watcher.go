// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-engine/business/blockchain/app"
	"github.com/fd1az/arbitrage-engine/business/blockchain/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbitrage-engine/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/arbitrage-engine/business/blockchain/infra/ethereum"
)

var _ app.BlockSource = (*Watcher)(nil)

// HeadSource is the slice of *ethclient.Client the watcher needs.
type HeadSource interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// WatcherConfig holds configuration for the head watcher.
type WatcherConfig struct {
	PollInterval   time.Duration // Head polling interval when subscriptions are unavailable
	ReconnectDelay time.Duration // Delay before resubscribing
	MaxReconnects  int           // Resubscribe attempts before switching to polling (0 = unlimited)
	BufferSize     int           // Block channel buffer size
}

// DefaultWatcherConfig returns sensible defaults.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval:   12 * time.Second, // ~1 block time
		ReconnectDelay: 5 * time.Second,
		MaxReconnects:  5,
		BufferSize:     16,
	}
}

type watcherMetrics struct {
	blocksReceived  metric.Int64Counter
	subscribeErrors metric.Int64Counter
	connectionState metric.Int64Gauge
	blockLatency    metric.Float64Histogram
}

// Watcher emits new heads from a websocket subscription and falls back to
// polling the latest header when the endpoint cannot push (plain HTTP).
type Watcher struct {
	source HeadSource
	config WatcherConfig
	logger logger.LoggerInterface

	state      domain.ConnectionState
	stateMu    sync.RWMutex
	polling    atomic.Bool
	started    atomic.Bool
	lastBlock  atomic.Uint64
	lastUpdate atomic.Int64
	reconnects atomic.Int32

	blocks    chan *domain.Block
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	breaker *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *watcherMetrics
}

// NewWatcher creates a head watcher over source.
func NewWatcher(source HeadSource, cfg WatcherConfig, log logger.LoggerInterface) (*Watcher, error) {
	if source == nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("head watcher: nil source"))
	}
	def := DefaultWatcherConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	w := &Watcher{
		source: source,
		config: cfg,
		logger: log,
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.Block, cfg.BufferSize),
		done:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}

	if err := w.initMetrics(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "head watcher metrics")
	}

	breakerCfg := circuitbreaker.DefaultConfig("eth-head")
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	w.breaker = circuitbreaker.New[*types.Header](breakerCfg)

	return w, nil
}

func (w *Watcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	w.metrics = &watcherMetrics{}

	w.metrics.blocksReceived, err = meter.Int64Counter(
		"eth_blocks_received_total",
		metric.WithDescription("Total Ethereum blocks received"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	w.metrics.subscribeErrors, err = meter.Int64Counter(
		"eth_subscribe_errors_total",
		metric.WithDescription("Total Ethereum subscription errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	w.metrics.connectionState, err = meter.Int64Gauge(
		"eth_connection_state",
		metric.WithDescription("Ethereum connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	w.metrics.blockLatency, err = meter.Float64Histogram(
		"eth_block_latency_ms",
		metric.WithDescription("Latency from block timestamp to receipt"),
		metric.WithUnit("ms"),
	)
	return err
}

// Subscribe starts watching heads. It may be called once.
func (w *Watcher) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	ctx, span := w.tracer.Start(ctx, "eth.subscribe")
	defer span.End()

	select {
	case <-w.done:
		return nil, apperror.New(apperror.CodeEthereumSubscribeFailed, apperror.WithContext("watcher is closed"))
	default:
	}
	if !w.started.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.CodeEthereumSubscribeFailed, apperror.WithContext("already subscribed"))
	}

	w.setState(domain.StateConnecting)

	headers := make(chan *types.Header, w.config.BufferSize)
	sub, err := w.source.SubscribeNewHead(ctx, headers)
	if err != nil {
		w.logger.Warn(ctx, "head subscription unavailable, polling instead", "error", err)
		span.AddEvent("subscribe_failed_polling")
		w.metrics.subscribeErrors.Add(ctx, 1)
		w.startPolling(ctx)
	} else {
		w.wg.Add(1)
		go w.runSubscription(ctx, sub, headers)
	}

	w.setState(domain.StateConnected)
	span.SetStatus(codes.Ok, "subscribed")
	return w.blocks, nil
}

func (w *Watcher) startPolling(ctx context.Context) {
	w.polling.Store(true)
	w.wg.Add(1)
	go w.runPoller(ctx)
}

// runSubscription forwards pushed heads and resubscribes on failure.
func (w *Watcher) runSubscription(ctx context.Context, sub ethereum.Subscription, headers chan *types.Header) {
	defer w.wg.Done()

	attempts := 0
	for {
		failed := w.forwardHeads(ctx, sub, headers)
		sub.Unsubscribe()
		if !failed {
			return
		}

		for {
			if w.config.MaxReconnects > 0 && attempts >= w.config.MaxReconnects {
				w.logger.Warn(ctx, "head resubscribe attempts exhausted, polling instead", "attempts", attempts)
				w.startPolling(ctx)
				w.setState(domain.StateConnected)
				return
			}
			attempts++
			w.reconnects.Add(1)
			w.setState(domain.StateReconnecting)

			select {
			case <-w.done:
				return
			case <-ctx.Done():
				return
			case <-time.After(w.config.ReconnectDelay):
			}

			var err error
			sub, err = w.source.SubscribeNewHead(ctx, headers)
			if err != nil {
				w.metrics.subscribeErrors.Add(ctx, 1)
				w.logger.Warn(ctx, "head resubscribe failed", "attempt", attempts, "error", err)
				continue
			}
			attempts = 0
			w.setState(domain.StateConnected)
			w.logger.Info(ctx, "head subscription restored")
			break
		}
	}
}

// forwardHeads returns true when the subscription failed and false on shutdown.
func (w *Watcher) forwardHeads(ctx context.Context, sub ethereum.Subscription, headers <-chan *types.Header) bool {
	for {
		select {
		case <-w.done:
			return false
		case <-ctx.Done():
			return false
		case err := <-sub.Err():
			w.metrics.subscribeErrors.Add(ctx, 1)
			w.logger.Warn(ctx, "head subscription dropped", "error", err)
			return true
		case header := <-headers:
			if header != nil {
				w.emit(ctx, header)
			}
		}
	}
}

func (w *Watcher) runPoller(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.logger.Info(ctx, "polling chain head", "interval", w.config.PollInterval.String())
	w.poll(ctx)

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	header, err := w.latestHeader(ctx)
	if err != nil {
		w.metrics.subscribeErrors.Add(ctx, 1)
		w.logger.Warn(ctx, "head poll failed", "error", err)
		return
	}
	w.emit(ctx, header)
}

func (w *Watcher) latestHeader(ctx context.Context) (*types.Header, error) {
	return w.breaker.Execute(func() (*types.Header, error) {
		return w.source.HeaderByNumber(ctx, nil)
	})
}

// emit forwards a head once per block number. A full buffer drops the block:
// the scanner only needs the newest trigger.
func (w *Watcher) emit(ctx context.Context, header *types.Header) {
	if header.Number == nil {
		return
	}
	block := headerToBlock(header)
	for {
		last := w.lastBlock.Load()
		if block.Number <= last {
			return
		}
		if w.lastBlock.CompareAndSwap(last, block.Number) {
			break
		}
	}
	w.lastUpdate.Store(time.Now().UnixNano())
	w.metrics.blockLatency.Record(ctx, float64(time.Since(block.Timestamp).Milliseconds()))

	select {
	case w.blocks <- block:
		w.metrics.blocksReceived.Add(ctx, 1, metric.WithAttributes(attribute.Bool("polling", w.polling.Load())))
		w.logger.Debug(ctx, "block received", "number", block.Number, "hash", block.Hash.Hex())
	default:
		w.logger.Warn(ctx, "block dropped, buffer full", "number", block.Number)
	}
}

func headerToBlock(header *types.Header) *domain.Block {
	return &domain.Block{
		Number:    header.Number.Uint64(),
		Hash:      header.Hash(),
		Timestamp: time.Unix(int64(header.Time), 0),
		BaseFee:   header.BaseFee,
	}
}

// LatestBlock fetches the current head.
func (w *Watcher) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := w.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	header, err := w.latestHeader(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if apperror.IsCode(err, apperror.CodeCircuitOpen) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err), apperror.WithContext("latest header"))
	}
	return headerToBlock(header), nil
}

// State returns the current connection state.
func (w *Watcher) State() domain.ConnectionState {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.state
}

// Status returns detailed connection status.
func (w *Watcher) Status() domain.ConnectionStatus {
	status := domain.ConnectionStatus{
		State:      w.State(),
		LastBlock:  w.lastBlock.Load(),
		Reconnects: int(w.reconnects.Load()),
		Polling:    w.polling.Load(),
	}
	if ns := w.lastUpdate.Load(); ns > 0 {
		status.LastUpdate = time.Unix(0, ns)
	}
	return status
}

// Close stops the watcher and closes the block channel. The node client is
// owned by the caller.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		close(w.blocks)
		w.setState(domain.StateDisconnected)
	})
	return nil
}

func (w *Watcher) setState(state domain.ConnectionState) {
	w.stateMu.Lock()
	w.state = state
	w.stateMu.Unlock()

	var value int64
	switch state {
	case domain.StateConnecting:
		value = 1
	case domain.StateConnected:
		value = 2
	case domain.StateReconnecting:
		value = 3
	}
	w.metrics.connectionState.Record(context.Background(), value)
}

package binance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

var _ app.LiquidityFeed = (*Feed)(nil)

// FeedConfig holds configuration for the Binance order book feed.
type FeedConfig struct {
	Venue             string                 // Registry venue name
	Markets           map[string]domain.Pair // Exchange symbol -> canonical pair
	WebSocketURL      string                 // Empty disables streaming
	HTTPURL           string                 // REST base URL (empty = default)
	DepthLimit        int                    // REST snapshot depth
	DepthSpeedMs      int                    // Stream update speed
	StaleTimeout      time.Duration          // Stream age that triggers REST fallback
	EnableFallback    bool                   // Allow REST snapshots in Refresh
	RequestsPerMinute int
	RequestTimeout    time.Duration
}

// Feed streams @depth20 books into a LiquiditySink and backfills stale or
// missing symbols from the REST depth endpoint on Refresh.
type Feed struct {
	config     FeedConfig
	logger     logger.LoggerInterface
	client     *Client
	httpClient *HTTPClient
	symbols    []string

	mu         sync.RWMutex
	sink       app.LiquiditySink
	lastUpdate map[string]time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFeed creates a Binance feed.
func NewFeed(cfg FeedConfig, log logger.LoggerInterface) (*Feed, error) {
	if len(cfg.Markets) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("binance: no markets configured"))
	}
	if cfg.Venue == "" {
		cfg.Venue = "binance"
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = 5 * time.Second
	}
	if cfg.DepthLimit == 0 {
		cfg.DepthLimit = 20
	}

	symbols := make([]string, 0, len(cfg.Markets))
	for sym, pair := range cfg.Markets {
		if err := pair.Validate(); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	f := &Feed{
		config:     cfg,
		logger:     log,
		symbols:    symbols,
		lastUpdate: make(map[string]time.Time, len(symbols)),
	}

	if cfg.WebSocketURL != "" {
		client, err := NewClient(ClientConfig{
			BaseURL:      cfg.WebSocketURL,
			Symbols:      symbols,
			DepthSpeedMs: cfg.DepthSpeedMs,
		}, log)
		if err != nil {
			return nil, err
		}
		client.OnDepthUpdate(f.handleDepth)
		f.client = client
	}

	if cfg.EnableFallback {
		httpClient, err := NewHTTPClient(HTTPClientConfig{
			BaseURL:           cfg.HTTPURL,
			Timeout:           cfg.RequestTimeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, log)
		if err != nil {
			return nil, err
		}
		f.httpClient = httpClient
	}

	return f, nil
}

// Name implements app.LiquidityFeed.
func (f *Feed) Name() string { return "binance" }

// Start connects the stream. A failed first attempt is retried in the
// background with backoff; Start itself only reports it.
func (f *Feed) Start(ctx context.Context, sink app.LiquiditySink) error {
	f.mu.Lock()
	f.sink = sink
	f.mu.Unlock()

	if f.client == nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	defer connectCancel()
	err := f.client.Connect(connectCtx)
	if err == nil {
		return nil
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		backoff := time.Second
		for {
			select {
			case <-runCtx.Done():
				return
			case <-time.After(backoff):
			}
			if err := f.client.Connect(runCtx); err != nil {
				f.logger.Warn(runCtx, "binance reconnect failed", "error", err, "next_backoff", backoff.String())
				backoff = min(backoff*2, 30*time.Second)
				continue
			}
			return
		}
	}()
	return err
}

// Refresh fetches a REST snapshot for every symbol whose stream data is
// older than StaleTimeout, or all symbols when streaming is off.
func (f *Feed) Refresh(ctx context.Context, sink app.LiquiditySink) error {
	if f.httpClient == nil {
		return nil
	}

	var firstErr error
	for _, sym := range f.symbols {
		if !f.isStale(sym) {
			continue
		}
		depth, err := f.httpClient.GetDepth(ctx, sym, f.config.DepthLimit)
		if err != nil {
			f.logger.Warn(ctx, "binance REST fallback failed", "symbol", sym, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := f.register(sink, depth.ToPartialDepthEvent(sym)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Connected implements app.LiquidityFeed. A REST-only feed counts as connected.
func (f *Feed) Connected() bool {
	if f.client == nil {
		return f.httpClient != nil
	}
	return f.client.IsConnected()
}

// Stop closes the stream and the background reconnect loop.
func (f *Feed) Stop() error {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// LastUpdate returns when symbol was last registered.
func (f *Feed) LastUpdate(symbol string) (time.Time, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.lastUpdate[symbol]
	return t, ok
}

func (f *Feed) isStale(symbol string) bool {
	last, ok := f.LastUpdate(symbol)
	return !ok || time.Since(last) > f.config.StaleTimeout
}

func (f *Feed) handleDepth(ctx context.Context, event *PartialDepthEvent) {
	f.mu.RLock()
	sink := f.sink
	f.mu.RUnlock()
	if sink == nil {
		return
	}
	if err := f.register(sink, event); err != nil {
		f.logger.Debug(ctx, "binance depth update dropped", "symbol", event.Symbol, "error", err)
	}
}

func (f *Feed) register(sink app.LiquiditySink, event *PartialDepthEvent) error {
	pair, ok := f.config.Markets[event.Symbol]
	if !ok {
		return apperror.New(apperror.CodeInvalidOrderbook, apperror.WithContextf("unmapped symbol %s", event.Symbol))
	}
	book, err := event.OrderBook()
	if err != nil {
		return err
	}
	if err := sink.RegisterOrderBook(f.config.Venue, pair, book); err != nil {
		return err
	}

	f.mu.Lock()
	f.lastUpdate[event.Symbol] = time.Now()
	f.mu.Unlock()
	return nil
}

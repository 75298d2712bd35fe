package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-engine/internal/httpclient"
	"github.com/fd1az/arbitrage-engine/internal/logger"
	"github.com/fd1az/arbitrage-engine/internal/ratelimit"
)

const (
	// Binance REST API endpoints
	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	depthEndpoint = "/api/v3/depth"

	httpTimeout = 10 * time.Second
)

// validDepthLimits are the limits /api/v3/depth accepts.
var validDepthLimits = map[int]bool{5: true, 10: true, 20: true, 50: true, 100: true, 500: true, 1000: true, 5000: true}

// depthWeight is the request weight Binance charges for a depth snapshot.
func depthWeight(limit int) int {
	switch {
	case limit <= 100:
		return 5
	case limit <= 500:
		return 25
	case limit <= 1000:
		return 50
	default:
		return 250
	}
}

// HTTPClientConfig holds configuration for the Binance HTTP client.
type HTTPClientConfig struct {
	BaseURL           string        // API base URL (empty = default)
	Timeout           time.Duration // Request timeout
	RequestsPerMinute int           // Request weight budget (0 = unlimited)
	Breaker           circuitbreaker.Config
}

// HTTPClient provides Binance REST depth snapshots.
type HTTPClient struct {
	client  httpclient.Client
	breaker *circuitbreaker.CircuitBreaker[*DepthResponse]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewHTTPClient creates a new Binance HTTP client. Requests are rate limited
// and guarded by a circuit breaker so an unhealthy API fails fast.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(instrumentationName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithRateLimiter(ratelimit.New(cfg.RequestsPerMinute)),
		httpclient.WithTraceOptions(tracer, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "binance http client")
	}

	breakerCfg := cfg.Breaker
	if breakerCfg.Name == "" {
		breakerCfg = circuitbreaker.DefaultConfig("binance-rest")
	}
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &HTTPClient{
		client:  client,
		breaker: circuitbreaker.New[*DepthResponse](breakerCfg),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// GetDepth fetches the order book depth for a symbol.
func (c *HTTPClient) GetDepth(ctx context.Context, symbol string, limit int) (*DepthResponse, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.get_depth",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if !validDepthLimits[limit] {
		limit = 20
	}

	result, err := c.breaker.Execute(func() (*DepthResponse, error) {
		var result DepthResponse
		_, err := c.client.NewRequestWithOptions(
			httpclient.WithLabels(
				httpclient.NewLabel("endpoint", "depth"),
				httpclient.NewLabel("symbol", symbol),
			),
			httpclient.WithResponseErrorHandler(binanceErrorHandler),
			httpclient.WithWeight(depthWeight(limit)),
		).
			SetQueryParam("symbol", symbol).
			SetQueryParam("limit", strconv.Itoa(limit)).
			SetResult(&result).
			Get(ctx, depthEndpoint)
		if err != nil {
			return nil, err
		}
		return &result, nil
	})
	if err != nil {
		span.RecordError(err)
		if apperror.IsCode(err, apperror.CodeCircuitOpen) {
			return nil, err
		}
		var apiErr *BinanceAPIError
		if errors.As(err, &apiErr) {
			return nil, apperror.New(apperror.CodeBinanceAPIError,
				apperror.WithContext(symbol), apperror.WithCause(apiErr))
		}
		return nil, apperror.External(apperror.CodeOrderbookFetchFailed, symbol, err)
	}

	span.SetAttributes(
		attribute.Int("bids", len(result.Bids)),
		attribute.Int("asks", len(result.Asks)),
		attribute.Int64("last_update_id", result.LastUpdateID),
	)
	c.logger.Debug(ctx, "fetched depth via HTTP", "symbol", symbol, "bids", len(result.Bids), "asks", len(result.Asks))

	return result, nil
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr BinanceAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}

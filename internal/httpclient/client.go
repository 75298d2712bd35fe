package httpclient

import (
	"context"
	"maps"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "arbengine/httpclient"

	defaultRequestTimeout = 10 * time.Second
	maxConnsPerHost       = 5
	idleConnTimeout       = 2 * time.Minute
)

// Client builds requests against one REST venue.
type Client interface {
	NewRequest() Request
	NewRequestWithOptions(opts ...RequestOption) Request
}

// InstrumentedClient is an http.Client whose transport is traced with
// otelhttp and whose calls are counted per provider.
type InstrumentedClient struct {
	http     *http.Client
	cfg      settings
	tracer   trace.Tracer
	calls    metric.Int64Counter
	latency  metric.Float64Histogram
	provider attribute.KeyValue
}

// NewInstrumentedClient builds a client with a small pooled transport.
// Feeds poll few hosts, so connections per host are capped low.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	cfg := newSettings(opts)

	transport := &http.Transport{
		DialContext:       (&net.Dialer{KeepAlive: 10 * time.Second}).DialContext,
		MaxConnsPerHost:   maxConnsPerHost,
		IdleConnTimeout:   idleConnTimeout,
		ForceAttemptHTTP2: true,
	}
	traced := otelhttp.NewTransport(transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	meter := otel.GetMeterProvider().Meter(instrumentationName)
	calls, err := meter.Int64Counter("arb_http_requests_total",
		metric.WithDescription("REST calls made by liquidity feeds"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("arb_http_request_duration_ms",
		metric.WithDescription("REST call latency including rate-limit wait"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	tracer := cfg.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &InstrumentedClient{
		http:     &http.Client{Transport: traced, Timeout: cfg.timeout},
		cfg:      cfg,
		tracer:   tracer,
		calls:    calls,
		latency:  latency,
		provider: attribute.String("provider", cfg.provider),
	}, nil
}

func (c *InstrumentedClient) NewRequest() Request {
	return c.NewRequestWithOptions()
}

func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	rs := requestSettings{weight: 1}
	for _, opt := range opts {
		opt(&rs)
	}
	headers := make(map[string]string, len(c.cfg.headers))
	maps.Copy(headers, c.cfg.headers)
	return &requestBuilder{
		client:       c,
		headers:      headers,
		errorHandler: rs.onResponse,
		labels:       rs.labels,
		weight:       rs.weight,
	}
}

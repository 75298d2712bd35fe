package binance

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/logger"
	"github.com/fd1az/arbitrage-engine/internal/wsconn"
)

const (
	instrumentationName = "binance"

	BaseWSURL   = "wss://stream.binance.com:9443"
	BaseWSURLUS = "wss://stream.binance.us:9443"
)

// ClientConfig configures the combined depth stream.
type ClientConfig struct {
	BaseURL      string
	Symbols      []string // exchange symbols, e.g. ETHUSDT
	DepthSpeedMs int      // 100 or 1000
	WriteTimeout time.Duration
}

type depthHandler func(context.Context, *PartialDepthEvent)

// Client reads @depth20 snapshots for a fixed symbol set over one combined
// stream. The stream list is part of the URL, so reconnects inside wsconn
// need no resubscription.
type Client struct {
	symbols []string
	url     string
	log     logger.LoggerInterface
	conn    *wsconn.Client
	onDepth atomic.Pointer[depthHandler]

	tracer   trace.Tracer
	frames   metric.Int64Counter
	depths   metric.Int64Counter
	badFrame metric.Int64Counter
}

func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseWSURL
	}
	if cfg.DepthSpeedMs == 0 {
		cfg.DepthSpeedMs = 100
	}
	streamURL, err := combinedStreamURL(cfg.BaseURL, cfg.Symbols, cfg.DepthSpeedMs)
	if err != nil {
		return nil, err
	}

	wsCfg := wsconn.DefaultConfig(streamURL, "binance")
	if cfg.WriteTimeout > 0 {
		wsCfg.WriteTimeout = cfg.WriteTimeout
	}
	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, apperror.New(apperror.CodeBinanceConnectionFailed, apperror.WithContext("create stream"), apperror.WithCause(err))
	}

	c := &Client{
		symbols: cfg.Symbols,
		url:     streamURL,
		log:     log,
		conn:    conn,
		tracer:  otel.Tracer(instrumentationName),
	}
	if err := c.initMetrics(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "binance metrics")
	}

	conn.OnMessage(c.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			log.Warn(context.Background(), "binance stream state changed", "state", string(state), "error", err)
			return
		}
		log.Debug(context.Background(), "binance stream state changed", "state", string(state))
	})
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(instrumentationName)
	var err error
	if c.frames, err = meter.Int64Counter("binance_messages_total",
		metric.WithDescription("Frames received on the depth stream")); err != nil {
		return err
	}
	if c.depths, err = meter.Int64Counter("binance_depth_updates_total",
		metric.WithDescription("Depth snapshots decoded")); err != nil {
		return err
	}
	c.badFrame, err = meter.Int64Counter("binance_parse_errors_total",
		metric.WithDescription("Frames that could not be decoded"))
	return err
}

// OnDepthUpdate sets the handler for decoded depth snapshots.
func (c *Client) OnDepthUpdate(h func(context.Context, *PartialDepthEvent)) {
	fn := depthHandler(h)
	c.onDepth.Store(&fn)
}

// Connect dials the stream once. It is a no-op while connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn.IsConnected() {
		return nil
	}
	ctx, span := c.tracer.Start(ctx, "binance.connect",
		trace.WithAttributes(attribute.StringSlice("symbols", c.symbols)))
	defer span.End()

	if err := c.conn.Connect(ctx); err != nil {
		span.RecordError(err)
		return apperror.External(apperror.CodeBinanceConnectionFailed, "connect stream", err)
	}
	c.log.Info(ctx, "binance stream connected", "url", c.url, "symbols", c.symbols)
	return nil
}

func combinedStreamURL(base string, symbols []string, speedMs int) (string, error) {
	if len(symbols) == 0 {
		return "", apperror.New(apperror.CodeConfigurationError, apperror.WithContext("no binance symbols configured"))
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("binance websocket url"), apperror.WithCause(err))
	}
	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = DepthStream(sym, speedMs)
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// decodeFrame unwraps a combined-stream frame. ok is false for frames that
// carry no depth data, such as subscription acks or other streams.
func decodeFrame(data []byte) (depth *PartialDepthEvent, ok bool, err error) {
	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil || event.Stream == "" {
		var ack WSResponse
		if json.Unmarshal(data, &ack) == nil && ack.ID != 0 {
			return nil, false, nil
		}
		if err == nil {
			err = apperror.New(apperror.CodeBinanceAPIError, apperror.WithContext("frame without stream"))
		}
		return nil, false, err
	}
	if !strings.Contains(event.Stream, "@depth") {
		return nil, false, nil
	}
	depth = &PartialDepthEvent{}
	if err := json.Unmarshal(event.Data, depth); err != nil {
		return nil, false, err
	}
	depth.Symbol = extractSymbolFromStream(event.Stream)
	return depth, true, nil
}

func (c *Client) handleMessage(ctx context.Context, data []byte) {
	c.frames.Add(ctx, 1)
	depth, ok, err := decodeFrame(data)
	if err != nil {
		c.badFrame.Add(ctx, 1)
		c.log.Debug(ctx, "undecodable binance frame", "error", err, "data", string(data[:min(len(data), 200)]))
		return
	}
	if !ok {
		return
	}
	c.depths.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", depth.Symbol)))
	if h := c.onDepth.Load(); h != nil {
		(*h)(ctx, depth)
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

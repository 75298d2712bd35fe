package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apm"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

const (
	meterName  = "pricing"
	tracerName = "pricing"
)

// FeedStatus is a point-in-time view of one feed.
type FeedStatus struct {
	Name      string
	Connected bool
	Updates   int64
	Errors    int64
	LastError string
	LastSeen  time.Time
}

type serviceMetrics struct {
	updates  metric.Int64Counter
	rejected metric.Int64Counter
	refresh  metric.Float64Histogram
}

// PricingService owns the live registry and the feeds that fill it. Scans
// price against a Snapshot so feed updates never tear a route.
type PricingService struct {
	registry *Registry
	feeds    []LiquidityFeed
	log      logger.LoggerInterface
	metrics  *serviceMetrics
	tracer   apm.Tracer

	precision int32

	mu     sync.RWMutex
	status map[string]*FeedStatus
}

// NewPricingService creates a service over registry. defaultPrecision is the
// hop precision used when a route leaves it unset.
func NewPricingService(registry *Registry, log logger.LoggerInterface, defaultPrecision int32, feeds ...LiquidityFeed) (*PricingService, error) {
	s := &PricingService{
		registry:  registry,
		feeds:     feeds,
		log:       log,
		tracer:    apm.NewTracer(tracerName),
		precision: defaultPrecision,
		status:    make(map[string]*FeedStatus, len(feeds)),
	}
	for _, f := range feeds {
		s.status[f.Name()] = &FeedStatus{Name: f.Name()}
	}
	if err := s.initMetrics(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "pricing metrics")
	}
	return s, nil
}

func (s *PricingService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	s.metrics = &serviceMetrics{}

	s.metrics.updates, err = meter.Int64Counter(
		"pricing_liquidity_updates_total",
		metric.WithDescription("Liquidity snapshots registered, by feed and kind"),
	)
	if err != nil {
		return err
	}

	s.metrics.rejected, err = meter.Int64Counter(
		"pricing_liquidity_rejected_total",
		metric.WithDescription("Liquidity snapshots rejected by the registry, by feed and code"),
	)
	if err != nil {
		return err
	}

	s.metrics.refresh, err = meter.Float64Histogram(
		"pricing_refresh_duration_ms",
		metric.WithDescription("Duration of a full feed refresh"),
		metric.WithUnit("ms"),
	)
	return err
}

// Registry returns the live registry.
func (s *PricingService) Registry() *Registry { return s.registry }

// Feeds returns the configured feeds.
func (s *PricingService) Feeds() []LiquidityFeed { return s.feeds }

// Start starts every feed. A feed that fails to start is logged and left to
// its own reconnect logic; Start fails only when every feed failed.
func (s *PricingService) Start(ctx context.Context) error {
	var failed int
	var lastErr error
	for _, f := range s.feeds {
		if err := f.Start(ctx, s.sinkFor(f.Name())); err != nil {
			failed++
			lastErr = err
			s.recordError(f.Name(), err)
			s.log.Warn(ctx, "feed start failed", "feed", f.Name(), "error", err)
			continue
		}
		s.log.Info(ctx, "feed started", "feed", f.Name())
	}
	if len(s.feeds) > 0 && failed == len(s.feeds) {
		return lastErr
	}
	return nil
}

// Refresh asks every feed for a full snapshot. Errors are logged per feed
// and the first one is returned after all feeds ran.
func (s *PricingService) Refresh(ctx context.Context) error {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "pricing.refresh")
	defer span.End()
	span.SetAttribute(attribute.Int("feeds", len(s.feeds)))

	start := time.Now()
	var firstErr error
	for _, f := range s.feeds {
		if err := f.Refresh(ctx, s.sinkFor(f.Name())); err != nil {
			span.NoticeError(err)
			s.recordError(f.Name(), err)
			s.log.Warn(ctx, "feed refresh failed", "feed", f.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	s.metrics.refresh.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
	return firstErr
}

// Stop stops every feed.
func (s *PricingService) Stop(ctx context.Context) error {
	var firstErr error
	for _, f := range s.feeds {
		if err := f.Stop(); err != nil {
			s.log.Warn(ctx, "feed stop failed", "feed", f.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SnapshotEngine returns an engine over a point-in-time copy of the registry
// that applies the configured default precision to unset hops.
func (s *PricingService) SnapshotEngine() *Engine {
	return NewEngineWithPrecision(s.registry.Snapshot(), s.precision)
}

// Status returns the status of every feed, ordered as configured.
func (s *PricingService) Status() []FeedStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FeedStatus, 0, len(s.feeds))
	for _, f := range s.feeds {
		st := *s.status[f.Name()]
		st.Connected = f.Connected()
		out = append(out, st)
	}
	return out
}

// HealthCheck returns a check that fails when a feed is disconnected or has
// delivered nothing within maxAge.
func (s *PricingService) HealthCheck(maxAge time.Duration) func(context.Context) (bool, string) {
	return func(context.Context) (bool, string) {
		var problems []string
		for _, st := range s.Status() {
			switch {
			case !st.Connected:
				problems = append(problems, st.Name+" disconnected")
			case st.LastSeen.IsZero():
				problems = append(problems, st.Name+" has no data")
			case time.Since(st.LastSeen) > maxAge:
				problems = append(problems, fmt.Sprintf("%s stale for %s", st.Name, time.Since(st.LastSeen).Round(time.Second)))
			}
		}
		if len(problems) > 0 {
			return false, strings.Join(problems, "; ")
		}
		return true, fmt.Sprintf("%d feeds, %d liquidity entries", len(s.feeds), s.registry.Len())
	}
}

func (s *PricingService) recordUpdate(feed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[feed]
	if !ok {
		st = &FeedStatus{Name: feed}
		s.status[feed] = st
	}
	st.Updates++
	st.LastSeen = time.Now()
}

func (s *PricingService) recordError(feed string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[feed]
	if !ok {
		st = &FeedStatus{Name: feed}
		s.status[feed] = st
	}
	st.Errors++
	st.LastError = err.Error()
}

func (s *PricingService) sinkFor(feed string) LiquiditySink {
	return &instrumentedSink{service: s, feed: feed}
}

// instrumentedSink forwards to the registry and accounts for every
// registration. Rejections are logged and counted, never retried.
type instrumentedSink struct {
	service *PricingService
	feed    string
}

func (k *instrumentedSink) RegisterOrderBook(venue string, pair domain.Pair, book domain.OrderBook) error {
	return k.observe(venue, pair, domain.OrderTypeOrderBook,
		k.service.registry.RegisterOrderBook(venue, pair, book))
}

func (k *instrumentedSink) RegisterReserves(venue string, pair domain.Pair, pool domain.ReservePool) error {
	return k.observe(venue, pair, domain.OrderTypeAMM,
		k.service.registry.RegisterReserves(venue, pair, pool))
}

func (k *instrumentedSink) observe(venue string, pair domain.Pair, kind domain.OrderType, err error) error {
	ctx := context.Background()
	s := k.service
	if err != nil {
		s.recordError(k.feed, err)
		s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(
			attribute.String("feed", k.feed),
			attribute.String("code", string(apperror.GetCode(err))),
		))
		s.log.Warn(ctx, "liquidity rejected",
			"feed", k.feed, "venue", venue, "pair", pair.String(), "error", err)
		return err
	}
	s.recordUpdate(k.feed)
	s.metrics.updates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("feed", k.feed),
		attribute.String("kind", string(kind)),
	))
	return nil
}

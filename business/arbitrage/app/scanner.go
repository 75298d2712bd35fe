package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/arbitrage-engine/business/blockchain/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"

	defaultScanInterval = 2 * time.Second
)

// ScannerConfig holds configuration for the scanner.
type ScannerConfig struct {
	Strategies []domain.Strategy
	// ScanInterval drives scans when no block trigger is configured.
	ScanInterval time.Duration
}

type scannerMetrics struct {
	scans       metric.Int64Counter
	scanErrors  metric.Int64Counter
	profitable  metric.Int64Counter
	bestPNLBps  metric.Float64Histogram
	scanLatency metric.Float64Histogram
}

// Scanner evaluates every strategy against a fresh liquidity snapshot on
// each trigger and hands the results to a Reporter.
type Scanner struct {
	pricing  *pricingApp.PricingService
	blocks   BlockTrigger
	reporter Reporter
	config   ScannerConfig
	logger   logger.LoggerInterface

	seq      atomic.Uint64
	lastScan atomic.Int64 // unix nanos of the last completed scan
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner creates a Scanner. blocks may be nil, in which case scans run
// on a fixed interval.
func NewScanner(
	pricing *pricingApp.PricingService,
	blocks BlockTrigger,
	reporter Reporter,
	cfg ScannerConfig,
	log logger.LoggerInterface,
) (*Scanner, error) {
	if len(cfg.Strategies) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("no strategies configured"))
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}

	s := &Scanner{
		pricing:  pricing,
		blocks:   blocks,
		reporter: reporter,
		config:   cfg,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "scanner metrics")
	}
	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.scans, err = meter.Int64Counter(
		"arbitrage_scans_total",
		metric.WithDescription("Strategy evaluations"),
	)
	if err != nil {
		return err
	}

	s.metrics.scanErrors, err = meter.Int64Counter(
		"arbitrage_scan_errors_total",
		metric.WithDescription("Strategy evaluations that failed to price"),
	)
	if err != nil {
		return err
	}

	s.metrics.profitable, err = meter.Int64Counter(
		"arbitrage_profitable_total",
		metric.WithDescription("Evaluations that met the profit thresholds"),
	)
	if err != nil {
		return err
	}

	s.metrics.bestPNLBps, err = meter.Float64Histogram(
		"arbitrage_best_pnl_bps",
		metric.WithDescription("PNL of the best route in basis points of the input"),
		metric.WithUnit("{bps}"),
	)
	if err != nil {
		return err
	}

	s.metrics.scanLatency, err = meter.Float64Histogram(
		"arbitrage_scan_latency_ms",
		metric.WithDescription("Time to refresh liquidity and evaluate all strategies"),
		metric.WithUnit("ms"),
	)
	return err
}

// Start begins scanning in the background.
func (s *Scanner) Start(ctx context.Context) error {
	if err := s.reporter.Start(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.blocks != nil {
		blocks, err := s.blocks.SubscribeBlocks(runCtx)
		if err != nil {
			cancel()
			return err
		}
		s.logger.Info(ctx, "scanner started", "trigger", "block", "strategies", len(s.config.Strategies))
		s.wg.Add(1)
		go s.runOnBlocks(runCtx, blocks)
		return nil
	}

	s.logger.Info(ctx, "scanner started",
		"trigger", "interval", "interval", s.config.ScanInterval.String(), "strategies", len(s.config.Strategies))
	s.wg.Add(1)
	go s.runOnTicker(runCtx)
	return nil
}

func (s *Scanner) runOnBlocks(ctx context.Context, blocks <-chan *blockchainDomain.Block) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-blocks:
			if !ok {
				s.logger.Warn(ctx, "block channel closed, scanner stopping")
				return
			}
			s.scan(ctx, block.Number)
		}
	}
}

func (s *Scanner) runOnTicker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	s.scan(ctx, 0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx, 0)
		}
	}
}

func (s *Scanner) scan(ctx context.Context, blockNumber uint64) {
	if _, err := s.ScanOnce(ctx, blockNumber); err != nil {
		s.logger.Warn(ctx, "scan finished with errors", "block", blockNumber, "error", err)
	}
}

// ScanOnce refreshes liquidity, evaluates every strategy on one snapshot
// and reports each result. A strategy that cannot be priced is skipped;
// its error is joined into the returned error.
func (s *Scanner) ScanOnce(ctx context.Context, blockNumber uint64) ([]*domain.Opportunity, error) {
	ctx, span := s.tracer.Start(ctx, "arbitrage.scan",
		trace.WithAttributes(
			attribute.Int64("block", int64(blockNumber)),
			attribute.Int("strategies", len(s.config.Strategies)),
		),
	)
	defer span.End()

	start := time.Now()

	if err := s.pricing.Refresh(ctx); err != nil {
		// Stale liquidity is still registered; price against what we have.
		span.AddEvent("refresh_failed", trace.WithAttributes(attribute.String("error", err.Error())))
	}
	s.reporter.UpdateFeedStatus(s.pricing.Status())

	selector := NewSelector(s.pricing.SnapshotEngine())

	summary := domain.ScanSummary{
		BlockNumber: blockNumber,
		Timestamp:   start,
		Strategies:  len(s.config.Strategies),
	}
	var errs []error
	opportunities := make([]*domain.Opportunity, 0, len(s.config.Strategies))

	for _, strategy := range s.config.Strategies {
		attrs := metric.WithAttributes(attribute.String("strategy", strategy.Name))
		s.metrics.scans.Add(ctx, 1, attrs)

		evalStart := time.Now()
		best, candidates, err := selector.CalculatePureArbAll(strategy.Params)
		if err != nil {
			s.metrics.scanErrors.Add(ctx, 1, attrs)
			s.logger.Debug(ctx, "strategy not priced", "strategy", strategy.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name, err))
			summary.Failed++
			continue
		}

		profit := strategy.Thresholds.Evaluate(best)
		opp := &domain.Opportunity{
			ID:          fmt.Sprintf("%s-%d-%d", strategy.Name, blockNumber, s.seq.Add(1)),
			Strategy:    strategy.Name,
			Params:      strategy.Params,
			BlockNumber: blockNumber,
			Timestamp:   time.Now(),
			Best:        best,
			Candidates:  candidates,
			Profit:      profit,
			Latency:     time.Since(evalStart),
		}
		opportunities = append(opportunities, opp)

		bps, _ := profit.PNLBps.Float64()
		s.metrics.bestPNLBps.Record(ctx, bps, attrs)
		if profit.IsProfitable {
			summary.Profitable++
			s.metrics.profitable.Add(ctx, 1, attrs)
			s.logger.Info(ctx, "profitable route",
				"strategy", strategy.Name,
				"route", best.Route.String(),
				"direction", string(best.Direction),
				"amount_in", best.Route.AmountIn.String(),
				"pnl", profit.PNL.String(),
				"pnl_bps", profit.PNLBps.StringFixed(2),
				"block", blockNumber,
			)
		}
		if len(opportunities) == 1 || profit.PNLBps.GreaterThan(summary.BestPNLBps) {
			summary.BestPNLBps = profit.PNLBps
		}

		s.reporter.Report(opp)
	}

	summary.Latency = time.Since(start)
	s.lastScan.Store(time.Now().UnixNano())
	s.metrics.scanLatency.Record(ctx, float64(summary.Latency.Microseconds())/1000.0)
	s.reporter.ReportScan(summary)

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		if summary.Failed == summary.Strategies {
			span.SetStatus(codes.Error, "no strategy priced")
		}
	}
	return opportunities, err
}

// HealthCheck returns a check that fails when no scan completed within maxAge.
func (s *Scanner) HealthCheck(maxAge time.Duration) func(context.Context) (bool, string) {
	return func(context.Context) (bool, string) {
		last := s.lastScan.Load()
		if last == 0 {
			return false, "no scan yet"
		}
		age := time.Since(time.Unix(0, last))
		if age > maxAge {
			return false, fmt.Sprintf("last scan %s ago", age.Round(time.Second))
		}
		return true, fmt.Sprintf("last scan %s ago", age.Round(time.Millisecond))
	}
}

// Stop stops scanning and the reporter.
func (s *Scanner) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info(context.Background(), "scanner stopped")
	return s.reporter.Stop()
}

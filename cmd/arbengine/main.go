// Package main is the entry point for the arbitrage engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/arbitrage-engine/business/arbitrage"
	arbitrageDI "github.com/fd1az/arbitrage-engine/business/arbitrage/di"
	"github.com/fd1az/arbitrage-engine/business/blockchain"
	blockchainDI "github.com/fd1az/arbitrage-engine/business/blockchain/di"
	"github.com/fd1az/arbitrage-engine/business/pricing"
	pricingDI "github.com/fd1az/arbitrage-engine/business/pricing/di"
	"github.com/fd1az/arbitrage-engine/internal/apm"
	"github.com/fd1az/arbitrage-engine/internal/config"
	"github.com/fd1az/arbitrage-engine/internal/health"
	"github.com/fd1az/arbitrage-engine/internal/logger"
	"github.com/fd1az/arbitrage-engine/internal/metrics"
	"github.com/fd1az/arbitrage-engine/internal/monolith"
	"github.com/fd1az/arbitrage-engine/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Feeds and scans older than this fail the health check.
const healthMaxAge = 30 * time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	once := flag.Bool("once", false, "Run a single scan, print every route and exit")
	verbose := flag.Bool("verbose", false, "Print every scanned route in CLI mode")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbitrage-engine %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default; -once always prints to stdout.
	tuiMode := !*cliMode && !*once

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	opts := runOptions{
		configPath: *configPath,
		tuiMode:    tuiMode,
		once:       *once,
		verbose:    *verbose || *once,
	}
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath string
	tuiMode    bool
	once       bool
	verbose    bool
}

func parseLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func run(ctx context.Context, opts runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.Arbitrage.TUIMode = opts.tuiMode
	cfg.Arbitrage.Verbose = cfg.Arbitrage.Verbose || opts.verbose

	// In TUI mode logs would corrupt the screen.
	var out io.Writer = os.Stderr
	if opts.tuiMode {
		out = io.Discard
	}
	log := logger.New(out, parseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting arbitrage engine",
		"version", version,
		"environment", cfg.App.Environment,
		"strategies", len(cfg.Arbitrage.Strategies),
	)

	stopTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Dependency order: pricing needs nothing, arbitrage needs both.
	modules := []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		&arbitrage.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if opts.once {
		return runOnce(ctx, mono, modules)
	}

	if cfg.App.HealthPort > 0 {
		healthServer := startHealth(ctx, cfg, mono, log)
		defer healthServer.Stop(context.Background())
	}

	if opts.tuiMode {
		startFunc := func() error {
			ui.Send(ui.StartupMsg{Step: "feeds", Status: "connecting"})
			if blockchain.Enabled(cfg) {
				ui.Send(ui.StartupMsg{Step: "blocks", Status: "connecting"})
			} else {
				ui.Send(ui.StartupMsg{Step: "blocks", Status: "done", Message: "no ethereum endpoint, scanning on a timer"})
			}
			if err := mono.StartModules(ctx, modules...); err != nil {
				ui.Send(ui.StartupMsg{Step: "feeds", Status: "failed"})
				return fmt.Errorf("failed to start modules: %w", err)
			}
			ui.Send(ui.StartupMsg{Step: "feeds", Status: "done"})
			if blockchain.Enabled(cfg) {
				ui.Send(ui.StartupMsg{Step: "blocks", Status: "connected"})
			}
			return arbitrageDI.GetScanner(mono.Services()).Start(ctx)
		}
		stopFunc := func() {
			shutdown(mono, log)
		}
		return runTUI(ctx, startFunc, stopFunc)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	return runCLI(ctx, mono, log)
}

// setupTelemetry installs tracing and metrics when enabled and returns the
// matching teardown.
func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	headers := apm.ParseHeaders(cfg.Telemetry.OTLPHeaders)
	traceProvider, err := apm.NewTraceProvider(ctx, apm.ProviderConfig{
		Provider:    apm.Provider(cfg.Telemetry.Exporter),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     headers,
		ServiceName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	metricOpts := []metrics.Option{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithExporter(metrics.ExporterPrometheus),
	}
	if cfg.Telemetry.Exporter == string(apm.OTLPGRPCProvider) && cfg.Telemetry.OTLPEndpoint != "" {
		metricOpts = append(metricOpts, metrics.WithOTLPCollector(cfg.Telemetry.OTLPEndpoint, headers, false))
	}
	meterProvider, err := metrics.NewMetricProvider(ctx, metricOpts...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	promServer := metrics.NewPrometheusServer(cfg.Telemetry.PrometheusPort)
	go func() {
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "prometheus server stopped", "error", err)
		}
	}()
	log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Shutdown(shutdownCtx)
		_ = meterProvider.Shutdown(shutdownCtx)
		if err := traceProvider.Stop(); err != nil {
			log.Warn(shutdownCtx, "trace provider shutdown failed", "error", err)
		}
	}, nil
}

func startHealth(ctx context.Context, cfg *config.Config, mono monolith.Monolith, log logger.LoggerInterface) *health.Server {
	srv := health.NewServer(cfg.App.HealthPort, version, log)

	// Checks resolve services lazily so they only run once modules exist.
	srv.RegisterCheck("feeds", func(ctx context.Context) (bool, string) {
		return pricingDI.GetPricingService(mono.Services()).HealthCheck(healthMaxAge)(ctx)
	})
	srv.RegisterCheck("scanner", func(ctx context.Context) (bool, string) {
		return arbitrageDI.GetScanner(mono.Services()).HealthCheck(healthMaxAge)(ctx)
	})
	if blockchain.Enabled(cfg) {
		srv.RegisterCheck("blocks", func(ctx context.Context) (bool, string) {
			return blockchainDI.GetBlockchainService(mono.Services()).HealthCheck(2 * time.Minute)(ctx)
		})
	}

	if err := srv.Start(ctx); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.App.HealthPort)
	}
	return srv
}

// runOnce prices every strategy a single time. The console reporter prints
// each route as it is scanned.
func runOnce(ctx context.Context, mono *monolith.App, modules []monolith.Module) error {
	log := mono.Logger()
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	defer stopSources(mono, log)

	var blockNumber uint64
	if blockchain.Enabled(mono.Config()) {
		if block, err := blockchainDI.GetBlockchainService(mono.Services()).LatestBlock(ctx); err == nil {
			blockNumber = block.Number
		}
	}

	scanner := arbitrageDI.GetScanner(mono.Services())
	opps, err := scanner.ScanOnce(ctx, blockNumber)
	if err != nil {
		if len(opps) == 0 {
			return err
		}
		log.Warn(ctx, "some strategies could not be priced", "error", err)
	}

	profitable := 0
	for _, opp := range opps {
		if opp.IsProfitable() {
			profitable++
		}
	}
	log.Info(ctx, "scan complete", "priced", len(opps), "profitable", profitable)
	return nil
}

func runCLI(ctx context.Context, mono monolith.Monolith, log logger.LoggerInterface) error {
	log.Info(ctx, "all modules started, beginning arbitrage scanning")

	scanner := arbitrageDI.GetScanner(mono.Services())
	if err := scanner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scanner: %w", err)
	}

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")
	shutdown(mono, log)
	return nil
}

// shutdown stops the scanner, then the feeds and head watcher it reads from.
func shutdown(mono monolith.Monolith, log logger.LoggerInterface) {
	if err := arbitrageDI.GetScanner(mono.Services()).Stop(); err != nil {
		log.Error(context.Background(), "error stopping scanner", "error", err)
	}
	stopSources(mono, log)
}

func stopSources(mono monolith.Monolith, log logger.LoggerInterface) {
	ctx := context.Background()
	if err := pricingDI.GetPricingService(mono.Services()).Stop(ctx); err != nil {
		log.Error(ctx, "error stopping feeds", "error", err)
	}
	if blockchain.Enabled(mono.Config()) {
		if err := blockchainDI.GetBlockchainService(mono.Services()).Close(); err != nil {
			log.Error(ctx, "error closing head watcher", "error", err)
		}
	}
}

func runTUI(ctx context.Context, startFunc func() error, stopFunc func()) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Show the welcome screen before anything connects.
	p := tea.NewProgram(ui.New(), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		stopFunc()
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

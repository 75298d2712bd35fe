package apm

import (
	"context"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

type Provider string

const (
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ZipkinProvider   Provider = "zipkin"
	StdoutProvider   Provider = "stdout"
	EmptyProvider    Provider = "none"
)

type TraceProvider interface {
	Stop() error
}

// ProviderConfig selects and addresses a span exporter.
type ProviderConfig struct {
	Provider    Provider
	Endpoint    string
	Headers     map[string]string
	ServiceName string
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

// ParseHeaders parses "k1=v1,k2=v2" as used by OTEL_EXPORTER_OTLP_HEADERS.
// Malformed entries are skipped.
func ParseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || k == "" {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

func newExporter(ctx context.Context, cfg ProviderConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Provider {
	case StdoutProvider:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	case ZipkinProvider:
		return zipkin.New(cfg.Endpoint)
	case OTLPHTTPProvider:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
			otlptracehttp.WithHeaders(cfg.Headers),
		)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(cfg.Endpoint),
			otlptracegrpc.WithHeaders(cfg.Headers),
		)
	default:
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContextf("unknown trace exporter %q", cfg.Provider))
	}
}

// NewTraceProvider installs the global tracer provider for cfg. The empty
// provider leaves OpenTelemetry's no-op default in place.
func NewTraceProvider(ctx context.Context, cfg ProviderConfig, log logger.LoggerInterface) (TraceProvider, error) {
	if cfg.Provider == EmptyProvider || cfg.Provider == "" {
		return emptyTraceProvider{}, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeConfigurationError, "trace exporter "+string(cfg.Provider))
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("otel.provider", string(cfg.Provider)),
		))
	if err != nil {
		// Schema URL conflicts only lose the default attributes.
		log.Warn(ctx, "trace resource merge failed", "error", err)
		rsrc = resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(ctx, "tracing initialized", "provider", cfg.Provider, "endpoint", cfg.Endpoint)
	return &traceProvider{tp}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}

// Package metrics installs the OpenTelemetry meter provider and serves the
// Prometheus scrape endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

const DefaultPrometheusPort = 9090

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

func newReader(ctx context.Context, e Exporter, o options) (sdkmetric.Reader, error) {
	switch e {
	case ExporterPrometheus:
		return prometheus.New()
	case ExporterOTLPGRPC:
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(o.endpoint),
			otlpmetricgrpc.WithHeaders(o.headers),
		}
		if o.insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	default:
		return nil, fmt.Errorf("unknown metric exporter %q", e)
	}
}

// NewMetricProvider installs the global meter provider.
func NewMetricProvider(ctx context.Context, opts ...Option) (MetricProvider, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.exporters) == 0 {
		o.exporters = []Exporter{ExporterPrometheus}
	}

	sdkOpts := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(semconv.ServiceNameKey.String(o.serviceName))),
	}
	for _, e := range o.exporters {
		reader, err := newReader(ctx, e, o)
		if err != nil {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContextf("metric exporter %s", e), apperror.WithCause(err))
		}
		sdkOpts = append(sdkOpts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(sdkOpts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// NewPrometheusServer returns an unstarted server exposing /metrics.
// A non-positive port selects DefaultPrometheusPort.
func NewPrometheusServer(port int) *http.Server {
	if port <= 0 {
		port = DefaultPrometheusPort
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

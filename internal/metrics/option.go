package metrics

// Exporter names a metric reader.
type Exporter string

const (
	ExporterPrometheus Exporter = "prometheus"
	ExporterOTLPGRPC   Exporter = "otlp-grpc"
)

type options struct {
	serviceName string
	exporters   []Exporter
	endpoint    string
	headers     map[string]string
	insecure    bool
}

type Option func(*options)

func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// WithExporter adds a reader. Prometheus is used when none is given.
func WithExporter(e Exporter) Option {
	return func(o *options) { o.exporters = append(o.exporters, e) }
}

// WithOTLPCollector pushes metrics over OTLP/gRPC to endpoint in addition to
// any other exporter.
func WithOTLPCollector(endpoint string, headers map[string]string, insecure bool) Option {
	return func(o *options) {
		o.exporters = append(o.exporters, ExporterOTLPGRPC)
		o.endpoint = endpoint
		o.headers = headers
		o.insecure = insecure
	}
}

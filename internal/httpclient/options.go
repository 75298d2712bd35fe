// Package httpclient is the REST client used by the exchange feeds: otel
// traced transport, per-venue request metrics and an optional rate limiter
// in front of every call.
package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceOption selects what is copied into span events.
type TraceOption string

const TraceResponse TraceOption = "response"

// Limiter gates outgoing requests by weight. *ratelimit.Limiter satisfies it.
type Limiter interface {
	WaitN(ctx context.Context, n int) error
}

type settings struct {
	provider    string
	baseURL     string
	timeout     time.Duration
	headers     map[string]string
	limiter     Limiter
	tracer      trace.Tracer
	captureResp bool
}

func newSettings(opts []ClientOption) settings {
	s := settings{provider: "default", timeout: defaultRequestTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// ClientOption configures an InstrumentedClient.
type ClientOption func(*settings)

// WithProviderName tags metrics and spans with the venue name.
func WithProviderName(name string) ClientOption {
	return func(s *settings) {
		if name != "" {
			s.provider = name
		}
	}
}

// WithRequestTimeout bounds each call, rate-limit wait excluded.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithHeaders sets headers sent on every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(s *settings) { s.headers = headers }
}

// WithBaseURL is prepended to relative request paths.
func WithBaseURL(url string) ClientOption {
	return func(s *settings) { s.baseURL = url }
}

// WithRateLimiter makes every request wait on l for its weight before it
// is sent.
func WithRateLimiter(l Limiter) ClientOption {
	return func(s *settings) { s.limiter = l }
}

// WithTraceOptions sets the tracer and whether response bodies end up on
// the span.
func WithTraceOptions(tracer trace.Tracer, opts ...TraceOption) ClientOption {
	return func(s *settings) {
		s.tracer = tracer
		for _, opt := range opts {
			if opt == TraceResponse {
				s.captureResp = true
			}
		}
	}
}

// ResponseErrorHandler maps a response to an error, or nil when it is
// acceptable.
type ResponseErrorHandler func(statusCode int, body []byte) error

// Label is an extra metric attribute for one request.
type Label struct {
	Key   string
	Value string
}

func NewLabel(key, value string) Label {
	return Label{Key: key, Value: value}
}

type requestSettings struct {
	onResponse ResponseErrorHandler
	labels     []Label
	weight     int
}

// RequestOption configures a single request.
type RequestOption func(*requestSettings)

func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(r *requestSettings) { r.onResponse = handler }
}

func WithLabels(labels ...Label) RequestOption {
	return func(r *requestSettings) { r.labels = labels }
}

// WithWeight charges the request n units of the client's rate limit
// instead of 1.
func WithWeight(n int) RequestOption {
	return func(r *requestSettings) { r.weight = n }
}

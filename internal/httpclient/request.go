package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrDecodeResult is returned when a successful response does not decode
// into the value passed to SetResult.
var ErrDecodeResult = errors.New("httpclient: decode result")

// Request is the interface for building and executing HTTP requests.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)

	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response wraps http.Response with the already-read body.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.body)
}

// IsError returns true if the status code indicates an error (>= 400).
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

type requestBuilder struct {
	client       *InstrumentedClient
	headers      map[string]string
	query        url.Values
	result       any
	errorHandler ResponseErrorHandler
	labels       []Label
	weight       int
}

func (r *requestBuilder) Get(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, url)
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Set(key, value)
	return r
}

// SetResult sets the value a 2xx JSON body is decoded into.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) fullURL(path string) string {
	full := path
	if base := r.client.cfg.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + r.query.Encode()
	}
	return full
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	c := r.client
	start := time.Now()

	fullURL := r.fullURL(path)
	ctx, span := c.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", fullURL),
			c.provider,
		),
	)
	defer span.End()

	if c.cfg.limiter != nil {
		if err := c.cfg.limiter.WaitN(ctx, r.weight); err != nil {
			r.fail(ctx, span, start, err)
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		r.fail(ctx, span, start, err)
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			span.SetAttributes(attribute.Bool("request.timeout", true))
		}
		r.fail(ctx, span, start, err)
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		r.fail(ctx, span, start, err)
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if c.cfg.captureResp {
		span.AddEvent("response.body", trace.WithAttributes(attribute.String("http.response_body", string(data))))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	response := &Response{Response: resp, body: data}

	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(resp.StatusCode, data); handlerErr != nil {
			r.fail(ctx, span, start, handlerErr)
			return response, handlerErr
		}
	}

	if r.result != nil && !response.IsError() && len(data) > 0 {
		if err := json.Unmarshal(data, r.result); err != nil {
			err = fmt.Errorf("%w: %v", ErrDecodeResult, err)
			r.fail(ctx, span, start, err)
			return response, err
		}
	}

	r.record(ctx, start, !response.IsError())
	return response, nil
}

func (r *requestBuilder) fail(ctx context.Context, span trace.Span, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.record(ctx, start, false)
}

func (r *requestBuilder) record(ctx context.Context, start time.Time, success bool) {
	attrs := make([]attribute.KeyValue, 0, len(r.labels)+2)
	attrs = append(attrs,
		r.client.provider,
		attribute.Bool("success", success),
	)
	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}
	opt := metric.WithAttributes(attrs...)
	r.client.calls.Add(ctx, 1, opt)
	r.client.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, opt)
}

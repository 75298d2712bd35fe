package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type countingLimiter struct {
	calls  atomic.Int32
	weight atomic.Int32
	err    error
}

func (l *countingLimiter) WaitN(_ context.Context, n int) error {
	l.calls.Add(1)
	l.weight.Add(int32(n))
	return l.err
}

func TestRequest_GetDecodesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTC USDT" {
			t.Errorf("symbol = %q, want escaped round trip of %q", got, "BTC USDT")
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte(`{"value":42}`))
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	client, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithBaseURL(server.URL),
		WithRateLimiter(limiter),
		WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		t.Fatalf("NewInstrumentedClient() error = %v", err)
	}

	var out struct {
		Value int `json:"value"`
	}
	resp, err := client.NewRequestWithOptions(WithLabels(NewLabel("endpoint", "x"))).
		SetQueryParam("symbol", "BTC USDT").
		SetResult(&out).
		Get(context.Background(), "/api/x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.IsError() {
		t.Fatalf("IsError() = true, status %d", resp.StatusCode)
	}
	if out.Value != 42 {
		t.Errorf("decoded value = %d, want 42", out.Value)
	}
	if limiter.calls.Load() != 1 {
		t.Errorf("limiter called %d times, want 1", limiter.calls.Load())
	}
}

func TestRequest_ErrorHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121}`))
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(WithBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}

	sentinel := errors.New("bad symbol")
	resp, err := client.NewRequestWithOptions(WithResponseErrorHandler(func(status int, body []byte) error {
		if status >= 400 {
			return sentinel
		}
		return nil
	})).Get(context.Background(), "/x")
	if !errors.Is(err, sentinel) {
		t.Fatalf("Get() error = %v, want %v", err, sentinel)
	}
	if resp == nil || resp.String() != `{"code":-1121}` {
		t.Errorf("response body not preserved: %v", resp)
	}
}

func TestRequest_DecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(WithBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	_, err = client.NewRequest().SetResult(&out).Get(context.Background(), "/x")
	if !errors.Is(err, ErrDecodeResult) {
		t.Errorf("Get() error = %v, want %v", err, ErrDecodeResult)
	}
}

func TestRequest_WeightChargesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	client, err := NewInstrumentedClient(WithBaseURL(server.URL), WithRateLimiter(limiter))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.NewRequest().Get(context.Background(), "/light"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := client.NewRequestWithOptions(WithWeight(25)).Get(context.Background(), "/heavy"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := limiter.weight.Load(); got != 26 {
		t.Errorf("limiter charged %d, want 1+25", got)
	}
}

func TestRequest_LimiterErrorStopsRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	limiter := &countingLimiter{err: context.DeadlineExceeded}
	client, err := NewInstrumentedClient(WithBaseURL(server.URL), WithRateLimiter(limiter))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.NewRequest().Get(context.Background(), "/x"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want deadline exceeded", err)
	}
	if hits.Load() != 0 {
		t.Error("request reached the server despite limiter error")
	}
}

package apm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders("x-honeycomb-team=abc, api-key = k=v ,broken,=x")
	if len(got) != 2 {
		t.Fatalf("ParseHeaders() = %v, want 2 entries", got)
	}
	if got["x-honeycomb-team"] != "abc" || got["api-key"] != "k=v" {
		t.Errorf("ParseHeaders() = %v", got)
	}
}

func TestNewTraceProvider(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)
	ctx := context.Background()

	tp, err := NewTraceProvider(ctx, ProviderConfig{Provider: EmptyProvider}, log)
	if err != nil || tp.Stop() != nil {
		t.Fatalf("empty provider: %v", err)
	}

	_, err = NewTraceProvider(ctx, ProviderConfig{Provider: "jaeger"}, log)
	if !apperror.IsCode(err, apperror.CodeConfigurationError) {
		t.Errorf("unknown provider error = %v, want CONFIGURATION_ERROR", err)
	}

	tp, err = NewTraceProvider(ctx, ProviderConfig{Provider: StdoutProvider, ServiceName: "test"}, log)
	if err != nil {
		t.Fatalf("stdout provider: %v", err)
	}
	_, span := NewTracer("test").StartSpanFromContext(ctx, "op")
	span.NoticeError(errors.New("boom"))
	span.NoticeError(nil)
	span.End()
	if err := tp.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "arbengine", nil)
	ctx := context.Background()

	log.Debug(ctx, "debug")
	log.Info(ctx, "info")
	log.Warn(ctx, "warn", "venue", "binance")
	log.Error(ctx, "error")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d records, want 2", len(lines))
	}
	if lines[0]["msg"] != "warn" || lines[0]["venue"] != "binance" {
		t.Errorf("unexpected first record: %v", lines[0])
	}
	if lines[0]["service"] != "arbengine" {
		t.Errorf("service = %v, want arbengine", lines[0]["service"])
	}
}

func TestLogger_TraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "svc", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "hello")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d records, want 1", len(lines))
	}
	if lines[0]["trace_id"] != "abc123" {
		t.Errorf("trace_id = %v, want abc123", lines[0]["trace_id"])
	}
}

func TestLogger_SourceAndWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "svc", nil).With("component", "scanner")

	log.Info(context.Background(), "scan")

	lines := decodeLines(t, &buf)
	if lines[0]["component"] != "scanner" {
		t.Errorf("component = %v, want scanner", lines[0]["component"])
	}
	src, _ := lines[0]["source"].(string)
	if !strings.Contains(src, "logger_test.go") {
		t.Errorf("source = %q, want it to point at logger_test.go", src)
	}
	if _, ok := lines[0]["trace_id"]; ok {
		t.Error("trace_id should be absent without a span")
	}
}

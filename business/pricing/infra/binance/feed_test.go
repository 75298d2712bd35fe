package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

type recordingSink struct {
	mu    sync.Mutex
	books map[string]domain.OrderBook
	seen  chan string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{books: make(map[string]domain.OrderBook), seen: make(chan string, 16)}
}

func (s *recordingSink) RegisterOrderBook(venue string, pair domain.Pair, book domain.OrderBook) error {
	s.mu.Lock()
	s.books[venue+" "+pair.String()] = book
	s.mu.Unlock()
	select {
	case s.seen <- pair.String():
	default:
	}
	return nil
}

func (s *recordingSink) RegisterReserves(string, domain.Pair, domain.ReservePool) error {
	return nil
}

func (s *recordingSink) book(key string) (domain.OrderBook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[key]
	return b, ok
}

var sampleDepth = DepthResponse{
	LastUpdateID: 12345,
	Bids: [][]string{
		{"3400.50", "10.5"},
		{"3400.00", "0.00000000"},
		{"3399.50", "15.0"},
	},
	Asks: [][]string{
		{"3401.00", "8.0"},
		{"3401.50", "12.0"},
	},
}

func TestFeed_RefreshUsesREST(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != depthEndpoint {
			t.Errorf("path = %s, want %s", r.URL.Path, depthEndpoint)
		}
		if symbol := r.URL.Query().Get("symbol"); symbol != "ETHUSDC" {
			t.Errorf("expected symbol ETHUSDC, got %s", symbol)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sampleDepth)
	}))
	defer server.Close()

	feed, err := NewFeed(FeedConfig{
		Markets:        map[string]domain.Pair{"ETHUSDC": domain.MustParsePair("ETH_USDC")},
		HTTPURL:        server.URL,
		StaleTimeout:   time.Minute,
		EnableFallback: true,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}

	sink := newRecordingSink()
	if err := feed.Refresh(context.Background(), sink); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	book, ok := sink.book("binance ETH_USDC")
	if !ok {
		t.Fatal("no book registered for binance ETH_USDC")
	}
	if len(book.Bids) != 2 {
		t.Errorf("bids = %d, want 2 (zero-size level dropped)", len(book.Bids))
	}
	if !book.Bids[0].Price.Equal(decimal.RequireFromString("3400.50")) {
		t.Errorf("best bid = %s, want 3400.50", book.Bids[0].Price)
	}
	if !book.Asks[0].Size.Equal(decimal.RequireFromString("8")) {
		t.Errorf("best ask size = %s, want 8", book.Asks[0].Size)
	}
	if !feed.Connected() {
		t.Error("REST-only feed should report connected")
	}

	// A fresh symbol is not fetched again.
	server.Close()
	if err := feed.Refresh(context.Background(), sink); err != nil {
		t.Errorf("Refresh() on fresh data error = %v, want no request", err)
	}
}

func TestFeed_RefreshDisabledFallback(t *testing.T) {
	feed, err := NewFeed(FeedConfig{
		Markets: map[string]domain.Pair{"ETHUSDC": domain.MustParsePair("ETH_USDC")},
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	sink := newRecordingSink()
	if err := feed.Refresh(context.Background(), sink); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(sink.books) != 0 {
		t.Errorf("registered %d books with fallback disabled", len(sink.books))
	}
}

func TestHTTPClient_GetDepthAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(BinanceAPIError{Code: -1121, Message: "Invalid symbol."})
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{BaseURL: server.URL}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	_, err = client.GetDepth(context.Background(), "INVALID", 20)
	if !apperror.IsCode(err, apperror.CodeBinanceAPIError) {
		t.Fatalf("GetDepth() error = %v, want BINANCE_API_ERROR", err)
	}
	if !strings.Contains(err.Error(), "-1121") {
		t.Errorf("error %q should carry the API code", err)
	}
}

func TestHTTPClient_CircuitOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{BaseURL: server.URL}, &mockLogger{})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := client.GetDepth(ctx, "BTCUSDT", 20); !apperror.IsCode(err, apperror.CodeOrderbookFetchFailed) {
			t.Fatalf("call %d error = %v, want ORDERBOOK_FETCH_FAILED", i+1, err)
		}
	}
	if _, err := client.GetDepth(ctx, "BTCUSDT", 20); !apperror.IsCode(err, apperror.CodeCircuitOpen) {
		t.Fatalf("GetDepth() after 5 failures error = %v, want CIRCUIT_OPEN", err)
	}
	if hits.Load() != 5 {
		t.Errorf("server hits = %d, want 5 (open breaker must not call out)", hits.Load())
	}
}

func TestFeed_StreamRegistersBooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "btcusdt@depth20@100ms") {
			t.Errorf("streams query = %q", r.URL.RawQuery)
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		payload, _ := json.Marshal(sampleDepth)
		msg, _ := json.Marshal(StreamEvent{Stream: "btcusdt@depth20@100ms", Data: payload})
		conn.Write(r.Context(), websocket.MessageText, msg)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	feed, err := NewFeed(FeedConfig{
		Markets:      map[string]domain.Pair{"BTCUSDT": domain.MustParsePair("BTC_USDT")},
		WebSocketURL: "ws" + strings.TrimPrefix(server.URL, "http"),
		DepthSpeedMs: 100,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	defer feed.Stop()

	sink := newRecordingSink()
	if err := feed.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case pair := <-sink.seen:
		if pair != "BTC_USDT" {
			t.Errorf("registered pair = %s, want BTC_USDT", pair)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for streamed depth")
	}
	if _, ok := feed.LastUpdate("BTCUSDT"); !ok {
		t.Error("LastUpdate not recorded for streamed symbol")
	}
}

func TestParseLevels(t *testing.T) {
	levels, err := ParseLevels([][]string{{"1.5", "2"}, {"1.4", "0"}})
	if err != nil {
		t.Fatalf("ParseLevels() error = %v", err)
	}
	if len(levels) != 1 {
		t.Errorf("len = %d, want 1", len(levels))
	}

	if _, err := ParseLevels([][]string{{"abc", "1"}}); !apperror.IsCode(err, apperror.CodeInvalidOrderbook) {
		t.Errorf("bad price error = %v, want INVALID_ORDERBOOK", err)
	}
	if _, err := ParseLevels([][]string{{"1"}}); !apperror.IsCode(err, apperror.CodeInvalidOrderbook) {
		t.Errorf("short level error = %v, want INVALID_ORDERBOOK", err)
	}
}

func TestDepthWeight(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{5, 5},
		{20, 5},
		{100, 5},
		{500, 25},
		{1000, 50},
		{5000, 250},
	}
	for _, tt := range tests {
		if got := depthWeight(tt.limit); got != tt.want {
			t.Errorf("depthWeight(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestStreamNames(t *testing.T) {
	if got := DepthStream("ETHUSDC", 100); got != "ethusdc@depth20@100ms" {
		t.Errorf("DepthStream() = %q", got)
	}
	if got := extractSymbolFromStream("ethusdc@depth20@100ms"); got != "ETHUSDC" {
		t.Errorf("extractSymbolFromStream() = %q", got)
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantOK  bool
		wantErr bool
	}{
		{"depth", `{"stream":"ethusdt@depth20@100ms","data":{"lastUpdateId":9,"bids":[["3000.1","2"]],"asks":[["3000.2","1"]]}}`, true, false},
		{"subscription ack", `{"result":null,"id":1}`, false, false},
		{"other stream", `{"stream":"ethusdt@trade","data":{}}`, false, false},
		{"garbage", `not json`, false, true},
		{"no stream", `{"foo":1}`, false, true},
		{"bad depth payload", `{"stream":"ethusdt@depth20@100ms","data":{"bids":"x"}}`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth, ok, err := decodeFrame([]byte(tt.frame))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (depth.Symbol != "ETHUSDT" || len(depth.Bids) != 1) {
				t.Errorf("depth = %+v", depth)
			}
		})
	}
}

func TestNewClient_RequiresSymbols(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "ws://127.0.0.1:1"}, &mockLogger{})
	if !apperror.IsCode(err, apperror.CodeConfigurationError) {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

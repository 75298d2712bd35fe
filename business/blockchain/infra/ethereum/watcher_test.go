package ethereum

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/arbitrage-engine/business/blockchain/domain"
	"github.com/fd1az/arbitrage-engine/internal/logger"
)

type fakeSubscription struct {
	errCh chan error
	once  sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{errCh: make(chan error, 1)}
}

func (s *fakeSubscription) Unsubscribe()      { s.once.Do(func() { close(s.errCh) }) }
func (s *fakeSubscription) Err() <-chan error { return s.errCh }

// fakeSource pushes heads through whatever channel the watcher subscribed with.
type fakeSource struct {
	mu         sync.Mutex
	subErr     error
	headers    chan<- *types.Header
	sub        *fakeSubscription
	subscribes int
	head       uint64
}

func (f *fakeSource) SubscribeNewHead(_ context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.headers = ch
	f.sub = newFakeSubscription()
	return f.sub, nil
}

func (f *fakeSource) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head++
	return header(f.head), nil
}

func (f *fakeSource) push(h *types.Header) {
	f.mu.Lock()
	ch := f.headers
	f.mu.Unlock()
	ch <- h
}

func header(n uint64) *types.Header {
	return &types.Header{Number: new(big.Int).SetUint64(n), Time: uint64(time.Now().Unix())}
}

func testWatcher(t *testing.T, src HeadSource, cfg WatcherConfig) *Watcher {
	t.Helper()
	w, err := NewWatcher(src, cfg, logger.New(io.Discard, logger.LevelDebug, "test", nil))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func nextBlock(t *testing.T, blocks <-chan *domain.Block) *domain.Block {
	t.Helper()
	select {
	case b := <-blocks:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for block")
		return nil
	}
}

func TestWatcher_ForwardsPushedHeads(t *testing.T) {
	src := &fakeSource{}
	w := testWatcher(t, src, WatcherConfig{BufferSize: 4})

	blocks, err := w.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	src.push(header(100))
	src.push(header(100)) // duplicate
	src.push(header(99))  // stale
	src.push(header(101))

	if b := nextBlock(t, blocks); b.Number != 100 {
		t.Errorf("first block = %d, want 100", b.Number)
	}
	if b := nextBlock(t, blocks); b.Number != 101 {
		t.Errorf("second block = %d, want 101 (duplicates and stale heads skipped)", b.Number)
	}

	status := w.Status()
	if status.State != domain.StateConnected || status.Polling {
		t.Errorf("status = %+v, want connected via subscription", status)
	}
	if status.LastBlock != 101 {
		t.Errorf("LastBlock = %d, want 101", status.LastBlock)
	}
}

func TestWatcher_PollsWhenSubscribeUnsupported(t *testing.T) {
	src := &fakeSource{subErr: errors.New("notifications not supported")}
	w := testWatcher(t, src, WatcherConfig{PollInterval: 10 * time.Millisecond})

	blocks, err := w.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	first := nextBlock(t, blocks)
	second := nextBlock(t, blocks)
	if second.Number <= first.Number {
		t.Errorf("polled blocks not increasing: %d then %d", first.Number, second.Number)
	}
	if !w.Status().Polling {
		t.Error("Status().Polling = false, want true")
	}
}

func TestWatcher_ResubscribesAfterDrop(t *testing.T) {
	src := &fakeSource{}
	w := testWatcher(t, src, WatcherConfig{ReconnectDelay: 10 * time.Millisecond, BufferSize: 4})

	blocks, err := w.Subscribe(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	src.mu.Lock()
	sub := src.sub
	src.mu.Unlock()
	sub.errCh <- errors.New("connection reset")

	deadline := time.Now().Add(2 * time.Second)
	for {
		src.mu.Lock()
		n := src.subscribes
		src.mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher did not resubscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	src.push(header(7))
	if b := nextBlock(t, blocks); b.Number != 7 {
		t.Errorf("block after resubscribe = %d, want 7", b.Number)
	}
	if w.Status().Reconnects != 1 {
		t.Errorf("Reconnects = %d, want 1", w.Status().Reconnects)
	}
}

func TestWatcher_CloseClosesChannel(t *testing.T) {
	w := testWatcher(t, &fakeSource{}, WatcherConfig{})

	blocks, err := w.Subscribe(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := <-blocks; ok {
		t.Error("block channel still open after Close")
	}
	if _, err := w.Subscribe(context.Background()); err == nil {
		t.Error("Subscribe() after Close should fail")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWatcher_LatestBlock(t *testing.T) {
	w := testWatcher(t, &fakeSource{head: 41}, WatcherConfig{})
	b, err := w.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("LatestBlock() error = %v", err)
	}
	if b.Number != 42 {
		t.Errorf("LatestBlock() = %d, want 42", b.Number)
	}
}

package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var transitions []gobreaker.State
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Minute
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}
	cb := New[int](cfg)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !apperror.IsCode(err, apperror.CodeCircuitOpen) {
		t.Errorf("err = %v, want CIRCUIT_OPEN", err)
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("transitions = %v, want [open]", transitions)
	}
}

func TestCircuitBreaker_PassesResults(t *testing.T) {
	cb := New[string](DefaultConfig("ok"))

	got, err := cb.Execute(func() (string, error) { return "reserves", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "reserves" {
		t.Errorf("got %q, want reserves", got)
	}
	if cb.Name() != "ok" {
		t.Errorf("Name() = %q, want ok", cb.Name())
	}
}

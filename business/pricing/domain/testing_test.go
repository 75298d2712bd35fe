package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func levels(pairs ...string) []PriceLevel {
	out := make([]PriceLevel, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, PriceLevel{Price: d(pairs[i]), Size: d(pairs[i+1])})
	}
	return out
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func assertNear(t *testing.T, name string, got decimal.Decimal, want string, tol string) {
	t.Helper()
	if got.Sub(d(want)).Abs().GreaterThan(d(tol)) {
		t.Errorf("%s = %s, want %s (±%s)", name, got, want, tol)
	}
}

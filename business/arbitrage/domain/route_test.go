package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func steps(pairs ...string) []Step {
	out := make([]Step, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Step{In: d(pairs[i]), Out: d(pairs[i+1])})
	}
	return out
}

func TestSplitAmounts(t *testing.T) {
	got := SplitAmounts([]decimal.Decimal{d("100"), d("3000"), d("0.003"), d("90")})
	want := steps("100", "3000", "3000", "0.003", "0.003", "90")

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].In.Equal(want[i].In) || !got[i].Out.Equal(want[i].Out) {
			t.Errorf("steps[%d] = (%s, %s), want (%s, %s)", i, got[i].In, got[i].Out, want[i].In, want[i].Out)
		}
	}

	if SplitAmounts([]decimal.Decimal{d("1")}) != nil {
		t.Error("SplitAmounts of a single amount should be nil")
	}
}

func TestCalculatePNL(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  string
		tol   string
	}{
		{
			name:  "middle_leg_needs_more_than_delivered",
			steps: steps("100", "0.5", "1", "3000", "3000", "101"),
			want:  "0.9975",
			tol:   "0",
		},
		{
			name:  "perfect_chain",
			steps: steps("100", "0.5", "0.5", "3000", "3000", "101"),
			want:  "1",
			tol:   "0",
		},
		{
			name:  "deviations_on_both_legs",
			steps: steps("101", "0.5", "0.6", "3000", "2999", "101"),
			want:  "24.7519802475",
			tol:   "0.000001",
		},
		{
			name:  "losing_route",
			steps: steps("100", "3000", "3000", "0.003", "0.003", "90"),
			want:  "-10",
			tol:   "0",
		},
		{
			name:  "single_step",
			steps: steps("10", "12"),
			want:  "2",
			tol:   "0",
		},
		{
			name:  "empty",
			steps: nil,
			want:  "0",
			tol:   "0",
		},
		{
			name:  "zero_input_leg_stops_valuation",
			steps: steps("0", "0", "5", "10"),
			want:  "10",
			tol:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePNL(tt.steps)
			if got.Sub(d(tt.want)).Abs().GreaterThan(d(tt.tol)) {
				t.Errorf("CalculatePNL() = %s, want %s (±%s)", got, tt.want, tt.tol)
			}
		})
	}
}

func TestCalculatePNL_ContiguousChainIsSpread(t *testing.T) {
	chains := [][]string{
		{"100", "3000", "0.003", "90"},
		{"100", "0.0033333322", "33.3333108889", "33.3332997778"},
		{"1", "2", "3", "4", "5"},
		{"250.5", "0.12345678", "251.00000001"},
	}

	for _, chain := range chains {
		amounts := make([]decimal.Decimal, len(chain))
		for i, s := range chain {
			amounts[i] = d(s)
		}
		got := CalculatePNL(SplitAmounts(amounts))
		want := amounts[len(amounts)-1].Sub(amounts[0])
		if !got.Equal(want) {
			t.Errorf("CalculatePNL(%v) = %s, want %s", chain, got, want)
		}
	}
}

func BenchmarkCalculatePNL(b *testing.B) {
	s := steps("101", "0.5", "0.6", "3000", "2999", "101")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculatePNL(s)
	}
}

package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/arbitrage-engine/business/pricing/domain"
)

func TestThresholds_Evaluate(t *testing.T) {
	tests := []struct {
		name           string
		amounts        []string
		minPNL         string
		minBps         string
		wantPNL        string
		wantBps        string
		wantProfitable bool
	}{
		{"profitable", []string{"100", "0.5", "101"}, "0.5", "10", "1", "100", true},
		{"below_min_pnl", []string{"100", "0.5", "101"}, "2", "0", "1", "100", false},
		{"below_min_bps", []string{"100", "0.5", "101"}, "0", "150", "1", "100", false},
		{"loss", []string{"100", "3000", "90"}, "0", "0", "-10", "-1000", false},
		{"break_even_is_not_profitable", []string{"100", "5", "100"}, "0", "0", "0", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amounts := make([]decimal.Decimal, len(tt.amounts))
			for i, s := range tt.amounts {
				amounts[i] = d(s)
			}
			c := NewCandidate(pricingDomain.RouteSpec{AmountIn: amounts[0]}, amounts, DirectionForward)
			got := Thresholds{MinPNL: d(tt.minPNL), MinPNLBps: d(tt.minBps)}.Evaluate(c)

			if !got.PNL.Equal(d(tt.wantPNL)) {
				t.Errorf("PNL = %s, want %s", got.PNL, tt.wantPNL)
			}
			if !got.PNLBps.Equal(d(tt.wantBps)) {
				t.Errorf("PNLBps = %s, want %s", got.PNLBps, tt.wantBps)
			}
			if got.IsProfitable != tt.wantProfitable {
				t.Errorf("IsProfitable = %v, want %v", got.IsProfitable, tt.wantProfitable)
			}
		})
	}
}

func TestCandidate_BetterThan(t *testing.T) {
	a := Candidate{PNL: d("1")}
	b := Candidate{PNL: d("1")}
	c := Candidate{PNL: d("1.0001")}

	if a.BetterThan(b) {
		t.Error("equal PNL should not be better")
	}
	if !c.BetterThan(a) {
		t.Error("higher PNL should be better")
	}
	if got := (Candidate{}).FinalAmount(); !got.IsZero() {
		t.Errorf("FinalAmount() of empty = %s, want 0", got)
	}
}

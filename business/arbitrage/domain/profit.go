package domain

import "github.com/shopspring/decimal"

// ProfitResult is a candidate judged against the configured thresholds.
type ProfitResult struct {
	PNL          decimal.Decimal
	PNLBps       decimal.Decimal // PNL / amountIn in basis points
	IsProfitable bool
}

// Thresholds a candidate must meet or exceed to count as profitable.
type Thresholds struct {
	MinPNL    decimal.Decimal
	MinPNLBps decimal.Decimal
}

var bpsFactor = decimal.NewFromInt(10000)

// Evaluate scores c against t.
func (t Thresholds) Evaluate(c Candidate) ProfitResult {
	bps := decimal.Zero
	if c.Route.AmountIn.IsPositive() {
		bps = c.PNL.Div(c.Route.AmountIn).Mul(bpsFactor)
	}

	return ProfitResult{
		PNL:    c.PNL,
		PNLBps: bps,
		IsProfitable: c.PNL.IsPositive() &&
			c.PNL.GreaterThanOrEqual(t.MinPNL) &&
			bps.GreaterThanOrEqual(t.MinPNLBps),
	}
}

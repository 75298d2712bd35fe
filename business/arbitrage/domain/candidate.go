package domain

import (
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/arbitrage-engine/business/pricing/domain"
)

// Candidate is a priced and scored route.
type Candidate struct {
	Route      pricingDomain.RouteSpec
	AmountsOut []decimal.Decimal
	PNL        decimal.Decimal
	Direction  Direction
}

// NewCandidate scores amounts and wraps them with their route.
func NewCandidate(route pricingDomain.RouteSpec, amounts []decimal.Decimal, dir Direction) Candidate {
	return Candidate{
		Route:      route,
		AmountsOut: amounts,
		PNL:        CalculatePNL(SplitAmounts(amounts)),
		Direction:  dir,
	}
}

// BetterThan reports whether c has strictly greater PNL than other.
func (c Candidate) BetterThan(other Candidate) bool {
	return c.PNL.GreaterThan(other.PNL)
}

// FinalAmount is the amount that returns to the starting token.
func (c Candidate) FinalAmount() decimal.Decimal {
	if len(c.AmountsOut) == 0 {
		return decimal.Zero
	}
	return c.AmountsOut[len(c.AmountsOut)-1]
}

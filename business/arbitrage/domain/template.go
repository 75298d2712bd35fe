package domain

import (
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/arbitrage-engine/business/pricing/domain"
)

// PureArbParams describes a two-venue round trip starting and ending in
// Token0. Kind0/Kind1 select the liquidity type on each venue and default to
// order books.
type PureArbParams struct {
	Venue0   string
	Venue1   string
	Token0   string
	Token1   string
	Middle   string
	AmountIn decimal.Decimal
	Fee0     decimal.Decimal
	Fee1     decimal.Decimal
	Kind0    pricingDomain.OrderType
	Kind1    pricingDomain.OrderType

	// Precision truncates order-book hops; zero keeps the route default.
	Precision int32
}

// HasMiddle reports whether the loop goes through a third token.
func (p PureArbParams) HasMiddle() bool {
	return p.Middle != ""
}

// PureArbTemplateRoutes returns the two traversal directions of the loop.
//
//	no middle:   [t0 t1 t0] via (v0, v1)      and [t0 t1 t0] via (v1, v0)
//	with middle: [t0 m t1 t0] via (v0, v0, v1) and [t0 t1 m t0] via (v1, v0, v0)
//
// Each hop carries the fee and liquidity kind of the venue it trades on.
func PureArbTemplateRoutes(p PureArbParams) []pricingDomain.RouteSpec {
	kind0, kind1 := orDefault(p.Kind0), orDefault(p.Kind1)

	type leg struct {
		venue string
		fee   decimal.Decimal
		kind  pricingDomain.OrderType
	}
	v0 := leg{p.Venue0, p.Fee0, kind0}
	v1 := leg{p.Venue1, p.Fee1, kind1}

	build := func(tokens []string, legs ...leg) pricingDomain.RouteSpec {
		r := pricingDomain.RouteSpec{
			Tokens:     tokens,
			Exchanges:  make([]string, len(tokens)),
			Fees:       make([]decimal.Decimal, len(tokens)),
			OrderTypes: make([]pricingDomain.OrderType, len(tokens)),
			AmountIn:   p.AmountIn,
		}
		if p.Precision > 0 {
			r.Precisions = make([]int32, len(tokens))
			for i := range r.Precisions {
				r.Precisions[i] = p.Precision
			}
		}
		for i, l := range legs {
			r.Exchanges[i+1] = l.venue
			r.Fees[i+1] = l.fee
			r.OrderTypes[i+1] = l.kind
		}
		return r
	}

	if p.HasMiddle() {
		return []pricingDomain.RouteSpec{
			build([]string{p.Token0, p.Middle, p.Token1, p.Token0}, v0, v0, v1),
			build([]string{p.Token0, p.Token1, p.Middle, p.Token0}, v1, v0, v0),
		}
	}

	return []pricingDomain.RouteSpec{
		build([]string{p.Token0, p.Token1, p.Token0}, v0, v1),
		build([]string{p.Token0, p.Token1, p.Token0}, v1, v0),
	}
}

func orDefault(k pricingDomain.OrderType) pricingDomain.OrderType {
	if k == "" {
		return pricingDomain.OrderTypeOrderBook
	}
	return k
}

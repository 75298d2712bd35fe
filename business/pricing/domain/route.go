package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// RouteSpec is an ordered token path with per-hop parameters. Auxiliary
// slices are indexed like Tokens; index 0 is unused because no hop leads
// into the first token. A nil slice means defaults for every hop.
type RouteSpec struct {
	Tokens     []string
	Exchanges  []string
	Fees       []decimal.Decimal
	Precisions []int32
	OrderTypes []OrderType
	AmountIn   decimal.Decimal
}

// Hop is the resolved parameters for trading Tokens[i-1] into Tokens[i].
// Precision is 0 when the route leaves it unset; the pricing engine then
// applies its own default.
type Hop struct {
	Index     int
	Venue     string
	Pair      Pair
	Fee       decimal.Decimal
	Precision int32
	Kind      OrderType
}

// Len is the number of tokens in the route.
func (r RouteSpec) Len() int {
	return len(r.Tokens)
}

// Validate checks lengths and token identifiers.
func (r RouteSpec) Validate() error {
	n := len(r.Tokens)
	if n < 2 {
		return apperror.Validation(apperror.CodeInvalidRoute, strconv.Itoa(n)+" tokens")
	}

	mismatch := func(name string, got int) error {
		return apperror.New(apperror.CodeLengthMismatch,
			apperror.WithContextf("%s has %d entries, route has %d", name, got, n))
	}
	if len(r.Exchanges) != n {
		return mismatch("exchanges", len(r.Exchanges))
	}
	if r.Fees != nil && len(r.Fees) != n {
		return mismatch("fees", len(r.Fees))
	}
	if r.Precisions != nil && len(r.Precisions) != n {
		return mismatch("precisions", len(r.Precisions))
	}
	if r.OrderTypes != nil && len(r.OrderTypes) != n {
		return mismatch("orderTypes", len(r.OrderTypes))
	}

	for _, t := range r.Tokens {
		if !ValidToken(t) {
			return apperror.Validation(apperror.CodeInvalidPair, "token "+strconv.Quote(t))
		}
	}
	return nil
}

// Hop returns the parameters of hop i, 1 <= i < Len(). Call Validate first.
func (r RouteSpec) Hop(i int) Hop {
	h := Hop{
		Index:     i,
		Venue:     r.Exchanges[i],
		Pair:      NewPair(r.Tokens[i-1], r.Tokens[i]),
		Fee:  decimal.Zero,
		Kind: OrderTypeOrderBook,
	}
	if r.Fees != nil {
		h.Fee = r.Fees[i]
	}
	if r.Precisions != nil && r.Precisions[i] > 0 {
		h.Precision = r.Precisions[i]
	}
	if r.OrderTypes != nil && r.OrderTypes[i] != "" {
		h.Kind = r.OrderTypes[i]
	}
	return h
}

// String renders the path, e.g. "USDT>THB>BTC>USDT".
func (r RouteSpec) String() string {
	return strings.Join(r.Tokens, ">")
}

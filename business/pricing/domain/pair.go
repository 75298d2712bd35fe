// Package domain contains the core domain types and pure pricing algorithms
// for the pricing context.
package domain

import (
	"strings"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// PairSeparator joins the two tokens of a pair identifier.
const PairSeparator = "_"

// Pair is a trading pair. For order books Base is the traded asset and Quote
// the settlement asset; for pools Base is token0 and Quote token1.
type Pair struct {
	Base  string
	Quote string
}

// NewPair creates a pair from two token identifiers.
func NewPair(base, quote string) Pair {
	return Pair{Base: base, Quote: quote}
}

// ParsePair parses the "BASE_QUOTE" boundary form.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, PairSeparator)
	if len(parts) != 2 {
		return Pair{}, apperror.Validation(apperror.CodeInvalidPair, s)
	}
	p := Pair{Base: parts[0], Quote: parts[1]}
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// MustParsePair is ParsePair for literals; it panics on malformed input.
func MustParsePair(s string) Pair {
	p, err := ParsePair(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks that both tokens are non-empty and free of the separator.
func (p Pair) Validate() error {
	if !ValidToken(p.Base) || !ValidToken(p.Quote) {
		return apperror.Validation(apperror.CodeInvalidPair, p.String())
	}
	return nil
}

// ValidToken reports whether a token identifier can be used in a pair.
func ValidToken(token string) bool {
	return token != "" && !strings.Contains(token, PairSeparator)
}

// String returns the boundary form, e.g. "BTC_USDT".
func (p Pair) String() string {
	return p.Base + PairSeparator + p.Quote
}

// Reverse swaps base and quote.
func (p Pair) Reverse() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// Fill is the realized result of walking one side of a book.
type Fill struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// IsZero reports whether nothing was filled.
func (f Fill) IsZero() bool {
	return f.Base.IsZero() && f.Quote.IsZero()
}

// SellBase sells up to baseAmount into bids. Quote is net of fee.
func SellBase(bids []PriceLevel, baseAmount, fee decimal.Decimal, precision int32) (Fill, error) {
	if err := validateWalk(baseAmount, fee); err != nil {
		return Fill{}, err
	}
	base, quote := walkBase(bids, baseAmount)
	return Fill{
		Base:  Truncate(base, precision),
		Quote: Truncate(quote.Mul(one.Sub(fee)), precision),
	}, nil
}

// BuyQuote spends up to quoteAmount against asks. Base is net of fee.
func BuyQuote(asks []PriceLevel, quoteAmount, fee decimal.Decimal, precision int32) (Fill, error) {
	if err := validateWalk(quoteAmount, fee); err != nil {
		return Fill{}, err
	}
	base, quote := walkQuote(asks, quoteAmount)
	return Fill{
		Base:  Truncate(base.Mul(one.Sub(fee)), precision),
		Quote: Truncate(quote, precision),
	}, nil
}

// BuyBase buys up to baseAmount from asks. Quote is the cost grossed up by fee.
func BuyBase(asks []PriceLevel, baseAmount, fee decimal.Decimal, precision int32) (Fill, error) {
	if err := validateWalk(baseAmount, fee); err != nil {
		return Fill{}, err
	}
	base, quote := walkBase(asks, baseAmount)
	return Fill{
		Base:  Truncate(base, precision),
		Quote: Truncate(quote.Mul(one.Add(fee)), precision),
	}, nil
}

// SellQuote finds the base that must be sold into bids to receive up to
// quoteAmount. Base is grossed up by fee.
func SellQuote(bids []PriceLevel, quoteAmount, fee decimal.Decimal, precision int32) (Fill, error) {
	if err := validateWalk(quoteAmount, fee); err != nil {
		return Fill{}, err
	}
	base, quote := walkQuote(bids, quoteAmount)
	return Fill{
		Base:  Truncate(base.Mul(one.Add(fee)), precision),
		Quote: Truncate(quote, precision),
	}, nil
}

// walkBase consumes levels until amount of base is filled or depth runs out.
func walkBase(levels []PriceLevel, amount decimal.Decimal) (base, quote decimal.Decimal) {
	remaining := amount
	for _, level := range levels {
		if !remaining.IsPositive() {
			break
		}
		if !level.usable() {
			continue
		}

		fill := decimal.Min(remaining, level.Size)
		base = base.Add(fill)
		quote = quote.Add(fill.Mul(level.Price))
		remaining = remaining.Sub(fill)
	}
	return base, quote
}

// walkQuote consumes levels until amount of quote is spent or depth runs out.
func walkQuote(levels []PriceLevel, amount decimal.Decimal) (base, quote decimal.Decimal) {
	remaining := amount
	for _, level := range levels {
		if !remaining.IsPositive() {
			break
		}
		if !level.usable() {
			continue
		}

		capacity := level.Size.Mul(level.Price)
		if capacity.LessThanOrEqual(remaining) {
			base = base.Add(level.Size)
			quote = quote.Add(capacity)
			remaining = remaining.Sub(capacity)
			continue
		}

		// Last level is partially taken; remaining is spent exactly.
		base = base.Add(remaining.Div(level.Price))
		quote = quote.Add(remaining)
		remaining = decimal.Zero
	}
	return base, quote
}

func validateWalk(amount, fee decimal.Decimal) error {
	if amount.IsNegative() {
		return apperror.New(apperror.CodeInvalidReserveOrAmount, apperror.WithContext("negative amount "+amount.String()))
	}
	return ValidateFee(fee)
}

package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// AmountOut quotes a constant-product pool: the output for amountIn with the
// input reserve inflated by 1/(1-fee).
func AmountOut(reserveIn, reserveOut, amountIn, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := validatePool(reserveIn, reserveOut, amountIn, fee); err != nil {
		return decimal.Zero, err
	}

	effectiveIn := reserveIn.Div(one.Sub(fee))
	return amountIn.Mul(reserveOut).Div(effectiveIn.Add(amountIn)), nil
}

// AmountIn is the input needed to receive amountOut, plus one unit of margin.
// amountOut must be below reserveOut.
func AmountIn(reserveIn, reserveOut, amountOut, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := validatePool(reserveIn, reserveOut, amountOut, fee); err != nil {
		return decimal.Zero, err
	}
	if amountOut.GreaterThanOrEqual(reserveOut) {
		return decimal.Zero, apperror.New(apperror.CodeInvalidReserveOrAmount,
			apperror.WithContextf("amountOut %s exceeds reserve %s", amountOut, reserveOut))
	}

	numerator := reserveIn.Mul(amountOut).Div(one.Sub(fee))
	return numerator.Div(reserveOut.Sub(amountOut)).Add(one), nil
}

func validatePool(reserveIn, reserveOut, amount, fee decimal.Decimal) error {
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() || !amount.IsPositive() {
		return apperror.New(apperror.CodeInvalidReserveOrAmount,
			apperror.WithContextf("reserveIn=%s reserveOut=%s amount=%s", reserveIn, reserveOut, amount))
	}
	return ValidateFee(fee)
}

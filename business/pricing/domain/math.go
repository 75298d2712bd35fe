package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// DefaultPrecision is the number of fractional digits order-book results keep.
const DefaultPrecision int32 = 8

var one = decimal.NewFromInt(1)

// Truncate cuts value to precision fractional digits, toward zero.
// A negative precision is treated as zero.
func Truncate(value decimal.Decimal, precision int32) decimal.Decimal {
	if precision < 0 {
		precision = 0
	}
	return value.Truncate(precision)
}

// ValidateFee checks that fee is a fraction in [0, 1).
func ValidateFee(fee decimal.Decimal) error {
	if fee.IsNegative() || fee.GreaterThanOrEqual(one) {
		return apperror.New(apperror.CodeInvalidFee, apperror.WithContext(fee.String()))
	}
	return nil
}

package domain

import "github.com/fd1az/arbitrage-engine/internal/apperror"

// Sentinels for errors.Is. AppError.Is compares codes, so any error carrying
// the same code matches regardless of context or cause.
var (
	ErrDuplicateReverseLiquidity = apperror.New(apperror.CodeDuplicateReverseLiquidity)
	ErrNoLiquidityFound          = apperror.New(apperror.CodeNoLiquidityFound)
	ErrInvalidPair               = apperror.New(apperror.CodeInvalidPair)
	ErrInvalidReserveOrAmount    = apperror.New(apperror.CodeInvalidReserveOrAmount)
	ErrInvalidFee                = apperror.New(apperror.CodeInvalidFee)
	ErrLengthMismatch            = apperror.New(apperror.CodeLengthMismatch)
	ErrInvalidRoute              = apperror.New(apperror.CodeInvalidRoute)
	ErrUnknownOrderType          = apperror.New(apperror.CodeUnknownOrderType)
)

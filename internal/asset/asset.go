// Package asset describes ERC20 tokens and converts between raw on-chain
// integers and decimal units.
package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxDecimals bounds token decimals; anything larger is a misconfiguration.
const MaxDecimals = 36

var (
	ErrEmptySymbol     = errors.New("asset: empty symbol")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrNilRaw          = errors.New("asset: nil raw value")
)

// Asset is a token on a chain. Identity is (chainID, address); the symbol is
// display metadata and the key the pricing engine trades under.
type Asset struct {
	symbol   string
	name     string
	chainID  uint64
	address  common.Address
	decimals uint8
}

// NewToken creates a token asset.
func NewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) (*Asset, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %s has %d", ErrTooManyDecimals, symbol, decimals)
	}
	return &Asset{
		symbol:   symbol,
		name:     name,
		chainID:  chainID,
		address:  address,
		decimals: decimals,
	}, nil
}

// MustNewToken is NewToken for package-level well-known tokens.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	a, err := NewToken(chainID, address, symbol, name, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) ChainID() uint64         { return a.chainID }
func (a *Asset) Address() common.Address { return a.address }
func (a *Asset) Decimals() uint8         { return a.decimals }

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

func (a *Asset) String() string {
	return fmt.Sprintf("%s(%d/%s)", a.symbol, a.chainID, a.address.Hex())
}

// Equals compares chain and address.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.chainID == other.chainID && a.address == other.address
}

// FromRaw scales a raw integer amount (wei, 6-decimal USDC units, ...) into
// whole token units. The result is exact.
func (a *Asset) FromRaw(raw *big.Int) (decimal.Decimal, error) {
	if raw == nil {
		return decimal.Zero, ErrNilRaw
	}
	if raw.Sign() < 0 {
		return decimal.Zero, ErrNegativeAmount
	}
	return decimal.NewFromBigInt(raw, -int32(a.decimals)), nil
}

package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// OrderType names the kind of liquidity a hop trades against.
type OrderType string

const (
	OrderTypeOrderBook OrderType = "orderbook"
	OrderTypeAMM       OrderType = "amm"
)

// ParseOrderType accepts "orderbook" (also "order-book", "book") and "amm".
// The empty string yields the order-book default.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "orderbook", "order-book", "book":
		return OrderTypeOrderBook, nil
	case "amm", "pool":
		return OrderTypeAMM, nil
	default:
		return "", apperror.Validation(apperror.CodeUnknownOrderType, s)
	}
}

// PriceLevel is one rung of a book: Size units of base at Price.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// NewPriceLevel parses a level from strings, the form exchanges send.
func NewPriceLevel(price, size string) (PriceLevel, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return PriceLevel{}, apperror.New(apperror.CodeInvalidOrderbook, apperror.WithContext("price "+price), apperror.WithCause(err))
	}
	s, err := decimal.NewFromString(size)
	if err != nil {
		return PriceLevel{}, apperror.New(apperror.CodeInvalidOrderbook, apperror.WithContext("size "+size), apperror.WithCause(err))
	}
	return PriceLevel{Price: p, Size: s}, nil
}

func (l PriceLevel) usable() bool {
	return l.Price.IsPositive() && l.Size.IsPositive()
}

// HopQuote is the realized input and output of one hop. For order books
// AmountIn may be less than requested when depth runs out.
type HopQuote struct {
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
}

// Liquidity is either an OrderBook or a ReservePool. The interface is sealed:
// only this package can implement it, so QuoteOut and QuoteIn cover every case.
type Liquidity interface {
	Kind() OrderType
	Clone() Liquidity

	quoteOut(reversed bool, amountIn, fee decimal.Decimal, precision int32) (HopQuote, error)
	quoteIn(reversed bool, amountOut, fee decimal.Decimal, precision int32) (HopQuote, error)
}

// QuoteOut prices selling amountIn through liq. reversed is true when liq is
// registered under the reverse of the pair being traded.
func QuoteOut(liq Liquidity, reversed bool, amountIn, fee decimal.Decimal, precision int32) (HopQuote, error) {
	return liq.quoteOut(reversed, amountIn, fee, precision)
}

// QuoteIn prices how much input liq needs to deliver amountOut.
func QuoteIn(liq Liquidity, reversed bool, amountOut, fee decimal.Decimal, precision int32) (HopQuote, error) {
	return liq.quoteIn(reversed, amountOut, fee, precision)
}

// OrderBook holds both sides of a book, each best-first. Levels are used in
// the order given.
type OrderBook struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

func (b OrderBook) Kind() OrderType { return OrderTypeOrderBook }

func (b OrderBook) Clone() Liquidity {
	return OrderBook{
		Bids: append([]PriceLevel(nil), b.Bids...),
		Asks: append([]PriceLevel(nil), b.Asks...),
	}
}

// BestBid returns the first bid, if any.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the first ask, if any.
func (b OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Forward (BASE_QUOTE) a hop base->quote sells base into bids. Reversed, the
// hop is quote->base and spends quote against asks.
func (b OrderBook) quoteOut(reversed bool, amountIn, fee decimal.Decimal, precision int32) (HopQuote, error) {
	if reversed {
		fill, err := BuyQuote(b.Asks, amountIn, fee, precision)
		if err != nil {
			return HopQuote{}, err
		}
		return HopQuote{AmountIn: fill.Quote, AmountOut: fill.Base}, nil
	}

	fill, err := SellBase(b.Bids, amountIn, fee, precision)
	if err != nil {
		return HopQuote{}, err
	}
	return HopQuote{AmountIn: fill.Base, AmountOut: fill.Quote}, nil
}

func (b OrderBook) quoteIn(reversed bool, amountOut, fee decimal.Decimal, precision int32) (HopQuote, error) {
	if reversed {
		fill, err := BuyBase(b.Asks, amountOut, fee, precision)
		if err != nil {
			return HopQuote{}, err
		}
		return HopQuote{AmountIn: fill.Quote, AmountOut: fill.Base}, nil
	}

	fill, err := SellQuote(b.Bids, amountOut, fee, precision)
	if err != nil {
		return HopQuote{}, err
	}
	return HopQuote{AmountIn: fill.Base, AmountOut: fill.Quote}, nil
}

// ReservePool holds the reserves of a constant-product pool registered as
// TOKEN0_TOKEN1.
type ReservePool struct {
	R0 decimal.Decimal
	R1 decimal.Decimal
}

func (p ReservePool) Kind() OrderType { return OrderTypeAMM }

func (p ReservePool) Clone() Liquidity { return p }

// Price returns token1 per token0 at the margin.
func (p ReservePool) Price() decimal.Decimal {
	if p.R0.IsZero() {
		return decimal.Zero
	}
	return p.R1.Div(p.R0)
}

func (p ReservePool) reserves(reversed bool) (in, out decimal.Decimal) {
	if reversed {
		return p.R1, p.R0
	}
	return p.R0, p.R1
}

// Pools never partially fill, so the requested side is echoed back.
func (p ReservePool) quoteOut(reversed bool, amountIn, fee decimal.Decimal, _ int32) (HopQuote, error) {
	rIn, rOut := p.reserves(reversed)
	out, err := AmountOut(rIn, rOut, amountIn, fee)
	if err != nil {
		return HopQuote{}, err
	}
	return HopQuote{AmountIn: amountIn, AmountOut: out}, nil
}

func (p ReservePool) quoteIn(reversed bool, amountOut, fee decimal.Decimal, _ int32) (HopQuote, error) {
	rIn, rOut := p.reserves(reversed)
	in, err := AmountIn(rIn, rOut, amountOut, fee)
	if err != nil {
		return HopQuote{}, err
	}
	return HopQuote{AmountIn: in, AmountOut: amountOut}, nil
}

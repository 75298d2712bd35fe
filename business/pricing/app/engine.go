package app

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// Engine prices hops and routes against one Registry. It never mutates the
// registry; pass a Snapshot when feeds may be writing concurrently.
type Engine struct {
	registry  *Registry
	precision int32
}

// NewEngine creates an Engine reading from registry with
// domain.DefaultPrecision for hops that leave precision unset.
func NewEngine(registry *Registry) *Engine {
	return NewEngineWithPrecision(registry, domain.DefaultPrecision)
}

// NewEngineWithPrecision is NewEngine with a configured default precision.
// A non-positive value selects domain.DefaultPrecision.
func NewEngineWithPrecision(registry *Registry, precision int32) *Engine {
	if precision <= 0 {
		precision = domain.DefaultPrecision
	}
	return &Engine{registry: registry, precision: precision}
}

// Precision is the order-book precision applied when a caller passes 0.
func (e *Engine) Precision() int32 {
	return e.precision
}

func (e *Engine) hopPrecision(p int32) int32 {
	if p > 0 {
		return p
	}
	return e.precision
}

// Registry returns the store the engine prices against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// GetAmountOut prices selling amountIn of pair.Base for pair.Quote on venue.
// The order book result may have AmountIn below the request on a partial fill.
// A precision of 0 means the engine default.
func (e *Engine) GetAmountOut(venue string, pair domain.Pair, amountIn, fee decimal.Decimal, precision int32, kind domain.OrderType) (domain.HopQuote, error) {
	liq, reversed, err := e.resolve(venue, pair, kind)
	if err != nil {
		return domain.HopQuote{}, err
	}
	return domain.QuoteOut(liq, reversed, amountIn, fee, e.hopPrecision(precision))
}

// GetAmountIn prices how much pair.Base is needed on venue to receive
// amountOut of pair.Quote.
func (e *Engine) GetAmountIn(venue string, pair domain.Pair, amountOut, fee decimal.Decimal, precision int32, kind domain.OrderType) (domain.HopQuote, error) {
	liq, reversed, err := e.resolve(venue, pair, kind)
	if err != nil {
		return domain.HopQuote{}, err
	}
	return domain.QuoteIn(liq, reversed, amountOut, fee, e.hopPrecision(precision))
}

// GetAmountsOut walks route, feeding each hop's realized output into the
// next. The result has one amount per token, starting with route.AmountIn.
func (e *Engine) GetAmountsOut(route domain.RouteSpec) ([]decimal.Decimal, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}

	amounts := make([]decimal.Decimal, route.Len())
	amounts[0] = route.AmountIn

	for i := 1; i < route.Len(); i++ {
		hop := route.Hop(i)
		q, err := e.GetAmountOut(hop.Venue, hop.Pair, amounts[i-1], hop.Fee, hop.Precision, hop.Kind)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternalError, "hop "+hop.Venue+" "+hop.Pair.String())
		}
		amounts[i] = q.AmountOut
	}

	return amounts, nil
}

// resolve finds liquidity of the requested kind for pair, falling back to the
// reverse orientation. Entries of another kind count as absent.
func (e *Engine) resolve(venue string, pair domain.Pair, kind domain.OrderType) (domain.Liquidity, bool, error) {
	if kind == "" {
		kind = domain.OrderTypeOrderBook
	}
	if kind != domain.OrderTypeOrderBook && kind != domain.OrderTypeAMM {
		return nil, false, apperror.Validation(apperror.CodeUnknownOrderType, string(kind))
	}

	if liq, ok := e.registry.Lookup(venue, pair); ok && liq.Kind() == kind {
		return liq, false, nil
	}
	if liq, ok := e.registry.Lookup(venue, pair.Reverse()); ok && liq.Kind() == kind {
		return liq, true, nil
	}

	return nil, false, apperror.New(apperror.CodeNoLiquidityFound,
		apperror.WithContextf("%s %s (%s)", venue, pair, kind))
}

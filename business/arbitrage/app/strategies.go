package app

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
	"github.com/fd1az/arbitrage-engine/internal/config"
)

// BuildStrategies turns configured templates into strategies sharing the
// global thresholds. precision is applied to every order-book hop.
func BuildStrategies(cfg config.ArbitrageConfig, precision int32) ([]domain.Strategy, error) {
	thresholds := domain.Thresholds{
		MinPNL:    cfg.MinPNLDecimal(),
		MinPNLBps: cfg.MinPNLBpsDecimal(),
	}

	strategies := make([]domain.Strategy, 0, len(cfg.Strategies))
	for _, sc := range cfg.Strategies {
		params, err := parseParams(sc)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeConfigurationError, "strategy "+sc.DisplayName())
		}
		params.Precision = precision
		strategies = append(strategies, domain.Strategy{
			Name:       sc.DisplayName(),
			Params:     params,
			Thresholds: thresholds,
		})
	}
	return strategies, nil
}

func parseParams(sc config.StrategyConfig) (domain.PureArbParams, error) {
	amountIn, err := decimal.NewFromString(sc.AmountIn)
	if err != nil || !amountIn.IsPositive() {
		return domain.PureArbParams{}, apperror.Validation(apperror.CodeInvalidReserveOrAmount, "amount_in "+sc.AmountIn)
	}

	fee0, err := parseFee(sc.Fee0)
	if err != nil {
		return domain.PureArbParams{}, err
	}
	fee1, err := parseFee(sc.Fee1)
	if err != nil {
		return domain.PureArbParams{}, err
	}

	kind0, err := pricingDomain.ParseOrderType(sc.OrderType0)
	if err != nil {
		return domain.PureArbParams{}, err
	}
	kind1, err := pricingDomain.ParseOrderType(sc.OrderType1)
	if err != nil {
		return domain.PureArbParams{}, err
	}

	return domain.PureArbParams{
		Venue0:   sc.Venue0,
		Venue1:   sc.Venue1,
		Token0:   sc.Token0,
		Token1:   sc.Token1,
		Middle:   sc.Middle,
		AmountIn: amountIn,
		Fee0:     fee0,
		Fee1:     fee1,
		Kind0:    kind0,
		Kind1:    kind1,
	}, nil
}

func parseFee(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeInvalidFee, apperror.WithContext(s), apperror.WithCause(err))
	}
	if err := pricingDomain.ValidateFee(fee); err != nil {
		return decimal.Zero, err
	}
	return fee, nil
}

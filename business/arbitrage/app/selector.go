package app

import (
	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// Selector prices and scores template routes against one engine.
type Selector struct {
	engine *pricingApp.Engine
}

// NewSelector creates a Selector bound to engine.
func NewSelector(engine *pricingApp.Engine) *Selector {
	return &Selector{engine: engine}
}

// CalculatePureArb returns the template route with the highest PNL. The
// first candidate wins ties. Any pricing failure aborts the selection.
func (s *Selector) CalculatePureArb(p domain.PureArbParams) (domain.Candidate, error) {
	best, _, err := s.CalculatePureArbAll(p)
	return best, err
}

// CalculatePureArbAll is CalculatePureArb that also returns every scored
// candidate in template order.
func (s *Selector) CalculatePureArbAll(p domain.PureArbParams) (domain.Candidate, []domain.Candidate, error) {
	routes := domain.PureArbTemplateRoutes(p)
	candidates := make([]domain.Candidate, 0, len(routes))

	for i, route := range routes {
		amounts, err := s.engine.GetAmountsOut(route)
		if err != nil {
			return domain.Candidate{}, nil, apperror.Wrap(err, apperror.CodeInternalError, "route "+route.String())
		}
		candidates = append(candidates, domain.NewCandidate(route, amounts, domain.DirectionOf(i)))
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.BetterThan(best) {
			best = c
		}
	}
	return best, candidates, nil
}

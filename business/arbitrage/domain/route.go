package domain

import "github.com/shopspring/decimal"

// Step is one leg of a route: what went in and what came out.
type Step struct {
	In  decimal.Decimal
	Out decimal.Decimal
}

// SplitAmounts turns an amounts sequence into adjacent legs.
func SplitAmounts(amounts []decimal.Decimal) []Step {
	if len(amounts) < 2 {
		return nil
	}
	steps := make([]Step, 0, len(amounts)-1)
	for i := 1; i < len(amounts); i++ {
		steps = append(steps, Step{In: amounts[i-1], Out: amounts[i]})
	}
	return steps
}

// CalculatePNL returns the profit of steps in units of the first leg's input.
//
// When a leg consumes a different amount than the previous leg delivered,
// the difference is valued at the exchange rate accumulated so far and added
// to the cost basis. For a contiguous chain this reduces to last out minus
// first in. A zero leg input makes the accumulated rate zero from then on.
func CalculatePNL(steps []Step) decimal.Decimal {
	if len(steps) == 0 {
		return decimal.Zero
	}

	inputValue := steps[0].In
	outputValue := steps[len(steps)-1].Out
	accPrice := decimal.NewFromInt(1)

	for i := 1; i < len(steps); i++ {
		prev, cur := steps[i-1], steps[i]

		if prev.In.IsZero() {
			accPrice = decimal.Zero
		} else {
			accPrice = accPrice.Mul(prev.Out.Div(prev.In))
		}

		deviation := cur.In.Sub(prev.Out)
		inputValue = inputValue.Add(deviation.Mul(accPrice))
	}

	return outputValue.Sub(inputValue)
}

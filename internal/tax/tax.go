// Package tax computes the tax breakdown for plan charges.
package tax

import (
	"errors"
	"math"
)

var ErrNegativeBase = errors.New("negative_base_amount")

// Breakdown is the result of applying a tax rate to a base amount.
// All amounts are in major currency units, rounded to two decimals.
type Breakdown struct {
	Base  float64 `json:"base"`
	Tax   float64 `json:"tax"`
	Total float64 `json:"total"`
	Rate  float64 `json:"rate"`
}

// Compute applies rate to base and rounds tax and total to two decimal
// places independently, half away from zero.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
func Compute(base, rate float64) (Breakdown, error) {
	if base < 0 {
		return Breakdown{}, ErrNegativeBase
	}

	base = round2(base)
	tax := round2(base * rate)
	total := round2(base + tax)

	return Breakdown{
		Base:  base,
		Tax:   tax,
		Total: total,
		Rate:  rate,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

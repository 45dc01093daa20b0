package paper

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne      = decimal.NewFromInt(1)
	decHundred  = decimal.NewFromInt(100)
	decimalZero = decimal.Zero
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimalZero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }

// trailingLevel computes the stop level at a fixed percentage offset from the
// anchor price, in the position's unfavorable direction.
func trailingLevel(side Side, anchor, offsetPct float64) float64 {
	base := decFromFloat(anchor)
	off := decFromFloat(offsetPct).Div(decHundred)
	if side == SideSell {
		return decToFloat(base.Mul(decOne.Add(off)))
	}
	return decToFloat(base.Mul(decOne.Sub(off)))
}

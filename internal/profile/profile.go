// Package profile provides the cashflow weighting curves used to spread an
// amount across a run of periods.
package profile

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

// S-curve shape constants.
const (
	taperStart = 0.8 // fraction of n after which the curve tapers
	taperFloor = 0.5 // multiplier reached at the final period
)

// raw returns the unnormalized weights for n periods. n must be positive.
func raw(n int, p model.Profile) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	if p != model.ProfileSCurve {
		for i := range out {
			out[i] = decimal.NewFromInt(1)
		}
		return out
	}

	fn := float64(n)
	center := fn / 2
	spread := fn / 10
	cut := taperStart * fn
	for i := 1; i <= n; i++ {
		x := float64(i)
		w := 1 / (1 + math.Exp(-(x-center)/spread))
		if x > cut {
			w *= 1 - (1-taperFloor)*(x-cut)/(fn-cut)
		}
		out[i-1] = decimal.NewFromFloat(w)
	}
	return out
}

// Distribution returns n non-negative weights summing to one (within
// decimal division precision). It returns nil for n < 1.
func Distribution(n int, p model.Profile) []decimal.Decimal {
	if n < 1 {
		return nil
	}
	ws := raw(n, p)
	sum := decimal.Sum(ws[0], ws[1:]...)
	out := make([]decimal.Decimal, n)
	for i, w := range ws {
		out[i] = w.Div(sum)
	}
	return out
}

// Apply spreads total across n periods. Each share is total*w/Σw computed
// from the raw weights, so a linear split of 1200 over 12 is exactly 100.
// No share absorbs a remainder; the sum matches total up to decimal
// division precision.
func Apply(total decimal.Decimal, n int, p model.Profile) []decimal.Decimal {
	if n < 1 {
		return nil
	}
	ws := raw(n, p)
	sum := decimal.Sum(ws[0], ws[1:]...)
	out := make([]decimal.Decimal, n)
	for i, w := range ws {
		out[i] = total.Mul(w).Div(sum)
	}
	return out
}

package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Regression holds an ordinary least squares fit of y on x.
type Regression struct {
	Alpha    float64 // intercept, per period
	Beta     float64 // slope
	RSquared float64
}

// CalculateRegression fits y = Alpha + Beta·x. ok is false when the inputs are
// mismatched, shorter than 2, or x has no variance.
func CalculateRegression(x, y []float64) (Regression, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return Regression{}, false
	}
	if Variance(x) == 0 {
		return Regression{}, false
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := stat.RSquared(x, y, nil, alpha, beta)

	return Regression{Alpha: alpha, Beta: beta, RSquared: r2}, true
}

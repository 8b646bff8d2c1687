package formulas

import (
	"math"
)

func sqrt(x float64) float64 {
	return math.Sqrt(x)
}

// CalculateSharpeRatio calculates the annualized Sharpe Ratio
//
//	Sharpe = (mean(returns) - riskFreeRate/periodsPerYear) / stddev(returns) × sqrt(periodsPerYear)
//
// riskFreeRate is annual, as decimal. Returns nil with fewer than 2 returns or zero volatility.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))

	return &annualized
}

// DownsideDeviation is sqrt of the mean squared shortfall of the returns that fall
// below periodicTarget. The mean is taken over the downside returns only.
func DownsideDeviation(returns []float64, periodicTarget float64) float64 {
	var squaredSum float64
	count := 0
	for _, ret := range returns {
		if ret < periodicTarget {
			deviation := ret - periodicTarget
			squaredSum += deviation * deviation
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(squaredSum / float64(count))
}

// CalculateSortinoRatio calculates the annualized Sortino Ratio
//
//	Sortino = (mean(returns) - riskFreeRate/periodsPerYear) / downside deviation × sqrt(periodsPerYear)
//
// targetReturn is the annual minimum acceptable return. Returns nil with fewer than
// 2 returns or when nothing falls below the target.
func CalculateSortinoRatio(returns []float64, riskFreeRate float64, targetReturn float64, periodsPerYear int) *float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return nil
	}

	downside := DownsideDeviation(returns, targetReturn/float64(periodsPerYear))
	if downside == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sortino := (Mean(returns) - periodicRiskFree) / downside
	annualized := sortino * math.Sqrt(float64(periodsPerYear))

	return &annualized
}

package testUtils

import (
	"math"
)

//FloatEqUpTo returns true if abs(a-b)<=maxDiff
func FloatEqUpTo(a, b, maxDiff float64) bool {
	return math.Abs(a-b) <= maxDiff
}

//FloatSliceEqUpTo returns true if FloatEqUpTo(a[i],b[i],maxDiff) holds for all elements
func FloatSliceEqUpTo(a, b []float64, maxDiff float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !FloatEqUpTo(a[i], b[i], maxDiff) {
			return false
		}
	}
	return true
}

//WithinStdErrs returns true if the sample mean is at most k standard errors away from want.
//stdDev is the sample standard deviation and n the sample size
func WithinStdErrs(mean, want, stdDev float64, n int, k float64) bool {
	if n == 0 {
		return false
	}
	stdErr := stdDev / math.Sqrt(float64(n))
	//degenerate sample, fall back to a tight absolute bound
	if stdErr == 0 {
		return FloatEqUpTo(mean, want, 1e-9)
	}
	return math.Abs(mean-want) <= k*stdErr
}

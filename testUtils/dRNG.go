package testUtils

import "math/rand"

//DRNG returns a deterministic pseudo random source. Calling with the same seed will yield the same sequence.
//Intended to make statistical tests on generated data reproducible
func DRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

//DRNGFloat64SliceCustomScale returns a slice of length entries with pseudo random values from -scaleFactor to scaleFactor
//Calling with the same seed will yield the same sequence
func DRNGFloat64SliceCustomScale(length int, seed int64, scaleFactor float64) []float64 {
	dRNG := DRNG(seed)
	buf := make([]float64, length)
	for i := 0; i < length; i++ {
		sign := dRNG.Float32()
		buf[i] = dRNG.Float64() * scaleFactor
		if sign <= 0.5 {
			buf[i] *= -1
		}
	}
	return buf
}

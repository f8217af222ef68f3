package utils

import "math"

// Round2 rounds x to cents.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

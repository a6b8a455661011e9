package engine

import "math"

// stepEpsilon absorbs float representation error before flooring so that a
// quantity already aligned to its step is returned unchanged.
const stepEpsilon = 1e-9

// FloorToStep floors qty down to the nearest multiple of step. Flooring,
// never rounding up, guarantees a sized order cannot exceed the capital
// that authorized it. A zero or negative step leaves qty untouched.
func FloorToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	steps := math.Floor(qty/step + stepEpsilon)
	if steps <= 0 {
		return 0
	}
	return steps * step
}

// TruncateToPrecision truncates value to the given number of decimal
// places without rounding.
func TruncateToPrecision(value float64, precision int) float64 {
	if precision <= 0 {
		return math.Floor(value)
	}
	factor := math.Pow(10, float64(precision))
	return math.Floor(value*factor+stepEpsilon) / factor
}

func isFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// meanAndStdev returns the arithmetic mean and population standard
// deviation of rates.
func meanAndStdev(rates []float64) (float64, float64) {
	if len(rates) == 0 {
		return 0, 0
	}
	var sum float64
	for _, r := range rates {
		sum += r
	}
	mean := sum / float64(len(rates))
	var sq float64
	for _, r := range rates {
		d := r - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(rates)))
}

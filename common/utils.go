package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// CeilDiv divides n by d rounding up. Used to size dispatch grids that must cover every pixel.
// A non-positive divisor yields 0.
//
// Parameters:
//   - n: the dividend (for example an image width)
//   - d: the divisor (for example a tile width)
//
// Returns:
//   - int: ceil(n / d)
func CeilDiv(n, d int) int {
	if d <= 0 || n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

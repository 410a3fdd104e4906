package common

// Coalesce returns the first of values that is not the zero value of T.
// Builder options use it to fall back to defaults.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
